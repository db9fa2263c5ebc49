package savant

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/mlb"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/table"
)

// Column candidates, checked in order. The pitch-data CSV is an unstable
// contract; the first name carried by the payload wins.
var (
	gameIDCols      = []string{"game_pk", "game_id"}
	homeTeamCols    = []string{"home_team", "home_team_name"}
	awayTeamCols    = []string{"away_team", "away_team_name"}
	pitcherTeamCols = []string{"pitcher_team", "team_name", "team"}
	stadiumCols     = []string{"stadium", "venue"}
)

// dateLayouts are the formats a game_date cell is tried against before
// being carried through verbatim.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"20060102",
}

// GameDeriver reconstructs a pitcher's game list from a season's pitch rows.
// The info collaborator is optional; without it, fields the CSV never
// carried stay empty.
type GameDeriver struct {
	info   GameInfoLookup
	logger *slog.Logger
}

func NewGameDeriver(info GameInfoLookup, logger *slog.Logger) *GameDeriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &GameDeriver{info: info, logger: logger}
}

// Derive groups the season rows into games and extracts per-game metadata.
// Grouping prefers (game id, date) when a game-id column is present; with no
// game-id column each distinct date is assumed to be one game. The result is
// ordered by date descending, ties kept in first-seen order.
func (d *GameDeriver) Derive(ctx context.Context, pitcherID string, t *table.Table) []mlb.Game {
	if t.Empty() {
		return nil
	}
	if !t.HasColumn("game_date") {
		d.logger.Warn("season rows carry no game_date column, cannot derive games", "pitcher_id", pitcherID)
		return nil
	}

	idCol := firstPresent(t, gameIDCols)

	var games []mlb.Game
	for _, bucket := range groupGames(t, idCol) {
		game := mlb.Game{
			Date:      coerceDate(bucket.date),
			PitcherID: pitcherID,
			GamePK:    bucket.gamePK,
		}
		d.fillTeams(&game, bucket.rows)
		d.fillStadium(&game, bucket.rows)
		d.backfill(ctx, &game)
		games = append(games, game)
	}

	sort.SliceStable(games, func(i, j int) bool { return games[i].Date > games[j].Date })
	return games
}

type gameBucket struct {
	date   string
	gamePK int
	rows   *table.Table
}

// groupGames buckets rows by (game id, date) when idCol is set, else by
// date alone. First-seen bucket order is preserved.
func groupGames(t *table.Table, idCol string) []gameBucket {
	index := map[string]int{}
	var buckets []gameBucket
	for i := 0; i < t.Len(); i++ {
		date := t.At(i, "game_date").Text()
		var pk int
		key := date
		if idCol != "" {
			if id, ok := t.At(i, idCol).Int64(); ok {
				pk = int(id)
				key = fmt.Sprintf("%d|%s", pk, date)
			}
		}
		bi, ok := index[key]
		if !ok {
			bi = len(buckets)
			index[key] = bi
			buckets = append(buckets, gameBucket{date: date, gamePK: pk, rows: table.New(t.Columns()...)})
		}
		buckets[bi].rows.Append(t.Row(i))
	}
	return buckets
}

// fillTeams resolves opponent and home/away by comparing the pitcher's team
// column against the home/away columns. When the pitcher's team is unknown
// but both sides are, the opponent is synthesized as "away @ home" so the
// game is still labeled.
func (d *GameDeriver) fillTeams(game *mlb.Game, rows *table.Table) {
	home := firstCell(rows, homeTeamCols)
	away := firstCell(rows, awayTeamCols)
	if home == "" || away == "" {
		return
	}
	pitcherTeam := firstCell(rows, pitcherTeamCols)
	switch {
	case pitcherTeam == "":
		game.Opponent = fmt.Sprintf("%s @ %s", away, home)
	case pitcherTeam == home:
		game.Opponent = away
		game.HomeAway = "home"
	default:
		game.Opponent = home
		game.HomeAway = "away"
	}
}

func (d *GameDeriver) fillStadium(game *mlb.Game, rows *table.Table) {
	game.Stadium = firstCell(rows, stadiumCols)
}

// backfill fills opponent/stadium gaps from the secondary game-info endpoint.
// Only missing fields are touched, and only when a game id is known. Lookup
// failures are logged and the game kept as-is.
func (d *GameDeriver) backfill(ctx context.Context, game *mlb.Game) {
	if d.info == nil || game.GamePK == 0 {
		return
	}
	if game.Opponent != "" && game.Stadium != "" {
		return
	}
	info, err := d.info.GameInfo(ctx, game.GamePK)
	if err != nil {
		d.logger.Warn("game info backfill failed", "game_pk", game.GamePK, "error", err)
		return
	}
	if game.Opponent == "" && info.HomeTeam != "" && info.AwayTeam != "" {
		switch game.HomeAway {
		case "home":
			game.Opponent = info.AwayTeam
		case "away":
			game.Opponent = info.HomeTeam
		default:
			game.Opponent = fmt.Sprintf("%s @ %s", info.AwayTeam, info.HomeTeam)
		}
	}
	if game.Stadium == "" {
		game.Stadium = info.Venue
	}
}

// firstPresent returns the first candidate column the table carries.
func firstPresent(t *table.Table, candidates []string) string {
	for _, name := range candidates {
		if t.HasColumn(name) {
			return name
		}
	}
	return ""
}

// firstCell returns the first row's value of the first candidate column
// with a non-null cell, rendered as text.
func firstCell(t *table.Table, candidates []string) string {
	if t.Empty() {
		return ""
	}
	for _, name := range candidates {
		if !t.HasColumn(name) {
			continue
		}
		if v := t.At(0, name); !v.IsNull() {
			return v.Text()
		}
	}
	return ""
}

// coerceDate normalizes a date cell to YYYY-MM-DD. Unparsable values are
// returned verbatim rather than dropped; a wrong-looking date still names
// a real group of pitches.
func coerceDate(raw string) string {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.Format("2006-01-02")
		}
	}
	return raw
}
