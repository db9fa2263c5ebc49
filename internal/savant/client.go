// Package savant provides the Baseball Savant (Statcast) data source: the
// pitch-by-pitch CSV export, the player-search endpoint with its fallback
// chain, and the derivation of per-game metadata from season-wide data.
//
// Savant's CSV contract is unstable: the column set is not guaranteed and
// empty responses are routine. Decoding normalizes whatever arrives into a
// table.Table and signals absence with ErrNoData rather than an error.
package savant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/httpx"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/mlb"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/mlbstats"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/table"
)

const (
	defaultStatsURL  = "https://baseballsavant.mlb.com/statcast_search/csv"
	defaultSearchURL = "https://baseballsavant.mlb.com/player-search"
)

var (
	// ErrNoData reports an empty-but-successful upstream response: the
	// pitcher has no tracked pitches for the requested filter. Distinct
	// from a transport or decode failure.
	ErrNoData = errors.New("savant: no pitch data")

	// ErrInvalidDate reports a caller-supplied game date that is not
	// in YYYY-MM-DD form. Raised before any network traffic.
	ErrInvalidDate = errors.New("savant: game date must be YYYY-MM-DD")
)

// GameInfoLookup is the supplementary game-metadata collaborator used to
// fill opponent/stadium fields the CSV did not carry.
type GameInfoLookup interface {
	GameInfo(ctx context.Context, gamePK int) (mlbstats.GameInfo, error)
}

// PlayerSearcher is the roster-search collaborator behind the roster tier
// of pitcher search. *mlbstats.Client satisfies it.
type PlayerSearcher interface {
	SearchPlayers(ctx context.Context, name, position string) ([]mlbstats.PlayerMatch, error)
}

// Client fetches pitch data and pitcher identities from Baseball Savant.
// All traffic goes through one rate-limited httpx.Client.
type Client struct {
	http      *httpx.Client
	statsURL  string
	searchURL string
	deriver   *GameDeriver
	roster    PlayerSearcher
	logger    *slog.Logger
}

// NewClient creates a Savant source. info may be nil, in which case derived
// games keep whatever metadata the CSV provided and pitcher search skips
// the roster tier.
func NewClient(hc *httpx.Client, info GameInfoLookup, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		http:      hc,
		statsURL:  defaultStatsURL,
		searchURL: defaultSearchURL,
		deriver:   NewGameDeriver(info, logger),
		logger:    logger,
	}
	if ps, ok := info.(PlayerSearcher); ok {
		c.roster = ps
	}
	return c
}

// SetStatsURL overrides the pitch-data endpoint, for tests.
func (c *Client) SetStatsURL(u string) { c.statsURL = u }

// SetSearchURL overrides the player-search endpoint, for tests.
func (c *Client) SetSearchURL(u string) { c.searchURL = u }

// PitchQuery selects the pitch rows to fetch. At most one game filter is
// sent upstream: GameDate wins over GamePK, and with neither set the query
// covers the whole season. Season scopes every query (the endpoint requires
// hfSea) and defaults to the current year.
type PitchQuery struct {
	PitcherID string
	GameDate  string // YYYY-MM-DD, single game day
	GamePK    int    // explicit game id, disambiguates doubleheaders
	Season    string // season year, e.g. "2024"
	Team      string // optional team abbreviation filter
}

// PitchData fetches pitch-by-pitch rows for one pitcher. Returns ErrNoData
// when the response body holds no rows; a body that cannot be parsed as CSV
// fails with table.ErrDecode wrapped in the returned error.
func (c *Client) PitchData(ctx context.Context, q PitchQuery) (*table.Table, error) {
	if q.GameDate != "" {
		if _, err := time.Parse("2006-01-02", q.GameDate); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, q.GameDate)
		}
	}

	params := c.buildParams(q)
	c.logger.Info("fetching pitch data",
		"pitcher_id", q.PitcherID, "game_date", q.GameDate, "game_pk", q.GamePK, "season", params.Get("hfSea"))

	body, err := c.http.Get(ctx, c.statsURL, params, nil)
	if err != nil {
		return nil, err
	}

	t, err := table.ReadCSV(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode pitch data: %w", err)
	}
	if t.Empty() {
		c.logger.Warn("no pitch data", "pitcher_id", q.PitcherID, "game_date", q.GameDate)
		return nil, ErrNoData
	}
	c.logger.Info("pitch data fetched", "pitcher_id", q.PitcherID, "rows", t.Len())
	return t, nil
}

// buildParams assembles the Statcast search query. The blank keys are
// required by the endpoint; omitting them changes the result shape.
func (c *Client) buildParams(q PitchQuery) url.Values {
	season := q.Season
	if season == "" {
		season = strconv.Itoa(time.Now().Year())
	}

	params := url.Values{}
	params.Set("all", "true")
	params.Set("hfPT", "")
	params.Set("hfAB", "")
	params.Set("hfGT", "R|") // regular season only
	params.Set("hfPR", "")
	params.Set("hfZ", "")
	params.Set("stadium", "")
	params.Set("hfBBL", "")
	params.Set("hfNewZones", "")
	params.Set("hfPull", "")
	params.Set("hfC", "")
	params.Set("hfSea", season+"|")
	params.Set("hfSit", "")
	params.Set("player_type", "pitcher")
	params.Set("hfOuts", "")
	params.Set("pitcher_throws", "")
	params.Set("batter_stands", "")
	params.Set("hfSA", "")
	params.Set("pitchers_lookup[]", q.PitcherID)
	params.Set("team", q.Team)
	params.Set("position", "")
	params.Set("hfRO", "")
	params.Set("home_road", "")
	params.Set("hfFlag", "")
	params.Set("metric_1", "")
	params.Set("hfInn", "")
	params.Set("min_pitches", "0")
	params.Set("min_results", "0")
	params.Set("group_by", "name")
	params.Set("sort_col", "pitches")
	params.Set("player_event_sort", "pitch_number")
	params.Set("sort_order", "desc")
	params.Set("min_pas", "0")
	params.Set("type", "details")

	// One game filter only: a date pins the game day exactly, so a
	// simultaneous game_pk adds nothing and is dropped.
	switch {
	case q.GameDate != "":
		params.Set("game_date_gt", q.GameDate)
		params.Set("game_date_lt", q.GameDate)
	case q.GamePK > 0:
		params.Set("game_pk", strconv.Itoa(q.GamePK))
	}
	return params
}

// GamesForSeason fetches the season's pitch rows for one pitcher and
// reconstructs the per-game list. An empty season is not an error.
func (c *Client) GamesForSeason(ctx context.Context, pitcherID string, season int) ([]mlb.Game, error) {
	t, err := c.PitchData(ctx, PitchQuery{PitcherID: pitcherID, Season: strconv.Itoa(season)})
	if errors.Is(err, ErrNoData) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch season %d: %w", season, err)
	}

	games := c.deriver.Derive(ctx, pitcherID, t)
	c.logger.Info("season games derived", "pitcher_id", pitcherID, "season", season, "games", len(games))
	return games, nil
}
