package savant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/mlbstats"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/table"
)

type fakeGameInfo struct {
	calls int
	info  mlbstats.GameInfo
	err   error
}

func (f *fakeGameInfo) GameInfo(_ context.Context, _ int) (mlbstats.GameInfo, error) {
	f.calls++
	return f.info, f.err
}

func seasonTable(cols []string, rows ...table.Row) *table.Table {
	t := table.New(cols...)
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func TestDeriveGroupsByGamePKAndDate(t *testing.T) {
	// A doubleheader: same date, two game ids.
	tab := seasonTable(
		[]string{"game_date", "game_pk", "home_team", "away_team", "pitcher_team", "stadium"},
		table.Row{"game_date": table.String("2024-07-04"), "game_pk": table.Int(700001), "home_team": table.String("NYM"), "away_team": table.String("ATL"), "pitcher_team": table.String("NYM"), "stadium": table.String("Citi Field")},
		table.Row{"game_date": table.String("2024-07-04"), "game_pk": table.Int(700001), "home_team": table.String("NYM"), "away_team": table.String("ATL"), "pitcher_team": table.String("NYM"), "stadium": table.String("Citi Field")},
		table.Row{"game_date": table.String("2024-07-04"), "game_pk": table.Int(700002), "home_team": table.String("NYM"), "away_team": table.String("ATL"), "pitcher_team": table.String("NYM"), "stadium": table.String("Citi Field")},
	)

	games := NewGameDeriver(nil, nil).Derive(context.Background(), "669011", tab)
	require.Len(t, games, 2)

	assert.Equal(t, 700001, games[0].GamePK)
	assert.Equal(t, 700002, games[1].GamePK)
	for _, g := range games {
		assert.Equal(t, "2024-07-04", g.Date)
		assert.Equal(t, "669011", g.PitcherID)
		assert.Equal(t, "home", g.HomeAway)
		assert.Equal(t, "ATL", g.Opponent)
		assert.Equal(t, "Citi Field", g.Stadium)
	}
}

func TestDeriveGroupsByDateWithoutGameID(t *testing.T) {
	tab := seasonTable(
		[]string{"game_date", "home_team", "away_team", "pitcher_team"},
		table.Row{"game_date": table.String("2024-05-01"), "home_team": table.String("LAD"), "away_team": table.String("SD"), "pitcher_team": table.String("SD")},
		table.Row{"game_date": table.String("2024-05-01"), "home_team": table.String("LAD"), "away_team": table.String("SD"), "pitcher_team": table.String("SD")},
		table.Row{"game_date": table.String("2024-05-07"), "home_team": table.String("SD"), "away_team": table.String("COL"), "pitcher_team": table.String("SD")},
	)

	games := NewGameDeriver(nil, nil).Derive(context.Background(), "506433", tab)
	require.Len(t, games, 2)

	// Date descending.
	assert.Equal(t, "2024-05-07", games[0].Date)
	assert.Equal(t, "home", games[0].HomeAway)
	assert.Equal(t, "COL", games[0].Opponent)
	assert.Zero(t, games[0].GamePK)

	assert.Equal(t, "2024-05-01", games[1].Date)
	assert.Equal(t, "away", games[1].HomeAway)
	assert.Equal(t, "LAD", games[1].Opponent)
}

func TestDeriveAlternateColumnNames(t *testing.T) {
	tab := seasonTable(
		[]string{"game_date", "game_id", "home_team_name", "away_team_name", "team_name", "venue"},
		table.Row{
			"game_date":      table.String("2024-08-10"),
			"game_id":        table.Int(700100),
			"home_team_name": table.String("Cubs"),
			"away_team_name": table.String("Cardinals"),
			"team_name":      table.String("Cubs"),
			"venue":          table.String("Wrigley Field"),
		},
	)

	games := NewGameDeriver(nil, nil).Derive(context.Background(), "682397", tab)
	require.Len(t, games, 1)

	assert.Equal(t, 700100, games[0].GamePK)
	assert.Equal(t, "home", games[0].HomeAway)
	assert.Equal(t, "Cardinals", games[0].Opponent)
	assert.Equal(t, "Wrigley Field", games[0].Stadium)
}

func TestDeriveSynthesizesOpponentWithoutPitcherTeam(t *testing.T) {
	tab := seasonTable(
		[]string{"game_date", "home_team", "away_team"},
		table.Row{"game_date": table.String("2024-04-02"), "home_team": table.String("BOS"), "away_team": table.String("NYY")},
	)

	games := NewGameDeriver(nil, nil).Derive(context.Background(), "543037", tab)
	require.Len(t, games, 1)

	assert.Equal(t, "NYY @ BOS", games[0].Opponent)
	assert.Empty(t, games[0].HomeAway)
}

func TestDeriveBackfillsMissingFields(t *testing.T) {
	info := &fakeGameInfo{info: mlbstats.GameInfo{HomeTeam: "SEA", AwayTeam: "HOU", Venue: "T-Mobile Park"}}
	tab := seasonTable(
		[]string{"game_date", "game_pk", "home_team", "away_team", "pitcher_team"},
		table.Row{"game_date": table.String("2024-09-01"), "game_pk": table.Int(700300), "home_team": table.String("SEA"), "away_team": table.String("HOU"), "pitcher_team": table.String("HOU")},
	)

	games := NewGameDeriver(info, nil).Derive(context.Background(), "425844", tab)
	require.Len(t, games, 1)

	// Opponent was derivable from the rows; only the stadium needed the
	// lookup.
	assert.Equal(t, 1, info.calls)
	assert.Equal(t, "SEA", games[0].Opponent)
	assert.Equal(t, "T-Mobile Park", games[0].Stadium)
}

func TestDeriveBackfillSkippedWhenComplete(t *testing.T) {
	info := &fakeGameInfo{}
	tab := seasonTable(
		[]string{"game_date", "game_pk", "home_team", "away_team", "pitcher_team", "stadium"},
		table.Row{"game_date": table.String("2024-09-01"), "game_pk": table.Int(700300), "home_team": table.String("SEA"), "away_team": table.String("HOU"), "pitcher_team": table.String("HOU"), "stadium": table.String("T-Mobile Park")},
	)

	games := NewGameDeriver(info, nil).Derive(context.Background(), "425844", tab)
	require.Len(t, games, 1)
	assert.Zero(t, info.calls)
}

func TestDeriveBackfillFailureKeepsGame(t *testing.T) {
	info := &fakeGameInfo{err: errors.New("upstream down")}
	tab := seasonTable(
		[]string{"game_date", "game_pk"},
		table.Row{"game_date": table.String("2024-09-01"), "game_pk": table.Int(700300)},
	)

	games := NewGameDeriver(info, nil).Derive(context.Background(), "425844", tab)
	require.Len(t, games, 1)
	assert.Equal(t, 1, info.calls)
	assert.Empty(t, games[0].Opponent)
	assert.Empty(t, games[0].Stadium)
}

func TestDeriveDateCoercion(t *testing.T) {
	tab := seasonTable(
		[]string{"game_date"},
		table.Row{"game_date": table.String("2024-06-15T00:00:00Z")},
		table.Row{"game_date": table.String("06/20/2024")},
		table.Row{"game_date": table.String("sometime in june")},
	)

	games := NewGameDeriver(nil, nil).Derive(context.Background(), "660271", tab)
	require.Len(t, games, 3)

	dates := []string{games[0].Date, games[1].Date, games[2].Date}
	assert.Contains(t, dates, "2024-06-15")
	assert.Contains(t, dates, "2024-06-20")
	assert.Contains(t, dates, "sometime in june", "unparsable dates are kept verbatim")
}

func TestDeriveWithoutGameDateColumn(t *testing.T) {
	tab := seasonTable(
		[]string{"pitch_type"},
		table.Row{"pitch_type": table.String("FF")},
	)
	assert.Empty(t, NewGameDeriver(nil, nil).Derive(context.Background(), "660271", tab))
}
