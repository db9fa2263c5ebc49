package savant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/httpx"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/mlbstats"
)

type fakeRoster struct {
	matches []mlbstats.PlayerMatch
	err     error
	calls   int
}

func (f *fakeRoster) SearchPlayers(ctx context.Context, name, position string) ([]mlbstats.PlayerMatch, error) {
	f.calls++
	return f.matches, f.err
}

func (f *fakeRoster) GameInfo(ctx context.Context, gamePK int) (mlbstats.GameInfo, error) {
	return mlbstats.GameInfo{}, nil
}

func newRosterTestClient(t *testing.T, handler http.Handler, roster *fakeRoster) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	hc := httpx.NewClient(0, 1, 5*time.Second, "pitchwatch-test", nil)
	c := NewClient(hc, roster, nil)
	c.SetStatsURL(srv.URL)
	c.SetSearchURL(srv.URL)
	return c
}

func TestSearchPitcherJSONTier(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yamamoto", r.URL.Query().Get("search"))
		w.Write([]byte(`{"results": [
			{"id": 993772, "name": "Yoshinobu Yamamoto", "position": "SP", "team": "LAD"},
			{"id": 660271, "name": "Shohei Ohtani", "position": "TWP", "team": "LAD"},
			{"id": 605141, "name": "Mookie Betts", "position": "RF", "team": "LAD"}
		]}`))
	}))

	matches, err := c.SearchPitcher(context.Background(), "yamamoto")
	require.NoError(t, err)
	require.Len(t, matches, 2, "non-pitcher positions are filtered out")

	assert.Equal(t, "993772", matches[0].ID)
	assert.Equal(t, "Yoshinobu Yamamoto", matches[0].Name)
	assert.Equal(t, "LAD", matches[0].Team)
	assert.Equal(t, "660271", matches[1].ID)
}

func TestSearchPitcherPlayersKey(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"players": [{"id": "543037", "name": "Gerrit Cole", "position": "P"}]}`))
	}))

	matches, err := c.SearchPitcher(context.Background(), "cole")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "543037", matches[0].ID)
}

func TestSearchPitcherMarkupTier(t *testing.T) {
	// Not JSON, so the chain drops to markup extraction.
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<a href="/savant-player/kodai-senga-669011">Kodai  Senga</a>
			<a href="/savant-player/kodai-senga-669011">Kodai Senga</a>
			<a href="/leaderboard">Leaderboard</a>
			<a href="/savant-player/682397">Shota Imanaga</a>
		</body></html>`))
	}))

	matches, err := c.SearchPitcher(context.Background(), "senga")
	require.NoError(t, err)
	require.Len(t, matches, 2, "duplicate hrefs collapse to one entry")

	assert.Equal(t, "669011", matches[0].ID)
	assert.Equal(t, "Kodai Senga", matches[0].Name, "whitespace is normalized")
	assert.Equal(t, "682397", matches[1].ID)
}

func TestSearchPitcherDirectoryTier(t *testing.T) {
	// A body neither JSON nor carrying player links exhausts the first
	// two tiers.
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>maintenance</body></html>"))
	}))

	matches, err := c.SearchPitcher(context.Background(), "degrom")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "594798", matches[0].ID)
	assert.Equal(t, "Jacob deGrom", matches[0].Name)
}

func TestSearchPitcherEndpointDownFallsToDirectory(t *testing.T) {
	srvHits := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srvHits++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	matches, err := c.SearchPitcher(context.Background(), "dodgers")
	require.NoError(t, err)
	assert.Equal(t, 1, srvHits)
	require.NotEmpty(t, matches, "directory answers keyword queries")
	ids := make([]string, 0, len(matches))
	for _, p := range matches {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, "519242", "Kershaw is a dodgers keyword match")
	assert.Contains(t, ids, "993772", "Yamamoto is a dodgers keyword match")
}

func TestSearchPitcherRosterTier(t *testing.T) {
	// A body neither JSON nor carrying player links drops to roster search
	// before the embedded directory.
	roster := &fakeRoster{matches: []mlbstats.PlayerMatch{
		{ID: 605483, Name: "Blake Snell", TeamID: 119, TeamName: "Los Angeles Dodgers", Position: "P"},
	}}
	c := newRosterTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>maintenance</body></html>"))
	}), roster)

	matches, err := c.SearchPitcher(context.Background(), "snell")
	require.NoError(t, err)
	assert.Equal(t, 1, roster.calls)
	require.Len(t, matches, 1)
	assert.Equal(t, "605483", matches[0].ID)
	assert.Equal(t, "Blake Snell", matches[0].Name)
	assert.Equal(t, "Los Angeles Dodgers", matches[0].Team)
}

func TestSearchPitcherRosterSkippedOnJSONHit(t *testing.T) {
	roster := &fakeRoster{matches: []mlbstats.PlayerMatch{
		{ID: 543037, Name: "Gerrit Cole", TeamName: "New York Yankees", Position: "P"},
	}}
	c := newRosterTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [{"id": 543037, "name": "Gerrit Cole", "position": "P", "team": "NYY"}]}`))
	}), roster)

	matches, err := c.SearchPitcher(context.Background(), "cole")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "NYY", matches[0].Team, "the JSON tier answered")
	assert.Equal(t, 0, roster.calls)
}

func TestSearchPitcherEndpointDownStillTriesRoster(t *testing.T) {
	roster := &fakeRoster{matches: []mlbstats.PlayerMatch{
		{ID: 668678, Name: "Edward Cabrera", TeamName: "Miami Marlins", Position: "P"},
	}}
	c := newRosterTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), roster)

	// Cabrera is not in the embedded directory; only roster search can
	// answer this query.
	matches, err := c.SearchPitcher(context.Background(), "cabrera")
	require.NoError(t, err)
	assert.Equal(t, 1, roster.calls)
	require.Len(t, matches, 1)
	assert.Equal(t, "668678", matches[0].ID)
}

func TestSearchPitcherRosterFailureFallsToDirectory(t *testing.T) {
	roster := &fakeRoster{err: errors.New("stats api down")}
	c := newRosterTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>maintenance</body></html>"))
	}), roster)

	matches, err := c.SearchPitcher(context.Background(), "degrom")
	require.NoError(t, err)
	assert.Equal(t, 1, roster.calls)
	require.Len(t, matches, 1)
	assert.Equal(t, "594798", matches[0].ID)
}

func TestSearchPitcherNoMatches(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))

	matches, err := c.SearchPitcher(context.Background(), "nobody anywhere")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearchDirectoryMatching(t *testing.T) {
	byName := searchDirectory("Ohtani")
	require.Len(t, byName, 1)
	assert.Equal(t, "660271", byName[0].ID)

	byKeyword := searchDirectory("japanese")
	assert.GreaterOrEqual(t, len(byKeyword), 5)

	// Containment works in both directions: a query longer than a keyword
	// still matches when it contains one.
	byPhrase := searchDirectory("clayton kershaw highlights")
	require.Len(t, byPhrase, 1)
	assert.Equal(t, "519242", byPhrase[0].ID)

	assert.Empty(t, searchDirectory(""))
	assert.Empty(t, searchDirectory("zzzz"))
}
