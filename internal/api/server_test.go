package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/analysis"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/app"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/config"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/mlb"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/table"
)

type stubService struct {
	pitchers  []mlb.Pitcher
	searchErr error
	games     []mlb.Game
	gamesErr  error
	result    *app.AnalysisResult
}

func (s *stubService) SearchPitchers(_ context.Context, _ string) ([]mlb.Pitcher, error) {
	return s.pitchers, s.searchErr
}

func (s *stubService) PitcherGames(_ context.Context, _ string, _ int) ([]mlb.Game, error) {
	return s.games, s.gamesErr
}

func (s *stubService) AnalyzeGame(_ context.Context, pitcherID, gameDate string) *app.AnalysisResult {
	if s.result != nil {
		return s.result
	}
	return &app.AnalysisResult{PitcherID: pitcherID, GameDate: gameDate, Error: "no stub result"}
}

func testConfig() *config.Config {
	return &config.Config{
		CORSAllowOrigins:  []string{"http://localhost:3000"},
		RateLimitEnabled:  false,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
}

func doRequest(t *testing.T, svc *stubService, cfg *config.Config, path string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(svc, cfg, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := doRequest(t, &stubService{}, testConfig(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Process-Time"))
}

func TestSearchPitchers(t *testing.T) {
	svc := &stubService{pitchers: []mlb.Pitcher{{ID: "660271", Name: "Shohei Ohtani", Team: "LAD"}}}
	rec := doRequest(t, svc, testConfig(), "/api/v1/pitchers?name=ohtani")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Query    string        `json:"query"`
		Pitchers []mlb.Pitcher `json:"pitchers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ohtani", body.Query)
	require.Len(t, body.Pitchers, 1)
	assert.Equal(t, "660271", body.Pitchers[0].ID)
}

func TestSearchPitchersRequiresName(t *testing.T) {
	rec := doRequest(t, &stubService{}, testConfig(), "/api/v1/pitchers")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchPitchersUpstreamError(t *testing.T) {
	svc := &stubService{searchErr: errors.New("savant down")}
	rec := doRequest(t, svc, testConfig(), "/api/v1/pitchers?name=cole")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPitcherGames(t *testing.T) {
	svc := &stubService{games: []mlb.Game{{Date: "2024-06-15", PitcherID: "660271", Opponent: "SF"}}}
	rec := doRequest(t, svc, testConfig(), "/api/v1/pitchers/660271/games?season=2024")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		PitcherID string     `json:"pitcher_id"`
		Season    int        `json:"season"`
		Games     []mlb.Game `json:"games"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "660271", body.PitcherID)
	assert.Equal(t, 2024, body.Season)
	require.Len(t, body.Games, 1)
}

func TestPitcherGamesRejectsBadSeason(t *testing.T) {
	rec := doRequest(t, &stubService{}, testConfig(), "/api/v1/pitchers/660271/games?season=twenty24")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeGame(t *testing.T) {
	batted := table.New("pitch_type", "launch_speed")
	batted.Append(table.Row{"pitch_type": table.String("FF"), "launch_speed": table.Float(102.3)})

	svc := &stubService{result: &app.AnalysisResult{
		PitcherID:   "660271",
		PitcherName: "Shohei Ohtani",
		GameDate:    "2024-06-15",
		PitchTypeAnalysis: analysis.PitchTypeAnalysis{
			PitchTypes: []string{"FF"},
			Usage:      map[string]analysis.Usage{"FF": {Count: 10, Percentage: 100}},
		},
		BattedBalls: batted,
	}}

	rec := doRequest(t, svc, testConfig(), "/api/v1/pitchers/660271/analysis?date=2024-06-15")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		PitcherName string `json:"pitcher_name"`
		PitchType   struct {
			Usage map[string]analysis.Usage `json:"usage"`
		} `json:"pitch_type_analysis"`
		BattedBalls []map[string]any `json:"batted_ball_analysis"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Shohei Ohtani", body.PitcherName)
	assert.Contains(t, body.PitchType.Usage, "4-Seam Fastball", "codes are rewritten for presentation")
	require.Len(t, body.BattedBalls, 1)
	assert.Equal(t, "4-Seam Fastball", body.BattedBalls[0]["pitch_type"])
}

func TestAnalyzeGameDateValidation(t *testing.T) {
	rec := doRequest(t, &stubService{}, testConfig(), "/api/v1/pitchers/660271/analysis")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, &stubService{}, testConfig(), "/api/v1/pitchers/660271/analysis?date=06%2F15%2F2024")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeGameErrorTravelsInBody(t *testing.T) {
	svc := &stubService{result: &app.AnalysisResult{
		PitcherID:   "000000",
		PitcherName: "Unknown",
		GameDate:    "2024-06-15",
		Error:       "pitcher 000000 not found",
	}}
	rec := doRequest(t, svc, testConfig(), "/api/v1/pitchers/000000/analysis?date=2024-06-15")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pitcher 000000 not found", body["error"])
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitEnabled = true
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute

	router := NewRouter(&stubService{}, cfg, nil)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	// Burst defaults to half the window budget, so the second immediate
	// request from the same IP is rejected.
	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestRateLimitBurstFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitEnabled = true
	cfg.RateLimitRequests = 100
	cfg.RateLimitBurst = 1
	cfg.RateLimitWindow = time.Hour

	router := NewRouter(&stubService{}, cfg, nil)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	// The default heuristic would allow 50 immediate requests; the
	// configured burst of 1 rejects the second.
	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "3600", second.Header().Get("Retry-After"))
}
