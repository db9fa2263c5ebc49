// Package handler provides HTTP handlers for all API endpoints. Handlers
// call the use-case service and render its results; they hold no business
// logic of their own.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/api/respond"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/app"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/config"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/mlb"
)

// Analyzer is the use-case surface the handlers consume.
// *app.Service satisfies it.
type Analyzer interface {
	SearchPitchers(ctx context.Context, name string) ([]mlb.Pitcher, error)
	PitcherGames(ctx context.Context, pitcherID string, season int) ([]mlb.Game, error)
	AnalyzeGame(ctx context.Context, pitcherID, gameDate string) *app.AnalysisResult
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	svc    Analyzer
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(svc Analyzer, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, cfg: cfg, logger: logger}
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Pitchwatch API",
		"version": "1.0.0",
		"status":  "running",
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// SearchPitchers finds pitchers by name: GET /api/v1/pitchers?name=...
func (h *Handler) SearchPitchers(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_NAME", "name query parameter is required")
		return
	}

	pitchers, err := h.svc.SearchPitchers(r.Context(), name)
	if err != nil {
		h.logger.Error("pitcher search failed", "name", name, "error", err)
		respond.WriteError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "pitcher search failed")
		return
	}
	if pitchers == nil {
		pitchers = []mlb.Pitcher{}
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"query":    name,
		"pitchers": pitchers,
	})
}

// PitcherGames lists a pitcher's games for a season:
// GET /api/v1/pitchers/{pitcherID}/games?season=2024
func (h *Handler) PitcherGames(w http.ResponseWriter, r *http.Request) {
	pitcherID := chi.URLParam(r, "pitcherID")

	season := time.Now().Year()
	if raw := r.URL.Query().Get("season"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_SEASON", "season must be a year")
			return
		}
		season = n
	}

	games, err := h.svc.PitcherGames(r.Context(), pitcherID, season)
	if err != nil {
		h.logger.Error("game list failed", "pitcher_id", pitcherID, "season", season, "error", err)
		respond.WriteError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "fetching games failed")
		return
	}
	if games == nil {
		games = []mlb.Game{}
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"pitcher_id": pitcherID,
		"season":     season,
		"games":      games,
	})
}

// analysisResponse is the wire shape of one analyzed game: the result
// fields plus the batted-ball table rendered as row maps.
type analysisResponse struct {
	*app.AnalysisResult
	BattedBalls []map[string]interface{} `json:"batted_ball_analysis"`
}

// AnalyzeGame runs the analysis pipeline:
// GET /api/v1/pitchers/{pitcherID}/analysis?date=YYYY-MM-DD
//
// A failed analysis is still a renderable result; the error travels in
// the body, not the status code.
func (h *Handler) AnalyzeGame(w http.ResponseWriter, r *http.Request) {
	pitcherID := chi.URLParam(r, "pitcherID")

	date := r.URL.Query().Get("date")
	if date == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_DATE", "date query parameter is required")
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD")
		return
	}

	result := h.svc.AnalyzeGame(r.Context(), pitcherID, date)
	result.EnsureDisplayNames()

	resp := analysisResponse{AnalysisResult: result}
	if result.BattedBalls != nil {
		resp.BattedBalls = result.BattedBalls.Maps()
	} else {
		resp.BattedBalls = []map[string]interface{}{}
	}
	respond.WriteJSONObject(w, http.StatusOK, resp)
}
