// Package app wires the data source, the durable store, and the
// aggregations into the pitcher-game-analysis use case.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/analysis"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/mlb"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/savant"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/store"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/table"
)

// Source is the upstream provider of pitch data and pitcher identities.
// *savant.Client satisfies it.
type Source interface {
	SearchPitcher(ctx context.Context, name string) ([]mlb.Pitcher, error)
	PitchData(ctx context.Context, q savant.PitchQuery) (*table.Table, error)
	GamesForSeason(ctx context.Context, pitcherID string, season int) ([]mlb.Game, error)
}

// Repository is the durable layer the use case reads and writes.
// *store.Store satisfies it.
type Repository interface {
	SavePitchData(pitcherID, gameDate string, t *table.Table) error
	PitchData(pitcherID, gameDate string, maxAgeDays int) (*table.Table, error)
	SavePitcher(p mlb.Pitcher) error
	Pitcher(id string) (mlb.Pitcher, error)
	SaveGame(g mlb.Game) error
	GamesByPitcher(pitcherID string) ([]mlb.Game, error)
}

// AnalysisResult packages one analyzed game for presentation. Error set
// means the analysis never ran and every aggregation field is empty;
// partial upstream data shows up as sentinel errors inside the individual
// aggregations instead.
type AnalysisResult struct {
	PitcherID         string                     `json:"pitcher_id"`
	PitcherName       string                     `json:"pitcher_name"`
	GameDate          string                     `json:"game_date"`
	InningAnalysis    analysis.InningAnalysis    `json:"inning_analysis"`
	PitchTypeAnalysis analysis.PitchTypeAnalysis `json:"pitch_type_analysis"`
	BattedBalls       *table.Table               `json:"-"`
	Summary           analysis.Summary           `json:"performance_summary"`
	Error             string                     `json:"error,omitempty"`
}

// IsValid reports whether the result carries usable analysis output.
func (r *AnalysisResult) IsValid() bool {
	return r.Error == "" && r.InningAnalysis.Error == "" && r.PitchTypeAnalysis.Error == "" && r.Summary.Error == ""
}

// EnsureDisplayNames rewrites pitch-type codes to display names across all
// sub-structures. Safe to call more than once.
func (r *AnalysisResult) EnsureDisplayNames() {
	r.InningAnalysis.RewritePitchTypes()
	r.PitchTypeAnalysis.RewritePitchTypes()
	r.Summary.RewritePitchTypes()
	if r.BattedBalls != nil {
		r.BattedBalls = analysis.RewritePitchTypes(r.BattedBalls)
	}
}

const (
	defaultCacheMaxAgeDays = 7
	defaultCacheMinGames   = 5
)

// Service is the use-case façade over source, repository, and aggregation.
type Service struct {
	source Source
	repo   Repository
	logger *slog.Logger

	cacheMaxAgeDays int
	// cacheMinGames is the season-game count below which the cached list
	// is considered incomplete and refreshed from the source.
	cacheMinGames int
}

// NewService builds the use-case service. Non-positive cache settings fall
// back to defaults.
func NewService(source Source, repo Repository, cacheMaxAgeDays, cacheMinGames int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheMaxAgeDays <= 0 {
		cacheMaxAgeDays = defaultCacheMaxAgeDays
	}
	if cacheMinGames <= 0 {
		cacheMinGames = defaultCacheMinGames
	}
	return &Service{
		source:          source,
		repo:            repo,
		logger:          logger,
		cacheMaxAgeDays: cacheMaxAgeDays,
		cacheMinGames:   cacheMinGames,
	}
}

// SearchPitchers finds pitchers by name and persists every match, so later
// analysis calls can resolve the pitcher without another search.
func (s *Service) SearchPitchers(ctx context.Context, name string) ([]mlb.Pitcher, error) {
	pitchers, err := s.source.SearchPitcher(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("search pitchers %q: %w", name, err)
	}
	for _, p := range pitchers {
		if err := s.repo.SavePitcher(p); err != nil {
			s.logger.Warn("persist pitcher failed", "pitcher_id", p.ID, "error", err)
		}
	}
	return pitchers, nil
}

// PitcherGames returns a pitcher's games for one season, serving from the
// store when it already holds enough of the season and refreshing from the
// source otherwise.
func (s *Service) PitcherGames(ctx context.Context, pitcherID string, season int) ([]mlb.Game, error) {
	cached, err := s.repo.GamesByPitcher(pitcherID)
	if err != nil {
		s.logger.Warn("cached game lookup failed", "pitcher_id", pitcherID, "error", err)
	}

	prefix := strconv.Itoa(season)
	var seasonGames []mlb.Game
	for _, g := range cached {
		if strings.HasPrefix(g.Date, prefix) {
			seasonGames = append(seasonGames, g)
		}
	}
	if len(seasonGames) >= s.cacheMinGames {
		s.logger.Info("serving games from store", "pitcher_id", pitcherID, "season", season, "games", len(seasonGames))
		return seasonGames, nil
	}

	games, err := s.source.GamesForSeason(ctx, pitcherID, season)
	if err != nil {
		return nil, fmt.Errorf("fetch games for pitcher %s season %d: %w", pitcherID, season, err)
	}
	for _, g := range games {
		if err := s.repo.SaveGame(g); err != nil {
			s.logger.Warn("persist game failed", "pitcher_id", g.PitcherID, "date", g.Date, "error", err)
		}
	}
	return games, nil
}

// AnalyzeGame runs the full pipeline for one pitcher and one game date:
// resolve the pitcher, load pitch data from the store or the source, run
// the aggregations, and package the result. Failures along the way come
// back as a populated Error field, never as a Go error; the presentation
// layer renders them, it does not handle them.
func (s *Service) AnalyzeGame(ctx context.Context, pitcherID, gameDate string) *AnalysisResult {
	pitcher, err := s.resolvePitcher(pitcherID)
	if err != nil {
		s.logger.Error("pitcher resolution failed", "pitcher_id", pitcherID, "error", err)
		return &AnalysisResult{
			PitcherID:   pitcherID,
			PitcherName: "Unknown",
			GameDate:    gameDate,
			Error:       fmt.Sprintf("pitcher %s not found", pitcherID),
		}
	}

	fail := func(msg string) *AnalysisResult {
		return &AnalysisResult{
			PitcherID:   pitcherID,
			PitcherName: pitcher.Name,
			GameDate:    gameDate,
			Error:       msg,
		}
	}

	data, err := s.repo.PitchData(pitcherID, gameDate, s.cacheMaxAgeDays)
	switch {
	case err == nil:
		// served from cache
	case errors.Is(err, store.ErrCacheMiss):
		data, err = s.source.PitchData(ctx, savant.PitchQuery{PitcherID: pitcherID, GameDate: gameDate})
		if errors.Is(err, savant.ErrNoData) {
			return fail(fmt.Sprintf("no pitch data for pitcher %s on %s", pitcherID, gameDate))
		}
		if err != nil {
			s.logger.Error("pitch data fetch failed", "pitcher_id", pitcherID, "game_date", gameDate, "error", err)
			return fail(fmt.Sprintf("fetching pitch data failed: %v", err))
		}
		if err := s.repo.SavePitchData(pitcherID, gameDate, data); err != nil {
			s.logger.Warn("persist pitch data failed", "pitcher_id", pitcherID, "game_date", gameDate, "error", err)
		}
	default:
		s.logger.Error("cache read failed", "pitcher_id", pitcherID, "game_date", gameDate, "error", err)
		return fail(fmt.Sprintf("reading cached pitch data failed: %v", err))
	}

	result := &AnalysisResult{
		PitcherID:         pitcherID,
		PitcherName:       pitcher.Name,
		GameDate:          gameDate,
		InningAnalysis:    analysis.ByInning(data),
		PitchTypeAnalysis: analysis.ByPitchType(data),
		BattedBalls:       analysis.BattedBalls(data),
		Summary:           analysis.Summarize(data),
	}
	s.logger.Info("game analysis complete",
		"pitcher_id", pitcherID, "game_date", gameDate, "pitches", result.Summary.TotalPitches)
	return result
}

// resolvePitcher prefers the identity store, falling back to the embedded
// directory for well-known pitchers that were never searched for. A
// directory hit is persisted so the fallback only fires once.
func (s *Service) resolvePitcher(pitcherID string) (mlb.Pitcher, error) {
	pitcher, err := s.repo.Pitcher(pitcherID)
	if err == nil {
		return pitcher, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return mlb.Pitcher{}, err
	}

	if p, ok := savant.DirectoryPitcher(pitcherID); ok {
		if saveErr := s.repo.SavePitcher(p); saveErr != nil {
			s.logger.Warn("persist directory pitcher failed", "pitcher_id", pitcherID, "error", saveErr)
		}
		return p, nil
	}
	return mlb.Pitcher{}, err
}
