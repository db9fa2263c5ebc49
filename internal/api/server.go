package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/api/handler"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/config"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(svc handler.Analyzer, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "Link"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitBurst, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(svc, cfg, logger)

	// --- Routes ---

	r.Get("/", h.Root)
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/pitchers", h.SearchPitchers)
		r.Route("/pitchers/{pitcherID}", func(r chi.Router) {
			r.Get("/games", h.PitcherGames)
			r.Get("/analysis", h.AnalyzeGame)
		})
	})

	return r
}
