// Command pitchwatch is the MLB pitch-by-game analysis CLI and API server.
//
// Usage:
//
//	pitchwatch search "ohtani"
//	pitchwatch games 660271 --season 2024
//	pitchwatch analyze 660271 --date 2024-06-15
//	pitchwatch serve
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/api"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/app"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/config"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/httpx"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/mlbstats"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/savant"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "pitchwatch",
		Short: "MLB pitch-by-game Statcast analysis",
	}

	root.AddCommand(searchCmd())
	root.AddCommand(gamesCmd())
	root.AddCommand(analyzeCmd())
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// search command
// --------------------------------------------------------------------------

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <name>",
		Short: "Search for pitchers by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(func(ctx context.Context, cfg *config.Config, svc *app.Service) error {
				pitchers, err := svc.SearchPitchers(ctx, args[0])
				if err != nil {
					return fmt.Errorf("search: %w", err)
				}
				if len(pitchers) == 0 {
					fmt.Printf("no pitchers found for %q\n", args[0])
					return nil
				}
				for _, p := range pitchers {
					fmt.Printf("%-8s %-25s %-25s %s\n", p.ID, p.Name, p.Team, p.Throws)
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// games command
// --------------------------------------------------------------------------

func gamesCmd() *cobra.Command {
	var season int
	cmd := &cobra.Command{
		Use:   "games <pitcherID>",
		Short: "List a pitcher's games for a season",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(func(ctx context.Context, cfg *config.Config, svc *app.Service) error {
				games, err := svc.PitcherGames(ctx, args[0], season)
				if err != nil {
					return fmt.Errorf("list games: %w", err)
				}
				if len(games) == 0 {
					fmt.Printf("no games found for pitcher %s in %d\n", args[0], season)
					return nil
				}
				for _, g := range games {
					fmt.Printf("%-12s %-5s %-30s %s\n", g.Date, g.HomeAway, g.Opponent, g.Stadium)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&season, "season", time.Now().Year(), "Season year")
	return cmd
}

// --------------------------------------------------------------------------
// analyze command
// --------------------------------------------------------------------------

func analyzeCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "analyze <pitcherID>",
		Short: "Analyze a pitcher's single-game pitch data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := time.Parse("2006-01-02", date); err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD")
			}
			return runService(func(ctx context.Context, cfg *config.Config, svc *app.Service) error {
				result := svc.AnalyzeGame(ctx, args[0], date)
				result.EnsureDisplayNames()

				out := struct {
					*app.AnalysisResult
					BattedBalls []map[string]interface{} `json:"batted_ball_analysis"`
				}{AnalysisResult: result}
				if result.BattedBalls != nil {
					out.BattedBalls = result.BattedBalls.Maps()
				}

				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Game date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

// --------------------------------------------------------------------------
// serve command
// --------------------------------------------------------------------------

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(func(ctx context.Context, cfg *config.Config, svc *app.Service) error {
				router := api.NewRouter(svc, cfg, logger)

				addr := cfg.APIHost + ":" + strconv.Itoa(cfg.APIPort)
				srv := &http.Server{
					Addr:         addr,
					Handler:      router,
					ReadTimeout:  10 * time.Second,
					WriteTimeout: 30 * time.Second,
					IdleTimeout:  60 * time.Second,
				}

				go func() {
					logger.Info("Starting pitchwatch API",
						"addr", addr,
						"environment", cfg.Environment)
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error("Server failed", "error", err)
						os.Exit(1)
					}
				}()

				<-ctx.Done()
				logger.Info("Shutting down...")

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("Shutdown error", "error", err)
				}
				logger.Info("Server stopped")
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runService handles config loading, store setup, and context cancellation.
func runService(fn func(ctx context.Context, cfg *config.Config, svc *app.Service) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.CacheDir, cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	hc := httpx.NewClient(cfg.RateLimitInterval, cfg.MaxRetries, cfg.RequestTimeout, cfg.UserAgent, logger)
	stats := mlbstats.NewClient(cfg.RequestTimeout, 15*time.Minute, logger)
	source := savant.NewClient(hc, stats, logger)

	svc := app.NewService(source, st, cfg.CacheExpiryDays, cfg.CacheMinGames, logger)
	return fn(ctx, cfg, svc)
}
