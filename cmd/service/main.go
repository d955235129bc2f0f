// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github-metadata-updater/internal/api"
	"github-metadata-updater/internal/config"
	"github-metadata-updater/internal/database"
	"github-metadata-updater/internal/database/migrations"
	"github-metadata-updater/internal/github"
	"github-metadata-updater/internal/syncer"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "github-metadata-updater",
		Short:         "Keep package records enriched with GitHub repository metadata",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newSyncCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run sync passes on a schedule and serve the status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			server := &http.Server{
				Addr:              a.cfg.ListenAddr,
				Handler:           api.NewRouter(a.queries, a.syncer, a.logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.syncer.Start(gctx)
				return nil
			})
			g.Go(func() error {
				a.logger.Info("Status API listening", "addr", a.cfg.ListenAddr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("status API failed: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				a.logger.Info("Shutdown signal received. Exiting.")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				return server.Shutdown(shutdownCtx)
			})

			return g.Wait()
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run a single sync pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.syncer.RunPass(ctx)
			if err != nil {
				return err
			}
			a.logger.Info("Sync finished", "succeeded", report.Succeeded(), "failed", report.Failed())
			return nil
		},
	}
}

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	pool    *pgxpool.Pool
	queries *database.Queries
	syncer  *syncer.Syncer
}

func (a *app) close() {
	a.pool.Close()
}

func setup(ctx context.Context) (*app, error) {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler).With("version", version)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")
	if cfg.GithubAccessToken == "" {
		logger.Warn("No GitHub access token configured, using anonymous rate limits")
	}

	// 3. Initialize database connection and run migrations
	pool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Database connection established")

	if err := migrations.MigrateUp(cfg.DBURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	if v, _, err := migrations.Version(cfg.DBURL); err == nil {
		logger.Info("Database migrations applied successfully", "schema_version", v)
	}

	// 4. Initialize application components
	ghClient, err := github.NewClient(github.ClientConfig{
		Username:  cfg.GithubUsername,
		Token:     cfg.GithubAccessToken,
		UserAgent: "github-metadata-updater/" + version,
		BaseURL:   cfg.GithubAPIURL,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}

	queries := database.New(pool)
	appSyncer, err := syncer.NewSyncer(queries, ghClient, syncer.FixedDelay(cfg.RequestDelay), logger, syncer.Options{
		SyncInterval:       cfg.SyncInterval,
		FreshnessThreshold: cfg.FreshnessThreshold,
		MarkFailedAttempts: cfg.MarkFailedAttempts,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create syncer: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		queries: queries,
		syncer:  appSyncer,
	}, nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch strings.ToLower(level) {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
