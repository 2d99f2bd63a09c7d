package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/soniclint/soniclint/internal/analyze"
	"github.com/soniclint/soniclint/internal/health"
	"github.com/soniclint/soniclint/internal/ingress"
	"github.com/soniclint/soniclint/internal/media"
	"github.com/soniclint/soniclint/internal/notify"
	"github.com/soniclint/soniclint/internal/observe"
	"github.com/soniclint/soniclint/internal/scoring"
	"github.com/soniclint/soniclint/internal/segment"
	"github.com/soniclint/soniclint/internal/store"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the segmentation and scoring daemon",
	Long: `Run the soniclint daemon: the HTTP stream ingress, the scoring
worker pool, and the /metrics, /healthz, and /readyz endpoints.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg.Server.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// Archetype profiles.
	var registry *analyze.ProfileRegistry
	if path := cfg.Storage.ArchetypeProfiles; path != "" {
		registry, err = analyze.LoadProfiles(path)
		if err != nil {
			return err
		}
		slog.Info("archetype profiles loaded", "path", path)
	}

	// Media blob store.
	var mediaStore media.Store
	if dir := cfg.Storage.MediaDir; dir != "" {
		badgerStore, err := media.OpenBadgerStore(dir)
		if err != nil {
			return err
		}
		defer badgerStore.Close()
		mediaStore = badgerStore
		slog.Info("media store opened", "dir", dir)
	} else {
		mediaStore = media.NewMemoryStore()
		slog.Warn("no storage.media_dir configured; clips held in memory only")
	}

	// Relational store.
	var (
		segments store.SegmentStore
		scores   store.ScoreStore
		checkers []health.Checker
	)
	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		pg := store.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		segments, scores = pg, pg
		checkers = append(checkers, health.Checker{Name: "database", Check: pool.Ping})
		slog.Info("postgres store ready")
	} else {
		slog.Warn("no storage.postgres_dsn configured; segment and score rows are not persisted")
	}

	// Pipeline. The manager publishes through the scoring intake: every
	// segment-created event enters the scoring queue under the configured
	// backpressure policy before bus subscribers see it, so a slow subscriber
	// can never starve scoring of segments.
	bus := notify.NewBus()
	coordinator := scoring.NewCoordinator(cfg.Scoring, cfg.Analyzers, registry, mediaStore, scores, bus, metrics)
	manager := segment.NewManager(cfg.Segmentation, scoring.NewIntake(coordinator, bus), segments, mediaStore, metrics)
	coordinator.Start(ctx)

	checkers = append(checkers, health.QueueDepth("scoring_queue", coordinator.QueueLen, cfg.Scoring.QueueSize))

	// HTTP surface.
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(checkers...).Register(mux)
	ingress.NewServer(manager).Register(mux)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	slog.Info("soniclint ready",
		"listen_addr", cfg.Server.ListenAddr,
		"workers", cfg.Scoring.Workers,
		"backpressure", string(cfg.Scoring.Backpressure),
	)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	}

	slog.Info("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown error", "err", err)
	}
	if err := coordinator.Close(); err != nil {
		slog.Warn("coordinator shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return nil
}
