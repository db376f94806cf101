package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"

	"github.com/nyashahama/mystery-shopper-backend/internal/api"
	"github.com/nyashahama/mystery-shopper-backend/internal/cache"
	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
	"github.com/nyashahama/mystery-shopper-backend/internal/config"
	"github.com/nyashahama/mystery-shopper-backend/internal/db"
	"github.com/nyashahama/mystery-shopper-backend/internal/registry"
	"github.com/nyashahama/mystery-shopper-backend/internal/rpc"
	"github.com/nyashahama/mystery-shopper-backend/internal/store"
	"github.com/nyashahama/mystery-shopper-backend/internal/weights"
	"github.com/nyashahama/mystery-shopper-backend/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port, "catalog_source", cfg.CatalogSource)

	// Root context cancelled by OS signal. Worker, servers and startup I/O
	// all respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	pool, queries, err := openDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	st := store.New(pool, queries)

	// ── Catalog ───────────────────────────────────────────────────────────────
	wm := weights.Default()
	if cfg.SectionWeightsPath != "" {
		if wm, err = weights.LoadYAML(cfg.SectionWeightsPath); err != nil {
			return fmt.Errorf("section weights: %w", err)
		}
		logger.Info("section weights loaded", "path", cfg.SectionWeightsPath)
	}

	sources := map[string]catalog.Source{
		catalog.SourceTabular:  catalog.NewTabularSource(cfg.CatalogPath, logger),
		catalog.SourceCurated:  catalog.NewCuratedSource(),
		catalog.SourceFallback: catalog.NewFallbackSource(),
	}
	others := make([]catalog.Source, 0, len(sources))
	for _, s := range sources {
		others = append(others, s)
	}
	catalogs := registry.New(sources[cfg.CatalogSource], wm, logger, others...)
	if _, err := catalogs.Reload(ctx); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	// ── Redis (optional) ──────────────────────────────────────────────────────
	var reports cache.ReportCache
	if cfg.RedisURL != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		reports = cache.NewReportCache(rdb, cfg.ReportCacheTTL)
		logger.Info("redis connected", "report_ttl", cfg.ReportCacheTTL)
	} else {
		logger.Info("redis disabled, reports served from postgres")
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	job := worker.NewJob(st, catalogs, reports, logger)
	runner := worker.NewRunner(job, st, queries, worker.RunnerConfig{
		Workers:      cfg.WorkerCount,
		PollInterval: cfg.PollInterval,
		JobTimeout:   cfg.JobTimeout,
		MaxRetries:   cfg.MaxRetries,
	}, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(
		st,
		catalogs,
		reports,
		runner, // *Runner satisfies worker.Enqueuer
		api.Config{
			Env:          cfg.Env,
			AdminAPIKeys: cfg.AdminAPIKeys,
		},
		logger,
	)

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// ── Listener (HTTP and gRPC share the port) ───────────────────────────────
	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	mux := cmux.New(lis)

	var grpcServer *grpc.Server
	serverErr := make(chan error, 3)

	if cfg.GRPCEnabled {
		grpcServer = rpc.NewServer(rpc.NewService(catalogs, logger), logger)
		grpcL := mux.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
		go func() {
			if err := grpcServer.Serve(grpcL); err != nil && !errors.Is(err, cmux.ErrListenerClosed) {
				serverErr <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}
	httpL := mux.Match(cmux.Any())

	// Start the worker pool in a background goroutine. It blocks until ctx is done.
	go runner.Start(ctx)

	go func() {
		if err := srv.Serve(httpL); err != nil &&
			!errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			serverErr <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		logger.Info("server listening", "addr", lis.Addr().String(), "grpc", cfg.GRPCEnabled)
		if err := mux.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			serverErr <- fmt.Errorf("cmux: %w", err)
		}
	}()

	// Block until either a signal arrives or a server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	_ = lis.Close()

	logger.Info("shutdown complete")
	return nil
}

// openDB opens the connection pool and applies the embedded schema. The
// schema is idempotent, so running it on every start is safe.
func openDB(ctx context.Context, dsn string) (*sql.DB, *db.Queries, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	if err := db.Migrate(pingCtx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	return pool, db.New(pool), nil
}
