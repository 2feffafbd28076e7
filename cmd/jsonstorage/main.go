// Command jsonstorage runs the namespaced JSON document store: the HTTP
// API, the indexing worker pool, and the background reindex consumer,
// wired from environment configuration per spec §6.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kadirpekel/jsonstorage/internal/config"
	"github.com/kadirpekel/jsonstorage/internal/coordinator"
	"github.com/kadirpekel/jsonstorage/internal/docstore"
	"github.com/kadirpekel/jsonstorage/internal/httpapi"
	"github.com/kadirpekel/jsonstorage/internal/indexing"
	"github.com/kadirpekel/jsonstorage/internal/ratelimit"
	"github.com/kadirpekel/jsonstorage/internal/searchstore"
	"github.com/kadirpekel/jsonstorage/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := telemetry.NewTracer(ctx, cfg.OTelTracesEnabled, cfg.OTelServiceName)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer tracer.Shutdown(context.Background())

	metrics := telemetry.NewMetrics("jsonstorage")

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	docs, err := docstore.Open(db, docstore.DialectPostgres)
	if err != nil {
		return fmt.Errorf("open docstore: %w", err)
	}
	if err := docs.EnsureChunkTable(ctx); err != nil {
		return fmt.Errorf("ensure chunk table: %w", err)
	}

	jobs := indexing.NewJobQueue(db, docstore.DialectPostgres)
	if err := jobs.EnsureTable(ctx); err != nil {
		return fmt.Errorf("ensure job table: %w", err)
	}

	search, err := searchstore.New(ctx, cfg.ElasticSearchDSN)
	if err != nil {
		return fmt.Errorf("connect elasticsearch: %w", err)
	}

	coord := coordinator.New(docs, search, jobs)

	if cfg.SearchSchemaDefaultsPath != "" {
		defaults, err := config.LoadSchemaDefaults(cfg.SearchSchemaDefaultsPath)
		if err != nil {
			return fmt.Errorf("load schema defaults: %w", err)
		}
		if err := defaults.Watch(ctx, cfg.SearchSchemaDefaultsPath); err != nil {
			return fmt.Errorf("watch schema defaults: %w", err)
		}
		coord.SetSchemaDefaults(defaults)
	}

	worker := indexing.NewWorker(jobs, docs, search, coord, logger)
	go worker.Run(ctx)

	var limiter *ratelimit.Limiter
	if cfg.RateLimitEnabled {
		rlStore, err := ratelimit.NewStore(ctx, db, docstore.DialectPostgres)
		if err != nil {
			return fmt.Errorf("open rate limit store: %w", err)
		}
		limiter = ratelimit.NewLimiter(true, []ratelimit.Rule{
			{Window: ratelimit.WindowMinute, Limit: cfg.RateLimitPerMinute},
			{Window: ratelimit.WindowHour, Limit: cfg.RateLimitPerHour},
		}, rlStore)
	}

	router := httpapi.NewRouter(coord, metrics, tracer, limiter)
	return serve(ctx, cfg.HTTPAddr, router)
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
