package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/briefly-api/internal/config"
	"github.com/phrazzld/briefly-api/internal/jobs"
	"github.com/phrazzld/briefly-api/internal/metrics"
	"github.com/phrazzld/briefly-api/internal/platform/logger"
	"github.com/phrazzld/briefly-api/internal/platform/openai"
	"github.com/phrazzld/briefly-api/internal/platform/postgres"
	"github.com/phrazzld/briefly-api/internal/platform/redislock"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// application holds the wired components of the enrichment server.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	db      *sql.DB
	redis   *redis.Client
	worker  *jobs.Worker
	sweeper *jobs.Sweeper
	server  *http.Server
}

// newApplication loads configuration and wires every component: database,
// migrations, optional redis, the provider client, stores, the pipeline, and
// the HTTP server.
func newApplication(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := setupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, log); err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	var locker *redislock.Locker
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		locker, err = redislock.NewLocker(redisClient, "briefly")
		if err != nil {
			return nil, fmt.Errorf("failed to create redis locker: %w", err)
		}
		log.Info("redis lock enabled", slog.String("addr", cfg.Redis.Addr))
	} else {
		log.Info("redis not configured, sweeper runs unsynchronized")
	}

	generator, err := openai.NewClient(log, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation client: %w", err)
	}

	collector := metrics.NewCollector()
	jobStore := postgres.NewJobStore(db)
	artifactStore := postgres.NewArtifactStore(db)
	termStore := postgres.NewTermStore(db)
	articleStore := postgres.NewArticleStore(db)

	enqueuer, err := jobs.NewEnqueuer(jobStore, cfg.LLM.PromptVersion, cfg.LLM.Model, collector)
	if err != nil {
		return nil, fmt.Errorf("failed to create enqueuer: %w", err)
	}

	runner, err := jobs.NewRunner(jobStore, enqueuer, collector,
		jobs.NewSummaryProcessor(articleStore, artifactStore, generator),
		jobs.NewTermCardsProcessor(db, artifactStore, termStore, generator),
		jobs.NewInsightProcessor(artifactStore, generator),
		jobs.NewQuizContentProcessor(artifactStore, generator),
		jobs.NewQuizTermProcessor(artifactStore, generator),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	worker, err := jobs.NewWorker(jobStore, runner, cfg.Worker, collector)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker: %w", err)
	}

	sweeper, err := jobs.NewSweeper(jobStore, locker, cfg.Sweeper, collector)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweeper: %w", err)
	}

	admin, err := jobs.NewAdmin(jobStore, collector)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin service: %w", err)
	}

	router := setupRouter(cfg, log, db, enqueuer, admin, articleStore, artifactStore)

	return &application{
		config:  cfg,
		logger:  log,
		db:      db,
		redis:   redisClient,
		worker:  worker,
		sweeper: sweeper,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// run starts the worker, the sweeper, and the HTTP server, then blocks until
// ctx is canceled and everything has shut down.
func (app *application) run(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(logger.WithContext(ctx, app.logger))
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		app.worker.Start(bgCtx)
	}()
	go func() {
		defer wg.Done()
		app.sweeper.Start(bgCtx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("HTTP server listening", slog.String("addr", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		cancel()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("HTTP shutdown failed", slog.String("error", err.Error()))
	}

	cancel()
	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", slog.String("error", err.Error()))
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("failed to close redis", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("shutdown complete")
	return nil
}
