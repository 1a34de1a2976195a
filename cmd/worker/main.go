package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"brandgen/internal/config"
	"brandgen/internal/pipeline"
	"brandgen/internal/pkg/logger"
	"brandgen/internal/progress"
	"brandgen/internal/repositories"
	"brandgen/internal/worker"
	"brandgen/internal/worker/queue"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}

	log := logger.New(cfg.Log.Logger("brandgen-worker"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}

	p, err := pipeline.FromConfig(cfg.Generator, log, progress.NewReporter(log))
	if err != nil {
		log.LogFatal("failed to build pipeline", err)
	}

	deps := worker.Deps{
		Queue:      queue.NewRedisQueue(rdb, cfg.TriggerQueue),
		Pipeline:   p,
		Log:        log,
		PopTimeout: cfg.PopTimeout(),
	}

	// historial de corridas opcional
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.LogFatal("failed to connect to PostgreSQL", err)
		}
		defer pool.Close()

		runs := repositories.NewRunRepository(pool)
		if err := runs.EnsureSchema(ctx); err != nil {
			log.LogFatal("failed to prepare run history", err)
		}
		deps.Runs = runs
		log.Info("PostgreSQL connected, run history enabled")
	}

	log.Info("brandgen worker started",
		"queue", cfg.TriggerQueue,
		"api", cfg.APIBaseURL,
		"batch_size", p.BatchSize(),
	)

	err = worker.Run(ctx, deps)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.LogFatal("worker stopped", err)
	}
	log.Info("brandgen worker stopped")
}
