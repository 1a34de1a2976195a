package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"brandgen/internal/catalog"
	"brandgen/internal/config"
	"brandgen/internal/httpapi"
	"brandgen/internal/httpapi/handlers"
	"brandgen/internal/pkg/logger"
	"brandgen/internal/pkg/shutdown"
	"brandgen/internal/repositories"
	"brandgen/internal/storage"
	"brandgen/internal/worker/queue"
)

func main() {
	cfg, err := config.LoadAPI()
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}

	log := logger.New(cfg.Log.Logger("brandgen-api"))
	log.Info("starting brandgen API", "storage", cfg.Storage.Provider)

	ctx := context.Background()

	for _, dir := range []string{cfg.DataDir, cfg.UploadsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.LogFatal("failed to create directory", err, "dir", dir)
		}
	}

	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	deps := handlers.Deps{
		Log:          log,
		CatalogPath:  cfg.CatalogPath(),
		MaxFiles:     cfg.MaxUploadFiles,
		MaxFileBytes: cfg.MaxUploadFileBytes,
		PresignTTL:   cfg.Storage.PresignTTL(),
	}

	// PostgreSQL is optional: it only backs the upload ledger.
	if cfg.DatabaseURL != "" {
		log.Info("connecting to PostgreSQL")
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.LogFatal("failed to connect to PostgreSQL", err)
		}
		shutdownMgr.RegisterSimple("postgres", pool.Close)

		if err := pool.Ping(ctx); err != nil {
			log.LogFatal("failed to ping PostgreSQL", err)
		}
		ledger := repositories.NewUploadRepository(pool)
		if err := ledger.EnsureSchema(ctx); err != nil {
			log.LogFatal("failed to prepare upload ledger", err)
		}
		deps.Pool = pool
		deps.Ledger = ledger
		log.Info("PostgreSQL connected, upload ledger enabled")
	}

	// Redis is optional: without it POST /api/generate answers 503.
	if cfg.RedisAddr != "" {
		log.Info("connecting to Redis")
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		shutdownMgr.Register("redis", func(ctx context.Context) error {
			return rdb.Close()
		})

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.LogFatal("failed to ping Redis", err)
		}
		deps.RDB = rdb
		deps.Triggers = queue.NewRedisQueue(rdb, cfg.TriggerQueue)
		log.Info("Redis connected, run triggers enabled", "queue", cfg.TriggerQueue)
	}

	log.Info("initializing storage provider")
	sp, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	deps.SP = sp
	log.Info("storage provider initialized", "provider", sp.Provider(), "uploads_dir", cfg.UploadsDir)

	if c, err := catalog.LoadFile(cfg.CatalogPath()); err != nil {
		log.Warn("brand catalog not loaded", "path", cfg.CatalogPath(), "error", err.Error())
	} else {
		log.Info("brand catalog loaded", "path", cfg.CatalogPath(), "brands", len(c.Raw), "skipped", len(c.Skipped))
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Handlers:       deps,
		AllowedOrigins: cfg.AllowedOrigins(),
		Log:            log,
	})

	// Large batches take a while to arrive; the write timeout covers the
	// storage round trips of up to MaxUploadFiles files.
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr, "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	if err := shutdownMgr.Wait(); err != nil {
		log.Error("shutdown finished with errors", "error", err.Error())
		os.Exit(1)
	}
}
