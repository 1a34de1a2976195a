package handlers

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"brandgen/internal/pkg/logger"
	"brandgen/internal/ports"
	"brandgen/internal/worker/queue"
)

// Enqueuer accepts run triggers; queue.RedisQueue in production.
type Enqueuer interface {
	Push(ctx context.Context, t queue.Trigger) error
}

type Deps struct {
	// Pool y RDB son opcionales; solo los usa el health check.
	Pool *pgxpool.Pool
	RDB  *redis.Client
	SP   ports.StorageProvider

	// Ledger y Triggers son opcionales.
	Ledger   ports.UploadLedger
	Triggers Enqueuer

	Log          *logger.Logger
	CatalogPath  string
	MaxFiles     int
	MaxFileBytes int64
	PresignTTL   time.Duration
}

type Handler struct {
	pool     *pgxpool.Pool
	rdb      *redis.Client
	sp       ports.StorageProvider
	ledger   ports.UploadLedger
	triggers Enqueuer
	log      *logger.Logger

	catalogPath  string
	maxFiles     int
	maxFileBytes int64
	presignTTL   time.Duration
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	presign := d.PresignTTL
	if presign <= 0 {
		presign = 15 * time.Minute
	}
	return &Handler{
		pool:         d.Pool,
		rdb:          d.RDB,
		sp:           d.SP,
		ledger:       d.Ledger,
		triggers:     d.Triggers,
		log:          log.WithComponent("api"),
		catalogPath:  d.CatalogPath,
		maxFiles:     d.MaxFiles,
		maxFileBytes: d.MaxFileBytes,
		presignTTL:   presign,
	}
}
