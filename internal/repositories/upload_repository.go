package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"brandgen/internal/httpkit"
	"brandgen/internal/models"
)

const uploadsSchema = `
	CREATE TABLE IF NOT EXISTS uploads (
		saved_name    TEXT PRIMARY KEY,
		original_name TEXT NOT NULL,
		size_bytes    BIGINT NOT NULL,
		content_type  TEXT NOT NULL DEFAULT '',
		provider      TEXT NOT NULL,
		object_key    TEXT NOT NULL,
		uploaded_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		revisions     INTEGER NOT NULL DEFAULT 1
	)
`

// db is the part of *pgxpool.Pool the repository needs.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// UploadRepository is the Postgres ledger of stored files. One row per saved
// name; storing a name again overwrites the row like storage overwrites the file.
type UploadRepository struct {
	db db
}

func NewUploadRepository(pool *pgxpool.Pool) *UploadRepository {
	return &UploadRepository{db: pool}
}

// EnsureSchema creates the uploads table when missing.
func (r *UploadRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, uploadsSchema)
	return err
}

// Record implements ports.UploadLedger. The table is created on first use if
// it does not exist yet.
func (r *UploadRepository) Record(ctx context.Context, u models.UploadRecord) error {
	err := r.upsert(ctx, u)
	if httpkit.IsUndefinedTable(err) {
		if err := r.EnsureSchema(ctx); err != nil {
			return err
		}
		err = r.upsert(ctx, u)
	}
	return err
}

func (r *UploadRepository) upsert(ctx context.Context, u models.UploadRecord) error {
	uploadedAt := u.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO uploads (saved_name, original_name, size_bytes, content_type, provider, object_key, uploaded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (saved_name) DO UPDATE SET
			original_name = EXCLUDED.original_name,
			size_bytes    = EXCLUDED.size_bytes,
			content_type  = EXCLUDED.content_type,
			provider      = EXCLUDED.provider,
			object_key    = EXCLUDED.object_key,
			uploaded_at   = EXCLUDED.uploaded_at,
			revisions     = uploads.revisions + 1
	`, u.SavedName, u.OriginalName, u.Size, u.ContentType, u.Provider, u.ObjectKey, uploadedAt)
	return err
}
