package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"brandgen/internal/httpkit"
	"brandgen/internal/models"
)

const runsSchema = `
	CREATE TABLE IF NOT EXISTS runs (
		run_id      TEXT PRIMARY KEY,
		trigger_id  TEXT,
		status      TEXT NOT NULL,
		total       INTEGER NOT NULL,
		processed   INTEGER NOT NULL,
		succeeded   INTEGER NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		error_text  TEXT
	)
`

// maxErrorText bounds the stored failure message.
const maxErrorText = 2000

// RunRepository is the Postgres history of finished pipeline runs.
type RunRepository struct {
	db db
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: pool}
}

// EnsureSchema creates the runs table when missing.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, runsSchema)
	return err
}

// RecordRun implements ports.RunLedger.
func (r *RunRepository) RecordRun(ctx context.Context, rec models.RunRecord) error {
	err := r.insert(ctx, rec)
	if httpkit.IsUndefinedTable(err) {
		if err := r.EnsureSchema(ctx); err != nil {
			return err
		}
		err = r.insert(ctx, rec)
	}
	return err
}

func (r *RunRepository) insert(ctx context.Context, rec models.RunRecord) error {
	msg := rec.ErrorText
	if len(msg) > maxErrorText {
		msg = msg[:maxErrorText]
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO runs (run_id, trigger_id, status, total, processed, succeeded, started_at, finished_at, error_text)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (run_id) DO NOTHING
	`, rec.RunID, nullIfEmpty(rec.TriggerID), string(rec.Status), rec.Total, rec.Processed, rec.Succeeded,
		rec.StartedAt, rec.FinishedAt, nullIfEmpty(msg))
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
