package ports

import (
	"context"

	"brandgen/internal/models"
)

// UploadLedger keeps one row per stored name. Recording a name again
// replaces the previous row, mirroring overwrite-on-collision in storage.
type UploadLedger interface {
	Record(ctx context.Context, rec models.UploadRecord) error
}

// RunLedger guarda el historial de corridas del worker.
type RunLedger interface {
	RecordRun(ctx context.Context, rec models.RunRecord) error
}
