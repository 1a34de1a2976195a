package ports

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by GetObject and DeleteObject for unknown keys.
var ErrObjectNotFound = errors.New("object not found")

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// Clave con la que el objeto puede leerse después. Todos los providers
	// usan el nombre guardado, así que coincide con ObjectKey de entrada.
	ObjectKey string
	Size      int64
}

type SignedURLOutput struct {
	URL       string
	ExpiresAt time.Time
}

// StorageProvider: implementaciones (localfs, gdrive, s3).
// PutObject reemplaza cualquier objeto con la misma clave.
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error

	// URL vacía cuando el provider no firma URLs; el API entonces hace stream.
	GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (SignedURLOutput, error)
}
