// Package config loads brandgen settings from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Netflix/go-env"

	"brandgen/internal/batch"
	"brandgen/internal/pkg/logger"
)

// Storage providers understood by the storage factory.
const (
	ProviderLocalFS = "localfs"
	ProviderGDrive  = "gdrive"
	ProviderS3      = "s3"
)

// Log configures the structured logger.
type Log struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
	Source bool   `env:"LOG_SOURCE,default=false"`
}

// Logger builds the logger configuration for service.
func (l Log) Logger(service string) logger.Config {
	return logger.Config{
		Level:       l.Level,
		Format:      l.Format,
		AddSource:   l.Source,
		ServiceName: service,
	}
}

// Storage selects and configures where uploaded cards are persisted.
type Storage struct {
	Provider string `env:"STORAGE_PROVIDER,default=localfs"`

	GDriveClientID     string `env:"GDRIVE_CLIENT_ID"`
	GDriveClientSecret string `env:"GDRIVE_CLIENT_SECRET"`
	GDriveRefreshToken string `env:"GDRIVE_REFRESH_TOKEN"`
	GDriveFolderID     string `env:"GDRIVE_FOLDER_ID"`

	S3Bucket         string `env:"S3_BUCKET"`
	S3Prefix         string `env:"S3_PREFIX"`
	S3PresignSeconds int    `env:"S3_PRESIGN_SECONDS,default=900"`

	// LocalRoot is the uploads directory; it is filled from API.UploadsDir.
	LocalRoot string
}

// PresignTTL is how long redirects to S3 objects stay valid.
func (s Storage) PresignTTL() time.Duration {
	return time.Duration(s.S3PresignSeconds) * time.Second
}

// Validate checks that the selected provider has what it needs.
func (s Storage) Validate() error {
	switch s.Provider {
	case ProviderLocalFS:
		if strings.TrimSpace(s.LocalRoot) == "" {
			return fmt.Errorf("localfs storage requires an uploads directory")
		}
	case ProviderGDrive:
		var missing []string
		for k, v := range map[string]string{
			"GDRIVE_CLIENT_ID":     s.GDriveClientID,
			"GDRIVE_CLIENT_SECRET": s.GDriveClientSecret,
			"GDRIVE_REFRESH_TOKEN": s.GDriveRefreshToken,
		} {
			if strings.TrimSpace(v) == "" {
				missing = append(missing, k)
			}
		}
		if len(missing) > 0 {
			slices.Sort(missing)
			return fmt.Errorf("gdrive storage requires %s", strings.Join(missing, ", "))
		}
	case ProviderS3:
		if strings.TrimSpace(s.S3Bucket) == "" {
			return fmt.Errorf("s3 storage requires S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown storage provider: %s", s.Provider)
	}
	return nil
}

// API configures cmd/api.
type API struct {
	HTTPPort           string `env:"HTTP_PORT,default=3000"`
	DataDir            string `env:"DATA_DIR,default=./data"`
	UploadsDir         string `env:"UPLOADS_DIR,default=./uploads"`
	CatalogFile        string `env:"CATALOG_FILE,default=brands.json"`
	MaxUploadFiles     int    `env:"MAX_UPLOAD_FILES,default=200"`
	MaxUploadFileBytes int64  `env:"MAX_UPLOAD_FILE_BYTES,default=10485760"`
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS,default=*"`

	// Optional integrations.
	DatabaseURL  string `env:"DATABASE_URL"`
	RedisAddr    string `env:"REDIS_ADDR"`
	TriggerQueue string `env:"TRIGGER_QUEUE,default=brandgen:runs"`

	Storage Storage
	Log     Log
}

// CatalogPath is the brand catalog location; relative names live in DataDir.
func (c API) CatalogPath() string {
	if filepath.IsAbs(c.CatalogFile) {
		return c.CatalogFile
	}
	return filepath.Join(c.DataDir, c.CatalogFile)
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c API) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// LoadAPI reads the server configuration.
func LoadAPI() (*API, error) {
	var cfg API
	if err := unmarshal(&cfg, &cfg.Storage, &cfg.Log); err != nil {
		return nil, err
	}
	cfg.Storage.LocalRoot = cfg.UploadsDir

	if cfg.MaxUploadFiles <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_FILES must be positive, got %d", cfg.MaxUploadFiles)
	}
	if cfg.MaxUploadFileBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_FILE_BYTES must be positive, got %d", cfg.MaxUploadFileBytes)
	}
	if err := cfg.Storage.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadStorage reads only the storage settings, without validating them.
func LoadStorage() (*Storage, error) {
	var cfg Storage
	if err := unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Generator configures a pipeline run (cmd/brandgen and cmd/worker).
type Generator struct {
	APIBaseURL         string `env:"API_BASE_URL,default=http://localhost:3000"`
	BatchSize          int    `env:"BATCH_SIZE,default=50"`
	RenderConcurrency  int    `env:"RENDER_CONCURRENCY,default=0"`
	RendererBaseURL    string `env:"RENDERER_HTTP_BASEURL"`
	CardWidth          int    `env:"CARD_WIDTH,default=900"`
	CardHeight         int    `env:"CARD_HEIGHT,default=1200"`
	HTTPTimeoutSeconds int    `env:"HTTP_TIMEOUT_SECONDS,default=300"`
	LockFile           string `env:"LOCK_FILE"`
	// CatalogFile reads records from disk instead of GET /api/brands.
	CatalogFile string `env:"CATALOG_SOURCE_FILE"`

	Log Log
}

// HTTPTimeout bounds each catalog, render and upload request.
func (g Generator) HTTPTimeout() time.Duration {
	return time.Duration(g.HTTPTimeoutSeconds) * time.Second
}

// LoadGenerator reads the pipeline configuration. BATCH_SIZE is clamped to
// the range the upload endpoint accepts.
func LoadGenerator() (*Generator, error) {
	var cfg Generator
	if err := unmarshal(&cfg, &cfg.Log); err != nil {
		return nil, err
	}
	cfg.BatchSize = batch.Clamp(cfg.BatchSize)
	if cfg.RenderConcurrency < 0 {
		cfg.RenderConcurrency = 0
	}
	if cfg.LockFile == "" {
		cfg.LockFile = filepath.Join(os.TempDir(), "brandgen.lock")
	}
	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive, got %d", cfg.HTTPTimeoutSeconds)
	}
	return &cfg, nil
}

// Worker configures cmd/worker.
type Worker struct {
	Generator

	RedisAddr      string `env:"REDIS_ADDR,required=true"`
	TriggerQueue   string `env:"TRIGGER_QUEUE,default=brandgen:runs"`
	PopTimeoutSecs int    `env:"QUEUE_POP_TIMEOUT_SECONDS,default=30"`
	// DatabaseURL enables the run history when set.
	DatabaseURL string `env:"DATABASE_URL"`
}

// PopTimeout bounds a single blocking queue read.
func (w Worker) PopTimeout() time.Duration {
	return time.Duration(w.PopTimeoutSecs) * time.Second
}

// LoadWorker reads the worker configuration.
func LoadWorker() (*Worker, error) {
	var cfg Worker
	if err := unmarshal(&cfg); err != nil {
		return nil, err
	}
	gen, err := LoadGenerator()
	if err != nil {
		return nil, err
	}
	cfg.Generator = *gen
	if cfg.PopTimeoutSecs <= 0 {
		cfg.PopTimeoutSecs = 30
	}
	return &cfg, nil
}

func unmarshal(targets ...any) error {
	for _, t := range targets {
		if _, err := env.UnmarshalFromEnviron(t); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	return nil
}
