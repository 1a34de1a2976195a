package storage

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"brandgen/internal/adapters/storage/gdrive"
	"brandgen/internal/adapters/storage/localfs"
	s3provider "brandgen/internal/adapters/storage/s3"
	"brandgen/internal/config"
)

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.Storage) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case config.ProviderLocalFS:
		return localfs.New(cfg.LocalRoot), nil

	case config.ProviderGDrive:
		return newGDriveProvider(ctx, cfg)

	case config.ProviderS3:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return s3provider.NewFromConfig(awsCfg, cfg.S3Bucket, cfg.S3Prefix), nil

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}

func newGDriveProvider(ctx context.Context, cfg config.Storage) (Provider, error) {
	conf := &oauth2.Config{
		ClientID:     cfg.GDriveClientID,
		ClientSecret: cfg.GDriveClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}

	tok := &oauth2.Token{RefreshToken: cfg.GDriveRefreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return gdrive.NewClient(srv, cfg.GDriveFolderID), nil
}
