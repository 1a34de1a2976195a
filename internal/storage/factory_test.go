package storage

import (
	"context"
	"testing"

	"brandgen/internal/config"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Storage
		provider string
		wantErr  bool
	}{
		{"localfs", config.Storage{Provider: config.ProviderLocalFS, LocalRoot: t.TempDir()}, "localfs", false},
		{"localfs without root", config.Storage{Provider: config.ProviderLocalFS}, "", true},
		{"gdrive without creds", config.Storage{Provider: config.ProviderGDrive}, "", true},
		{"s3 without bucket", config.Storage{Provider: config.ProviderS3}, "", true},
		{"unknown", config.Storage{Provider: "ftp"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Provider() != tt.provider {
				t.Errorf("Provider() = %s, want %s", p.Provider(), tt.provider)
			}
		})
	}
}
