package storage

import (
	"context"
	"fmt"

	"seriesflow/config"
)

// Backend abstracts where converted artifacts land. Keys are relative paths;
// the backend owns the mapping to its own namespace.
type Backend interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	GetSize(ctx context.Context, key string) (int64, error)
}

// New selects a backend from the storage config block.
func New(cfg *config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(cfg.Local.BaseDir), nil
	case "s3":
		return NewS3(&cfg.S3)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
