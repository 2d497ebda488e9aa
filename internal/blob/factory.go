package blob

import (
	"aquamind/internal/config"
	"aquamind/internal/infra/blob/fs"
	"aquamind/internal/infra/blob/memory"
	"aquamind/internal/infra/blob/s3"
	"context"
	"fmt"
)

// Open constructs the blob store selected by cfg.Driver (default fs).
func Open(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, s3.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewFilesystem returns a store rooted at root.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewMemory returns a process-local store.
func NewMemory() Store { return memory.New() }

// NewS3 returns an S3-backed store.
func NewS3(ctx context.Context, cfg s3.Config) (Store, error) {
	return s3.New(ctx, cfg)
}
