// Package backend builds the configured objstore.Store.
package backend

import (
	"context"
	"fmt"

	"github.com/dvloznov/photo-gallery/internal/config"
	"github.com/dvloznov/photo-gallery/internal/objstore"
	"github.com/dvloznov/photo-gallery/internal/objstore/gcs"
	"github.com/dvloznov/photo-gallery/internal/objstore/memory"
	"github.com/dvloznov/photo-gallery/internal/objstore/minio"
	"github.com/dvloznov/photo-gallery/internal/objstore/s3"
)

// Open creates the store selected by cfg.Backend. The caller owns the result
// and must Close it on shutdown.
func Open(ctx context.Context, cfg config.Storage) (objstore.Store, error) {
	switch cfg.Backend {
	case config.BackendGCS:
		return gcs.NewStore(ctx, cfg.Bucket, gcs.Options{
			Endpoint:  cfg.Endpoint,
			Anonymous: cfg.Endpoint != "" && cfg.AccessKey == "",
		})
	case config.BackendMinIO:
		return minio.NewStore(ctx, cfg.Bucket, minio.Options{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
	case config.BackendS3:
		return s3.NewStore(ctx, cfg.Bucket, s3.Options{
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
	case config.BackendMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", objstore.ErrUnknownBackend, cfg.Backend)
	}
}
