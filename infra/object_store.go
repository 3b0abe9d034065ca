package infra

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/tnqbao/gau-media-gateway/config"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Size        int64
	ContentType string
}

// ObjectStore is the S3-compatible backend holding media bytes.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, bucket, key string) error
	Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error)
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	PresignPut(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	Health(ctx context.Context) error
}

func InitObjectStore(cfg *config.EnvConfig) ObjectStore {
	switch cfg.Storage.Driver {
	case config.StorageDriverS3:
		return InitS3Store(cfg)
	default:
		return InitMinioClient(cfg)
	}
}
