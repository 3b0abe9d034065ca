package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-media-gateway/entity"
	"github.com/tnqbao/gau-media-gateway/repository"
)

// MediaStore is implemented by repository.MediaRepository.
type MediaStore interface {
	Create(ctx context.Context, media *entity.Media) error
	FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*entity.Media, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Media, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, opts repository.ListOptions) ([]entity.Media, error)
	ListAll(ctx context.Context, opts repository.ListOptions) ([]entity.Media, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
	CountAll(ctx context.Context) (int64, error)
	DeleteByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) error
}

// URLCache is implemented by infra.RedisClient. A nil cache disables caching.
type URLCache interface {
	GetSignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, bool, error)
	SetSignedURL(ctx context.Context, bucket, path string, ttl, keepFor time.Duration, url string) error
	EvictObject(ctx context.Context, bucket, path string) error
}

type Orphan struct {
	Bucket  entity.StorageBucket
	Path    string
	OwnerID uuid.UUID
	// Removed is true when the inline compensating delete succeeded.
	Removed bool
	Cause   error
}

type OrphanReporter interface {
	ReportOrphan(ctx context.Context, orphan Orphan)
}
