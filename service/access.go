package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-media-gateway/entity"
	"github.com/tnqbao/gau-media-gateway/infra"
	"github.com/tnqbao/gau-media-gateway/repository"
)

type Page struct {
	Items []MediaWithURL
	Total int64
}

// Library serves reads and deletes of committed media. Ownership is enforced
// here through scoped lookups before the broker is involved.
type Library struct {
	store     MediaStore
	broker    *Broker
	limits    Limits
	logger    *infra.LoggerClient
	telemetry *infra.TelemetryClient
}

func NewLibrary(store MediaStore, broker *Broker, limits Limits, logger *infra.LoggerClient, telemetry *infra.TelemetryClient) *Library {
	return &Library{
		store:     store,
		broker:    broker,
		limits:    limits,
		logger:    logger,
		telemetry: telemetry,
	}
}

func lookupError(err error) error {
	if errors.Is(err, repository.ErrMediaNotFound) {
		return notFoundError()
	}
	return newError(KindPersistence, ErrPersistence, "failed to load media", err)
}

func (l *Library) ReadURL(ctx context.Context, id, ownerID uuid.UUID) (string, error) {
	media, err := l.store.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return "", lookupError(err)
	}
	return l.broker.SignedReadURL(ctx, media.Bucket, media.Path, l.limits.PreviewURLTTL)
}

func (l *Library) ListMine(ctx context.Context, ownerID uuid.UUID, opts repository.ListOptions) (*Page, error) {
	records, err := l.store.ListByOwner(ctx, ownerID, opts)
	if err != nil {
		return nil, newError(KindPersistence, ErrPersistence, "failed to list media", err)
	}
	total, err := l.store.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, newError(KindPersistence, ErrPersistence, "failed to count media", err)
	}
	return &Page{Items: l.broker.AttachURLs(ctx, records, l.limits.PreviewURLTTL), Total: total}, nil
}

func (l *Library) ListAll(ctx context.Context, opts repository.ListOptions) (*Page, error) {
	records, err := l.store.ListAll(ctx, opts)
	if err != nil {
		return nil, newError(KindPersistence, ErrPersistence, "failed to list media", err)
	}
	total, err := l.store.CountAll(ctx)
	if err != nil {
		return nil, newError(KindPersistence, ErrPersistence, "failed to count media", err)
	}
	return &Page{Items: l.broker.AttachURLs(ctx, records, l.limits.PreviewURLTTL), Total: total}, nil
}

// Delete removes the object first and the row second. If the row delete fails
// the record points at nothing and the error is surfaced to the caller.
func (l *Library) Delete(ctx context.Context, id, ownerID uuid.UUID) (err error) {
	ctx, span := l.telemetry.Tracer.Start(ctx, "media.delete")
	defer func() { endSpan(span, err) }()

	media, err := l.store.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return lookupError(err)
	}

	if err := l.broker.DeleteObject(ctx, media.Bucket, media.Path); err != nil {
		l.logger.ErrorWithContextf(ctx, err, "[Media] Failed to delete object %s/%s", media.Bucket, media.Path)
		return err
	}

	if err := l.store.DeleteByIDAndOwner(ctx, id, ownerID); err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return notFoundError()
		}
		l.logger.ErrorWithContextf(ctx, err, "[Media] Object %s/%s removed but row %s could not be deleted", media.Bucket, media.Path, id)
		return newError(KindPersistence, ErrPersistence, "failed to delete media", err)
	}

	l.logger.InfoWithContextf(ctx, "[Media] Deleted media %s", id)
	return nil
}

// DownloadURL resolves any record by id without an ownership check.
func (l *Library) DownloadURL(ctx context.Context, id uuid.UUID) (string, *entity.Media, error) {
	media, err := l.store.FindByID(ctx, id)
	if err != nil {
		return "", nil, lookupError(err)
	}
	url, err := l.broker.SignedReadURL(ctx, media.Bucket, media.Path, l.limits.DownloadURLTTL)
	if err != nil {
		return "", nil, err
	}
	return url, media, nil
}

func (l *Library) Health(ctx context.Context) error {
	return l.broker.Health(ctx)
}
