package service

import (
	"context"
	"time"

	"github.com/tnqbao/gau-media-gateway/entity"
	"github.com/tnqbao/gau-media-gateway/infra"
	"github.com/tnqbao/gau-media-gateway/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// MediaWithURL is a record decorated with a read URL. URLError marks an item
// whose signature could not be produced.
type MediaWithURL struct {
	entity.Media
	URL      string `json:"url,omitempty"`
	URLError bool   `json:"urlError,omitempty"`
}

type SignedWrite struct {
	URL       string
	Token     string
	ExpiresAt time.Time
}

// Broker issues time-limited URLs and removes objects. It does not check
// ownership; callers authorize before reaching it.
type Broker struct {
	objects   infra.ObjectStore
	cache     URLCache
	logger    *infra.LoggerClient
	telemetry *infra.TelemetryClient
	limits    Limits
	now       func() time.Time
}

func NewBroker(objects infra.ObjectStore, cache URLCache, logger *infra.LoggerClient, telemetry *infra.TelemetryClient, limits Limits) *Broker {
	if limits.SigningConcurrency <= 0 {
		limits.SigningConcurrency = 8
	}
	return &Broker{
		objects:   objects,
		cache:     cache,
		logger:    logger,
		telemetry: telemetry,
		limits:    limits,
		now:       time.Now,
	}
}

// cacheLifetime bounds how long a signed URL is reused. Any cache hit is
// still valid for at least half of the ttl the caller asked for.
func cacheLifetime(ttl time.Duration) time.Duration {
	return ttl / 2
}

func (b *Broker) SignedReadURL(ctx context.Context, bucket entity.StorageBucket, path string, ttl time.Duration) (string, error) {
	if b.cache != nil {
		url, ok, err := b.cache.GetSignedURL(ctx, string(bucket), path, ttl)
		if err != nil {
			b.logger.WarningWithContextf(ctx, "[Broker] Signed URL cache read failed for %s/%s: %v", bucket, path, err)
		} else if ok {
			return url, nil
		}
	}

	url, err := b.objects.PresignGet(ctx, string(bucket), path, ttl)
	if err != nil {
		b.telemetry.SigningFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "read")))
		return "", newError(KindSigning, ErrSigning, "failed to sign read url", err)
	}

	if b.cache != nil {
		if err := b.cache.SetSignedURL(ctx, string(bucket), path, ttl, cacheLifetime(ttl), url); err != nil {
			b.logger.WarningWithContextf(ctx, "[Broker] Signed URL cache write failed for %s/%s: %v", bucket, path, err)
		}
	}
	return url, nil
}

// SignedWriteURL grants a direct PUT to exactly (bucket, path) and an HMAC
// token that commit can later check against the same location and owner.
func (b *Broker) SignedWriteURL(ctx context.Context, bucket entity.StorageBucket, path, ownerID string) (*SignedWrite, error) {
	url, err := b.objects.PresignPut(ctx, string(bucket), path, b.limits.SignedUploadTTL)
	if err != nil {
		b.telemetry.SigningFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "write")))
		return nil, newError(KindSigning, ErrSigning, "failed to sign upload url", err)
	}

	expiresAt := b.now().Add(b.limits.SignedUploadTTL)
	return &SignedWrite{
		URL:       url,
		Token:     utils.SignUploadToken(b.limits.TokenSecret, string(bucket), path, ownerID, expiresAt),
		ExpiresAt: expiresAt,
	}, nil
}

func (b *Broker) DeleteObject(ctx context.Context, bucket entity.StorageBucket, path string) error {
	if err := b.objects.Remove(ctx, string(bucket), path); err != nil {
		return newError(KindStorage, ErrStorageDelete, "failed to delete object", err)
	}
	if b.cache != nil {
		if err := b.cache.EvictObject(ctx, string(bucket), path); err != nil {
			b.logger.WarningWithContextf(ctx, "[Broker] Failed to evict cached URLs for %s/%s: %v", bucket, path, err)
		}
	}
	return nil
}

// AttachURLs signs every record independently. A failed signature only
// affects its own item, the rest of the page is still returned in order.
func (b *Broker) AttachURLs(ctx context.Context, records []entity.Media, ttl time.Duration) []MediaWithURL {
	out := make([]MediaWithURL, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limits.SigningConcurrency)
	for i := range records {
		out[i].Media = records[i]
		g.Go(func() error {
			url, err := b.SignedReadURL(gctx, records[i].Bucket, records[i].Path, ttl)
			if err != nil {
				b.logger.ErrorWithContextf(ctx, err, "[Broker] Failed to sign url for media %s", records[i].ID)
				out[i].URLError = true
				return nil
			}
			out[i].URL = url
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (b *Broker) Health(ctx context.Context) error {
	return b.objects.Health(ctx)
}
