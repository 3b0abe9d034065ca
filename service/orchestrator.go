package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-media-gateway/entity"
	"github.com/tnqbao/gau-media-gateway/infra"
	"github.com/tnqbao/gau-media-gateway/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const compensationTimeout = 10 * time.Second

type UploadInput struct {
	OwnerID  uuid.UUID
	Mime     string
	Filename string
	Size     int64
	Body     io.Reader
}

type UploadResult struct {
	Media      *entity.Media
	PreviewURL string
}

type SignedUploadResult struct {
	Bucket    entity.StorageBucket
	Path      string
	UploadURL string
	Token     string
	ExpiresAt time.Time
}

type CommitInput struct {
	OwnerID     uuid.UUID
	Bucket      string
	Path        string
	Mime        string
	SizeBytes   int64
	Kind        string
	Width       *int
	Height      *int
	DurationSec *float64
	Token       string
}

// Orchestrator runs the proxy and pre-signed upload flows. Every check
// happens before the first storage or metadata mutation.
type Orchestrator struct {
	store     MediaStore
	objects   infra.ObjectStore
	broker    *Broker
	policy    *utils.MimePolicy
	paths     *utils.PathBuilder
	limits    Limits
	orphans   OrphanReporter
	logger    *infra.LoggerClient
	telemetry *infra.TelemetryClient
	now       func() time.Time
}

func NewOrchestrator(
	store MediaStore,
	objects infra.ObjectStore,
	broker *Broker,
	policy *utils.MimePolicy,
	limits Limits,
	orphans OrphanReporter,
	logger *infra.LoggerClient,
	telemetry *infra.TelemetryClient,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		objects:   objects,
		broker:    broker,
		policy:    policy,
		paths:     utils.NewPathBuilder(),
		limits:    limits,
		orphans:   orphans,
		logger:    logger,
		telemetry: telemetry,
		now:       time.Now,
	}
}

// resolveMime falls back to the filename when the client sent no useful content type.
func resolveMime(declared, filename string) (string, error) {
	m := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	if m != "" && m != "application/octet-stream" {
		return m, nil
	}
	fromName, err := utils.MimeFromFilename(filename)
	if err != nil {
		return "", validationError(ErrUnsupportedMime, "could not determine file type")
	}
	return fromName, nil
}

// classify runs the checks shared by both flows and returns kind, bucket and extension.
func (o *Orchestrator) classify(mime string) (entity.MediaKind, entity.StorageBucket, error) {
	kind, bucket, err := utils.MimeToKindBucket(mime)
	if err != nil {
		return "", "", validationError(ErrUnsupportedKind, "unsupported media kind: "+mime)
	}
	if !o.policy.IsAllowed(mime, kind) {
		return "", "", validationError(ErrMimeNotAllowed, "mime type not allowed: "+mime)
	}
	return kind, bucket, nil
}

func (o *Orchestrator) Upload(ctx context.Context, in UploadInput) (result *UploadResult, err error) {
	ctx, span := o.telemetry.Tracer.Start(ctx, "media.upload")
	defer func() { endSpan(span, err) }()

	if in.Size <= 0 {
		return nil, validationError(ErrEmptyFile, "file is empty")
	}

	mime, err := resolveMime(in.Mime, in.Filename)
	if err != nil {
		return nil, err
	}

	kind, bucket, err := o.classify(mime)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("media.kind", string(kind)))

	if in.Size > o.limits.MaxBytes(kind) {
		return nil, validationError(ErrFileTooLarge,
			fmt.Sprintf("file too large: %d bytes exceeds the %s limit of %d bytes", in.Size, kind, o.limits.MaxBytes(kind)))
	}

	ext, err := utils.MimeToExt(mime)
	if err != nil {
		return nil, validationError(ErrUnsupportedMime, "unsupported mime type: "+mime)
	}

	path := o.paths.Build(in.OwnerID.String(), ext)

	if err := o.objects.Put(ctx, string(bucket), path, in.Body, in.Size, mime); err != nil {
		o.logger.ErrorWithContextf(ctx, err, "[Upload] Failed to write %s/%s", bucket, path)
		return nil, newError(KindStorage, ErrStorageWrite, "failed to store file", err)
	}

	media := &entity.Media{
		UserID:    in.OwnerID,
		Bucket:    bucket,
		Path:      path,
		Mime:      mime,
		SizeBytes: in.Size,
		Kind:      kind,
	}
	if err := o.store.Create(ctx, media); err != nil {
		if errors.Is(err, ErrDuplicateMedia) {
			// The location already backs another record, so the object is not an orphan.
			o.logger.WarningWithContextf(ctx, "[Upload] Path collision at %s/%s", bucket, path)
			return nil, duplicateError()
		}
		o.compensate(ctx, media, err)
		return nil, newError(KindPersistence, ErrPersistence, "failed to save media", err)
	}

	o.telemetry.Uploads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("flow", "proxy"),
	))
	o.logger.InfoWithContextf(ctx, "[Upload] Stored media %s at %s/%s (%d bytes)", media.ID, bucket, path, in.Size)

	previewURL, err := o.broker.SignedReadURL(ctx, bucket, path, o.limits.PreviewURLTTL)
	if err != nil {
		o.logger.WarningWithContextf(ctx, "[Upload] Preview url unavailable for media %s: %v", media.ID, err)
		previewURL = ""
	}

	return &UploadResult{Media: media, PreviewURL: previewURL}, nil
}

// compensate removes an object whose metadata insert failed and reports the
// orphan whether or not the delete went through.
func (o *Orchestrator) compensate(ctx context.Context, media *entity.Media, cause error) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	removed := true
	if err := o.objects.Remove(cleanupCtx, string(media.Bucket), media.Path); err != nil {
		removed = false
		o.logger.ErrorWithContextf(ctx, err, "[Upload] Compensating delete failed for %s/%s", media.Bucket, media.Path)
	}

	o.orphans.ReportOrphan(cleanupCtx, Orphan{
		Bucket:  media.Bucket,
		Path:    media.Path,
		OwnerID: media.UserID,
		Removed: removed,
		Cause:   cause,
	})
}

func (o *Orchestrator) RequestSignedUpload(ctx context.Context, ownerID uuid.UUID, mime string) (*SignedUploadResult, error) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "" {
		return nil, validationError(ErrMissingField, "mime is required")
	}

	_, bucket, err := o.classify(mime)
	if err != nil {
		return nil, err
	}

	ext, err := utils.MimeToExt(mime)
	if err != nil {
		return nil, validationError(ErrUnsupportedMime, "unsupported mime type: "+mime)
	}

	path := o.paths.Build(ownerID.String(), ext)

	grant, err := o.broker.SignedWriteURL(ctx, bucket, path, ownerID.String())
	if err != nil {
		return nil, err
	}

	return &SignedUploadResult{
		Bucket:    bucket,
		Path:      path,
		UploadURL: grant.URL,
		Token:     grant.Token,
		ExpiresAt: grant.ExpiresAt,
	}, nil
}

func (o *Orchestrator) validateCommit(in CommitInput) (*entity.Media, error) {
	var missing []string
	if strings.TrimSpace(in.Bucket) == "" {
		missing = append(missing, "bucket")
	}
	if strings.TrimSpace(in.Path) == "" {
		missing = append(missing, "path")
	}
	if strings.TrimSpace(in.Mime) == "" {
		missing = append(missing, "mime")
	}
	if in.SizeBytes <= 0 {
		missing = append(missing, "size_bytes")
	}
	if strings.TrimSpace(in.Kind) == "" {
		missing = append(missing, "kind")
	}
	if len(missing) > 0 {
		return nil, validationError(ErrMissingField, "missing required fields: "+strings.Join(missing, ", "))
	}

	bucket := entity.StorageBucket(in.Bucket)
	if !bucket.Valid() {
		return nil, validationError(ErrInvalidBucket, "invalid bucket: "+in.Bucket)
	}
	kind := entity.MediaKind(in.Kind)
	if !kind.Valid() {
		return nil, validationError(ErrInvalidKind, "invalid kind: "+in.Kind)
	}

	mime := strings.ToLower(strings.TrimSpace(in.Mime))
	mimeKind, mimeBucket, err := utils.MimeToKindBucket(mime)
	if err != nil || mimeKind != kind || mimeBucket != bucket {
		return nil, validationError(ErrKindMismatch, "mime, kind and bucket do not agree")
	}

	if kind == entity.MediaKindAudio && (in.Width != nil || in.Height != nil) {
		return nil, validationError(ErrInvalidMetadata, "width and height apply to images only")
	}
	if kind == entity.MediaKindImage && in.DurationSec != nil {
		return nil, validationError(ErrInvalidMetadata, "duration_sec applies to audio only")
	}
	if (in.Width != nil && *in.Width <= 0) || (in.Height != nil && *in.Height <= 0) ||
		(in.DurationSec != nil && *in.DurationSec <= 0) {
		return nil, validationError(ErrInvalidMetadata, "dimensions and duration must be positive")
	}

	if in.SizeBytes > o.limits.MaxBytes(kind) {
		return nil, validationError(ErrFileTooLarge,
			fmt.Sprintf("file too large: %d bytes exceeds the %s limit of %d bytes", in.SizeBytes, kind, o.limits.MaxBytes(kind)))
	}

	path := strings.TrimSpace(in.Path)
	if !strings.HasPrefix(path, in.OwnerID.String()+"/") || strings.Contains(path, "..") {
		return nil, validationError(ErrPathNotOwned, "path does not belong to the caller")
	}

	return &entity.Media{
		UserID:      in.OwnerID,
		Bucket:      bucket,
		Path:        path,
		Mime:        mime,
		SizeBytes:   in.SizeBytes,
		Kind:        kind,
		Width:       in.Width,
		Height:      in.Height,
		DurationSec: in.DurationSec,
	}, nil
}

// Commit records an object the client uploaded directly. By default the
// claimed metadata is trusted; token and object checks are opt-in.
func (o *Orchestrator) Commit(ctx context.Context, in CommitInput) (media *entity.Media, err error) {
	ctx, span := o.telemetry.Tracer.Start(ctx, "media.commit")
	defer func() { endSpan(span, err) }()

	media, err = o.validateCommit(in)
	if err != nil {
		return nil, err
	}

	if o.limits.CommitRequireToken {
		if err := utils.VerifyUploadToken(o.limits.TokenSecret, in.Token, string(media.Bucket), media.Path, in.OwnerID.String(), o.now()); err != nil {
			return nil, newError(KindValidation, ErrInvalidToken, "invalid or expired upload token", err)
		}
	}

	if o.limits.CommitVerifyObject {
		info, err := o.objects.Stat(ctx, string(media.Bucket), media.Path)
		if err != nil {
			if errors.Is(err, infra.ErrObjectNotFound) {
				return nil, validationError(ErrObjectMissing, "uploaded object not found")
			}
			return nil, newError(KindStorage, ErrStorageRead, "failed to verify uploaded object", err)
		}
		if info.Size > o.limits.MaxBytes(media.Kind) {
			return nil, validationError(ErrFileTooLarge, "uploaded object exceeds the size limit")
		}
		media.SizeBytes = info.Size
	}

	if err := o.store.Create(ctx, media); err != nil {
		if errors.Is(err, ErrDuplicateMedia) {
			return nil, duplicateError()
		}
		o.logger.ErrorWithContextf(ctx, err, "[Commit] Failed to save media at %s/%s", media.Bucket, media.Path)
		return nil, newError(KindPersistence, ErrPersistence, "failed to save media", err)
	}

	o.telemetry.Uploads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(media.Kind)),
		attribute.String("flow", "presigned"),
	))
	o.logger.InfoWithContextf(ctx, "[Commit] Committed media %s at %s/%s", media.ID, media.Bucket, media.Path)

	return media, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
