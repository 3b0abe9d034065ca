package service

import (
	"context"

	"github.com/tnqbao/gau-media-gateway/infra"
	"github.com/tnqbao/gau-media-gateway/infra/produce"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type DeletePublisher interface {
	PublishDeleteObject(ctx context.Context, msg produce.DeleteObjectMessage) error
}

// QueueOrphanReporter logs and counts every orphan and, when the inline delete
// did not go through, queues a delete job for the object consumer.
type QueueOrphanReporter struct {
	publisher DeletePublisher
	logger    *infra.LoggerClient
	telemetry *infra.TelemetryClient
}

func NewQueueOrphanReporter(publisher DeletePublisher, logger *infra.LoggerClient, telemetry *infra.TelemetryClient) *QueueOrphanReporter {
	return &QueueOrphanReporter{
		publisher: publisher,
		logger:    logger,
		telemetry: telemetry,
	}
}

func (r *QueueOrphanReporter) ReportOrphan(ctx context.Context, orphan Orphan) {
	r.telemetry.Orphans.Add(ctx, 1, metric.WithAttributes(
		attribute.String("bucket", string(orphan.Bucket)),
		attribute.Bool("removed", orphan.Removed),
	))
	r.logger.ErrorWithContextf(ctx, orphan.Cause, "[Orphan] Object %s/%s for owner %s has no metadata row (removed=%t)",
		orphan.Bucket, orphan.Path, orphan.OwnerID, orphan.Removed)

	if orphan.Removed {
		return
	}

	err := r.publisher.PublishDeleteObject(ctx, produce.DeleteObjectMessage{
		BucketName: string(orphan.Bucket),
		ObjectPath: orphan.Path,
		UserID:     orphan.OwnerID.String(),
		Reason:     produce.DeleteReasonOrphan,
	})
	if err != nil {
		r.logger.ErrorWithContextf(ctx, err, "[Orphan] Failed to queue delete for %s/%s", orphan.Bucket, orphan.Path)
	}
}
