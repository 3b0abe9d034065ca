package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tnqbao/gau-media-gateway/infra"
	"github.com/tnqbao/gau-media-gateway/infra/produce"
)

const maxDeleteAttempts = 3

// ObjectConsumer removes objects that the gateway could not clean up inline,
// mostly uploads whose metadata row was never written.
type ObjectConsumer struct {
	channel *amqp.Channel
	storage infra.ObjectStore
	logger  *infra.LoggerClient
	backoff func(attempt int) time.Duration
}

func NewObjectConsumer(channel *amqp.Channel, infra *infra.Infra) *ObjectConsumer {
	return &ObjectConsumer{
		channel: channel,
		storage: infra.Storage,
		logger:  infra.Logger,
		backoff: func(attempt int) time.Duration { return time.Duration(attempt) * 2 * time.Second },
	}
}

func (c *ObjectConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		produce.ObjectDeleteQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register object delete consumer: %w", err)
	}

	c.logger.InfoWithContextf(ctx, "[Object Consumer] Started listening for delete object jobs on queue: %s", produce.ObjectDeleteQueue)

	go c.consume(ctx, msgs)
	return nil
}

func (c *ObjectConsumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.InfoWithContextf(ctx, "[Object Consumer] Shutting down...")
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.WarningWithContextf(ctx, "[Object Consumer] Channel closed")
				return
			}
			c.handleDeleteObject(ctx, msg)
		}
	}
}

func (c *ObjectConsumer) handleDeleteObject(ctx context.Context, msg amqp.Delivery) {
	var payload produce.DeleteObjectMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.logger.ErrorWithContextf(ctx, err, "[Object Consumer] Failed to unmarshal message")
		_ = msg.Nack(false, false)
		return
	}
	if payload.BucketName == "" || payload.ObjectPath == "" {
		c.logger.WarningWithContextf(ctx, "[Object Consumer] Dropping message without bucket or path: %s", string(msg.Body))
		_ = msg.Nack(false, false)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= maxDeleteAttempts; attempt++ {
		lastErr = c.storage.Remove(ctx, payload.BucketName, payload.ObjectPath)
		if lastErr == nil || errors.Is(lastErr, infra.ErrObjectNotFound) {
			c.logger.InfoWithContextf(ctx, "[Object Consumer] Deleted %s object %s/%s owned by %s",
				payload.Reason, payload.BucketName, payload.ObjectPath, payload.UserID)
			_ = msg.Ack(false)
			return
		}

		c.logger.WarningWithContextf(ctx, "[Object Consumer] Attempt %d/%d failed for %s/%s: %v",
			attempt, maxDeleteAttempts, payload.BucketName, payload.ObjectPath, lastErr)

		if attempt < maxDeleteAttempts {
			select {
			case <-ctx.Done():
				_ = msg.Nack(false, true)
				return
			case <-time.After(c.backoff(attempt)):
			}
		}
	}

	c.logger.ErrorWithContextf(ctx, lastErr, "[Object Consumer] Failed after %d attempts, requeueing %s/%s",
		maxDeleteAttempts, payload.BucketName, payload.ObjectPath)
	_ = msg.Nack(false, true)
}
