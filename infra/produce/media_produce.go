package produce

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	MediaExchange = "media.exchange"

	// ObjectDeleteQueue carries objects that must be removed from storage out of band
	ObjectDeleteQueue      = "media.object.delete"
	ObjectDeleteRoutingKey = "media.object.delete"
)

const (
	DeleteReasonOrphan = "orphan"
)

// DeleteObjectMessage asks the consumer to remove a single object from storage
type DeleteObjectMessage struct {
	BucketName string `json:"bucket_name"`
	ObjectPath string `json:"object_path"`
	UserID     string `json:"user_id"`
	Reason     string `json:"reason"`
	Timestamp  int64  `json:"timestamp"`
}

type MediaProduceService struct {
	channel *amqp.Channel
}

func InitMediaProduceService(channel *amqp.Channel) *MediaProduceService {
	service := &MediaProduceService{
		channel: channel,
	}

	err := channel.ExchangeDeclare(
		MediaExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Media exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		ObjectDeleteQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare ObjectDelete queue: " + err.Error())
	}

	err = channel.QueueBind(
		ObjectDeleteQueue,
		ObjectDeleteRoutingKey,
		MediaExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind ObjectDelete queue: " + err.Error())
	}

	return service
}

func (s *MediaProduceService) PublishDeleteObject(ctx context.Context, msg DeleteObjectMessage) error {
	msg.Timestamp = time.Now().Unix()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(
		ctx,
		MediaExchange,
		ObjectDeleteRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}
