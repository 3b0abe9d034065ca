package produce

import amqp "github.com/rabbitmq/amqp091-go"

type Produce struct {
	MediaService *MediaProduceService
}

func InitProduce(channel *amqp.Channel) *Produce {
	mediaService := InitMediaProduceService(channel)
	if mediaService == nil {
		panic("Failed to initialize Media produce service")
	}

	return &Produce{
		MediaService: mediaService,
	}
}
