package infra

import (
	"context"
	"errors"
	"time"

	"github.com/tnqbao/gau-media-gateway/config"
	"github.com/tnqbao/gau-media-gateway/entity"
	"github.com/tnqbao/gau-media-gateway/infra/produce"
)

type Infra struct {
	Redis                *RedisClient
	Postgres             *PostgresClient
	Logger               *LoggerClient
	Telemetry            *TelemetryClient
	RabbitMQ             *RabbitMQClient
	AuthorizationService *AuthorizationService
	Produce              *produce.Produce
	Storage              ObjectStore
}

// InitInfra connects every backing service. Handles are returned to the
// caller and passed down explicitly.
func InitInfra(cfg *config.Config) *Infra {
	logger := InitLoggerClient(cfg.EnvConfig)
	if logger == nil {
		panic("Failed to initialize Logger service")
	}

	telemetry := InitTelemetryClient(cfg.EnvConfig)
	if telemetry == nil {
		panic("Failed to initialize Telemetry service")
	}

	redis := InitRedisClient(cfg.EnvConfig)
	if redis == nil {
		panic("Failed to initialize Redis service")
	}

	postgres := InitPostgresClient(cfg.EnvConfig)
	if postgres == nil {
		panic("Failed to initialize Postgres service")
	}

	rabbitMQ := InitRabbitMQClient(cfg.EnvConfig)
	if rabbitMQ == nil {
		panic("Failed to initialize RabbitMQ service")
	}

	authorizationService := InitAuthorizationService(cfg.EnvConfig)
	if authorizationService == nil {
		panic("Failed to initialize Authorization service")
	}

	produceService := produce.InitProduce(rabbitMQ.Channel)
	if produceService == nil {
		panic("Failed to initialize Produce service")
	}

	storage := InitObjectStore(cfg.EnvConfig)
	if storage == nil {
		panic("Failed to initialize object storage")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, bucket := range entity.Buckets {
		if err := storage.EnsureBucket(ctx, string(bucket)); err != nil {
			panic("Failed to ensure bucket " + string(bucket) + ": " + err.Error())
		}
	}

	return &Infra{
		Redis:                redis,
		Postgres:             postgres,
		Logger:               logger,
		Telemetry:            telemetry,
		RabbitMQ:             rabbitMQ,
		AuthorizationService: authorizationService,
		Produce:              produceService,
		Storage:              storage,
	}
}

func (i *Infra) Close(ctx context.Context) error {
	return errors.Join(
		i.RabbitMQ.Close(),
		i.Redis.Client.Close(),
		i.Postgres.Close(),
		i.Telemetry.Shutdown(ctx),
		i.Logger.Shutdown(ctx),
	)
}
