package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tnqbao/gau-media-gateway/config"
	"github.com/tnqbao/gau-media-gateway/consumer/worker"
	infraPkg "github.com/tnqbao/gau-media-gateway/infra"
)

func main() {
	err := godotenv.Load("../staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	objectConsumer := worker.NewObjectConsumer(infra.RabbitMQ.Channel, infra)
	if err := objectConsumer.Start(ctx); err != nil {
		infra.Logger.ErrorWithContextf(ctx, err, "Failed to start Object consumer")
		log.Fatalf("Failed to start Object consumer: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "Shutting down consumer...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := infra.Close(shutdownCtx); err != nil {
		log.Printf("Failed to close infrastructure: %v", err)
	}

	log.Println("Consumer exited properly")
}
