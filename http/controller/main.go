package controller

import (
	"github.com/tnqbao/gau-media-gateway/config"
	"github.com/tnqbao/gau-media-gateway/infra"
	"github.com/tnqbao/gau-media-gateway/repository"
	"github.com/tnqbao/gau-media-gateway/service"
	"github.com/tnqbao/gau-media-gateway/utils"
)

type Controller struct {
	Config       *config.Config
	Infra        *infra.Infra
	Repository   *repository.Repository
	Orchestrator *service.Orchestrator
	Library      *service.Library
}

func NewController(config *config.Config, infra *infra.Infra, repo *repository.Repository) *Controller {
	if repo == nil {
		panic("Failed to initialize Repository")
	}

	limits := service.LimitsFromConfig(config.EnvConfig)
	broker := service.NewBroker(infra.Storage, infra.Redis, infra.Logger, infra.Telemetry, limits)
	orphans := service.NewQueueOrphanReporter(infra.Produce.MediaService, infra.Logger, infra.Telemetry)

	return &Controller{
		Config:     config,
		Infra:      infra,
		Repository: repo,
		Orchestrator: service.NewOrchestrator(
			repo.MediaRepo,
			infra.Storage,
			broker,
			utils.NewMimePolicyFromConfig(config.EnvConfig),
			limits,
			orphans,
			infra.Logger,
			infra.Telemetry,
		),
		Library: service.NewLibrary(repo.MediaRepo, broker, limits, infra.Logger, infra.Telemetry),
	}
}
