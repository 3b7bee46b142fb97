package fx

import (
	"team-balancer/internal/config"
	"team-balancer/internal/database"
	"team-balancer/internal/game"
	"team-balancer/internal/host"
	"team-balancer/internal/logger"
	"team-balancer/internal/rating"
	"team-balancer/internal/repository"
	"team-balancer/internal/server"
	"team-balancer/internal/service"

	"go.uber.org/fx"
)

func ProvideHost(bridge *host.Bridge) game.Host {
	return bridge
}

func ProvideSources(cfg *config.Config) []rating.Source {
	return rating.SourcesFromConfig(cfg)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// rating layer
	fx.Provide(rating.NewClient),
	fx.Provide(rating.NewCache),
	fx.Provide(ProvideSources),
	fx.Provide(rating.NewOrchestrator),
	// host bridge
	fx.Provide(host.NewBridge),
	fx.Provide(ProvideHost),
	// repos
	fx.Provide(repository.NewFlagRepository),
	fx.Provide(repository.NewSwitchRepository),
	fx.Provide(repository.NewAliasRepository),
	// svc
	fx.Provide(service.NewBalanceService),
	// server
	fx.Provide(server.NewServer),
)
