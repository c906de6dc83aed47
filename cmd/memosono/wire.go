//go:build wireinject

package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/memosono/internal/config"
	"github.com/cory-johannsen/memosono/internal/simulation"
)

func initializeSimulation(cfg config.Config, logger *zap.Logger) (*simulation.Simulation, func(), error) {
	wire.Build(simulation.ProviderSet)
	return nil, nil, nil
}
