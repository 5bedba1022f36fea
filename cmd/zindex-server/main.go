package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spatialkv/zindex/internal/core/config"
	"github.com/spatialkv/zindex/internal/core/server"
	"github.com/spatialkv/zindex/internal/logger"
	"github.com/spatialkv/zindex/pkg/index"
	"github.com/spatialkv/zindex/pkg/planner"
)

var Version = "dev"

func main() {
	cfg := config.FromEnv()
	log := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Component: "zindex-server",
	}, os.Stdout)
	log.Info().Str("addr", cfg.Addr).Str("version", Version).Msg("starting")

	schema, err := cfg.Schema()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid schema config")
	}
	set, err := index.NewSet(schema)
	if err != nil {
		log.Fatal().Err(err).Msg("building index set")
	}
	p := planner.New(set,
		planner.WithLogger(log),
		planner.WithCacheSize(cfg.PlanCacheLen),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, log, p); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}
