package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iho/vslaledger/internal/infrastructure/config"
	"github.com/iho/vslaledger/internal/infrastructure/logger"
)

func main() {
	// Bootstrap logger until the configured one exists
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to initialize")
	}
	defer a.close()

	if err := a.run(ctx); err != nil {
		appLogger.Error().Err(err).Msg("server stopped with error")
		a.close()
		os.Exit(1)
	}

	appLogger.Info().Msg("server stopped")
}
