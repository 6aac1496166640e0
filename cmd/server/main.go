package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/smartsim-dev/smartsim/internal/app"
	"github.com/smartsim-dev/smartsim/internal/config"
	"github.com/smartsim-dev/smartsim/internal/logger"
	"github.com/smartsim-dev/smartsim/internal/server"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session runtime")
	}
	defer rt.Close()

	// Create server
	srv, err := server.New(rt, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().Str("version", version).Msg("Starting SmartSim web front end...")

	// Start HTTP server (this blocks until shutdown)
	if err := srv.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		rt.Close()
		os.Exit(1)
	}
}
