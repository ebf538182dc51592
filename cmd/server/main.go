package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/scribe-safety-gate/internal/api"
	"github.com/scribe-safety-gate/internal/config"
	"github.com/scribe-safety-gate/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gatekeeper, cleanup, err := service.Bootstrap(ctx, cfg, configManager.IsProduction(), logger)
	if err != nil {
		log.Fatalf("Failed to initialize gate: %v", err)
	}
	defer cleanup()

	logger.WithField("addr", cfg.Server.Host).
		WithField("port", cfg.Server.Port).
		Info("Starting safety gate API server")

	server := api.NewServer(gatekeeper, cfg.Server, configManager.IsProduction())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	logger.Info("Server stopped")
}
