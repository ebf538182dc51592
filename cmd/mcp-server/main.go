package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/scribe-safety-gate/internal/config"
	"github.com/scribe-safety-gate/internal/mcp"
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

	mcpServer := mcp.NewServer(gatekeeper, service.Version, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down MCP server...")
		cancel()
	}()

	if err := mcpServer.Run(ctx); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}

	logger.Info("MCP server stopped")
}
