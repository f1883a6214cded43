package main

import (
	"context"
	"log/slog"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"campus-market/internal/config"
	"campus-market/internal/server"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger := server.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.UsesDefaultSecret() {
		slog.Warn("JWT_SECRET is not set, signing tokens with the built-in default")
	}

	serverInstance, port, err := server.StartServer(cfg)
	if err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}

	slog.Info("Server started successfully", "port", port, "storage", cfg.StorageDriver)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return serverInstance.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	slog.Info("Server stopped", "exit_code", exitCode)
	os.Exit(exitCode)
}
