package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/bingoroom/internal/api"
	"github.com/mcoot/bingoroom/internal/config"
	"github.com/mcoot/bingoroom/internal/factory"
)

func main() {
	config.Execute(serve)
}

func serve(cmd *cobra.Command, cfg *config.Config) error {
	// Set up logging
	logger := cfg.Logger(os.Stdout)
	slog.SetDefault(logger)

	// Create application factory
	app, err := factory.New(cfg.Factory(logger))
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close application", slog.String("error", err.Error()))
		}
	}()

	logger.Info("application ready",
		slog.String("storage", cfg.Storage),
		slog.String("result_policy", cfg.ResultPolicy))

	// Create API router
	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		RegistryService: app.RegistryService,
		RosterService:   app.RosterService,
		HostService:     app.HostService,
		ResultsService:  app.ResultsService,
		HubManager:      app.HubManager,
		PublicURL:       cfg.PublicURL,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)

	// Create server
	server := api.NewServer(mux, cfg.Server(), logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}
