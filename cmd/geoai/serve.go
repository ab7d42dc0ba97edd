package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/irbid-geoai/geoai-monitor/internal/config"
	"github.com/irbid-geoai/geoai-monitor/internal/container"
	"github.com/irbid-geoai/geoai-monitor/internal/logger"
)

const shutdownTimeout = 30 * time.Second

func serveSubcommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serves the module API over HTTP",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
}

func serve(cmd *cobra.Command, _ []string) error {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	// Initialize dependency injection container
	c, err := container.NewContainer(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	// Create HTTP server with configurable timeouts
	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      c.Handler(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"address": cfg.ServerAddress(),
			"timeout": cfg.RequestTimeout,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	logger.Info("Server exited")
	return nil
}
