package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/tailored/internal/api"
	"github.com/MikeSquared-Agency/tailored/internal/config"
	"github.com/MikeSquared-Agency/tailored/internal/hermes"
	"github.com/MikeSquared-Agency/tailored/internal/registry"
	"github.com/MikeSquared-Agency/tailored/internal/tracker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the decision HTTP service",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := setupLogging(cfg.LogLevel, os.Stdout)

	logger.Info("tailored starting", "port", cfg.Port, "engine_version", registry.EngineVersion)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// NATS/Hermes (optional: events stay in-process without it)
	var hermesClient *hermes.Client
	var pub tracker.Publisher
	if cfg.NatsURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		c, err := hermes.NewClient(connectCtx, cfg.NatsURL, cfg.NatsToken, logger)
		cancel()
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer c.Close()
		hermesClient, pub = c, c
		logger.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		logger.Warn("NATS not configured, events stay in-process")
	}

	engine, tr, err := buildEngine(ctx, cfg, pub, logger)
	if err != nil {
		return err
	}

	if hermesClient != nil {
		if err := hermesClient.Subscribe(hermes.SubjectDecisionRequest, engine.HandleDecisionRequest); err != nil {
			return fmt.Errorf("subscribe to decision requests: %w", err)
		}
		if err := hermesClient.Publish(hermes.SubjectRegistered, map[string]any{
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
			"port":           cfg.Port,
			"engine_version": registry.EngineVersion,
			"ai_enabled":     engine.AIEnabled(),
		}); err != nil {
			logger.Warn("failed to publish registration", "error", err)
		}
	}

	srv := api.NewServer(cfg.Port, cfg.APIToken, engine, tr, logger)
	if hermesClient != nil {
		srv.SetBroker(hermesClient)
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("tailored ready", "port", cfg.Port, "ai_enabled", engine.AIEnabled())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", "error", err)
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := engine.Close(shutdownCtx); err != nil {
		logger.Warn("arbitration did not drain", "error", err)
	}
	logger.Info("tailored stopped")
	return nil
}
