package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/tailored/internal/arbiter"
	"github.com/MikeSquared-Agency/tailored/internal/config"
	"github.com/MikeSquared-Agency/tailored/internal/decision"
	"github.com/MikeSquared-Agency/tailored/internal/intent"
	"github.com/MikeSquared-Agency/tailored/internal/llm"
	"github.com/MikeSquared-Agency/tailored/internal/pipeline"
	"github.com/MikeSquared-Agency/tailored/internal/tracker"
)

var rootCmd = &cobra.Command{
	Use:   "tailored",
	Short: "Intent-driven hero personalization",
	Long: `tailored infers a visitor's shopping intent from UTM terms, referrer,
device and time of day, then picks a hero template, image and CTA from a
fixed inventory. A hosted model can optionally re-pick within that inventory.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			// .env is optional; the environment is authoritative
			slog.Debug("no .env file loaded", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, decideCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// buildEngine wires the classifier, the optional arbiter and the tracker.
// pub may be nil.
func buildEngine(ctx context.Context, cfg config.Config, pub tracker.Publisher, logger *slog.Logger) (*pipeline.Engine, *tracker.Tracker, error) {
	tuning, err := intent.LoadTuning(cfg.TuningFile)
	if err != nil {
		return nil, nil, err
	}

	completer, err := llm.New(ctx, llm.Options{
		Provider:    cfg.AIProvider,
		APIKey:      cfg.AIAPIKey(),
		Model:       cfg.AIModel,
		BaseURL:     cfg.AIBaseURL,
		Temperature: cfg.AITemperature,
		MaxRetries:  cfg.AIMaxRetries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("ai provider: %w", err)
	}

	var arb *arbiter.Arbiter
	if completer != nil {
		arb = arbiter.New(completer, arbiter.Options{
			Timeout:  cfg.AITimeout,
			CacheTTL: cfg.AICacheTTL,
		}, logger)
		logger.Info("ai arbitration enabled", "provider", completer.Provider(), "timeout", cfg.AITimeout)
	} else {
		logger.Info("ai arbitration disabled, serving rules decisions only")
	}

	tr := tracker.New(pub, logger, tracker.WithCapacity(cfg.EventLogCap))
	engine := pipeline.New(intent.New(tuning), decision.NewBuilder(), arb, tr, pub, logger)
	engine.SetMaxSessions(cfg.MaxSessions)
	return engine, tr, nil
}
