package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/tailored/internal/config"
	"github.com/MikeSquared-Agency/tailored/internal/decision"
	"github.com/MikeSquared-Agency/tailored/internal/intent"
	"github.com/MikeSquared-Agency/tailored/internal/pipeline"
	"github.com/MikeSquared-Agency/tailored/internal/signals"
)

var decideFlags struct {
	url       string
	referrer  string
	userAgent string
	viewport  int
	hour      int
	intent    string
	ai        bool
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Run one decision cycle and print the decision object",
	Example: `  tailored decide --url 'https://shop.example/?utm_term=best+monitor+vs' --referrer https://www.rtings.com/
  tailored decide --intent gifting --ai`,
	RunE: runDecide,
}

func init() {
	f := decideCmd.Flags()
	f.StringVar(&decideFlags.url, "url", "", "page URL including the query string")
	f.StringVar(&decideFlags.referrer, "referrer", "", "referring URL")
	f.StringVar(&decideFlags.userAgent, "user-agent", "", "browser user agent")
	f.IntVar(&decideFlags.viewport, "viewport", 0, "viewport width in pixels (0 = unknown)")
	f.IntVar(&decideFlags.hour, "hour", -1, "wall-clock hour 0-23 (-1 = now)")
	f.StringVar(&decideFlags.intent, "intent", "", "force an intent, bypassing scoring")
	f.BoolVar(&decideFlags.ai, "ai", false, "wait for AI arbitration when a provider is configured")
}

func runDecide(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := setupLogging(cfg.LogLevel, os.Stderr)
	ctx := cmd.Context()

	engine, _, err := buildEngine(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer engine.Close(ctx)

	req := pipeline.Request{
		VisitorID: decision.VisitorID(decision.NewMapStorage()),
		Env: signals.Environment{
			URL:       decideFlags.url,
			Referrer:  decideFlags.referrer,
			UserAgent: decideFlags.userAgent,
		},
	}
	if decideFlags.viewport > 0 {
		req.Overrides.ViewportWidth = &decideFlags.viewport
	}
	if decideFlags.hour >= 0 {
		if decideFlags.hour > 23 {
			return fmt.Errorf("--hour must be between 0 and 23, got %d", decideFlags.hour)
		}
		req.Overrides.Hour = &decideFlags.hour
	}

	var cycle *pipeline.Cycle
	if decideFlags.intent != "" {
		forced, ok := intent.Parse(decideFlags.intent)
		if !ok {
			return fmt.Errorf("unknown intent %q", decideFlags.intent)
		}
		req.Force = &forced
		cycle, err = engine.Simulate(req)
	} else {
		cycle, err = engine.Run(req)
	}
	if err != nil {
		return err
	}

	obj := cycle.Rules
	if decideFlags.ai {
		if obj, err = cycle.Wait(ctx); err != nil {
			return fmt.Errorf("wait for arbitration: %w", err)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(obj)
}
