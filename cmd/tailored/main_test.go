package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/tailored/internal/config"
	"github.com/MikeSquared-Agency/tailored/internal/decision"
	"github.com/MikeSquared-Agency/tailored/internal/intent"
)

func clearAIEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "TAILORED_TUNING_FILE", "TAILORED_AI_PROVIDER"} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")
}

func runCLI(t *testing.T, args ...string) decision.Object {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())

	var obj decision.Object
	require.NoError(t, json.Unmarshal(out.Bytes(), &obj), out.String())
	return obj
}

func TestDecideCommand(t *testing.T) {
	clearAIEnv(t)

	obj := runCLI(t, "decide",
		"--url", "https://shop.example/?utm_term=best+monitor+2026+vs",
		"--referrer", "https://www.rtings.com/monitor",
		"--hour", "15",
	)
	assert.Equal(t, intent.Compare, obj.Classification.PrimaryIntent)
	assert.Equal(t, "hero_comparison", obj.Decision.Template)
	assert.False(t, obj.AIUsed)
	assert.Regexp(t, `^v_[0-9a-f]{6}$`, obj.VisitorID)

	obj = runCLI(t, "decide", "--intent", "budget", "--url", "", "--referrer", "", "--hour", "-1")
	assert.Equal(t, intent.Budget, obj.Classification.PrimaryIntent)
	assert.Equal(t, 1.0, obj.Classification.Confidence)
}

func TestBuildEngine_RejectsUnknownProvider(t *testing.T) {
	cfg := config.Config{
		AIEnabled:       true,
		AIProvider:      "mystery",
		AnthropicAPIKey: "sk-test",
		EventLogCap:     10,
		MaxSessions:     10,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, _, err := buildEngine(context.Background(), cfg, nil, logger)
	assert.ErrorContains(t, err, "unknown ai provider")
}

func TestBuildEngine_WithoutKeyDisablesAI(t *testing.T) {
	cfg := config.Config{AIEnabled: true, AIProvider: "anthropic", EventLogCap: 10, MaxSessions: 10}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine, tr, err := buildEngine(context.Background(), cfg, nil, logger)
	require.NoError(t, err)
	defer engine.Close(context.Background())
	assert.False(t, engine.AIEnabled())
	assert.NotNil(t, tr)
}
