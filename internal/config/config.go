package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        int
	LogLevel    string
	NatsURL     string
	NatsToken   string
	APIToken    string
	TuningFile  string
	MaxSessions int
	EventLogCap int

	AIEnabled     bool
	AIProvider    string
	AIModel       string
	AIBaseURL     string
	AITimeout     time.Duration
	AICacheTTL    time.Duration
	AIMaxRetries  int
	AITemperature float64

	AnthropicAPIKey string
	OpenAIAPIKey    string
	GeminiAPIKey    string
}

func Load() Config {
	return Config{
		Port:        envInt("TAILORED_PORT", 8760),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		NatsURL:     envStr("NATS_URL", ""),
		NatsToken:   envStr("NATS_TOKEN", ""),
		APIToken:    envStr("TAILORED_API_TOKEN", ""),
		TuningFile:  envStr("TAILORED_TUNING_FILE", ""),
		MaxSessions: envInt("TAILORED_MAX_SESSIONS", 10000),
		EventLogCap: envInt("TAILORED_EVENT_LOG_SIZE", 500),

		AIEnabled:     envBool("TAILORED_AI_ENABLED", true),
		AIProvider:    strings.ToLower(envStr("TAILORED_AI_PROVIDER", "anthropic")),
		AIModel:       envStr("TAILORED_AI_MODEL", ""),
		AIBaseURL:     envStr("TAILORED_AI_BASE_URL", ""),
		AITimeout:     envDuration("TAILORED_AI_TIMEOUT", 5*time.Second),
		AICacheTTL:    envDuration("TAILORED_AI_CACHE_TTL", 5*time.Minute),
		AIMaxRetries:  envInt("TAILORED_AI_MAX_RETRIES", 1),
		AITemperature: envFloat("TAILORED_AI_TEMPERATURE", 0.3),

		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    envStr("OPENAI_API_KEY", ""),
		GeminiAPIKey:    envStr("GEMINI_API_KEY", ""),
	}
}

// AIAPIKey returns the credential of the selected provider. It is empty when
// AI is switched off, which leaves arbitration disabled.
func (c Config) AIAPIKey() string {
	if !c.AIEnabled {
		return ""
	}
	switch c.AIProvider {
	case "openai":
		return c.OpenAIAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return c.AnthropicAPIKey
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
