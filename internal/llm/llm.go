// Package llm puts the hosted model providers behind one Completer so the
// arbiter does not care which vendor answers.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// Request is one single-turn completion.
type Request struct {
	System    string
	User      string
	MaxTokens int
	// JSON asks the provider for a JSON-only response where it supports one.
	JSON bool
}

// Completer returns the text of a model completion.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Provider() string
}

type Options struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxRetries  int
}

// New builds the Completer for opts.Provider. A missing API key returns a nil
// Completer and no error: arbitration is simply off.
func New(ctx context.Context, opts Options) (Completer, error) {
	if opts.APIKey == "" {
		return nil, nil
	}
	switch strings.ToLower(opts.Provider) {
	case ProviderAnthropic, "":
		return NewAnthropic(opts), nil
	case ProviderOpenAI:
		return NewOpenAI(opts), nil
	case ProviderGemini:
		c, err := NewGemini(ctx, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", opts.Provider)
	}
}
