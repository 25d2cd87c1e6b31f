package llm

import (
	"context"

	"github.com/MikeSquared-Agency/tailored/internal/anthropic"
)

type Anthropic struct {
	client *anthropic.Client
}

func NewAnthropic(opts Options) *Anthropic {
	return &Anthropic{
		client: anthropic.NewClient(opts.APIKey, opts.Model,
			anthropic.WithBaseURL(opts.BaseURL),
			anthropic.WithTemperature(opts.Temperature),
		),
	}
}

func (a *Anthropic) Provider() string { return ProviderAnthropic }

// Complete ignores req.JSON: the Messages API has no JSON mode, the prompt
// asks for JSON instead.
func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	return a.client.Complete(ctx, req.System, []anthropic.Message{{Role: "user", Content: req.User}}, req.MaxTokens)
}
