package arbiter

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/MikeSquared-Agency/tailored/internal/decision"
	"github.com/MikeSquared-Agency/tailored/internal/intent"
	"github.com/MikeSquared-Agency/tailored/internal/registry"
)

var (
	ErrNoJSON           = errors.New("no JSON object in response")
	ErrInvalidTemplate  = errors.New("invalid template")
	ErrInvalidHeroImage = errors.New("invalid hero_image")
)

const defaultReasoning = "AI-selected personalization."

var fence = regexp.MustCompile("```(?:json)?\\s*")

type modelChoice struct {
	Template  string `json:"template"`
	HeroImage string `json:"hero_image"`
	CTA       string `json:"cta"`
	Reasoning string `json:"reasoning"`
}

// parseResponse extracts the JSON object from raw model text and validates
// every id against the registry. A CTA outside the catalog falls back to the
// intent's default CTA; template and hero image must be exact.
func parseResponse(raw string, primary intent.Intent) (decision.Enhancement, error) {
	cleaned := fence.ReplaceAllString(raw, "")
	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start == -1 || end < start {
		return decision.Enhancement{}, ErrNoJSON
	}

	var choice modelChoice
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &choice); err != nil {
		return decision.Enhancement{}, fmt.Errorf("decode response: %w", err)
	}

	if !slices.Contains(registry.TemplateIDs(), choice.Template) {
		return decision.Enhancement{}, fmt.Errorf("%w: %q", ErrInvalidTemplate, choice.Template)
	}
	if _, ok := registry.LookupAsset(choice.HeroImage); !ok {
		return decision.Enhancement{}, fmt.Errorf("%w: %q", ErrInvalidHeroImage, choice.HeroImage)
	}

	cta, ok := registry.LookupCTA(strings.TrimSpace(choice.CTA))
	if !ok {
		cta = registry.DefaultCTA(primary)
	}
	reasoning := strings.TrimSpace(choice.Reasoning)
	if reasoning == "" {
		reasoning = defaultReasoning
	}

	return decision.Enhancement{
		Template:  choice.Template,
		HeroImage: choice.HeroImage,
		CTA:       cta,
		Reasoning: reasoning,
	}, nil
}
