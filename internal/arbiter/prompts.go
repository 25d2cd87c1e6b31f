package arbiter

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/tailored/internal/intent"
	"github.com/MikeSquared-Agency/tailored/internal/registry"
	"github.com/MikeSquared-Agency/tailored/internal/signals"
)

const systemPrompt = `You are the decision engine for an e-commerce personalization widget.
You never write copy or markup. You only choose one hero template, one hero image and one call-to-action
from the finite catalogs you are given, using the ids exactly as listed.
Respond with a single JSON object and nothing else: no markdown fences, no commentary.`

var templateHints = map[string]string{
	"hero_urgency":    "Scarcity and countdown",
	"hero_comparison": "Side-by-side spec grid",
	"hero_lifestyle":  "Full-bleed lifestyle imagery",
	"hero_value":      "Price-focused deals",
	"hero_guide":      "Educational and editorial",
	"hero_gift":       "Gift tiers and wrapping",
}

// buildUserPrompt lists the visitor context and every catalog entry the
// model may pick from.
func buildUserPrompt(sig signals.Signals, cls intent.Result) string {
	var b strings.Builder

	term := sig.UTM.TermString()
	if term == "" {
		term = "none"
	}

	b.WriteString("Based on the visitor signals below, choose the best hero template, hero image, and CTA.\n\n")
	b.WriteString("VISITOR SIGNALS:\n")
	fmt.Fprintf(&b, "- Detected intent: %s (%.0f%% confidence)\n", cls.PrimaryIntent, cls.Confidence*100)
	if cls.SecondaryIntent != nil {
		fmt.Fprintf(&b, "- Secondary intent: %s\n", *cls.SecondaryIntent)
	}
	fmt.Fprintf(&b, "- UTM term: %q\n", term)
	if sig.UTM.Campaign != "" {
		fmt.Fprintf(&b, "- UTM campaign: %q\n", sig.UTM.Campaign)
	}
	fmt.Fprintf(&b, "- Referrer type: %s\n", sig.Referrer.Type)
	fmt.Fprintf(&b, "- Device: %s\n", sig.Device.Type)
	fmt.Fprintf(&b, "- Time context: %s\n", sig.Device.TimeContext)

	b.WriteString("\nAVAILABLE TEMPLATES (pick exactly one id):\n")
	for _, tpl := range registry.Templates() {
		fmt.Fprintf(&b, "- %s: %s, best for %s intent\n", tpl.ID, templateHints[tpl.ID], tpl.Intent)
	}

	b.WriteString("\nAVAILABLE HERO IMAGES (pick exactly one id):\n")
	for _, a := range registry.Assets() {
		fmt.Fprintf(&b, "- %s: %s, %s (category: %s, price: %s, use_case: %s, vibe: %s)\n",
			a.ID, a.Name, a.Description, a.Category, a.PriceRange,
			strings.Join(a.UseCase, ","), strings.Join(a.Vibe, ","))
	}

	b.WriteString("\nAVAILABLE CTAs (pick exactly one, copy the text exactly):\n")
	for n, c := range registry.CTAs() {
		fmt.Fprintf(&b, "%d. %q\n", n+1, c.Label)
	}

	b.WriteString(`
RULES:
1. The template MUST align with the detected intent.
2. The hero image should match the intent vibe and visitor context (gaming products for gaming intent, budget products for budget intent).
3. The CTA should match the action implied by the intent.
4. Give a concise 1-2 sentence reasoning.

Respond ONLY with a JSON object in this exact format, no markdown fences:
`)
	example := registry.Template(cls.PrimaryIntent)
	fmt.Fprintf(&b, `{"template":%q,"hero_image":%q,"cta":%q,"reasoning":"Your reasoning here."}`,
		example.ID, example.HeroImage, example.PrimaryCTA.Label)
	return b.String()
}
