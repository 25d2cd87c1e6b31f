// Package registry is the static inventory the decision builder and arbiter
// pick from: one template per intent plus the asset and CTA catalogs.
package registry

import (
	"slices"

	"github.com/MikeSquared-Agency/tailored/internal/intent"
)

// EngineVersion is stamped on every decision object.
const EngineVersion = "1.0.0"

// Section names the presentation layer can reorder.
const (
	SectionDeals   = "deals"
	SectionReviews = "reviews"
	SectionGuides  = "guides"
)

type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// TemplateConfig holds every rendering slot for one intent.
type TemplateConfig struct {
	ID           string        `json:"id"`
	Intent       intent.Intent `json:"intent"`
	Name         string        `json:"name"`
	Layout       string        `json:"layout"`
	Description  string        `json:"description"`
	HeroImage    string        `json:"hero_image"`
	Badge        Badge         `json:"badge"`
	Headline     string        `json:"headline"`
	Subheadline  string        `json:"subheadline"`
	PrimaryCTA   CTA           `json:"primary_cta"`
	SecondaryCTA CTA           `json:"secondary_cta"`
	SocialProof  string        `json:"social_proof"`
	SectionOrder []string      `json:"section_order"`
	UrgencyBar   string        `json:"urgency_bar,omitempty"`
}

var templates = []TemplateConfig{
	{
		ID:           "hero_urgency",
		Intent:       intent.BuyNow,
		Name:         "Urgent Buy Now",
		Layout:       "product_right_cta_left",
		Description:  "Availability, urgency and trust signals for high purchase intent.",
		HeroImage:    "macbook-pro",
		Badge:        Badge{Text: "Limited Stock", Color: "#ef4444"},
		Headline:     "Don't Miss Out — Ships Today",
		Subheadline:  "Grab this deal before stock runs out.",
		PrimaryCTA:   mustCTA("Buy Now — Free Next-Day Delivery"),
		SecondaryCTA: mustCTA("Add to Cart — Ships Today"),
		SocialProof:  "47 people bought this in the last hour",
		SectionOrder: []string{SectionDeals, SectionReviews, SectionGuides},
		UrgencyBar:   "Order in the next 2 hours for next-day delivery",
	},
	{
		ID:           "hero_comparison",
		Intent:       intent.Compare,
		Name:         "Compare & Explore",
		Layout:       "split_products",
		Description:  "Multiple options side-by-side for comparison shoppers.",
		HeroImage:    "asus-rog",
		Badge:        Badge{Text: "Top Picks", Color: "#3b82f6"},
		Headline:     "Find Your Perfect Match",
		Subheadline:  "See how the top products compare side-by-side.",
		PrimaryCTA:   mustCTA("Compare All Models"),
		SecondaryCTA: mustCTA("Read Full Reviews"),
		SocialProof:  "Rated #1 by 3 major review sites",
		SectionOrder: []string{SectionGuides, SectionReviews, SectionDeals},
	},
	{
		ID:           "hero_lifestyle",
		Intent:       intent.UseCase,
		Name:         "Lifestyle Focus",
		Layout:       "fullwidth_overlay",
		Description:  "Use-case imagery for visitors shopping for a specific need.",
		HeroImage:    "hero-lifestyle",
		Badge:        Badge{Text: "Curated Collection", Color: "#a855f7"},
		Headline:     "Built for Your Lifestyle",
		Subheadline:  "Setups designed for peak performance.",
		PrimaryCTA:   mustCTA("Shop Gaming Setups"),
		SecondaryCTA: mustCTA("View Buying Guide"),
		SocialProof:  "Recommended by 8,000+ gamers",
		SectionOrder: []string{SectionDeals, SectionGuides, SectionReviews},
	},
	{
		ID:           "hero_value",
		Intent:       intent.Budget,
		Name:         "Best Value",
		Layout:       "price_forward",
		Description:  "Price-led hero for deal seekers.",
		HeroImage:    "nintendo-switch",
		Badge:        Badge{Text: "Best Value", Color: "#22c55e"},
		Headline:     "Premium Tech. Honest Prices.",
		Subheadline:  "Save an average of $120 vs. retail.",
		PrimaryCTA:   mustCTA("Shop Best Value"),
		SecondaryCTA: mustCTA("See All Deals Under $500"),
		SocialProof:  "Save an average of $120 vs. retail",
		SectionOrder: []string{SectionDeals, SectionReviews, SectionGuides},
	},
	{
		ID:           "hero_guide",
		Intent:       intent.Research,
		Name:         "Guided Browse",
		Layout:       "editorial",
		Description:  "Purchase-neutral browse template with guides and expert picks.",
		HeroImage:    "ipad-pro",
		Badge:        Badge{Text: "Expert Resources", Color: "#06b6d4"},
		Headline:     "Your Journey Starts Here",
		Subheadline:  "Explore guides, comparisons, and expert picks.",
		PrimaryCTA:   mustCTA("Take the Quiz — Find Your Match"),
		SecondaryCTA: mustCTA("View Buying Guide"),
		SocialProof:  "Read by 25,000 shoppers this month",
		SectionOrder: []string{SectionGuides, SectionDeals, SectionReviews},
	},
	{
		ID:           "hero_gift",
		Intent:       intent.Gifting,
		Name:         "Gift Guide",
		Layout:       "bundle_grid",
		Description:  "Gift bundles and wrapping for seasonal and occasion shoppers.",
		HeroImage:    "sony-headphones",
		Badge:        Badge{Text: "Gift Guide", Color: "#f59e0b"},
		Headline:     "Give the Gift of Great Tech",
		Subheadline:  "Curated bundles they'll actually love.",
		PrimaryCTA:   mustCTA("Shop Gift Guide"),
		SecondaryCTA: mustCTA("Add Gift Wrapping — Free"),
		SocialProof:  "Top-rated gift — 4.8★ from 2,100 reviews",
		SectionOrder: []string{SectionDeals, SectionGuides, SectionReviews},
	},
}

// DefaultTemplateID is rendered when a template id cannot be resolved.
const DefaultTemplateID = "hero_guide"

// Template returns the template for i. Unknown intents get the default template.
func Template(i intent.Intent) TemplateConfig {
	for _, t := range templates {
		if t.Intent == i {
			return t.clone()
		}
	}
	t, _ := ResolveTemplate(DefaultTemplateID)
	return t
}

// Templates returns every template in intent declaration order.
func Templates() []TemplateConfig {
	out := make([]TemplateConfig, len(templates))
	for n, t := range templates {
		out[n] = t.clone()
	}
	return out
}

// TemplateIDs returns the finite set of template ids.
func TemplateIDs() []string {
	ids := make([]string, len(templates))
	for n, t := range templates {
		ids[n] = t.ID
	}
	return ids
}

// ResolveTemplate looks up a template by id. When the id is unknown it
// returns the default browse template and false.
func ResolveTemplate(id string) (TemplateConfig, bool) {
	var fallback TemplateConfig
	for _, t := range templates {
		if t.ID == id {
			return t.clone(), true
		}
		if t.ID == DefaultTemplateID {
			fallback = t
		}
	}
	return fallback.clone(), false
}

// DefaultCTA returns the primary CTA of the intent's template.
func DefaultCTA(i intent.Intent) CTA {
	return Template(i).PrimaryCTA
}

// DefaultHeroImage returns the asset id the intent's template shows without arbitration.
func DefaultHeroImage(i intent.Intent) string {
	return Template(i).HeroImage
}

func (t TemplateConfig) clone() TemplateConfig {
	t.SectionOrder = slices.Clone(t.SectionOrder)
	return t
}
