package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/tailored/internal/intent"
)

func TestTemplate_TotalOverIntents(t *testing.T) {
	seen := map[string]bool{}
	for _, i := range intent.All() {
		t.Run(string(i), func(t *testing.T) {
			tpl := Template(i)
			assert.Equal(t, i, tpl.Intent)
			assert.NotEmpty(t, tpl.ID)
			assert.NotEmpty(t, tpl.Name)
			assert.NotEmpty(t, tpl.Layout)
			assert.NotEmpty(t, tpl.Headline)
			assert.NotEmpty(t, tpl.Subheadline)
			assert.NotEmpty(t, tpl.Badge.Text)
			assert.NotEmpty(t, tpl.Badge.Color)
			assert.NotEmpty(t, tpl.SocialProof)
			assert.NotEmpty(t, tpl.PrimaryCTA.Label)
			assert.NotEmpty(t, tpl.PrimaryCTA.Link)
			assert.NotEmpty(t, tpl.SecondaryCTA.Label)
			assert.ElementsMatch(t, []string{SectionDeals, SectionReviews, SectionGuides}, tpl.SectionOrder)

			_, ok := LookupAsset(tpl.HeroImage)
			assert.True(t, ok, "hero image %q not in catalog", tpl.HeroImage)
			_, ok = LookupCTA(tpl.PrimaryCTA.Label)
			assert.True(t, ok)

			assert.False(t, seen[tpl.ID], "template id %s used twice", tpl.ID)
			seen[tpl.ID] = true
		})
	}
	assert.Len(t, TemplateIDs(), len(intent.All()))
}

func TestTemplate_KnownMappings(t *testing.T) {
	tests := []struct {
		intent  intent.Intent
		id      string
		image   string
		cta     string
		section string
	}{
		{intent.BuyNow, "hero_urgency", "macbook-pro", "Buy Now — Free Next-Day Delivery", SectionDeals},
		{intent.Compare, "hero_comparison", "asus-rog", "Compare All Models", SectionGuides},
		{intent.UseCase, "hero_lifestyle", "hero-lifestyle", "Shop Gaming Setups", SectionDeals},
		{intent.Budget, "hero_value", "nintendo-switch", "Shop Best Value", SectionDeals},
		{intent.Research, "hero_guide", "ipad-pro", "Take the Quiz — Find Your Match", SectionGuides},
		{intent.Gifting, "hero_gift", "sony-headphones", "Shop Gift Guide", SectionDeals},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			tpl := Template(tt.intent)
			assert.Equal(t, tt.id, tpl.ID)
			assert.Equal(t, tt.image, DefaultHeroImage(tt.intent))
			assert.Equal(t, tt.cta, DefaultCTA(tt.intent).Label)
			assert.Equal(t, tt.section, tpl.SectionOrder[0])
		})
	}
	assert.NotEmpty(t, Template(intent.BuyNow).UrgencyBar)
	assert.Empty(t, Template(intent.Research).UrgencyBar)
}

func TestResolveTemplate(t *testing.T) {
	tpl, ok := ResolveTemplate("hero_gift")
	assert.True(t, ok)
	assert.Equal(t, intent.Gifting, tpl.Intent)

	tpl, ok = ResolveTemplate("hero_unknown")
	assert.False(t, ok)
	assert.Equal(t, DefaultTemplateID, tpl.ID)
	assert.Equal(t, intent.Research, tpl.Intent)

	assert.Equal(t, DefaultTemplateID, Template("GENERAL").ID)
}

func TestCatalogs(t *testing.T) {
	ids := AssetIDs()
	assert.Len(t, ids, 23)
	assert.Len(t, CTAs(), 12)

	uniq := map[string]bool{}
	for _, id := range ids {
		assert.False(t, uniq[id], "duplicate asset id %s", id)
		uniq[id] = true
	}

	a, ok := LookupAsset("hero-lifestyle")
	require.True(t, ok)
	assert.Equal(t, "/assets/hero-lifestyle.jpg", a.Src)
	a, ok = LookupAsset("razer-mouse")
	require.True(t, ok)
	assert.Equal(t, PriceBudget, a.PriceRange)
	assert.Equal(t, []string{"gaming"}, a.UseCase)

	_, ok = LookupAsset("img_invented")
	assert.False(t, ok)
	_, ok = LookupCTA("Click Here")
	assert.False(t, ok)
}

func TestCatalogsReturnCopies(t *testing.T) {
	tpl := Template(intent.BuyNow)
	tpl.SectionOrder[0] = "mutated"
	assert.Equal(t, SectionDeals, Template(intent.BuyNow).SectionOrder[0])

	all := Assets()
	all[0].UseCase[0] = "mutated"
	a, _ := LookupAsset(all[0].ID)
	assert.NotEqual(t, "mutated", a.UseCase[0])
}
