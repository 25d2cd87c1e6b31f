package registry

import "slices"

// PriceRange buckets an asset's retail price.
type PriceRange string

const (
	PriceBudget  PriceRange = "budget"
	PriceMid     PriceRange = "mid"
	PricePremium PriceRange = "premium"
)

// Asset is a hero image the presentation layer knows how to render.
type Asset struct {
	ID          string     `json:"id"`
	Src         string     `json:"src"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	PriceRange  PriceRange `json:"price_range"`
	UseCase     []string   `json:"use_case"`
	Vibe        []string   `json:"vibe"`
	Description string     `json:"description"`
}

// CTA is a call-to-action button. Label is the identity the arbiter selects by.
type CTA struct {
	Label string `json:"label"`
	Link  string `json:"link"`
	Style string `json:"style"`
}

func asset(id, name, category string, price PriceRange, useCase, vibe []string, desc string) Asset {
	return Asset{
		ID:          id,
		Src:         "/assets/products/" + id + ".jpg",
		Name:        name,
		Category:    category,
		PriceRange:  price,
		UseCase:     useCase,
		Vibe:        vibe,
		Description: desc,
	}
}

var assets = []Asset{
	asset("macbook-pro", "MacBook Pro M4", "laptop", PricePremium, []string{"work", "creative"}, []string{"professional", "premium", "urgent"}, "Premium professional laptop for creative work"),
	asset("asus-rog", "ASUS ROG Strix G16", "laptop", PricePremium, []string{"gaming", "streaming"}, []string{"playful", "premium"}, "High-performance gaming laptop"),
	asset("dell-xps", "Dell XPS 15", "laptop", PricePremium, []string{"work", "creative"}, []string{"professional", "premium"}, "Sleek professional ultrabook"),
	asset("lg-monitor", `LG UltraGear 4K 27"`, "monitor", PriceMid, []string{"gaming", "creative"}, []string{"playful", "professional"}, "4K gaming monitor with high refresh rate"),
	asset("sony-headphones", "Sony WH-1000XM6", "audio", PriceMid, []string{"work", "casual"}, []string{"professional", "value"}, "Premium noise-cancelling headphones"),
	asset("keychron-keyboard", "Keychron Q1 Pro", "accessories", PriceMid, []string{"work", "gaming"}, []string{"professional", "playful"}, "Mechanical keyboard for enthusiasts"),
	asset("ps5-pro", "PS5 Pro Console", "gaming", PricePremium, []string{"gaming", "casual"}, []string{"playful", "premium"}, "Next-gen gaming console"),
	asset("iphone-16", "iPhone 16 Pro", "phone", PricePremium, []string{"casual", "creative"}, []string{"premium", "professional"}, "Flagship smartphone with pro cameras"),
	asset("philips-hue", "Philips Hue Starter Kit", "smart_home", PriceBudget, []string{"casual"}, []string{"value", "playful"}, "Smart lighting starter kit"),
	asset("samsung-galaxy", "Samsung Galaxy S24 Ultra", "phone", PricePremium, []string{"work", "creative"}, []string{"premium", "professional"}, "Premium Android flagship with S Pen"),
	asset("airpods-pro", "AirPods Pro 3", "audio", PriceMid, []string{"casual", "work"}, []string{"professional", "value"}, "Wireless earbuds with ANC"),
	asset("logitech-mouse", "Logitech MX Master 3S", "accessories", PriceBudget, []string{"work"}, []string{"professional", "value"}, "Ergonomic productivity mouse"),
	asset("apple-watch", "Apple Watch Ultra 2", "wearable", PricePremium, []string{"casual", "work"}, []string{"premium", "professional"}, "Premium smartwatch for adventurers"),
	asset("nintendo-switch", "Nintendo Switch OLED", "gaming", PriceMid, []string{"gaming", "casual"}, []string{"playful", "value"}, "Portable gaming console"),
	asset("samsung-tv", `Samsung 65" OLED TV`, "display", PricePremium, []string{"casual", "gaming"}, []string{"premium", "playful"}, "Large OLED TV for immersive viewing"),
	asset("bose-speaker", "Bose SoundLink Flex", "audio", PriceBudget, []string{"casual"}, []string{"value", "playful"}, "Portable Bluetooth speaker"),
	asset("gopro-hero", "GoPro Hero 12 Black", "camera", PriceMid, []string{"creative", "casual"}, []string{"playful", "professional"}, "Action camera for adventures"),
	asset("dji-drone", "DJI Mini 4 Pro", "camera", PricePremium, []string{"creative"}, []string{"premium", "professional"}, "Compact drone for aerial photography"),
	asset("razer-mouse", "Razer DeathAdder V3 Pro", "accessories", PriceBudget, []string{"gaming"}, []string{"playful", "value"}, "Lightweight esports gaming mouse"),
	asset("ipad-pro", `iPad Pro 13" M4`, "tablet", PricePremium, []string{"creative", "work"}, []string{"premium", "professional"}, "Pro tablet for artists and professionals"),
	asset("ring-doorbell", "Ring Video Doorbell Pro 2", "smart_home", PriceMid, []string{"casual"}, []string{"value", "professional"}, "Smart video doorbell"),
	asset("xbox-series-x", "Xbox Series X", "gaming", PriceMid, []string{"gaming", "casual"}, []string{"playful", "value"}, "Powerful gaming console"),
	{
		ID:          "hero-lifestyle",
		Src:         "/assets/hero-lifestyle.jpg",
		Name:        "Gaming Setup",
		Category:    "lifestyle",
		PriceRange:  PricePremium,
		UseCase:     []string{"gaming"},
		Vibe:        []string{"playful", "premium"},
		Description: "Complete gaming battlestation with RGB lighting",
	},
}

var ctas = []CTA{
	{Label: "Buy Now — Free Next-Day Delivery", Link: "/checkout", Style: "primary"},
	{Label: "Add to Cart — Ships Today", Link: "/cart", Style: "primary"},
	{Label: "Shop Best Value", Link: "/deals/best-value", Style: "primary"},
	{Label: "See All Deals Under $500", Link: "/deals/under-500", Style: "secondary"},
	{Label: "Compare All Models", Link: "/compare", Style: "primary"},
	{Label: "Read Full Reviews", Link: "/reviews", Style: "secondary"},
	{Label: "Shop Gaming Setups", Link: "/collections/gaming", Style: "primary"},
	{Label: "View Buying Guide", Link: "/guides/buying", Style: "secondary"},
	{Label: "Take the Quiz — Find Your Match", Link: "/quiz", Style: "primary"},
	{Label: "Shop Gift Guide", Link: "/gifts", Style: "primary"},
	{Label: "Add Gift Wrapping — Free", Link: "/gifts/wrapping", Style: "secondary"},
	{Label: "Pre-Order Now", Link: "/pre-order", Style: "primary"},
}

// Assets returns the hero image catalog.
func Assets() []Asset {
	out := make([]Asset, len(assets))
	for n, a := range assets {
		out[n] = a.clone()
	}
	return out
}

// AssetIDs returns every asset id in catalog order.
func AssetIDs() []string {
	ids := make([]string, len(assets))
	for n, a := range assets {
		ids[n] = a.ID
	}
	return ids
}

// LookupAsset returns the asset with the given id.
func LookupAsset(id string) (Asset, bool) {
	for _, a := range assets {
		if a.ID == id {
			return a.clone(), true
		}
	}
	return Asset{}, false
}

// CTAs returns the call-to-action catalog.
func CTAs() []CTA {
	return slices.Clone(ctas)
}

// LookupCTA finds a catalog CTA by its exact label.
func LookupCTA(label string) (CTA, bool) {
	for _, c := range ctas {
		if c.Label == label {
			return c, true
		}
	}
	return CTA{}, false
}

func (a Asset) clone() Asset {
	a.UseCase = slices.Clone(a.UseCase)
	a.Vibe = slices.Clone(a.Vibe)
	return a
}

func mustCTA(label string) CTA {
	c, ok := LookupCTA(label)
	if !ok {
		panic("registry: unknown cta " + label)
	}
	return c
}
