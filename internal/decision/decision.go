// Package decision assembles decision objects from a classification and the
// template registry, and holds the per-session current decision.
package decision

import (
	"slices"
	"time"

	"github.com/MikeSquared-Agency/tailored/internal/intent"
	"github.com/MikeSquared-Agency/tailored/internal/registry"
	"github.com/MikeSquared-Agency/tailored/internal/signals"
)

// Slots are the rendering slots copied from the winning intent's template.
// Arbitration may replace Template, HeroImage and CTA; the rest always come
// from the registry.
type Slots struct {
	Template     string         `json:"template"`
	Layout       string         `json:"layout"`
	HeroImage    string         `json:"hero_image"`
	Badge        registry.Badge `json:"badge"`
	Headline     string         `json:"headline"`
	Subheadline  string         `json:"subheadline"`
	CTA          registry.CTA   `json:"cta"`
	SecondaryCTA registry.CTA   `json:"secondary_cta"`
	SocialProof  string         `json:"social_proof"`
	SectionOrder []string       `json:"section_order"`
	UrgencyBar   string         `json:"urgency_bar,omitempty"`
}

// Object is the complete record of one personalization cycle. It is never
// mutated after construction; a newer cycle produces a new Object.
type Object struct {
	VisitorID      string          `json:"visitor_id"`
	Timestamp      time.Time       `json:"timestamp"`
	EngineVersion  string          `json:"engine_version"`
	Signals        signals.Signals `json:"signals"`
	Classification intent.Result   `json:"classification"`
	Decision       Slots           `json:"decision"`
	FallbackUsed   bool            `json:"fallback_used"`
	AIUsed         bool            `json:"ai_used"`
}

// Clone returns a deep copy so callers cannot alias a stored object.
func (o Object) Clone() Object {
	out := o
	out.Signals.UTM.Term = slices.Clone(o.Signals.UTM.Term)
	out.Classification = o.Classification.Clone()
	out.Decision.SectionOrder = slices.Clone(o.Decision.SectionOrder)
	return out
}

// Enhancement is a validated arbitration result.
type Enhancement struct {
	Template  string       `json:"template"`
	HeroImage string       `json:"hero_image"`
	CTA       registry.CTA `json:"cta"`
	Reasoning string       `json:"reasoning"`
}

// Builder turns classifications into decision objects.
type Builder struct {
	now func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// NewBuilderWithClock is used by tests that pin timestamps.
func NewBuilderWithClock(now func() time.Time) *Builder {
	return &Builder{now: now}
}

// Build copies every slot of the template for cls.PrimaryIntent. The
// registry is total, so Build cannot fail.
func (b *Builder) Build(cls intent.Result, sig signals.Signals, visitorID string) Object {
	tpl := registry.Template(cls.PrimaryIntent)
	return Object{
		VisitorID:      visitorID,
		Timestamp:      b.now().UTC(),
		EngineVersion:  registry.EngineVersion,
		Signals:        sig,
		Classification: cls,
		Decision: Slots{
			Template:     tpl.ID,
			Layout:       tpl.Layout,
			HeroImage:    tpl.HeroImage,
			Badge:        tpl.Badge,
			Headline:     tpl.Headline,
			Subheadline:  tpl.Subheadline,
			CTA:          tpl.PrimaryCTA,
			SecondaryCTA: tpl.SecondaryCTA,
			SocialProof:  tpl.SocialProof,
			SectionOrder: tpl.SectionOrder,
			UrgencyBar:   tpl.UrgencyBar,
		},
		FallbackUsed: cls.FallbackUsed,
	}.Clone()
}

// Enhance returns a new object with the arbitration picks applied. Section
// order and social proof stay with the rules decision's intent.
func (b *Builder) Enhance(base Object, e Enhancement) Object {
	out := base.Clone()
	out.Timestamp = b.now().UTC()
	out.Decision.Template = e.Template
	out.Decision.HeroImage = e.HeroImage
	out.Decision.CTA = e.CTA
	out.Classification.Reasoning = e.Reasoning
	out.AIUsed = true
	return out
}
