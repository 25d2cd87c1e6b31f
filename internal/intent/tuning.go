package intent

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/tailored/internal/signals"
)

// Bonus adds Weight to Intent when its rule fires.
type Bonus struct {
	Intent Intent  `yaml:"intent"`
	Weight float64 `yaml:"weight"`
}

// DeviceTimeRule fires when both the device type and time context match.
type DeviceTimeRule struct {
	Device signals.DeviceType  `yaml:"device"`
	Time   signals.TimeContext `yaml:"time"`
	Intent Intent              `yaml:"intent"`
	Weight float64             `yaml:"weight"`
}

// Tuning holds every constant the classifier scores with. None of it is
// load-bearing: deployments may ship a YAML file that overrides any field.
type Tuning struct {
	ConfidenceThreshold float64                          `yaml:"confidence_threshold"`
	MinScore            float64                          `yaml:"min_score"`
	Epsilon             float64                          `yaml:"epsilon"`
	UTMMatchWeight      float64                          `yaml:"utm_match_weight"`
	UTMMaxContribution  float64                          `yaml:"utm_max_contribution"`
	DefaultIntent       Intent                           `yaml:"default_intent"`
	Intents             []Intent                         `yaml:"intents"`
	Keywords            map[Intent][]string              `yaml:"keywords"`
	ReferrerBonuses     map[signals.ReferrerType][]Bonus `yaml:"referrer_bonuses"`
	DeviceTimeBonuses   []DeviceTimeRule                 `yaml:"device_time_bonuses"`
}

// DefaultTuning returns the canonical six-intent weight table.
func DefaultTuning() Tuning {
	return Tuning{
		ConfidenceThreshold: 0.30,
		MinScore:            0.20,
		Epsilon:             0.1,
		UTMMatchWeight:      0.4,
		UTMMaxContribution:  0.8,
		DefaultIntent:       Default,
		Intents:             All(),
		Keywords: map[Intent][]string{
			BuyNow: {
				"buy", "order", "purchase", "add to cart", "checkout",
				"get", "shop", "now", "cart", "shipping",
			},
			Compare: {
				"best", "vs", "versus", "compare", "top", "review",
				"rated", "ranking", "which", "difference",
			},
			UseCase: {
				"gaming", "coding", "work", "office", "streaming", "design",
				"studio", "student", "programming", "creative", "music",
				"video editing", "photo editing", "school",
			},
			Budget: {
				"cheap", "budget", "affordable", "under", "deal", "sale",
				"discount", "clearance", "value", "save", "price",
				"inexpensive", "low cost", "bargain",
			},
			Research: {
				"guide", "how to", "what is", "learn", "explained", "101",
				"tutorial", "beginner", "overview", "introduction",
			},
			Gifting: {
				"gift", "for him", "for her", "present", "birthday",
				"christmas", "holiday", "wedding", "anniversary", "for dad",
				"for mom", "for kids", "gift card", "wrap",
			},
		},
		ReferrerBonuses: map[signals.ReferrerType][]Bonus{
			signals.ReferrerReviewSite:    {{Intent: Compare, Weight: 0.25}},
			signals.ReferrerSocial:        {{Intent: UseCase, Weight: 0.15}},
			signals.ReferrerSearchPaid:    {{Intent: BuyNow, Weight: 0.2}},
			signals.ReferrerEmail:         {{Intent: BuyNow, Weight: 0.15}},
			signals.ReferrerDirect:        {{Intent: BuyNow, Weight: 0.1}},
			signals.ReferrerSearchOrganic: {{Intent: Research, Weight: 0.1}},
		},
		DeviceTimeBonuses: []DeviceTimeRule{
			{Device: signals.DeviceMobile, Time: signals.TimeEvening, Intent: Research, Weight: 0.1},
			{Device: signals.DeviceMobile, Time: signals.TimeNight, Intent: Research, Weight: 0.1},
			{Device: signals.DeviceDesktop, Time: signals.TimeAfternoon, Intent: BuyNow, Weight: 0.05},
		},
	}
}

// tuningFile mirrors Tuning with optional fields so a file only replaces what
// it names. Map entries replace the matching default entry.
type tuningFile struct {
	ConfidenceThreshold *float64                         `yaml:"confidence_threshold"`
	MinScore            *float64                         `yaml:"min_score"`
	Epsilon             *float64                         `yaml:"epsilon"`
	UTMMatchWeight      *float64                         `yaml:"utm_match_weight"`
	UTMMaxContribution  *float64                         `yaml:"utm_max_contribution"`
	DefaultIntent       *Intent                          `yaml:"default_intent"`
	Intents             []Intent                         `yaml:"intents"`
	Keywords            map[Intent][]string              `yaml:"keywords"`
	ReferrerBonuses     map[signals.ReferrerType][]Bonus `yaml:"referrer_bonuses"`
	DeviceTimeBonuses   []DeviceTimeRule                 `yaml:"device_time_bonuses"`
}

// LoadTuning reads a YAML tuning file over DefaultTuning. An empty path or a
// missing file yields the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning file: %w", err)
	}
	var f tuningFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	t.merge(f)
	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("tuning file %s: %w", path, err)
	}
	return t, nil
}

func (t *Tuning) merge(f tuningFile) {
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat(&t.ConfidenceThreshold, f.ConfidenceThreshold)
	setFloat(&t.MinScore, f.MinScore)
	setFloat(&t.Epsilon, f.Epsilon)
	setFloat(&t.UTMMatchWeight, f.UTMMatchWeight)
	setFloat(&t.UTMMaxContribution, f.UTMMaxContribution)
	if f.DefaultIntent != nil {
		t.DefaultIntent = upper(*f.DefaultIntent)
	}
	if f.Intents != nil {
		t.Intents = make([]Intent, 0, len(f.Intents))
		for _, i := range f.Intents {
			t.Intents = append(t.Intents, upper(i))
		}
	}
	for i, words := range f.Keywords {
		lower := make([]string, 0, len(words))
		for _, w := range words {
			lower = append(lower, strings.ToLower(strings.TrimSpace(w)))
		}
		t.Keywords[upper(i)] = lower
	}
	for ref, bonuses := range f.ReferrerBonuses {
		for n := range bonuses {
			bonuses[n].Intent = upper(bonuses[n].Intent)
		}
		t.ReferrerBonuses[signals.ReferrerType(strings.ToLower(string(ref)))] = bonuses
	}
	if f.DeviceTimeBonuses != nil {
		for n := range f.DeviceTimeBonuses {
			f.DeviceTimeBonuses[n].Intent = upper(f.DeviceTimeBonuses[n].Intent)
		}
		t.DeviceTimeBonuses = f.DeviceTimeBonuses
	}
}

// upper lets YAML authors write "buy_now" for BUY_NOW.
func upper(i Intent) Intent {
	return Intent(strings.ToUpper(strings.TrimSpace(string(i))))
}

// Validate checks that every intent named is in the closed set, the default
// intent is enabled, and thresholds and weights are in range.
func (t Tuning) Validate() error {
	if t.ConfidenceThreshold < 0 || t.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold %v outside [0,1]", t.ConfidenceThreshold)
	}
	if t.MinScore < 0 || t.Epsilon < 0 || t.UTMMatchWeight < 0 || t.UTMMaxContribution < 0 {
		return errors.New("weights and thresholds must be non-negative")
	}
	if len(t.Intents) < 2 {
		return errors.New("at least two intents must be enabled")
	}
	enabled := make(map[Intent]bool, len(t.Intents))
	for _, i := range t.Intents {
		if !i.Valid() {
			return fmt.Errorf("unknown intent %q", i)
		}
		enabled[i] = true
	}
	if !enabled[t.DefaultIntent] {
		return fmt.Errorf("default_intent %q is not enabled", t.DefaultIntent)
	}
	for i := range t.Keywords {
		if !i.Valid() {
			return fmt.Errorf("keywords: unknown intent %q", i)
		}
	}
	for ref, bonuses := range t.ReferrerBonuses {
		for _, b := range bonuses {
			if !b.Intent.Valid() {
				return fmt.Errorf("referrer_bonuses.%s: unknown intent %q", ref, b.Intent)
			}
			if b.Weight < 0 {
				return fmt.Errorf("referrer_bonuses.%s: negative weight", ref)
			}
		}
	}
	for _, r := range t.DeviceTimeBonuses {
		if !r.Intent.Valid() {
			return fmt.Errorf("device_time_bonuses: unknown intent %q", r.Intent)
		}
		if r.Weight < 0 {
			return errors.New("device_time_bonuses: negative weight")
		}
	}
	return nil
}
