package intent

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/tailored/internal/signals"
)

// Result is the outcome of one classification.
type Result struct {
	PrimaryIntent   Intent             `json:"primary_intent"`
	SecondaryIntent *Intent            `json:"secondary_intent"`
	Confidence      float64            `json:"confidence"`
	Scores          map[Intent]float64 `json:"scores"`
	Reasoning       string             `json:"reasoning"`
	FallbackUsed    bool               `json:"fallback_used"`
	SignalsUsed     []string           `json:"signals_used"`
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	out := r
	if r.SecondaryIntent != nil {
		s := *r.SecondaryIntent
		out.SecondaryIntent = &s
	}
	out.Scores = maps.Clone(r.Scores)
	out.SignalsUsed = slices.Clone(r.SignalsUsed)
	return out
}

// Classifier scores signals against a Tuning table. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	tuning   Tuning
	intents  []Intent
	keywords map[Intent][][]string
}

// New builds a Classifier. Enabled intents are ranked in declaration order
// regardless of the order the tuning lists them in. A tuning that fails
// Validate is replaced by DefaultTuning, so the primary intent is always
// enabled.
func New(t Tuning) *Classifier {
	if t.Validate() != nil {
		t = DefaultTuning()
	}
	intents := make([]Intent, 0, len(t.Intents))
	for _, i := range t.Intents {
		if !slices.Contains(intents, i) {
			intents = append(intents, i)
		}
	}
	slices.SortFunc(intents, func(a, b Intent) int { return order(a) - order(b) })

	keywords := make(map[Intent][][]string, len(intents))
	for _, i := range intents {
		for _, kw := range t.Keywords[i] {
			if words := strings.Fields(strings.ToLower(kw)); len(words) > 0 {
				keywords[i] = append(keywords[i], words)
			}
		}
	}
	return &Classifier{tuning: t, intents: intents, keywords: keywords}
}

// Intents returns the enabled intents in ranking order.
func (c *Classifier) Intents() []Intent {
	return slices.Clone(c.intents)
}

// Enabled reports whether i is part of this classifier's intent set.
func (c *Classifier) Enabled(i Intent) bool {
	return slices.Contains(c.intents, i)
}

// DefaultIntent is the intent used on fallback.
func (c *Classifier) DefaultIntent() Intent {
	return c.tuning.DefaultIntent
}

type ranked struct {
	intent Intent
	score  float64
}

// Classify scores sig and returns the ranked result. A persona parameter
// naming an enabled intent bypasses scoring entirely.
func (c *Classifier) Classify(sig signals.Signals) Result {
	if sig.Persona != "" {
		if forced, ok := Parse(sig.Persona); ok && c.Enabled(forced) {
			return c.Force(forced)
		}
	}

	t := c.tuning
	scores := make(map[Intent]float64, len(c.intents))
	for _, i := range c.intents {
		scores[i] = 0
	}
	var reasons, used []string

	// 1. keywords over utm_term plus tokenized campaign and source
	tokens := slices.Clone(sig.UTM.Term)
	tokens = append(tokens, signals.Tokenize(sig.UTM.Campaign)...)
	tokens = append(tokens, signals.Tokenize(sig.UTM.Source)...)
	if len(tokens) > 0 {
		weight := formatWeight(t.UTMMatchWeight)
		for _, i := range c.intents {
			var contribution float64
			for _, kw := range c.keywords[i] {
				if !containsPhrase(tokens, kw) {
					continue
				}
				phrase := strings.Join(kw, " ")
				contribution += t.UTMMatchWeight
				reasons = append(reasons, fmt.Sprintf("UTM contains '%s' (%s +%s)", phrase, i, weight))
				used = append(used, "utm:"+phrase)
			}
			scores[i] += math.Min(contribution, t.UTMMaxContribution)
		}
	}

	// 2. referrer bonus
	ref := sig.Referrer.Type
	for _, b := range t.ReferrerBonuses[ref] {
		if _, ok := scores[b.Intent]; !ok {
			continue
		}
		scores[b.Intent] += b.Weight
		reasons = append(reasons, fmt.Sprintf("Referrer is %s (%s +%s)", ref, b.Intent, formatWeight(b.Weight)))
		used = append(used, "referrer:"+string(ref))
	}

	// 3. device + time composite
	for _, r := range t.DeviceTimeBonuses {
		if sig.Device.Type != r.Device || sig.Device.TimeContext != r.Time {
			continue
		}
		if _, ok := scores[r.Intent]; !ok {
			continue
		}
		scores[r.Intent] += r.Weight
		reasons = append(reasons, fmt.Sprintf("%s + %s (%s +%s)", r.Device, r.Time, r.Intent, formatWeight(r.Weight)))
		used = append(used, fmt.Sprintf("device_time:%s_%s", r.Device, r.Time))
	}

	// 4. rank; stable over declaration order so ties go to the earlier intent
	ranking := make([]ranked, 0, len(c.intents))
	for _, i := range c.intents {
		ranking = append(ranking, ranked{intent: i, score: scores[i]})
	}
	slices.SortStableFunc(ranking, func(a, b ranked) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})
	top, second := ranking[0].score, ranking[1].score

	// 5. separation confidence
	confidence := 0.0
	if top > 0 {
		confidence = clamp(top / (top + second + t.Epsilon))
	}

	fired := len(reasons) > 0

	// 6. fallback
	primary := ranking[0].intent
	fallback := false
	switch {
	case top < t.MinScore:
		confidence = 0
		primary = t.DefaultIntent
		fallback = true
		reasons = append(reasons, fmt.Sprintf("Top score %.2f below minimum %s, falling back to %s",
			top, formatWeight(t.MinScore), t.DefaultIntent))
		used = append(used, "fallback")
	case confidence < t.ConfidenceThreshold:
		primary = t.DefaultIntent
		fallback = true
		reasons = append(reasons, fmt.Sprintf("Confidence %.2f below threshold %s, falling back to %s",
			confidence, formatWeight(t.ConfidenceThreshold), t.DefaultIntent))
		used = append(used, "fallback")
	}

	// secondary is the runner-up of the ranking, whatever the primary became
	var secondary *Intent
	if ranking[1].score > 0 {
		s := ranking[1].intent
		secondary = &s
	}

	// 7. reasoning
	reasoning := fmt.Sprintf("No signals detected. Defaulting to %s.", t.DefaultIntent)
	if fired {
		reasoning = strings.Join(dedupe(reasons), ". ") + fmt.Sprintf(". Top: %s at %.2f confidence.", primary, confidence)
	}

	return Result{
		PrimaryIntent:   primary,
		SecondaryIntent: secondary,
		Confidence:      confidence,
		Scores:          scores,
		Reasoning:       reasoning,
		FallbackUsed:    fallback,
		SignalsUsed:     dedupe(used),
	}
}

// Force returns a full-confidence result for i without scoring, used by the
// persona override and by simulate.
func (c *Classifier) Force(i Intent) Result {
	scores := make(map[Intent]float64, len(c.intents))
	for _, k := range c.intents {
		scores[k] = 0
	}
	scores[i] = 1.0
	return Result{
		PrimaryIntent: i,
		Confidence:    1.0,
		Scores:        scores,
		Reasoning:     fmt.Sprintf("Persona override: %s.", i),
		SignalsUsed:   []string{"persona:" + string(i)},
	}
}

// containsPhrase reports whether phrase occurs as a contiguous run of tokens.
func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) > len(tokens) {
		return false
	}
	for start := 0; start+len(phrase) <= len(tokens); start++ {
		if slices.Equal(tokens[start:start+len(phrase)], phrase) {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
