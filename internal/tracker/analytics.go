package tracker

import (
	"fmt"
	"math"
	"strings"

	"github.com/MikeSquared-Agency/tailored/internal/intent"
	"github.com/MikeSquared-Agency/tailored/internal/registry"
)

// PersonalizedThreshold is the confidence at which a detection counts as
// personalised rather than defaulted.
const PersonalizedThreshold = 0.30

const recentLimit = 20

var intentColors = map[intent.Intent]string{
	intent.BuyNow:   "#ef4444",
	intent.Compare:  "#3b82f6",
	intent.UseCase:  "#a855f7",
	intent.Budget:   "#22c55e",
	intent.Research: "#06b6d4",
	intent.Gifting:  "#f59e0b",
}

type IntentShare struct {
	Name  intent.Intent `json:"name"`
	Value int           `json:"value"`
	Color string        `json:"color"`
}

type ConfidenceBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

type VariantCTR struct {
	Template string  `json:"template"`
	Name     string  `json:"name"`
	Shown    int     `json:"shown"`
	Clicked  int     `json:"clicked"`
	CTR      float64 `json:"ctr"`
}

// HeatmapRow is the share of heroes shown for an intent that ended in a
// primary click, a secondary click or no click.
type HeatmapRow struct {
	Intent    intent.Intent `json:"intent"`
	Primary   float64       `json:"primary"`
	Secondary float64       `json:"secondary"`
	None      float64       `json:"none"`
}

type RecentDecision struct {
	Time       string  `json:"time"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Template   string  `json:"template"`
	CTA        string  `json:"cta"`
	Referrer   string  `json:"referrer"`
}

type Analytics struct {
	Range                  Range              `json:"range"`
	TotalVisitors          int                `json:"total_visitors"`
	PersonalizedPct        float64            `json:"personalized_pct"`
	AvgConfidence          float64            `json:"avg_confidence"`
	FallbackRate           float64            `json:"fallback_rate"`
	IntentDistribution     []IntentShare      `json:"intent_distribution"`
	ConfidenceDistribution []ConfidenceBucket `json:"confidence_distribution"`
	VariantPerformance     []VariantCTR       `json:"variant_performance"`
	Heatmap                []HeatmapRow       `json:"heatmap"`
	RecentDecisions        []RecentDecision   `json:"recent_decisions"`
}

// Analytics summarises the events logged within r.
func (t *Tracker) Analytics(r Range) Analytics {
	now := t.now()
	events := t.Events(Filter{Since: r.since(now)})

	var views, detections, shown, clicks []Event
	for _, ev := range events {
		switch ev.Type {
		case PageView:
			views = append(views, ev)
		case IntentDetected:
			detections = append(detections, ev)
		case HeroShown:
			shown = append(shown, ev)
		case CTAClick:
			clicks = append(clicks, ev)
		}
	}

	out := Analytics{Range: r}

	visitors := make(map[string]struct{}, len(views))
	for _, ev := range views {
		visitors[ev.VisitorID] = struct{}{}
	}
	out.TotalVisitors = len(visitors)

	var personalized, fallbacks int
	var sum float64
	intentCounts := make(map[intent.Intent]int)
	buckets := make([]ConfidenceBucket, 11)
	for i := range buckets {
		buckets[i].Range = fmt.Sprintf("%.1f", float64(i)/10)
	}
	for _, ev := range detections {
		c := number(ev.Data["confidence"])
		sum += c
		if c >= PersonalizedThreshold {
			personalized++
		}
		if b, _ := ev.Data["fallback_used"].(bool); b {
			fallbacks++
		}
		if i, ok := intent.Parse(text(ev.Data["intent"])); ok {
			intentCounts[i]++
		}
		buckets[bucketIndex(c)].Count++
	}
	if n := len(detections); n > 0 {
		out.PersonalizedPct = round(float64(personalized)/float64(n)*100, 1)
		out.AvgConfidence = round(sum/float64(n), 2)
		out.FallbackRate = round(float64(fallbacks)/float64(n)*100, 1)
	}
	out.ConfidenceDistribution = buckets

	total := max(len(detections), 1)
	for _, i := range intent.All() {
		out.IntentDistribution = append(out.IntentDistribution, IntentShare{
			Name:  i,
			Value: int(math.Round(float64(intentCounts[i]) / float64(total) * 100)),
			Color: intentColors[i],
		})
	}

	shownByTemplate := make(map[string]int)
	for _, ev := range shown {
		shownByTemplate[text(ev.Data["template"])]++
	}
	clickedByTemplate := make(map[string]int)
	for _, ev := range clicks {
		clickedByTemplate[text(ev.Data["template"])]++
	}
	for _, tpl := range registry.Templates() {
		v := VariantCTR{
			Template: tpl.ID,
			Name:     displayName(tpl.ID),
			Shown:    shownByTemplate[tpl.ID],
			Clicked:  clickedByTemplate[tpl.ID],
		}
		if v.Shown > 0 {
			v.CTR = round(float64(v.Clicked)/float64(v.Shown)*100, 1)
		}
		out.VariantPerformance = append(out.VariantPerformance, v)
	}

	for _, i := range intent.All() {
		seen := 0
		for _, ev := range shown {
			if text(ev.Data["intent"]) == string(i) {
				seen++
			}
		}
		seen = max(seen, 1)
		var primary, secondary int
		for _, ev := range clicks {
			if text(ev.Data["intent"]) != string(i) {
				continue
			}
			switch text(ev.Data["cta_type"]) {
			case "primary":
				primary++
			case "secondary":
				secondary++
			}
		}
		none := max(seen-primary-secondary, 0)
		out.Heatmap = append(out.Heatmap, HeatmapRow{
			Intent:    i,
			Primary:   round(float64(primary)/float64(seen), 2),
			Secondary: round(float64(secondary)/float64(seen), 2),
			None:      round(float64(none)/float64(seen), 2),
		})
	}

	out.RecentDecisions = []RecentDecision{}
	for n := len(detections) - 1; n >= 0 && len(out.RecentDecisions) < recentLimit; n-- {
		ev := detections[n]
		ago := "just now"
		if mins := int(math.Round(now.Sub(ev.Timestamp).Minutes())); mins >= 1 {
			ago = fmt.Sprintf("%dm ago", mins)
		}
		out.RecentDecisions = append(out.RecentDecisions, RecentDecision{
			Time:       ago,
			Intent:     text(ev.Data["intent"]),
			Confidence: number(ev.Data["confidence"]),
			Template:   text(ev.Data["template"]),
			CTA:        orDefault(text(ev.Data["cta_clicked"]), "None"),
			Referrer:   orDefault(text(ev.Data["referrer_type"]), "direct"),
		})
	}
	return out
}

func bucketIndex(c float64) int {
	idx := int(math.Floor(c * 10))
	return min(max(idx, 0), 10)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// displayName turns hero_comparison into HeroComparison.
func displayName(id string) string {
	parts := strings.Split(id, "_")
	for n, p := range parts {
		if p != "" {
			parts[n] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

// number reads a numeric event field. Events arriving over HTTP carry
// float64; events built in-process may carry other numeric types.
func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func text(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case intent.Intent:
		return string(s)
	default:
		return ""
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
