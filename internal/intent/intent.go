package intent

import "strings"

// Intent is a visitor's inferred shopping goal.
type Intent string

const (
	BuyNow   Intent = "BUY_NOW"
	Compare  Intent = "COMPARE"
	UseCase  Intent = "USE_CASE"
	Budget   Intent = "BUDGET"
	Research Intent = "RESEARCH"
	Gifting  Intent = "GIFTING"
)

// Default is the safe browse intent used when signals are too weak.
const Default = Research

var all = []Intent{BuyNow, Compare, UseCase, Budget, Research, Gifting}

// All returns the closed intent set in declaration order. The order is the
// classifier's tie-break order.
func All() []Intent {
	out := make([]Intent, len(all))
	copy(out, all)
	return out
}

// Valid reports whether i is a member of the closed set.
func (i Intent) Valid() bool {
	for _, k := range all {
		if i == k {
			return true
		}
	}
	return false
}

// Parse normalises s (case-insensitive, '-' or ' ' for '_') and returns the
// matching intent.
func Parse(s string) (Intent, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	i := Intent(norm)
	if !i.Valid() {
		return "", false
	}
	return i, true
}

// order returns the position of i in the declared enum, used for stable ranking.
func order(i Intent) int {
	for n, k := range all {
		if i == k {
			return n
		}
	}
	return len(all)
}
