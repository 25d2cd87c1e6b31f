// Package tracker records widget events in a bounded in-memory log, fans them
// out over NATS and summarises them for the analytics dashboard.
package tracker

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tailored/internal/hermes"
)

type EventType string

const (
	PageView       EventType = "page_view"
	IntentDetected EventType = "intent_detected"
	HeroShown      EventType = "hero_shown"
	CTAClick       EventType = "cta_click"
	SectionReorder EventType = "section_reorder"
)

// DefaultCapacity is the number of events kept before the oldest are dropped.
const DefaultCapacity = 500

var eventTypes = []EventType{PageView, IntentDetected, HeroShown, CTAClick, SectionReorder}

// ParseEventType validates a wire event type.
func ParseEventType(s string) (EventType, bool) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range eventTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	VisitorID string         `json:"visitor_id"`
	Data      map[string]any `json:"data"`
}

// Publisher forwards events to a broker. *hermes.Client satisfies it.
type Publisher interface {
	Publish(subject string, data any) error
}

type Option func(*Tracker)

// WithClock replaces time.Now for event timestamps and analytics ranges.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithCapacity bounds the in-memory log.
func WithCapacity(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.capacity = n
		}
	}
}

type Tracker struct {
	pub      Publisher
	logger   *slog.Logger
	now      func() time.Time
	capacity int

	mu     sync.Mutex
	events []Event
}

// New returns a Tracker. pub may be nil, in which case events stay in-process.
func New(pub Publisher, logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		pub:      pub,
		logger:   logger,
		now:      time.Now,
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func newEventID() string {
	return "e_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Track appends an event and publishes it. Publish failures are logged and
// never returned; the widget must not break because the broker is down.
func (t *Tracker) Track(typ EventType, visitorID string, data map[string]any) Event {
	if data == nil {
		data = map[string]any{}
	}
	ev := Event{
		ID:        newEventID(),
		Type:      typ,
		Timestamp: t.now().UTC(),
		VisitorID: visitorID,
		Data:      maps.Clone(data),
	}

	t.mu.Lock()
	t.events = append(t.events, ev)
	if over := len(t.events) - t.capacity; over > 0 {
		t.events = append(t.events[:0:0], t.events[over:]...)
	}
	t.mu.Unlock()

	if t.pub != nil {
		if err := t.pub.Publish(hermes.EventSubject(string(typ)), ev); err != nil {
			t.logger.Warn("failed to publish event", "type", typ, "visitor_id", visitorID, "error", err)
		}
	}
	t.logger.Debug("event tracked", "type", typ, "visitor_id", visitorID, "id", ev.ID)
	return ev
}

// Filter narrows Events. Zero fields match everything.
type Filter struct {
	Type  EventType
	Since time.Time
}

// Events returns copies of the logged events matching f, oldest first.
func (t *Tracker) Events(f Filter) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, 0, len(t.events))
	for _, ev := range t.events {
		if f.Type != "" && ev.Type != f.Type {
			continue
		}
		if !f.Since.IsZero() && ev.Timestamp.Before(f.Since) {
			continue
		}
		ev.Data = maps.Clone(ev.Data)
		out = append(out, ev)
	}
	return out
}

// Len reports how many events are currently held.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

type Range string

const (
	RangeToday  Range = "today"
	Range7Days  Range = "7days"
	Range30Days Range = "30days"
)

// ParseRange accepts today, 7days and 30days; anything else is an error.
func ParseRange(s string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(s))); r {
	case RangeToday, Range7Days, Range30Days:
		return r, nil
	case "":
		return Range7Days, nil
	default:
		return "", fmt.Errorf("unknown range %q", s)
	}
}

// since returns the start of r relative to now. "today" starts at local midnight.
func (r Range) since(now time.Time) time.Time {
	switch r {
	case RangeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case Range30Days:
		return now.AddDate(0, 0, -30)
	default:
		return now.AddDate(0, 0, -7)
	}
}
