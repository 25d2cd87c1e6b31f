// Package pipeline runs personalization cycles: a synchronous rules phase
// that always produces a complete decision, followed by an optional
// arbitration phase whose result is applied only if no newer cycle started.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/tailored/internal/arbiter"
	"github.com/MikeSquared-Agency/tailored/internal/decision"
	"github.com/MikeSquared-Agency/tailored/internal/hermes"
	"github.com/MikeSquared-Agency/tailored/internal/intent"
	"github.com/MikeSquared-Agency/tailored/internal/signals"
	"github.com/MikeSquared-Agency/tailored/internal/tracker"
)

// DefaultMaxSessions bounds the number of session stores held in memory.
const DefaultMaxSessions = 10000

var (
	ErrClosed        = errors.New("engine closed")
	ErrUnknownIntent = errors.New("unknown intent")
)

// Publisher broadcasts applied decisions. *hermes.Client satisfies it.
type Publisher interface {
	Publish(subject string, data any) error
}

type session struct {
	store    *decision.Store
	cancel   context.CancelFunc
	lastUsed time.Time
	// subscribers pins the session: a live listener must see the next cycle
	subscribers int
}

// Engine owns the classifier, builder and arbiter and one decision store per
// visitor session.
type Engine struct {
	classifier  *intent.Classifier
	builder     *decision.Builder
	arbiter     *arbiter.Arbiter
	tracker     *tracker.Tracker
	publisher   Publisher
	logger      *slog.Logger
	maxSessions int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	sessions map[string]*session
}

// New wires an Engine. arb, tr and pub may be nil: a nil arbiter disables the
// AI phase, a nil tracker drops telemetry and a nil publisher keeps decision
// updates in-process.
func New(cls *intent.Classifier, b *decision.Builder, arb *arbiter.Arbiter, tr *tracker.Tracker, pub Publisher, logger *slog.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		classifier:  cls,
		builder:     b,
		arbiter:     arb,
		tracker:     tr,
		publisher:   pub,
		logger:      logger,
		maxSessions: DefaultMaxSessions,
		ctx:         ctx,
		cancel:      cancel,
		sessions:    make(map[string]*session),
	}
}

// SetMaxSessions changes the session bound. Values below 1 are ignored.
func (e *Engine) SetMaxSessions(n int) {
	if n < 1 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxSessions = n
}

// AIEnabled reports whether cycles include an arbitration phase.
func (e *Engine) AIEnabled() bool {
	return e.arbiter.Enabled()
}

// AIProvider names the arbitration provider, or "" when disabled.
func (e *Engine) AIProvider() string {
	return e.arbiter.Provider()
}

// Request describes one cycle. Force, when set, bypasses scoring.
type Request struct {
	VisitorID string
	Env       signals.Environment
	Overrides signals.Overrides
	Force     *intent.Intent
}

// Run executes a page-view cycle: page_view and intent_detected are tracked
// and the rules decision is applied before arbitration is dispatched.
func (e *Engine) Run(req Request) (*Cycle, error) {
	return e.run(req, true)
}

// Simulate replays the pipeline with a forced intent. It supersedes any
// in-flight arbitration of the session's previous cycle.
func (e *Engine) Simulate(req Request) (*Cycle, error) {
	if req.Force != nil && !e.classifier.Enabled(*req.Force) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIntent, *req.Force)
	}
	return e.run(req, false)
}

func (e *Engine) run(req Request, pageView bool) (*Cycle, error) {
	if req.VisitorID == "" {
		req.VisitorID = decision.NewVisitorID()
	}

	sess, seq, aiCtx, err := e.begin(req.VisitorID)
	if err != nil {
		return nil, err
	}

	sig := signals.Parse(req.Env, req.Overrides)
	var cls intent.Result
	if req.Force != nil {
		cls = e.classifier.Force(*req.Force)
	} else {
		cls = e.classifier.Classify(sig)
	}
	rules := e.builder.Build(cls, sig, req.VisitorID)
	applied := sess.store.Apply(seq, rules)

	e.logger.Info("decision ready",
		"visitor_id", req.VisitorID,
		"intent", cls.PrimaryIntent,
		"confidence", cls.Confidence,
		"fallback_used", cls.FallbackUsed,
		"template", rules.Decision.Template,
		"seq", seq,
	)
	if pageView {
		e.track(tracker.PageView, req.VisitorID, map[string]any{
			"url":           sig.RawURL,
			"referrer_type": string(sig.Referrer.Type),
			"device":        string(sig.Device.Type),
		})
	}
	e.track(tracker.IntentDetected, req.VisitorID, detectionData(rules))

	c := newCycle(seq, req.VisitorID, rules)
	if !e.arbiter.Enabled() {
		c.finish(rules, !applied)
		return c, nil
	}

	e.wg.Add(1)
	go e.arbitrate(aiCtx, sess.store, c, sig, cls)
	return c, nil
}

// begin starts a cycle on the visitor's session, cancelling the arbitration
// context of its previous cycle and handing out a fresh one.
func (e *Engine) begin(visitorID string) (*session, uint64, context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, 0, nil, ErrClosed
	}
	sess := e.sessionLocked(visitorID)
	if sess.cancel != nil {
		sess.cancel()
	}
	ctx, cancel := context.WithCancel(e.ctx)
	sess.cancel = cancel
	return sess, sess.store.Begin(), ctx, nil
}

func (e *Engine) sessionLocked(visitorID string) *session {
	now := time.Now()
	if sess, ok := e.sessions[visitorID]; ok {
		sess.lastUsed = now
		return sess
	}
	if len(e.sessions) >= e.maxSessions {
		e.evictLocked()
	}
	sess := &session{store: decision.NewStore(), lastUsed: now}
	sess.store.Subscribe(e.broadcast)
	e.sessions[visitorID] = sess
	return sess
}

// evictLocked drops the least recently used session without subscribers. When
// every session is subscribed to, none is evicted and the bound is exceeded
// until a stream closes.
func (e *Engine) evictLocked() {
	var oldestID string
	var oldest time.Time
	for id, sess := range e.sessions {
		if sess.subscribers > 0 {
			continue
		}
		if oldestID == "" || sess.lastUsed.Before(oldest) {
			oldestID, oldest = id, sess.lastUsed
		}
	}
	if sess, ok := e.sessions[oldestID]; ok {
		if sess.cancel != nil {
			sess.cancel()
		}
		delete(e.sessions, oldestID)
		e.logger.Debug("session evicted", "visitor_id", oldestID)
	}
}

func (e *Engine) arbitrate(ctx context.Context, store *decision.Store, c *Cycle, sig signals.Signals, cls intent.Result) {
	defer e.wg.Done()

	enh := e.arbiter.TryEnhance(ctx, sig, cls)
	if enh == nil {
		c.finish(c.Rules, store.Latest() != c.Seq)
		return
	}

	enhanced := e.builder.Enhance(c.Rules, *enh)
	if !store.Apply(c.Seq, enhanced) {
		e.logger.Info("arbitration superseded by newer cycle, dropping",
			"visitor_id", c.VisitorID,
			"seq", c.Seq,
		)
		c.finish(enhanced, true)
		return
	}

	e.logger.Info("arbitrated decision applied",
		"visitor_id", c.VisitorID,
		"template", enhanced.Decision.Template,
		"hero_image", enhanced.Decision.HeroImage,
		"seq", c.Seq,
	)
	c.finish(enhanced, false)
}

// Current returns the session's latest applied decision.
func (e *Engine) Current(visitorID string) (decision.Object, bool) {
	e.mu.Lock()
	sess, ok := e.sessions[visitorID]
	e.mu.Unlock()
	if !ok {
		return decision.Object{}, false
	}
	return sess.store.Current()
}

// Subscribe registers fn for every decision applied to the visitor's session
// and returns an unsubscribe function. The session is not evicted while it
// has subscribers.
func (e *Engine) Subscribe(visitorID string, fn func(decision.Object)) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	sess := e.sessionLocked(visitorID)
	sess.subscribers++
	remove := sess.store.Subscribe(fn)

	var once sync.Once
	return func() {
		once.Do(func() {
			remove()
			e.mu.Lock()
			defer e.mu.Unlock()
			sess.subscribers--
			sess.lastUsed = time.Now()
		})
	}, nil
}

// Sessions reports the number of live session stores.
func (e *Engine) Sessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Track records a presentation-layer event such as hero_shown or cta_click.
func (e *Engine) Track(typ tracker.EventType, visitorID string, data map[string]any) {
	e.track(typ, visitorID, data)
}

func (e *Engine) track(typ tracker.EventType, visitorID string, data map[string]any) {
	if e.tracker == nil {
		return
	}
	e.tracker.Track(typ, visitorID, data)
}

func (e *Engine) broadcast(obj decision.Object) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(hermes.SubjectDecisionUpdated, obj); err != nil {
		e.logger.Warn("failed to publish decision update", "visitor_id", obj.VisitorID, "error", err)
	}
}

// Close cancels in-flight arbitration and waits for it to drain or for ctx
// to expire.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for arbitration: %w", ctx.Err())
	}
}

func detectionData(obj decision.Object) map[string]any {
	return map[string]any{
		"intent":        string(obj.Classification.PrimaryIntent),
		"confidence":    obj.Classification.Confidence,
		"fallback_used": obj.FallbackUsed,
		"template":      obj.Decision.Template,
		"referrer_type": string(obj.Signals.Referrer.Type),
		"device":        string(obj.Signals.Device.Type),
	}
}
