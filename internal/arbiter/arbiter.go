// Package arbiter asks a hosted model to re-pick the hero template, image and
// CTA from the registry's finite catalogs. Every failure is soft: the caller
// gets nil and keeps the rules decision.
package arbiter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MikeSquared-Agency/tailored/internal/decision"
	"github.com/MikeSquared-Agency/tailored/internal/intent"
	"github.com/MikeSquared-Agency/tailored/internal/llm"
	"github.com/MikeSquared-Agency/tailored/internal/signals"
)

const (
	DefaultTimeout   = 5 * time.Second
	DefaultCacheTTL  = 5 * time.Minute
	defaultMaxTokens = 512
)

type Options struct {
	Timeout   time.Duration
	CacheTTL  time.Duration
	MaxTokens int
	// Now is the cache clock; nil means time.Now.
	Now func() time.Time
}

type cacheEntry struct {
	enh     decision.Enhancement
	expires time.Time
}

type Arbiter struct {
	llm       llm.Completer
	logger    *slog.Logger
	timeout   time.Duration
	ttl       time.Duration
	maxTokens int
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
	group singleflight.Group
}

// New returns an Arbiter. A nil Completer yields a disabled arbiter whose
// TryEnhance returns nil without any network attempt.
func New(c llm.Completer, opts Options, logger *slog.Logger) *Arbiter {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Arbiter{
		llm:       c,
		logger:    logger,
		timeout:   opts.Timeout,
		ttl:       opts.CacheTTL,
		maxTokens: opts.MaxTokens,
		now:       opts.Now,
		cache:     make(map[string]cacheEntry),
	}
}

// Enabled reports whether a provider is configured.
func (a *Arbiter) Enabled() bool {
	return a != nil && a.llm != nil
}

// Provider names the configured provider, or "" when disabled.
func (a *Arbiter) Provider() string {
	if !a.Enabled() {
		return ""
	}
	return a.llm.Provider()
}

// TryEnhance returns a validated enhancement or nil. It never returns an
// error: timeouts, transport errors and invalid responses are logged and
// swallowed.
func (a *Arbiter) TryEnhance(ctx context.Context, sig signals.Signals, cls intent.Result) *decision.Enhancement {
	if !a.Enabled() {
		return nil
	}

	key := cacheKey(sig, cls.PrimaryIntent)
	if enh, ok := a.cached(key); ok {
		a.logger.Debug("arbitration cache hit", "key", key)
		return &enh
	}

	// Concurrent cycles for one bucket share a request that runs on its own deadline.
	ch := a.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		return a.arbitrate(callCtx, key, sig, cls)
	})

	select {
	case <-ctx.Done():
		a.logger.Warn("arbitration abandoned", "intent", cls.PrimaryIntent, "error", ctx.Err())
		return nil
	case res := <-ch:
		if res.Err != nil {
			return nil
		}
		enh := res.Val.(decision.Enhancement)
		return &enh
	}
}

func (a *Arbiter) arbitrate(ctx context.Context, key string, sig signals.Signals, cls intent.Result) (decision.Enhancement, error) {
	start := a.now()
	raw, err := a.llm.Complete(ctx, llm.Request{
		System:    systemPrompt,
		User:      buildUserPrompt(sig, cls),
		MaxTokens: a.maxTokens,
		JSON:      true,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			a.logger.Warn("arbitration timed out, keeping rules decision",
				"provider", a.llm.Provider(),
				"timeout", a.timeout,
			)
		} else {
			a.logger.Warn("arbitration failed, keeping rules decision",
				"provider", a.llm.Provider(),
				"error", err,
			)
		}
		return decision.Enhancement{}, err
	}

	enh, err := parseResponse(raw, cls.PrimaryIntent)
	if err != nil {
		a.logger.Warn("arbitration response rejected",
			"provider", a.llm.Provider(),
			"error", err,
			"raw", raw,
		)
		return decision.Enhancement{}, err
	}

	a.store(key, enh)
	a.logger.Info("arbitration complete",
		"provider", a.llm.Provider(),
		"intent", cls.PrimaryIntent,
		"template", enh.Template,
		"hero_image", enh.HeroImage,
		"duration", a.now().Sub(start),
	)
	return enh, nil
}

func cacheKey(sig signals.Signals, primary intent.Intent) string {
	return strings.Join([]string{
		sig.UTM.TermString(),
		string(sig.Referrer.Type),
		string(sig.Device.Type),
		string(primary),
	}, "|")
}

func (a *Arbiter) cached(key string) (decision.Enhancement, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.cache[key]
	if !ok {
		return decision.Enhancement{}, false
	}
	if !a.now().Before(e.expires) {
		delete(a.cache, key)
		return decision.Enhancement{}, false
	}
	return e.enh, true
}

func (a *Arbiter) store(key string, enh decision.Enhancement) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	for k, e := range a.cache {
		if !now.Before(e.expires) {
			delete(a.cache, k)
		}
	}
	a.cache[key] = cacheEntry{enh: enh, expires: now.Add(a.ttl)}
}
