package arbiter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/MikeSquared-Agency/tailored/internal/intent"
	"github.com/MikeSquared-Agency/tailored/internal/llm"
	"github.com/MikeSquared-Agency/tailored/internal/registry"
	"github.com/MikeSquared-Agency/tailored/internal/signals"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCompleter struct {
	calls atomic.Int32
	fn    func(ctx context.Context, req llm.Request) (string, error)
}

func (f *fakeCompleter) Provider() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.calls.Add(1)
	return f.fn(ctx, req)
}

func reply(text string) *fakeCompleter {
	return &fakeCompleter{fn: func(context.Context, llm.Request) (string, error) { return text, nil }}
}

func testInput() (signals.Signals, intent.Result) {
	sig := signals.Signals{
		UTM:      signals.UTM{Term: []string{"best", "monitor", "vs"}},
		Referrer: signals.Referrer{Type: signals.ReferrerReviewSite},
		Device:   signals.Device{Type: signals.DeviceDesktop, TimeContext: signals.TimeEvening},
	}
	return sig, intent.New(intent.DefaultTuning()).Classify(sig)
}

func TestTryEnhance_DisabledWithoutCompleter(t *testing.T) {
	a := New(nil, Options{}, discardLogger())
	sig, cls := testInput()
	assert.False(t, a.Enabled())
	assert.Empty(t, a.Provider())
	assert.Nil(t, a.TryEnhance(context.Background(), sig, cls))

	var nilArbiter *Arbiter
	assert.Nil(t, nilArbiter.TryEnhance(context.Background(), sig, cls))
}

func TestTryEnhance_ValidResponse(t *testing.T) {
	fake := reply(`{"template":"hero_comparison","hero_image":"lg-monitor","cta":"Read Full Reviews","reasoning":"Review-site visitor weighing monitors."}`)
	a := New(fake, Options{}, discardLogger())
	sig, cls := testInput()

	enh := a.TryEnhance(context.Background(), sig, cls)
	require.NotNil(t, enh)
	assert.Equal(t, "hero_comparison", enh.Template)
	assert.Equal(t, "lg-monitor", enh.HeroImage)
	assert.Equal(t, "Read Full Reviews", enh.CTA.Label)
	assert.Equal(t, "/reviews", enh.CTA.Link)
	assert.Equal(t, "Review-site visitor weighing monitors.", enh.Reasoning)
}

func TestTryEnhance_UnknownTemplateIsDiscarded(t *testing.T) {
	fake := reply(`{"template":"hero_unknown","hero_image":"lg-monitor","cta":"Read Full Reviews","reasoning":"x"}`)
	a := New(fake, Options{}, discardLogger())
	sig, cls := testInput()

	assert.Nil(t, a.TryEnhance(context.Background(), sig, cls))
}

func TestTryEnhance_InventedHeroImageIsDiscarded(t *testing.T) {
	fake := reply(`{"template":"hero_value","hero_image":"img_invented","cta":"Shop Best Value","reasoning":"x"}`)
	a := New(fake, Options{}, discardLogger())
	sig, cls := testInput()

	assert.Nil(t, a.TryEnhance(context.Background(), sig, cls))
}

func TestTryEnhance_TimeoutIsSoft(t *testing.T) {
	fake := &fakeCompleter{fn: func(ctx context.Context, _ llm.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	a := New(fake, Options{Timeout: 50 * time.Millisecond}, discardLogger())
	sig, cls := testInput()

	start := time.Now()
	assert.Nil(t, a.TryEnhance(context.Background(), sig, cls))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTryEnhance_TransportErrorIsSoft(t *testing.T) {
	fake := &fakeCompleter{fn: func(context.Context, llm.Request) (string, error) {
		return "", errors.New("connection refused")
	}}
	a := New(fake, Options{}, discardLogger())
	sig, cls := testInput()

	assert.Nil(t, a.TryEnhance(context.Background(), sig, cls))
	assert.Nil(t, a.TryEnhance(context.Background(), sig, cls))
	assert.EqualValues(t, 2, fake.calls.Load(), "failures are not cached")
}

func TestTryEnhance_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeCompleter{fn: func(ctx context.Context, _ llm.Request) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "", errors.New("released")
	}}
	a := New(fake, Options{Timeout: time.Second}, discardLogger())
	sig, cls := testInput()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Nil(t, a.TryEnhance(ctx, sig, cls))
	close(release)

	// let the shared flight finish before goleak inspects goroutines
	require.Eventually(t, func() bool { return fake.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
}

func TestTryEnhance_CachesWithinTTL(t *testing.T) {
	now := time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	fake := reply(`{"template":"hero_comparison","hero_image":"asus-rog","cta":"Compare All Models","reasoning":"ok"}`)
	a := New(fake, Options{CacheTTL: 5 * time.Minute, Now: clock}, discardLogger())
	sig, cls := testInput()

	require.NotNil(t, a.TryEnhance(context.Background(), sig, cls))
	advance(4 * time.Minute)
	require.NotNil(t, a.TryEnhance(context.Background(), sig, cls))
	assert.EqualValues(t, 1, fake.calls.Load())

	other := sig
	other.Device.Type = signals.DeviceMobile
	require.NotNil(t, a.TryEnhance(context.Background(), other, cls))
	assert.EqualValues(t, 2, fake.calls.Load(), "different device is a different bucket")

	advance(2 * time.Minute)
	require.NotNil(t, a.TryEnhance(context.Background(), sig, cls))
	assert.EqualValues(t, 3, fake.calls.Load(), "expired entry is refreshed")
}

func TestTryEnhance_ConcurrentCallsShareOneRequest(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeCompleter{fn: func(ctx context.Context, _ llm.Request) (string, error) {
		<-release
		return `{"template":"hero_comparison","hero_image":"asus-rog","cta":"Compare All Models","reasoning":"ok"}`, nil
	}}
	a := New(fake, Options{}, discardLogger())
	sig, cls := testInput()

	var wg sync.WaitGroup
	var got atomic.Int32
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.TryEnhance(context.Background(), sig, cls) != nil {
				got.Add(1)
			}
		}()
	}
	require.Eventually(t, func() bool { return fake.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 8, got.Load())
	assert.LessOrEqual(t, fake.calls.Load(), int32(2))
}

func TestTryEnhance_SendsJSONRequestWithFullInventory(t *testing.T) {
	var captured llm.Request
	fake := &fakeCompleter{fn: func(_ context.Context, req llm.Request) (string, error) {
		captured = req
		return `{"template":"hero_comparison","hero_image":"asus-rog","cta":"Compare All Models"}`, nil
	}}
	a := New(fake, Options{}, discardLogger())
	sig, cls := testInput()

	enh := a.TryEnhance(context.Background(), sig, cls)
	require.NotNil(t, enh)
	assert.Equal(t, defaultReasoning, enh.Reasoning)

	assert.True(t, captured.JSON)
	assert.Equal(t, defaultMaxTokens, captured.MaxTokens)
	assert.Contains(t, captured.System, "no markdown fences")
	assert.Contains(t, captured.User, "Detected intent: COMPARE (91% confidence)")
	assert.Contains(t, captured.User, `UTM term: "best monitor vs"`)
	for _, id := range registry.TemplateIDs() {
		assert.Contains(t, captured.User, "- "+id+":")
	}
	for _, id := range registry.AssetIDs() {
		assert.Contains(t, captured.User, "- "+id+":")
	}
	for _, c := range registry.CTAs() {
		assert.True(t, strings.Contains(captured.User, c.Label), "missing cta %q", c.Label)
	}
}
