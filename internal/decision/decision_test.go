package decision

import (
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/tailored/internal/intent"
	"github.com/MikeSquared-Agency/tailored/internal/registry"
	"github.com/MikeSquared-Agency/tailored/internal/signals"
)

var fixedNow = time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)

func testBuilder() *Builder {
	return NewBuilderWithClock(func() time.Time { return fixedNow })
}

func classify(term string, ref signals.ReferrerType) (intent.Result, signals.Signals) {
	sig := signals.Signals{
		UTM:      signals.UTM{Term: signals.Tokenize(term)},
		Referrer: signals.Referrer{Type: ref},
		Device:   signals.Device{Type: signals.DeviceDesktop, TimeContext: signals.TimeMorning},
	}
	return intent.New(intent.DefaultTuning()).Classify(sig), sig
}

func TestBuild_CopiesTemplateSlots(t *testing.T) {
	for _, i := range intent.All() {
		t.Run(string(i), func(t *testing.T) {
			cls := intent.New(intent.DefaultTuning()).Force(i)
			obj := testBuilder().Build(cls, signals.Signals{}, "v_abc123")
			tpl := registry.Template(i)

			assert.Equal(t, "v_abc123", obj.VisitorID)
			assert.Equal(t, fixedNow, obj.Timestamp)
			assert.Equal(t, registry.EngineVersion, obj.EngineVersion)
			assert.Equal(t, tpl.ID, obj.Decision.Template)
			assert.Equal(t, tpl.HeroImage, obj.Decision.HeroImage)
			assert.Equal(t, tpl.PrimaryCTA, obj.Decision.CTA)
			assert.Equal(t, tpl.SecondaryCTA, obj.Decision.SecondaryCTA)
			assert.Equal(t, tpl.SocialProof, obj.Decision.SocialProof)
			assert.Equal(t, tpl.SectionOrder, obj.Decision.SectionOrder)
			assert.Equal(t, tpl.Headline, obj.Decision.Headline)
			assert.False(t, obj.AIUsed)
		})
	}
}

func TestBuild_FallbackFlagFollowsClassification(t *testing.T) {
	cls, sig := classify("", signals.ReferrerDirect)
	obj := testBuilder().Build(cls, sig, "v_000000")
	assert.True(t, obj.FallbackUsed)
	assert.Equal(t, "hero_guide", obj.Decision.Template)

	cls, sig = classify("buy gaming laptop now", signals.ReferrerSearchOrganic)
	obj = testBuilder().Build(cls, sig, "v_000000")
	assert.False(t, obj.FallbackUsed)
	assert.Equal(t, "hero_urgency", obj.Decision.Template)
}

func TestEnhance_ReplacesOnlyArbitratedFields(t *testing.T) {
	b := testBuilder()
	cls, sig := classify("best monitor 2026 vs", signals.ReferrerReviewSite)
	base := b.Build(cls, sig, "v_1")

	cta, ok := registry.LookupCTA("Read Full Reviews")
	require.True(t, ok)
	got := b.Enhance(base, Enhancement{
		Template:  "hero_lifestyle",
		HeroImage: "lg-monitor",
		CTA:       cta,
		Reasoning: "Review-site visitor comparing monitors.",
	})

	assert.True(t, got.AIUsed)
	assert.Equal(t, "hero_lifestyle", got.Decision.Template)
	assert.Equal(t, "lg-monitor", got.Decision.HeroImage)
	assert.Equal(t, cta, got.Decision.CTA)
	assert.Equal(t, "Review-site visitor comparing monitors.", got.Classification.Reasoning)

	assert.Equal(t, base.Decision.SectionOrder, got.Decision.SectionOrder)
	assert.Equal(t, base.Decision.SocialProof, got.Decision.SocialProof)
	assert.Equal(t, base.Classification.PrimaryIntent, got.Classification.PrimaryIntent)
	assert.Equal(t, base.Classification.Confidence, got.Classification.Confidence)

	assert.False(t, base.AIUsed, "base object must not change")
	assert.Equal(t, "hero_comparison", base.Decision.Template)
}

func TestVisitorID(t *testing.T) {
	pattern := regexp.MustCompile(`^v_[0-9a-f]{6}$`)
	assert.Regexp(t, pattern, NewVisitorID())

	store := NewMapStorage()
	first := VisitorID(store)
	assert.Regexp(t, pattern, first)
	assert.Equal(t, first, VisitorID(store), "stable within a session")

	stored, ok := store.Get(VisitorKey)
	require.True(t, ok)
	assert.Equal(t, first, stored)

	assert.NotEqual(t, first, VisitorID(NewMapStorage()), "new session, new id")
	assert.Regexp(t, pattern, VisitorID(nil))
}

type brokenStorage struct{}

func (brokenStorage) Get(string) (string, bool) { return "", false }
func (brokenStorage) Set(string, string) error  { return errors.New("storage disabled") }

func TestVisitorID_StorageFailureDegrades(t *testing.T) {
	assert.Regexp(t, `^v_[0-9a-f]{6}$`, VisitorID(brokenStorage{}))
}

func TestStore_LatestWins(t *testing.T) {
	s := NewStore()
	b := testBuilder()
	cls, sig := classify("buy now", signals.ReferrerDirect)

	stale := s.Begin()
	fresh := s.Begin()
	assert.Equal(t, fresh, s.Latest())

	assert.True(t, s.Apply(fresh, b.Build(cls, sig, "fresh")))
	assert.False(t, s.Apply(stale, b.Build(cls, sig, "stale")))

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "fresh", cur.VisitorID)
}

func TestStore_CurrentIsACopy(t *testing.T) {
	s := NewStore()
	_, ok := s.Current()
	assert.False(t, ok)

	cls, sig := classify("gift for him", signals.ReferrerEmail)
	obj := testBuilder().Build(cls, sig, "v_1")
	seq := s.Begin()
	require.True(t, s.Apply(seq, obj))

	obj.Decision.SectionOrder[0] = "mutated"
	cur, _ := s.Current()
	assert.NotEqual(t, "mutated", cur.Decision.SectionOrder[0])

	cur.Classification.Scores[intent.Gifting] = 42
	again, _ := s.Current()
	assert.NotEqual(t, 42.0, again.Classification.Scores[intent.Gifting])
}

func TestStore_SubscribeAndUnsubscribe(t *testing.T) {
	s := NewStore()
	var got []string
	unsubscribe := s.Subscribe(func(o Object) { got = append(got, o.VisitorID) })

	cls, sig := classify("cheap", signals.ReferrerDirect)
	b := testBuilder()
	s.Apply(s.Begin(), b.Build(cls, sig, "one"))
	s.Apply(s.Begin(), b.Build(cls, sig, "two"))
	unsubscribe()
	s.Apply(s.Begin(), b.Build(cls, sig, "three"))

	assert.Equal(t, []string{"one", "two"}, got)
}

func TestStore_ReadersSeeWholeObjects(t *testing.T) {
	s := NewStore()
	b := testBuilder()
	clsA, sigA := classify("buy now", signals.ReferrerDirect)
	clsB, sigB := classify("best vs", signals.ReferrerReviewSite)
	objA := b.Build(clsA, sigA, "a")
	objB := b.Build(clsB, sigB, "b")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := 0; n < 500; n++ {
			obj := objA
			if n%2 == 1 {
				obj = objB
			}
			s.Apply(s.Begin(), obj)
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		cur, ok := s.Current()
		if !ok {
			continue
		}
		want := objA
		if cur.VisitorID == "b" {
			want = objB
		}
		if diff := cmp.Diff(want, cur); diff != "" {
			t.Fatalf("torn read (-want +got):\n%s", diff)
		}
	}
}
