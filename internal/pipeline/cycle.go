package pipeline

import (
	"context"

	"github.com/MikeSquared-Agency/tailored/internal/decision"
)

// Cycle is one run of the pipeline. Rules is available as soon as Run
// returns; Wait blocks until the arbitration phase has settled.
type Cycle struct {
	Seq       uint64
	VisitorID string
	Rules     decision.Object

	done       chan struct{}
	final      decision.Object
	superseded bool
}

func newCycle(seq uint64, visitorID string, rules decision.Object) *Cycle {
	return &Cycle{
		Seq:       seq,
		VisitorID: visitorID,
		Rules:     rules,
		done:      make(chan struct{}),
	}
}

func (c *Cycle) finish(final decision.Object, superseded bool) {
	c.final = final
	c.superseded = superseded
	close(c.done)
}

// Done is closed once the cycle's final decision is known.
func (c *Cycle) Done() <-chan struct{} {
	return c.done
}

// Wait returns the cycle's final decision: the arbitrated object when
// arbitration succeeded, otherwise the rules object. If a newer cycle started
// first, the object is returned but was never applied; Superseded reports it.
func (c *Cycle) Wait(ctx context.Context) (decision.Object, error) {
	select {
	case <-c.done:
		return c.final, nil
	case <-ctx.Done():
		return c.Rules, ctx.Err()
	}
}

// Superseded reports whether a newer cycle prevented this cycle's final
// decision, rules or arbitrated, from being applied. Only meaningful after
// Done.
func (c *Cycle) Superseded() bool {
	select {
	case <-c.done:
		return c.superseded
	default:
		return false
	}
}
