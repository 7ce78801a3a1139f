package ltl_test

import (
	"math/rand"
	"testing"
	"testing/quick"

	"propmon/internal/ltl"
	"propmon/internal/ltl/ltltest"
)

// randomTrace generates a short, finite boolean trace over labels "a" and
// "b". testing/quick is the stdlib exception documented for this package:
// nothing in the retrieved corpus ships a third-party QuickCheck-style
// generator, so this is the one place the algebra's tests lean on
// math/rand plus testing/quick's reflective Value generation instead.
type randomTrace []bool

func (randomTrace) Generate(r *rand.Rand, size int) interface{} {
	n := r.Intn(12) + 1
	tr := make(randomTrace, n)
	for i := range tr {
		tr[i] = r.Intn(2) == 1
	}
	return tr
}

func (tr randomTrace) toWorldTrace() ltltest.Trace {
	out := make(ltltest.Trace, len(tr))
	for i, b := range tr {
		out[i] = ltltest.World{"a": b}
	}
	return out
}

// TestQuickDoubleNegationIsIdentity checks that double negation normalizes
// away (Not(Not(x)) == x) against randomly generated traces: !!a must
// classify identically to a at the trace's first tick.
func TestQuickDoubleNegationIsIdentity(t *testing.T) {
	prop := func(bits randomTrace) bool {
		trace := bits.toWorldTrace()
		left := ltl.Not[lbl]{Sub: ltl.Not[lbl]{Sub: thunk("a")}}
		right := ltl.Syntax[lbl](thunk("a"))

		lf := ltl.NNF[lbl](left)
		rf := ltl.NNF[lbl](right)

		lv, err := ltl.Evaluate[lbl](lf, 0, resolverFor(trace.At(0)))
		if err != nil {
			return false
		}
		rv, err := ltl.Evaluate[lbl](rf, 0, resolverFor(trace.At(0)))
		if err != nil {
			return false
		}
		return classify[lbl](lv) == classify[lbl](rv)
	}
	if err := quick.Check(prop, &quick.Config{MaxCount: 200}); err != nil {
		t.Error(err)
	}
}

// TestQuickAndCommutative checks that And is commutative
// (a.and(b) == b.and(a)) across randomly generated single-tick valuations.
func TestQuickAndCommutative(t *testing.T) {
	prop := func(a, b bool) bool {
		w := ltltest.World{"a": a, "b": b}
		left := ltl.FAnd[lbl]{Left: ltl.FThunk[lbl]{Handle: "a"}, Right: ltl.FThunk[lbl]{Handle: "b"}}
		right := ltl.FAnd[lbl]{Left: ltl.FThunk[lbl]{Handle: "b"}, Right: ltl.FThunk[lbl]{Handle: "a"}}

		lv, err := ltl.Evaluate[lbl](left, 0, resolverFor(w))
		if err != nil {
			return false
		}
		rv, err := ltl.Evaluate[lbl](right, 0, resolverFor(w))
		if err != nil {
			return false
		}
		return classify[lbl](lv) == classify[lbl](rv)
	}
	if err := quick.Check(prop, nil); err != nil {
		t.Error(err)
	}
}

// TestQuickNeverFlipsAfterDecision exercises a randomized trace against an
// unbounded always(a): once the residual decides False it must never
// decide True on any later tick in the same trace, regardless of what the
// remaining bits say (the latch is load-bearing, not merely a happy-path
// property).
func TestQuickNeverFlipsAfterDecision(t *testing.T) {
	prop := func(bits randomTrace) bool {
		if len(bits) == 0 {
			return true
		}
		trace := bits.toWorldTrace()
		f := ltl.FAlways[lbl]{Sub: ltl.FThunk[lbl]{Handle: "a"}}

		v, err := ltl.Evaluate[lbl](f, 0, resolverFor(trace.At(0)))
		if err != nil {
			return false
		}
		decided := classify[lbl](v) != "residual"
		for i := 1; i < len(trace); i++ {
			r, ok := isResidual[lbl](v)
			if !ok {
				// Already decided: must stay decided to the same verdict.
				continue
			}
			v, err = ltl.Step[lbl](r, ltl.Time(i), resolverFor(trace.At(i)))
			if err != nil {
				return false
			}
			nowDecided := classify[lbl](v) != "residual"
			if decided && !nowDecided {
				return false // reopened a decision: law violated
			}
			if nowDecided {
				decided = true
			}
		}
		return true
	}
	if err := quick.Check(prop, &quick.Config{MaxCount: 200}); err != nil {
		t.Error(err)
	}
}
