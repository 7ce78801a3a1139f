package ltl_test

import (
	"testing"

	"propmon/internal/ltl"
	"propmon/internal/ltl/ltltest"
)

// resolverFor turns a finite World into a ThunkResolver over Label: a
// thunk resolves directly to the boolean literal for its label, negated
// per the resolver contract (the resolver, not the evaluator, owns
// negation).
func resolverFor(w ltltest.World) ltl.ThunkResolver[lbl] {
	return func(h lbl, negated bool) (ltl.Formula[lbl], error) {
		v := w[h]
		if negated {
			v = !v
		}
		if v {
			return ltl.FTrue{PrettyText: string(h)}, nil
		}
		return ltl.FFalse{PrettyText: string(h)}, nil
	}
}

func isTrue[T any](v ltl.Value[T]) bool {
	_, ok := v.(ltl.VTrue[T])
	return ok
}

func isFalse[T any](v ltl.Value[T]) (ltl.Violation[T], bool) {
	f, ok := v.(ltl.VFalseValue[T])
	if !ok {
		return nil, false
	}
	return f.Violation, true
}

func isResidual[T any](v ltl.Value[T]) (ltl.Residual[T], bool) {
	r, ok := v.(ltl.VResidual[T])
	if !ok {
		return nil, false
	}
	return r.Residual, true
}

func mustEval(t *testing.T, f ltl.Formula[lbl], tm ltl.Time, w ltltest.World) ltl.Value[lbl] {
	t.Helper()
	v, err := ltl.Evaluate[lbl](f, tm, resolverFor(w))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return v
}

func mustStep(t *testing.T, r ltl.Residual[lbl], tm ltl.Time, w ltltest.World) ltl.Value[lbl] {
	t.Helper()
	v, err := ltl.Step[lbl](r, tm, resolverFor(w))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	return v
}

func TestEvaluateLiterals(t *testing.T) {
	if !isTrue[lbl](mustEval(t, ltl.FTrue{}, 0, nil)) {
		t.Fatal("FTrue did not evaluate True")
	}
	if _, ok := isFalse[lbl](mustEval(t, ltl.FFalse{PrettyText: "x"}, 0, nil)); !ok {
		t.Fatal("FFalse did not evaluate False")
	}
}

func TestEvaluateAnd(t *testing.T) {
	f := ltl.FAnd[lbl]{Left: ltl.FThunk[lbl]{Handle: "a"}, Right: ltl.FThunk[lbl]{Handle: "b"}}

	if !isTrue[lbl](mustEval(t, f, 0, ltltest.World{"a": true, "b": true})) {
		t.Fatal("expected True when both true")
	}
	if _, ok := isFalse[lbl](mustEval(t, f, 0, ltltest.World{"a": false, "b": false})); !ok {
		t.Fatal("expected False when both false")
	}
	if _, ok := isFalse[lbl](mustEval(t, f, 0, ltltest.World{"a": true, "b": false})); !ok {
		t.Fatal("expected False when one false")
	}
}

func TestEvaluateOr(t *testing.T) {
	f := ltl.FOr[lbl]{Left: ltl.FThunk[lbl]{Handle: "a"}, Right: ltl.FThunk[lbl]{Handle: "b"}}

	if !isTrue[lbl](mustEval(t, f, 0, ltltest.World{"a": true, "b": false})) {
		t.Fatal("expected True when one true")
	}
	if _, ok := isFalse[lbl](mustEval(t, f, 0, ltltest.World{"a": false, "b": false})); !ok {
		t.Fatal("expected False when both false")
	}
}

func TestEvaluateImpliesVacuous(t *testing.T) {
	// S5: now(foo).implies(bar), foo=false, bar=false -> True.
	f := ltl.FImplies[lbl]{Left: ltl.FThunk[lbl]{Handle: "foo"}, Right: ltl.FThunk[lbl]{Handle: "bar"}}
	v := mustEval(t, f, 0, ltltest.World{"foo": false, "bar": false})
	if !isTrue[lbl](v) {
		t.Fatalf("expected vacuous True, got %#v", v)
	}
}

func TestEvaluateAndBothTrue(t *testing.T) {
	// S6.
	f := ltl.FAnd[lbl]{Left: ltl.FThunk[lbl]{Handle: "foo"}, Right: ltl.FThunk[lbl]{Handle: "bar"}}
	v := mustEval(t, f, 0, ltltest.World{"foo": true, "bar": true})
	if !isTrue[lbl](v) {
		t.Fatalf("expected True, got %#v", v)
	}
}

func TestNextNeverEvaluatedAtCurrentTick(t *testing.T) {
	f := ltl.FNext[lbl]{Sub: ltl.FThunk[lbl]{Handle: "a"}}
	v := mustEval(t, f, 0, ltltest.World{"a": true})
	r, ok := isResidual[lbl](v)
	if !ok {
		t.Fatalf("expected Residual, got %#v", v)
	}
	if _, ok := r.(ltl.RNext[lbl]); !ok {
		t.Fatalf("expected RNext, got %#v", r)
	}
}

func TestNextSelfDuality(t *testing.T) {
	// X(!a) should classify identically to !X(a) at every step.
	pos := ltl.NNF[lbl](ltl.Next[lbl]{Sub: ltl.Not[lbl]{Sub: thunk("a")}})
	neg := ltl.NNF[lbl](ltl.Not[lbl]{Sub: ltl.Next[lbl]{Sub: thunk("a")}})

	worlds := []ltltest.World{{"a": true}, {"a": false}}
	for i, w := range worlds {
		pv := mustEval(t, pos, ltl.Time(i), w)
		nv := mustEval(t, neg, ltl.Time(i), w)
		pr, pok := isResidual[lbl](pv)
		nr, nok := isResidual[lbl](nv)
		if !pok || !nok {
			t.Fatalf("tick %d: expected residuals, got %#v / %#v", i, pv, nv)
		}
		// Step both one tick with the same valuation; stepping a Next
		// evaluates its operand, which forces a verdict.
		next := ltltest.World{"a": w["a"]}
		sv1 := mustStep(t, pr, ltl.Time(i+1), next)
		sv2 := mustStep(t, nr, ltl.Time(i+1), next)
		if classify[lbl](sv1) != classify[lbl](sv2) {
			t.Fatalf("tick %d: X(!a) and !X(a) diverged: %s vs %s", i, classify[lbl](sv1), classify[lbl](sv2))
		}
	}
}

func classify[T any](v ltl.Value[T]) string {
	switch v.(type) {
	case ltl.VTrue[T]:
		return "true"
	case ltl.VFalseValue[T]:
		return "false"
	default:
		return "residual"
	}
}

func TestAlwaysUnboundedResidualUntilViolated(t *testing.T) {
	// S1: always(foo < 100); feed foo=0..100; residual True-stop_default
	// until i=100 where it becomes definitely False.
	f := ltl.FAlways[lbl]{Sub: ltl.FThunk[lbl]{Handle: "below100"}}
	v := mustEval(t, f, 0, ltltest.World{"below100": true})
	for i := 1; i <= 100; i++ {
		r, ok := isResidual[lbl](v)
		if !ok {
			if i == 100 {
				break
			}
			t.Fatalf("tick %d: expected residual, got %#v", i, v)
		}
		below := i < 100
		v = mustStep(t, r, ltl.Time(i), ltltest.World{"below100": below})
	}
	violation, ok := isFalse[lbl](v)
	if !ok {
		t.Fatalf("expected definite False at i=100, got %#v", v)
	}
	if _, ok := violation.(ltl.VAlways[lbl]); !ok {
		t.Fatalf("expected VAlways violation, got %#v", violation)
	}

	// Latching: the decided value is terminal, with no residual left to step.
	r2, stillResidual := isResidual[lbl](v)
	if stillResidual {
		t.Fatalf("property should be terminal, got residual %#v", r2)
	}
}

func TestEventuallyBoundedTimeout(t *testing.T) {
	// S2: eventually(foo==9).within(3ms); feed foo=0..9 at t=0..9ms.
	bound := ltl.Duration(3)
	f := ltl.FEventually[lbl]{Sub: ltl.FThunk[lbl]{Handle: "hit"}, Bound: &bound}

	v := mustEval(t, f, 0, ltltest.World{"hit": false})
	for i := 1; i <= 4; i++ {
		r, ok := isResidual[lbl](v)
		if !ok {
			break
		}
		v = mustStep(t, r, ltl.Time(i), ltltest.World{"hit": false})
	}
	violation, ok := isFalse[lbl](v)
	if !ok {
		t.Fatalf("expected timeout False at i=4, got %#v", v)
	}
	ve, ok := violation.(ltl.VEventually[lbl])
	if !ok || ve.Reason != ltl.TimedOut || ve.At != 4 {
		t.Fatalf("expected TimedOut at t=4, got %#v", violation)
	}
}

func TestEventuallyUnboundedSatisfied(t *testing.T) {
	// S3.
	f := ltl.FEventually[lbl]{Sub: ltl.FThunk[lbl]{Handle: "hit"}}
	v := mustEval(t, f, 0, ltltest.World{"hit": false})
	for i := 1; i <= 9; i++ {
		r, ok := isResidual[lbl](v)
		if !ok {
			t.Fatalf("tick %d: expected residual, got %#v", i, v)
		}
		v = mustStep(t, r, ltl.Time(i), ltltest.World{"hit": i == 9})
	}
	if !isTrue[lbl](v) {
		t.Fatalf("expected True at i=9, got %#v", v)
	}
}

func TestAlwaysBoundedSatisfied(t *testing.T) {
	// S4: always(foo<4).within(3ms); feed foo=0..9 at t=0..9ms.
	bound := ltl.Duration(3)
	f := ltl.FAlways[lbl]{Sub: ltl.FThunk[lbl]{Handle: "below4"}, Bound: &bound}
	v := mustEval(t, f, 0, ltltest.World{"below4": true})
	for i := 1; i <= 4; i++ {
		r, ok := isResidual[lbl](v)
		if !ok {
			break
		}
		v = mustStep(t, r, ltl.Time(i), ltltest.World{"below4": i < 4})
	}
	if !isTrue[lbl](v) {
		t.Fatalf("expected True at t=4, got %#v", v)
	}
}

func TestLatchingTrue(t *testing.T) {
	f := ltl.FEventually[lbl]{Sub: ltl.FThunk[lbl]{Handle: "hit"}}
	v := mustEval(t, f, 0, ltltest.World{"hit": true})
	if !isTrue[lbl](v) {
		t.Fatal("expected immediate True")
	}
	// There is no residual to step further: the property is terminal by
	// construction once True.
}

func TestLatchingFalseSameViolation(t *testing.T) {
	bound := ltl.Duration(0)
	f := ltl.FEventually[lbl]{Sub: ltl.FThunk[lbl]{Handle: "hit"}, Bound: &bound}
	v := mustEval(t, f, 0, ltltest.World{"hit": false})
	violation, ok := isFalse[lbl](v)
	if !ok {
		t.Fatalf("expected immediate timeout at bound=0, got %#v", v)
	}
	first := ltl.Render[lbl](violation)
	// A terminal property is re-emitted unchanged by callers (PropertyState
	// enforces this); verify the violation itself is stable across two
	// independent renders.
	second := ltl.Render[lbl](violation)
	if first != second {
		t.Fatalf("violation rendering not stable: %q vs %q", first, second)
	}
}
