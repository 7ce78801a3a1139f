package ltl

// StopDefault answers: "if the test stopped right now, what verdict does
// this residual carry?" Unbounded G defaults to True (safety: nothing has
// contradicted it yet); unwitnessed F defaults to False (liveness: a
// witness never arrived). NextResidual has no sensible default and reports
// Unknown.
func StopDefault[T any](r Residual[T], now Time) Value[T] {
	switch v := r.(type) {
	case RAlways[T]:
		return True[T]()

	case REventually[T]:
		return False[T](VEventually[T]{Subformula: v.Sub, Reason: TestEnded})

	case RNext[T]:
		return nil // Unknown: see StopDefaultVerdict for a typed wrapper.

	case RAnd[T]:
		lv := stopDefaultOfValue[T](v.Left, now)
		rv := stopDefaultOfValue[T](v.Right, now)
		if lv == nil || rv == nil {
			return nil
		}
		return combineAnd[T](lv, rv)

	case ROr[T]:
		lv := stopDefaultOfValue[T](v.Left, now)
		rv := stopDefaultOfValue[T](v.Right, now)
		if lv == nil || rv == nil {
			return nil
		}
		return combineOr[T](lv, rv)

	case RImplies[T]:
		av := stopDefaultOfValue[T](v.AntecedentValue, now)
		if av == nil {
			return nil
		}
		if _, ok := av.(VTrue[T]); ok {
			return stopDefaultOfValue[T](v.Consequent, now)
		}
		// Antecedent defaults to False: vacuously True regardless of the
		// consequent's own default.
		return True[T]()

	default:
		panic("ltl: unknown Residual variant")
	}
}

// stopDefaultOfValue returns the stopping default of an already-decided
// Value unchanged, or recurses into a Residual Value; returns nil
// (Unknown) when the residual is an un-decidable RNext.
func stopDefaultOfValue[T any](v Value[T], now Time) Value[T] {
	r, ok := v.(VResidual[T])
	if !ok {
		return v
	}
	return StopDefault[T](r.Residual, now)
}

// Verdict is a friendlier three-state projection of StopDefault's result,
// for callers that would rather branch on a Go value than on nil.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictTrue
	VerdictFalse
)

// StopDefaultVerdict is StopDefault projected to a Verdict plus, when
// VerdictFalse, the Violation that would be reported.
func StopDefaultVerdict[T any](r Residual[T], now Time) (Verdict, Violation[T]) {
	v := StopDefault[T](r, now)
	if v == nil {
		return VerdictUnknown, nil
	}
	switch vv := v.(type) {
	case VTrue[T]:
		return VerdictTrue, nil
	case VFalseValue[T]:
		return VerdictFalse, vv.Violation
	default:
		return VerdictUnknown, nil
	}
}
