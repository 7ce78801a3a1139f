package ltl

// ThunkResolver resolves an atomic predicate handle to a Formula at the
// current tick. The evaluator never introspects thunks — it only ever
// calls this callback, which owns negation: when negated is true, the
// returned Formula must already be the NNF of the negated result.
type ThunkResolver[T any] func(handle T, negated bool) (Formula[T], error)

// Evaluate evaluates a fresh NNF formula as of time t. It may call
// resolve one or more times (left-to-right for And/Or); any error from
// resolve propagates to the caller.
func Evaluate[T any](f Formula[T], t Time, resolve ThunkResolver[T]) (Value[T], error) {
	switch v := f.(type) {
	case FTrue:
		return True[T](), nil

	case FFalse:
		return False[T](VFalse[T]{Pretty: prettyOr(v.PrettyText, "false")}), nil

	case FThunk[T]:
		resolved, err := resolve(v.Handle, v.Negated)
		if err != nil {
			return nil, err
		}
		// A thunk resolving directly to a boolean literal is the common
		// case (a plain predicate); capture the handle in the Violation
		// so callers can identify which predicate failed, not just that
		// "some formula" did. Thunks resolving to a richer Formula
		// (higher-order combinators such as implies(() => cond)) recurse
		// without a handle attached to the resulting violation.
		switch r := resolved.(type) {
		case FTrue:
			return True[T](), nil
		case FFalse:
			handle := v.Handle
			return False[T](VFalse[T]{Condition: &handle, Pretty: prettyOr(r.PrettyText, v.Pretty())}), nil
		default:
			return Evaluate(resolved, t, resolve)
		}

	case FAnd[T]:
		return evalAnd(v.Left, v.Right, t, resolve)

	case FOr[T]:
		return evalOr(v.Left, v.Right, t, resolve)

	case FImplies[T]:
		return evalImplies(v.Left, v.Right, t, resolve)

	case FNext[T]:
		return ResidualValue[T](RNext[T]{Sub: v.Sub}), nil

	case FAlways[T]:
		return evalAlways(v.Sub, v.Bound, t, t, resolve)

	case FEventually[T]:
		return evalEventually(v.Sub, v.Bound, t, t, resolve)

	default:
		panic("ltl: unknown Formula variant")
	}
}

func evalAnd[T any](left, right Formula[T], t Time, resolve ThunkResolver[T]) (Value[T], error) {
	lv, err := Evaluate(left, t, resolve)
	if err != nil {
		return nil, err
	}
	rv, err := Evaluate(right, t, resolve)
	if err != nil {
		return nil, err
	}
	return combineAnd[T](lv, rv), nil
}

func combineAnd[T any](lv, rv Value[T]) Value[T] {
	lt, lIsTrue := lv.(VTrue[T])
	rt, rIsTrue := rv.(VTrue[T])
	_ = lt
	_ = rt
	lf, lIsFalse := lv.(VFalseValue[T])
	rf, rIsFalse := rv.(VFalseValue[T])

	switch {
	case lIsTrue && rIsTrue:
		return True[T]()
	case lIsFalse && rIsFalse:
		return False[T](VAnd[T]{Left: lf.Violation, Right: rf.Violation})
	case lIsFalse:
		return False[T](lf.Violation)
	case rIsFalse:
		return False[T](rf.Violation)
	default:
		return ResidualValue[T](RAnd[T]{Left: lv, Right: rv})
	}
}

func evalOr[T any](left, right Formula[T], t Time, resolve ThunkResolver[T]) (Value[T], error) {
	lv, err := Evaluate(left, t, resolve)
	if err != nil {
		return nil, err
	}
	rv, err := Evaluate(right, t, resolve)
	if err != nil {
		return nil, err
	}
	return combineOr[T](lv, rv), nil
}

func combineOr[T any](lv, rv Value[T]) Value[T] {
	_, lIsTrue := lv.(VTrue[T])
	_, rIsTrue := rv.(VTrue[T])
	lf, lIsFalse := lv.(VFalseValue[T])
	rf, rIsFalse := rv.(VFalseValue[T])

	switch {
	case lIsTrue || rIsTrue:
		return True[T]()
	case lIsFalse && rIsFalse:
		return False[T](VOr[T]{Left: lf.Violation, Right: rf.Violation})
	default:
		return ResidualValue[T](ROr[T]{Left: lv, Right: rv})
	}
}

func evalImplies[T any](left, right Formula[T], t Time, resolve ThunkResolver[T]) (Value[T], error) {
	av, err := Evaluate(left, t, resolve)
	if err != nil {
		return nil, err
	}
	switch a := av.(type) {
	case VFalseValue[T]:
		// Vacuously true: the antecedent never held.
		return True[T](), nil
	case VTrue[T]:
		_ = a
		bv, err := Evaluate(right, t, resolve)
		if err != nil {
			return nil, err
		}
		return wrapImpliesConsequent[T](left, bv), nil
	default: // VResidual
		bv, err := Evaluate(right, t, resolve)
		if err != nil {
			return nil, err
		}
		return ResidualValue[T](RImplies[T]{Antecedent: left, AntecedentValue: av, Consequent: bv}), nil
	}
}

func wrapImpliesConsequent[T any](antecedent Formula[T], bv Value[T]) Value[T] {
	if bf, ok := bv.(VFalseValue[T]); ok {
		return False[T](VImplies[T]{Antecedent: antecedent, Consequent: bf.Violation})
	}
	return bv
}

func evalAlways[T any](sub Formula[T], bound *Duration, start, t Time, resolve ThunkResolver[T]) (Value[T], error) {
	sv, err := Evaluate(sub, t, resolve)
	if err != nil {
		return nil, err
	}
	switch s := sv.(type) {
	case VFalseValue[T]:
		return False[T](VAlways[T]{Subformula: sub, Inner: s.Violation, Start: start, At: t}), nil
	case VTrue[T]:
		if bound != nil && (*bound == 0 || t.AtOrAfter(start.Add(*bound))) {
			return True[T](), nil
		}
		return ResidualValue[T](RAlways[T]{Sub: sub, Start: start, Bound: bound}), nil
	default: // VResidual: still need to keep checking
		return ResidualValue[T](RAlways[T]{Sub: sub, Start: start, Bound: bound}), nil
	}
}

func evalEventually[T any](sub Formula[T], bound *Duration, start, t Time, resolve ThunkResolver[T]) (Value[T], error) {
	sv, err := Evaluate(sub, t, resolve)
	if err != nil {
		return nil, err
	}
	if _, ok := sv.(VTrue[T]); ok {
		return True[T](), nil
	}
	// False or Residual: we keep trying, unless already timed out.
	if bound != nil && t.AtOrAfter(start.Add(*bound)) {
		return False[T](VEventually[T]{Subformula: sub, Reason: TimedOut, At: t}), nil
	}
	return ResidualValue[T](REventually[T]{Sub: sub, Start: start, Bound: bound}), nil
}

// Step advances an existing residual by one tick, to time t.
func Step[T any](r Residual[T], t Time, resolve ThunkResolver[T]) (Value[T], error) {
	switch v := r.(type) {
	case RNext[T]:
		return Evaluate(v.Sub, t, resolve)

	case RAnd[T]:
		lv, err := stepValue(v.Left, t, resolve)
		if err != nil {
			return nil, err
		}
		rv, err := stepValue(v.Right, t, resolve)
		if err != nil {
			return nil, err
		}
		return combineAnd[T](lv, rv), nil

	case ROr[T]:
		lv, err := stepValue(v.Left, t, resolve)
		if err != nil {
			return nil, err
		}
		rv, err := stepValue(v.Right, t, resolve)
		if err != nil {
			return nil, err
		}
		return combineOr[T](lv, rv), nil

	case RImplies[T]:
		av := v.AntecedentValue
		if _, stillResidual := av.(VResidual[T]); stillResidual {
			var err error
			av, err = stepValue(av, t, resolve)
			if err != nil {
				return nil, err
			}
		}
		switch a := av.(type) {
		case VFalseValue[T]:
			_ = a
			return True[T](), nil
		case VTrue[T]:
			cv, err := stepValue(v.Consequent, t, resolve)
			if err != nil {
				return nil, err
			}
			return wrapImpliesConsequent[T](v.Antecedent, cv), nil
		default:
			cv, err := stepValue(v.Consequent, t, resolve)
			if err != nil {
				return nil, err
			}
			return ResidualValue[T](RImplies[T]{Antecedent: v.Antecedent, AntecedentValue: av, Consequent: cv}), nil
		}

	case RAlways[T]:
		if v.Bound != nil && t.After(v.Start.Add(*v.Bound)) {
			return True[T](), nil
		}
		sv, err := Evaluate(v.Sub, t, resolve)
		if err != nil {
			return nil, err
		}
		if sf, ok := sv.(VFalseValue[T]); ok {
			return False[T](VAlways[T]{Subformula: v.Sub, Inner: sf.Violation, Start: v.Start, At: t}), nil
		}
		// True or Residual: the obligation continues unchanged.
		return ResidualValue[T](RAlways[T]{Sub: v.Sub, Start: v.Start, Bound: v.Bound}), nil

	case REventually[T]:
		sv, err := Evaluate(v.Sub, t, resolve)
		if err != nil {
			return nil, err
		}
		if _, ok := sv.(VTrue[T]); ok {
			return True[T](), nil
		}
		if v.Bound != nil && t.After(v.Start.Add(*v.Bound)) {
			return False[T](VEventually[T]{Subformula: v.Sub, Reason: TimedOut, At: t}), nil
		}
		return ResidualValue[T](REventually[T]{Sub: v.Sub, Start: v.Start, Bound: v.Bound}), nil

	default:
		panic("ltl: unknown Residual variant")
	}
}

// stepValue advances a Value by one tick: a decided Value is latched and
// returned unchanged (so And/Or's structural residuals don't re-derive a
// verdict that's already settled); a Residual Value is stepped.
func stepValue[T any](v Value[T], t Time, resolve ThunkResolver[T]) (Value[T], error) {
	r, ok := v.(VResidual[T])
	if !ok {
		return v, nil
	}
	return Step(r.Residual, t, resolve)
}
