package ltl

// MapFormula rebuilds f with every thunk handle of type T replaced by one
// of type U via f. It is used to project a Formula tied to a
// runtime-specific handle type into a handle-free form (typically U =
// string, the thunk's captured Pretty text) so it can safely cross a
// thread or goroutine boundary after the runtime that produced it has
// moved on.
func MapFormula[T, U any](f Formula[T], conv func(T) U) Formula[U] {
	switch v := f.(type) {
	case FTrue:
		return FTrue{PrettyText: v.PrettyText}
	case FFalse:
		return FFalse{PrettyText: v.PrettyText}
	case FThunk[T]:
		return FThunk[U]{Handle: conv(v.Handle), Negated: v.Negated, PrettyText: v.PrettyText}
	case FAnd[T]:
		return FAnd[U]{Left: MapFormula(v.Left, conv), Right: MapFormula(v.Right, conv)}
	case FOr[T]:
		return FOr[U]{Left: MapFormula(v.Left, conv), Right: MapFormula(v.Right, conv)}
	case FImplies[T]:
		return FImplies[U]{Left: MapFormula(v.Left, conv), Right: MapFormula(v.Right, conv)}
	case FNext[T]:
		return FNext[U]{Sub: MapFormula(v.Sub, conv)}
	case FAlways[T]:
		return FAlways[U]{Sub: MapFormula(v.Sub, conv), Bound: v.Bound}
	case FEventually[T]:
		return FEventually[U]{Sub: MapFormula(v.Sub, conv), Bound: v.Bound}
	default:
		panic("ltl: unknown Formula variant")
	}
}

// MapViolation is MapFormula's counterpart for Violation trees.
func MapViolation[T, U any](v Violation[T], conv func(T) U) Violation[U] {
	switch r := v.(type) {
	case VFalse[T]:
		out := VFalse[U]{Pretty: r.Pretty}
		if r.Condition != nil {
			u := conv(*r.Condition)
			out.Condition = &u
		}
		return out
	case VAnd[T]:
		return VAnd[U]{Left: MapViolation(r.Left, conv), Right: MapViolation(r.Right, conv)}
	case VOr[T]:
		return VOr[U]{Left: MapViolation(r.Left, conv), Right: MapViolation(r.Right, conv)}
	case VImplies[T]:
		return VImplies[U]{Antecedent: MapFormula(r.Antecedent, conv), Consequent: MapViolation(r.Consequent, conv)}
	case VEventually[T]:
		return VEventually[U]{Subformula: MapFormula(r.Subformula, conv), Reason: r.Reason, At: r.At}
	case VAlways[T]:
		return VAlways[U]{
			Subformula: MapFormula(r.Subformula, conv),
			Inner:      MapViolation(r.Inner, conv),
			Start:      r.Start,
			At:         r.At,
		}
	default:
		panic("ltl: unknown Violation variant")
	}
}
