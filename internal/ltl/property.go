package ltl

// PropertyState tracks one named top-level formula's progress across a
// run: Initial(Formula) -> Residual(Residual) -> {DefinitelyTrue |
// DefinitelyFalse(Violation)}. Once terminal, it stays terminal and its
// value is re-emitted on every subsequent step without re-entering the
// runtime (the "latching" invariant of the specification).
type PropertyState[T any] struct {
	Name    string
	current Value[T]
	initial Formula[T]
}

// NewPropertyState creates a property in its Initial state.
func NewPropertyState[T any](name string, f Formula[T]) *PropertyState[T] {
	return &PropertyState[T]{Name: name, initial: f}
}

// Terminal reports whether the property has reached a definite verdict.
func (p *PropertyState[T]) Terminal() bool {
	switch p.current.(type) {
	case VTrue[T], VFalseValue[T]:
		return true
	default:
		return false
	}
}

// Value returns the property's last-computed Value, or nil before the
// first Advance.
func (p *PropertyState[T]) Value() Value[T] { return p.current }

// Advance drives the property one tick forward. If the property has
// never been evaluated, this performs the initial Evaluate of the NNF
// formula; otherwise it Steps the residual forward. A terminal property
// is latched: Advance returns the already-decided Value without calling
// resolve again.
func (p *PropertyState[T]) Advance(t Time, resolve ThunkResolver[T]) (Value[T], error) {
	if p.Terminal() {
		return p.current, nil
	}

	var (
		v   Value[T]
		err error
	)
	if p.current == nil {
		v, err = Evaluate(p.initial, t, resolve)
	} else {
		res := p.current.(VResidual[T]).Residual
		v, err = Step(res, t, resolve)
	}
	if err != nil {
		return nil, err
	}
	p.current = v
	return v, nil
}
