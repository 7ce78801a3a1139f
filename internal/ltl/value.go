package ltl

// Value is the result of evaluating or stepping a formula: a definite
// True, a definite False carrying a structured Violation, or a Residual
// describing obligations yet to be checked against future states.
type Value[T any] interface {
	isValue()
}

// VTrue is a definite true verdict.
type VTrue[T any] struct{}

func (VTrue[T]) isValue() {}

// VFalseValue is a definite false verdict, carrying the Violation that
// explains it.
type VFalseValue[T any] struct {
	Violation Violation[T]
}

func (VFalseValue[T]) isValue() {}

// VResidual is an undecided verdict carrying the obligations remaining.
type VResidual[T any] struct {
	Residual Residual[T]
}

func (VResidual[T]) isValue() {}

// True is a convenience constructor.
func True[T any]() Value[T] { return VTrue[T]{} }

// False is a convenience constructor.
func False[T any](v Violation[T]) Value[T] { return VFalseValue[T]{Violation: v} }

// ResidualValue is a convenience constructor.
func ResidualValue[T any](r Residual[T]) Value[T] { return VResidual[T]{Residual: r} }
