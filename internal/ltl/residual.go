package ltl

// Residual is a partially-evaluated formula plus the context needed to
// resume it on the next tick.
type Residual[T any] interface {
	isResidual()
}

// RAlways has held since Start and must continue to hold until
// Start+Bound (if bounded) or indefinitely (if unbounded, which reduces to
// a stopping-default of True at test end).
type RAlways[T any] struct {
	Sub   Formula[T]
	Start Time
	Bound *Duration
}

func (RAlways[T]) isResidual() {}

// REventually has failed to hold since Start and must become true before
// Start+Bound, otherwise it is a violation.
type REventually[T any] struct {
	Sub   Formula[T]
	Start Time
	Bound *Duration
}

func (REventually[T]) isResidual() {}

// RAnd carries two still-undecided (or mixed) sides forward.
type RAnd[T any] struct {
	Left, Right Value[T]
}

func (RAnd[T]) isResidual() {}

// ROr carries two still-undecided (or mixed) sides forward.
type ROr[T any] struct {
	Left, Right Value[T]
}

func (ROr[T]) isResidual() {}

// RImplies carries the antecedent and consequent's tracked Values
// separately, per the specification's mandated (non-eager) rule: the
// antecedent is only re-stepped while its own Value is still a Residual;
// once it decides True or False, that decision is kept as-is.
// Antecedent is the original (NNF) antecedent formula, retained so a
// completed violation can render "<consequent> since <antecedent>".
type RImplies[T any] struct {
	Antecedent      Formula[T]
	AntecedentValue Value[T]
	Consequent      Value[T]
}

func (RImplies[T]) isResidual() {}

// RNext carries an unevaluated sub-formula to be evaluated fresh at the
// next tick.
type RNext[T any] struct {
	Sub Formula[T]
}

func (RNext[T]) isResidual() {}
