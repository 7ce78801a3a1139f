package ltl

// Violation is the structured cause of a definite False verdict. It is
// carried both inside an immediate Value False and inside a completed
// residual reduction.
type Violation[T any] interface {
	isViolation()
}

// VFalse records that a leaf (a Pure false literal or a negated/plain
// thunk) was the direct cause of falsity.
type VFalse[T any] struct {
	// Condition is the thunk handle that failed, or nil for a literal
	// 'false' (FFalse).
	Condition *T
	// Pretty is the source text of the failing condition, captured so the
	// violation survives the thunk's runtime handle going out of scope.
	Pretty string
}

func (VFalse[T]) isViolation() {}

// VAnd records that both conjuncts failed.
type VAnd[T any] struct {
	Left, Right Violation[T]
}

func (VAnd[T]) isViolation() {}

// VOr records that both disjuncts failed.
type VOr[T any] struct {
	Left, Right Violation[T]
}

func (VOr[T]) isViolation() {}

// VImplies records that the antecedent held but the consequent failed.
type VImplies[T any] struct {
	Antecedent Formula[T]
	Consequent Violation[T]
}

func (VImplies[T]) isViolation() {}

// EventuallyReason distinguishes the two ways an Eventually can fail.
type EventuallyReason int

const (
	// TimedOut means the bound elapsed before a witness appeared.
	TimedOut EventuallyReason = iota
	// TestEnded means the trace ended before a witness appeared
	// (stop_default for an unwitnessed, possibly unbounded, F).
	TestEnded
)

// VEventually records why an Eventually obligation failed.
type VEventually[T any] struct {
	Subformula Formula[T]
	Reason     EventuallyReason
	// At is the time of timeout; zero-valued when Reason is TestEnded.
	At Time
}

func (VEventually[T]) isViolation() {}

// VAlways records that a sub-obligation, held since Start, was
// contradicted at Time by the nested Violation.
type VAlways[T any] struct {
	Subformula Formula[T]
	Inner      Violation[T]
	Start      Time
	At         Time
}

func (VAlways[T]) isViolation() {}
