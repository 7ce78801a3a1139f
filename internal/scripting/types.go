package scripting

import (
	"propmon/internal/actions"
	"propmon/internal/extractor"
	"propmon/internal/ltl"
)

// Type aliases instantiate the core algebra's generic types over
// ThunkHandle, the production handle type, so the rest of this package can
// spell them without repeating the instantiation everywhere.
type (
	ltlSyntax     = ltl.Syntax[ThunkHandle]
	ltlFormula    = ltl.Formula[ThunkHandle]
	ltlResidual   = ltl.Residual[ThunkHandle]
	ltlValue      = ltl.Value[ThunkHandle]
	ltlViolation  = ltl.Violation[ThunkHandle]
	ThunkResolver = ltl.ThunkResolver[ThunkHandle]
)

// Status is a handle-free classification of a PropertyValue.
type Status int

const (
	StatusTrue Status = iota
	StatusFalse
	StatusResidual
)

func (s Status) String() string {
	switch s {
	case StatusTrue:
		return "true"
	case StatusFalse:
		return "false"
	default:
		return "residual"
	}
}

// PropertyValue is the runtime-handle-free projection of ltl.Value that
// crosses the worker's command channel: consumers may outlive the
// goja runtime that produced it, so a False verdict's Violation has every
// ThunkHandle replaced by its captured pretty text.
type PropertyValue struct {
	Name      string
	Status    Status
	Violation ltl.Violation[string]
}

// withPrettyFunctions projects a Value[ThunkHandle] into a PropertyValue,
// stripping runtime handles from any carried Violation.
func withPrettyFunctions(name string, v ltlValue) PropertyValue {
	switch r := v.(type) {
	case ltl.VTrue[ThunkHandle]:
		return PropertyValue{Name: name, Status: StatusTrue}
	case ltl.VFalseValue[ThunkHandle]:
		return PropertyValue{
			Name:      name,
			Status:    StatusFalse,
			Violation: ltl.MapViolation(r.Violation, handlePretty),
		}
	default:
		return PropertyValue{Name: name, Status: StatusResidual}
	}
}

func handlePretty(h ThunkHandle) string { return h.pretty }

// ExtractorInfo is the host-facing projection of a registered extractor.
type ExtractorInfo struct {
	ID     extractor.ID
	Source string
}

// ActionProposal pairs an action generator's name with one proposed Action,
// passed through unchanged per the external interface contract.
type ActionProposal struct {
	Generator string
	Action    actions.Action
}
