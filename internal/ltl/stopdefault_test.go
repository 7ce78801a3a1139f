package ltl_test

import (
	"testing"

	"propmon/internal/ltl"
)

func TestStopDefaultAlwaysIsTrue(t *testing.T) {
	r := ltl.RAlways[lbl]{Sub: ltl.FThunk[lbl]{Handle: "a"}, Start: 0}
	verdict, _ := ltl.StopDefaultVerdict[lbl](r, 100)
	if verdict != ltl.VerdictTrue {
		t.Fatalf("unbounded G should default True, got %v", verdict)
	}
}

func TestStopDefaultEventuallyIsFalse(t *testing.T) {
	r := ltl.REventually[lbl]{Sub: ltl.FThunk[lbl]{Handle: "a"}, Start: 0}
	verdict, violation := ltl.StopDefaultVerdict[lbl](r, 100)
	if verdict != ltl.VerdictFalse {
		t.Fatalf("unwitnessed F should default False, got %v", verdict)
	}
	ve, ok := violation.(ltl.VEventually[lbl])
	if !ok || ve.Reason != ltl.TestEnded {
		t.Fatalf("expected TestEnded violation, got %#v", violation)
	}
}

func TestStopDefaultNextIsUnknown(t *testing.T) {
	r := ltl.RNext[lbl]{Sub: ltl.FThunk[lbl]{Handle: "a"}}
	verdict, _ := ltl.StopDefaultVerdict[lbl](r, 100)
	if verdict != ltl.VerdictUnknown {
		t.Fatalf("Next residual should default Unknown, got %v", verdict)
	}
}

func TestStopDefaultImpliesVacuous(t *testing.T) {
	// Antecedent itself still residual but defaults False (e.g. an F that
	// never fired) => the implication defaults True regardless of
	// consequent.
	antecedent := ltl.ResidualValue[lbl](ltl.REventually[lbl]{Sub: ltl.FThunk[lbl]{Handle: "a"}, Start: 0})
	consequent := ltl.ResidualValue[lbl](ltl.RAlways[lbl]{Sub: ltl.FThunk[lbl]{Handle: "b"}, Start: 0})
	r := ltl.RImplies[lbl]{
		Antecedent:      ltl.FThunk[lbl]{Handle: "a"},
		AntecedentValue: antecedent,
		Consequent:      consequent,
	}
	verdict, _ := ltl.StopDefaultVerdict[lbl](r, 100)
	if verdict != ltl.VerdictTrue {
		t.Fatalf("vacuous antecedent default should force True, got %v", verdict)
	}
}

func TestStopDefaultImpliesPropagatesConsequent(t *testing.T) {
	antecedent := ltl.ResidualValue[lbl](ltl.RAlways[lbl]{Sub: ltl.FThunk[lbl]{Handle: "a"}, Start: 0})
	consequent := ltl.ResidualValue[lbl](ltl.REventually[lbl]{Sub: ltl.FThunk[lbl]{Handle: "b"}, Start: 0})
	r := ltl.RImplies[lbl]{
		Antecedent:      ltl.FThunk[lbl]{Handle: "a"},
		AntecedentValue: antecedent,
		Consequent:      consequent,
	}
	verdict, violation := ltl.StopDefaultVerdict[lbl](r, 100)
	if verdict != ltl.VerdictFalse {
		t.Fatalf("antecedent default True should propagate consequent default, got %v", verdict)
	}
	if _, ok := violation.(ltl.VEventually[lbl]); !ok {
		t.Fatalf("expected propagated Eventually violation, got %#v", violation)
	}
}
