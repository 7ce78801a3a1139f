package ltl

import "fmt"

// Render pretty-prints a Violation for human consumption. It uses only
// the Pretty strings captured at construction time and the Formula.Pretty
// method; it never re-invokes a thunk.
func Render[T any](v Violation[T]) string {
	switch r := v.(type) {
	case VFalse[T]:
		return "!(" + r.Pretty + ")"

	case VAnd[T]:
		return Render[T](r.Left) + "\n\nand\n\n" + Render[T](r.Right)

	case VOr[T]:
		return Render[T](r.Left) + " or " + Render[T](r.Right)

	case VImplies[T]:
		return Render[T](r.Consequent) + " since " + r.Antecedent.Pretty()

	case VEventually[T]:
		switch r.Reason {
		case TimedOut:
			return fmt.Sprintf("timed out at %dms: %s", r.At.Millis(), r.Subformula.Pretty())
		default:
			return "failed at test end: " + r.Subformula.Pretty()
		}

	case VAlways[T]:
		return fmt.Sprintf(
			"as of %dms, it should always be the case that\n\n%s\n\nbut at %dms\n\n%s",
			r.Start.Millis(), r.Subformula.Pretty(), r.At.Millis(), Render[T](r.Inner),
		)

	default:
		panic("ltl: unknown Violation variant")
	}
}
