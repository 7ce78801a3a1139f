package ltl

// NNF normalizes a user-facing Syntax tree into Negation Normal Form,
// pushing every Not to the leaves per the table in the specification:
// Pure/Thunk become FFalse/FTrue/FThunk, double negation collapses,
// De Morgan's laws distribute Not over And/Or/Implies, and Next/Always/
// Eventually absorb a leading Not via their respective dualities
// (Not(Always) -> Eventually(Not), Not(Eventually) -> Always(Not),
// Not(Next) -> Next(Not)).
func NNF[T any](s Syntax[T]) Formula[T] {
	return nnf[T](s, false)
}

// nnf walks s, applying the given pending negation.
func nnf[T any](s Syntax[T], negate bool) Formula[T] {
	switch v := s.(type) {
	case Pure:
		truth := v.Value
		if negate {
			truth = !truth
		}
		if truth {
			return FTrue{PrettyText: v.Pretty}
		}
		return FFalse{PrettyText: v.Pretty}

	case Thunk[T]:
		return FThunk[T]{Handle: v.Handle, Negated: negate}

	case Not[T]:
		return nnf[T](v.Sub, !negate)

	case And[T]:
		if negate {
			// Not(And(a,b)) -> Or(Not a, Not b)
			return FOr[T]{Left: nnf[T](v.Left, true), Right: nnf[T](v.Right, true)}
		}
		return FAnd[T]{Left: nnf[T](v.Left, false), Right: nnf[T](v.Right, false)}

	case Or[T]:
		if negate {
			// Not(Or(a,b)) -> And(Not a, Not b)
			return FAnd[T]{Left: nnf[T](v.Left, true), Right: nnf[T](v.Right, true)}
		}
		return FOr[T]{Left: nnf[T](v.Left, false), Right: nnf[T](v.Right, false)}

	case Implies[T]:
		if negate {
			// Not(Implies(a,b)) -> And(a, Not b)
			return FAnd[T]{Left: nnf[T](v.Left, false), Right: nnf[T](v.Right, true)}
		}
		return FImplies[T]{Left: nnf[T](v.Left, false), Right: nnf[T](v.Right, false)}

	case Next[T]:
		// Not(Next(f)) -> Next(Not f); structural otherwise.
		return FNext[T]{Sub: nnf[T](v.Sub, negate)}

	case Always[T]:
		if negate {
			// Not(Always(f, d)) -> Eventually(Not f, d)
			return FEventually[T]{Sub: nnf[T](v.Sub, true), Bound: v.Bound}
		}
		return FAlways[T]{Sub: nnf[T](v.Sub, false), Bound: v.Bound}

	case Eventually[T]:
		if negate {
			// Not(Eventually(f, d)) -> Always(Not f, d)
			return FAlways[T]{Sub: nnf[T](v.Sub, true), Bound: v.Bound}
		}
		return FEventually[T]{Sub: nnf[T](v.Sub, false), Bound: v.Bound}

	default:
		panic("ltl: unknown Syntax variant")
	}
}
