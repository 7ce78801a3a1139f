package factindex

import (
	"bytes"
	"fmt"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

// QueryResult is a binding of the query's variables to the values an
// accumulated extractor_value fact, or a fact derived from one, supplied
// for them.
type QueryResult map[string]interface{}

// extractorValueDecl tells Mangle's analyzer that extractor_value/3 is an
// extensional predicate supplied by Record/RecordAll, so a query rule's
// body can reference it without declaring it itself.
var extractorValueDecl = ast.Decl{
	DeclaredAtom: ast.Atom{
		Predicate: ast.PredicateSym{Symbol: extractorValuePredicate, Arity: 3},
		Args: []ast.BaseTerm{
			ast.Variable{Symbol: "Id"},
			ast.Variable{Symbol: "Value"},
			ast.Variable{Symbol: "TimeMs"},
		},
	},
}

// Query parses mangleSource as a single Mangle clause. A bare fact head
// (e.g. "extractor_value(7, Value, 1000)") is looked up directly. A rule
// head with a body (e.g. "answer(V) :- extractor_value(7, V, 1000)") is
// first derived via one-shot evaluation against the facts accumulated so
// far, the same analyze-then-evaluate path the teacher's schema/rule
// engine uses, so a caller can express joins and filters over extractor
// history rather than only ground-fact lookups. Anything the evaluation
// derives is retracted again once read back, so two queries that happen to
// reuse the same head predicate never see each other's bindings.
func (s *Store) Query(mangleSource string) ([]QueryResult, error) {
	unit, err := parse.Unit(bytes.NewReader([]byte(mangleSource)))
	if err != nil {
		return nil, fmt.Errorf("factindex: parse query: %w", err)
	}
	if len(unit.Clauses) == 0 {
		return nil, fmt.Errorf("factindex: no query found")
	}
	clause := unit.Clauses[0]
	queryAtom := clause.Head

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(clause.Premises) > 0 {
		derived, err := s.evaluateRule(unit, queryAtom)
		if err != nil {
			return nil, err
		}
		defer s.retract(derived)
	}

	return s.readBindings(queryAtom)
}

// evaluateRule analyzes unit against extractorValueDecl and runs Mangle's
// semi-naive evaluator so queryAtom's predicate gains whatever facts the
// rule derives, returning exactly the atoms it added.
func (s *Store) evaluateRule(unit parse.SourceUnit, queryAtom ast.Atom) ([]ast.Atom, error) {
	extraDecls := map[ast.PredicateSym]ast.Decl{
		extractorValueDecl.DeclaredAtom.Predicate: extractorValueDecl,
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, extraDecls)
	if err != nil {
		return nil, fmt.Errorf("factindex: analyze query rule: %w", err)
	}

	before := map[ast.Atom]bool{}
	_ = s.facts.GetFacts(queryAtom, func(a ast.Atom) error {
		before[a] = true
		return nil
	})

	if err := engine.EvalProgram(programInfo, s.facts); err != nil {
		return nil, fmt.Errorf("factindex: evaluate query rule: %w", err)
	}

	var added []ast.Atom
	_ = s.facts.GetFacts(queryAtom, func(a ast.Atom) error {
		if !before[a] {
			added = append(added, a)
		}
		return nil
	})
	return added, nil
}

// retract drops every atom a one-off rule evaluation derived, when the
// underlying store supports removal. SimpleInMemoryStore does; a store that
// doesn't just leaks the derived rows for the life of the process, which is
// no worse than the ground-fact-only behavior this replaces.
func (s *Store) retract(atoms []ast.Atom) {
	remover, ok := s.facts.(factstore.FactStoreWithRemove)
	if !ok {
		return
	}
	for _, a := range atoms {
		remover.Remove(a)
	}
}

// readBindings collects every fact matching queryAtom's predicate and arity
// and binds queryAtom's variable positions against each match.
func (s *Store) readBindings(queryAtom ast.Atom) ([]QueryResult, error) {
	results := make([]QueryResult, 0)
	err := s.facts.GetFacts(queryAtom, func(atom ast.Atom) error {
		result := make(QueryResult)
		for i, arg := range queryAtom.Args {
			if i >= len(atom.Args) {
				break
			}
			if varArg, ok := arg.(ast.Variable); ok {
				result[varArg.Symbol] = convertConstant(atom.Args[i])
			}
		}
		results = append(results, result)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("factindex: query execution: %w", err)
	}
	return results, nil
}

// convertConstant converts a Mangle term back to a plain Go value, the
// reverse of the ast.Number/ast.String construction Record performs.
func convertConstant(c ast.BaseTerm) interface{} {
	if c == nil {
		return nil
	}
	switch term := c.(type) {
	case ast.Constant:
		switch term.Type {
		case ast.StringType:
			val, _ := term.StringValue()
			return val
		case ast.NumberType:
			return term.NumberValue
		case ast.Float64Type:
			if val, err := term.Float64Value(); err == nil {
				return val
			}
		}
		return term.String()
	case ast.Variable:
		return term.Symbol
	default:
		return fmt.Sprintf("%v", c)
	}
}
