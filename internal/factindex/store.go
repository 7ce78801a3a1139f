// Package factindex is a secondary, queryable index over the extractor
// values an observed trace produced. It sits deliberately outside the LTL
// evaluator and can never affect a property's Value — it exists purely to
// answer "show me the facts" after the fact, the way the teacher's Mangle
// engine let an agent query buffered DOM/network facts.
package factindex

import (
	"fmt"
	"sync"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"

	"propmon/internal/extractor"
)

// extractorValuePredicate is the fixed nullary-ish predicate every
// extractor snapshot is asserted under: extractor_value(id, json, time_ms).
const extractorValuePredicate = "extractor_value"

// Store accumulates extractor_value facts into a Mangle in-memory fact
// store, one per (extractor id, tick) observation.
type Store struct {
	mu    sync.Mutex
	facts factstore.FactStore
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{facts: factstore.NewSimpleInMemoryStore()}
}

// Record asserts one extractor's snapshot value at timeMillis as a fact,
// independent of and in addition to whatever the evaluator does with it.
func (s *Store) Record(id extractor.ID, value []byte, timeMillis int64) error {
	atom := ast.Atom{
		Predicate: ast.PredicateSym{Symbol: extractorValuePredicate, Arity: 3},
		Args: []ast.BaseTerm{
			ast.Number(int64(id)),
			ast.String(string(value)),
			ast.Number(timeMillis),
		},
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts.Add(atom)
	return nil
}

// RecordAll records every snapshot in a single tick.
func (s *Store) RecordAll(snapshots []extractor.Snapshot, timeMillis int64) error {
	for _, snap := range snapshots {
		if err := s.Record(snap.ID, snap.Value, timeMillis); err != nil {
			return err
		}
	}
	return nil
}
