// Package ltltest instantiates the ltl package's generic thunk type T
// over a small enumerated label, for use by the algebra's own tests and
// by other packages' tests that need a finite, order-independent
// "predicate universe" without spinning up the scripting runtime.
package ltltest

// Label is a finite enumerated stand-in for a scripting-runtime thunk
// handle.
type Label string

// World is a finite valuation of labels at a single tick: label -> truth.
// A label absent from the map is treated as false.
type World map[Label]bool

// Trace is a fixed sequence of Worlds, one per tick index; callers look up
// a tick's World with At and build their own resolver from it.
type Trace []World

// At returns the World for tick index i, or an empty World past the end
// of the trace (all labels false).
func (tr Trace) At(i int) World {
	if i < 0 || i >= len(tr) {
		return World{}
	}
	return tr[i]
}
