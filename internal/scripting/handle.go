package scripting

import "github.com/dop251/goja"

// ThunkHandle is the production instantiation of ltl.Syntax[T]/Formula[T]'s
// type parameter T: a reference to a user-authored JavaScript predicate
// closure, plus the source text captured at registration time for
// rendering. It is only ever dereferenced on the worker's own goroutine.
type ThunkHandle struct {
	id     uint64
	fn     goja.Callable
	pretty string
}

// formulaNode is the Go-side backing value for a Formula/Syntax object
// exposed to the specification as a chainable `.and()/.or()/.implies()`
// value. JS code never sees this struct directly; it sees a goja.Object
// whose hidden id resolves back into the node table below.
type formulaNode struct {
	syntax ltlSyntax
}

// nodeTable assigns stable integer ids to formulaNode values so they can be
// attached to goja.Object instances as a plain numeric property without
// leaking a Go pointer into JS-controlled memory.
type nodeTable struct {
	next  uint64
	nodes map[uint64]formulaNode
}

func newNodeTable() *nodeTable {
	return &nodeTable{nodes: make(map[uint64]formulaNode)}
}

func (t *nodeTable) store(n formulaNode) uint64 {
	t.next++
	id := t.next
	t.nodes[id] = n
	return id
}

func (t *nodeTable) load(id uint64) (formulaNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}
