package scripting

import (
	"fmt"

	"github.com/dop251/goja"

	"propmon/internal/actions"
	"propmon/internal/extractor"
	"propmon/internal/ltl"
)

// env is the Go-side state backing the built-in module surface installed
// into one goja.Runtime: the node table for chainable Formula objects, the
// extractor registry predicates read through, and the action generators a
// specification declares.
type env struct {
	vm         *goja.Runtime
	table      *nodeTable
	registry   *extractor.Registry
	handleSeq  uint64
	generators []registeredGenerator
}

type registeredGenerator struct {
	name string
	fn   goja.Callable
}

func newEnv(vm *goja.Runtime) *env {
	return &env{vm: vm, table: newNodeTable(), registry: extractor.NewRegistry()}
}

// install attaches the built-in module surface (extract/now/next/always/
// eventually/ActionGenerator) to the runtime's global object, per
// spec §6's "built-in module surface".
func (e *env) install() {
	vm := e.vm
	must(vm.Set("extract", e.jsExtract))
	must(vm.Set("now", e.jsThunkConstructor(thunkNow)))
	must(vm.Set("next", e.jsThunkConstructor(thunkNext)))
	must(vm.Set("always", e.jsThunkConstructor(thunkAlways)))
	must(vm.Set("eventually", e.jsThunkConstructor(thunkEventually)))
	must(vm.Set("ActionGenerator", e.jsActionGenerator))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

type thunkConstructorKind int

const (
	thunkNow thunkConstructorKind = iota
	thunkNext
	thunkAlways
	thunkEventually
)

// jsExtract implements extract(fn): registers fn's source text with the
// extractor registry and returns a JS object exposing a live .current
// slot, mutated later by UpdateFromSnapshots.
func (e *env) jsExtract(call goja.FunctionCall) goja.Value {
	fnVal := call.Argument(0)
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		panic(e.vm.NewTypeError("extract(fn): argument must be a function"))
	}
	source := fnVal.String()
	_ = fn // the function itself is not invoked by extract; its source is
	// registered so the host knows what to run against captured snapshots.
	obj := e.vm.NewObject()
	must(obj.Set("current", goja.Undefined()))
	id := e.registry.Register(source, obj)
	must(obj.Set("id", uint64(id)))
	return obj
}

// jsThunkConstructor builds the now/next/always/eventually family: each
// wraps a predicate closure as a ThunkHandle and constructs the matching
// Syntax combinator, deferring resolution to evaluation time.
func (e *env) jsThunkConstructor(kind thunkConstructorKind) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		fnVal := call.Argument(0)
		fn, ok := goja.AssertFunction(fnVal)
		if !ok {
			panic(e.vm.NewTypeError("predicate argument must be a function"))
		}
		e.handleSeq++
		handle := ThunkHandle{id: e.handleSeq, fn: fn, pretty: fnVal.String()}
		thunk := ltl.Thunk[ThunkHandle]{Handle: handle}

		var syn ltlSyntax
		switch kind {
		case thunkNow:
			syn = thunk
		case thunkNext:
			syn = ltl.Next[ThunkHandle]{Sub: thunk}
		case thunkAlways:
			syn = ltl.Always[ThunkHandle]{Sub: thunk}
		case thunkEventually:
			syn = ltl.Eventually[ThunkHandle]{Sub: thunk}
		}
		return e.wrapSyntax(syn)
	}
}

// wrapSyntax exposes a Go Syntax value to JS as a chainable object
// implementing .not()/.and()/.or()/.implies()/.within(), per spec §6.
func (e *env) wrapSyntax(syn ltlSyntax) *goja.Object {
	id := e.table.store(formulaNode{syntax: syn})
	obj := e.vm.NewObject()
	must(obj.Set("__node", id))

	must(obj.Set("not", func(goja.FunctionCall) goja.Value {
		return e.wrapSyntax(ltl.Not[ThunkHandle]{Sub: syn})
	}))
	must(obj.Set("and", func(call goja.FunctionCall) goja.Value {
		other := e.mustSyntax(call.Argument(0))
		return e.wrapSyntax(ltl.And[ThunkHandle]{Left: syn, Right: other})
	}))
	must(obj.Set("or", func(call goja.FunctionCall) goja.Value {
		other := e.mustSyntax(call.Argument(0))
		return e.wrapSyntax(ltl.Or[ThunkHandle]{Left: syn, Right: other})
	}))
	must(obj.Set("implies", func(call goja.FunctionCall) goja.Value {
		other := e.mustSyntax(call.Argument(0))
		return e.wrapSyntax(ltl.Implies[ThunkHandle]{Left: syn, Right: other})
	}))
	must(obj.Set("within", func(call goja.FunctionCall) goja.Value {
		return e.wrapSyntax(e.applyBound(syn, call))
	}))
	return obj
}

// applyBound attaches a .within(n, unit) bound to an Always or Eventually
// node; any other shape is a specification error, mirroring spec §4.5's
// "any other export kind is a fatal specification error" strictness.
func (e *env) applyBound(syn ltlSyntax, call goja.FunctionCall) ltlSyntax {
	n := call.Argument(0).ToInteger()
	unit := call.Argument(1).String()
	var ms uint64
	switch unit {
	case "seconds":
		ms = uint64(n) * 1000
	case "milliseconds", "":
		ms = uint64(n)
	default:
		panic(e.vm.NewTypeError(fmt.Sprintf("within: unknown unit %q", unit)))
	}
	bound := ltl.BoundMillis(ms)
	switch v := syn.(type) {
	case ltl.Always[ThunkHandle]:
		v.Bound = bound
		return v
	case ltl.Eventually[ThunkHandle]:
		v.Bound = bound
		return v
	default:
		panic(e.vm.NewTypeError("within() only applies to always()/eventually()"))
	}
}

// mustSyntax recovers the Go Syntax value backing a chainable JS Formula
// object, panicking with a specification error if the value was not
// produced by this runtime's builtins.
func (e *env) mustSyntax(v goja.Value) ltlSyntax {
	obj := v.ToObject(e.vm)
	idVal := obj.Get("__node")
	if idVal == nil {
		panic(e.vm.NewTypeError("expected a Formula value"))
	}
	node, ok := e.table.load(uint64(idVal.ToInteger()))
	if !ok {
		panic(e.vm.NewTypeError("unknown Formula value"))
	}
	return node.syntax
}

// jsActionGenerator implements the ActionGenerator constructor: new
// ActionGenerator(name, generateFn) registers generateFn to be invoked
// once per tick by the walker.
func (e *env) jsActionGenerator(call goja.ConstructorCall) *goja.Object {
	name := call.Argument(0).String()
	fn, ok := goja.AssertFunction(call.Argument(1))
	if !ok {
		panic(e.vm.NewTypeError("ActionGenerator(name, fn): fn must be a function"))
	}
	e.generators = append(e.generators, registeredGenerator{name: name, fn: fn})
	must(call.This.Set("name", name))
	must(call.This.Set("__isActionGenerator", true))
	return call.This
}

// runGenerators invokes every registered ActionGenerator once and collects
// its proposals, converting each returned plain object into an
// actions.Action.
func (e *env) runGenerators() ([]ActionProposal, error) {
	var out []ActionProposal
	for _, g := range e.generators {
		result, err := g.fn(goja.Undefined())
		if err != nil {
			return nil, fmt.Errorf("action generator %q: %w", g.name, err)
		}
		list := result.ToObject(e.vm)
		length := list.Get("length")
		if length == nil {
			continue
		}
		n := int(length.ToInteger())
		for i := 0; i < n; i++ {
			item := list.Get(fmt.Sprintf("%d", i))
			act, err := decodeAction(e.vm, item)
			if err != nil {
				return nil, fmt.Errorf("action generator %q: %w", g.name, err)
			}
			out = append(out, ActionProposal{Generator: g.name, Action: act})
		}
	}
	return out, nil
}

// decodeAction converts a plain JS object of the shape {type, ...fields}
// into one of the actions.Action variants, per spec §6's fixed variant
// list. Unknown types are a specification error.
func decodeAction(vm *goja.Runtime, v goja.Value) (actions.Action, error) {
	obj := v.ToObject(vm)
	kind := obj.Get("type")
	if kind == nil {
		return nil, fmt.Errorf("action missing 'type' field")
	}
	switch kind.String() {
	case "Back":
		return actions.Back{}, nil
	case "Reload":
		return actions.Reload{}, nil
	case "Click":
		return actions.Click{
			Name:    stringField(obj, "name"),
			Content: stringField(obj, "content"),
			Point: actions.Point{
				X: numberField(obj, "x"),
				Y: numberField(obj, "y"),
			},
		}, nil
	case "TypeText":
		return actions.TypeText{
			Text:    stringField(obj, "text"),
			DelayMS: uint64(numberField(obj, "delay_ms")),
		}, nil
	case "PressKey":
		return actions.PressKey{Code: uint8(numberField(obj, "code"))}, nil
	case "ScrollUp":
		return actions.ScrollUp{Origin: stringField(obj, "origin"), Distance: numberField(obj, "distance")}, nil
	case "ScrollDown":
		return actions.ScrollDown{Origin: stringField(obj, "origin"), Distance: numberField(obj, "distance")}, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", kind.String())
	}
}

func stringField(obj *goja.Object, name string) string {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) {
		return ""
	}
	return v.String()
}

func numberField(obj *goja.Object, name string) float64 {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) {
		return 0
	}
	return v.ToFloat()
}
