package scripting

import (
	"github.com/dop251/goja"
)

// installBundledModules installs the well-known bundled modules a
// specification may `require()`: "internal", "actions", "index", and
// "defaults", per spec §4.5's module loading step. "actions" exposes
// plain-object constructors matching the action variants decodeAction
// understands; "defaults" re-exports the global formula constructors for
// specifications that prefer `require("defaults")` over bare globals;
// "internal" and "index" are reserved names with no public surface today.
func installBundledModules(vm *goja.Runtime, e *env) {
	modules := map[string]func() goja.Value{
		"internal": func() goja.Value { return vm.NewObject() },
		"index":    func() goja.Value { return vm.NewObject() },
		"actions":  func() goja.Value { return actionsModule(vm) },
		"defaults": func() goja.Value { return defaultsModule(vm, e) },
	}

	must(vm.Set("require", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		factory, ok := modules[name]
		if !ok {
			panic(vm.NewTypeError("unknown built-in module " + name))
		}
		return factory()
	}))
}

func actionsModule(vm *goja.Runtime) goja.Value {
	mod := vm.NewObject()
	must(mod.Set("back", func(goja.FunctionCall) goja.Value {
		return actionLiteral(vm, "Back", nil)
	}))
	must(mod.Set("reload", func(goja.FunctionCall) goja.Value {
		return actionLiteral(vm, "Reload", nil)
	}))
	must(mod.Set("click", func(call goja.FunctionCall) goja.Value {
		return actionLiteral(vm, "Click", call.Argument(0))
	}))
	must(mod.Set("typeText", func(call goja.FunctionCall) goja.Value {
		return actionLiteral(vm, "TypeText", call.Argument(0))
	}))
	must(mod.Set("pressKey", func(call goja.FunctionCall) goja.Value {
		return actionLiteral(vm, "PressKey", call.Argument(0))
	}))
	must(mod.Set("scrollUp", func(call goja.FunctionCall) goja.Value {
		return actionLiteral(vm, "ScrollUp", call.Argument(0))
	}))
	must(mod.Set("scrollDown", func(call goja.FunctionCall) goja.Value {
		return actionLiteral(vm, "ScrollDown", call.Argument(0))
	}))
	return mod
}

// actionLiteral builds the plain {type, ...fields} object decodeAction
// expects, merging in whatever fields the caller supplied.
func actionLiteral(vm *goja.Runtime, kind string, fields goja.Value) *goja.Object {
	obj := vm.NewObject()
	must(obj.Set("type", kind))
	if fields == nil || goja.IsUndefined(fields) {
		return obj
	}
	src := fields.ToObject(vm)
	for _, k := range src.Keys() {
		must(obj.Set(k, src.Get(k)))
	}
	return obj
}

func defaultsModule(vm *goja.Runtime, e *env) goja.Value {
	mod := vm.NewObject()
	must(mod.Set("extract", e.jsExtract))
	must(mod.Set("now", e.jsThunkConstructor(thunkNow)))
	must(mod.Set("next", e.jsThunkConstructor(thunkNext)))
	must(mod.Set("always", e.jsThunkConstructor(thunkAlways)))
	must(mod.Set("eventually", e.jsThunkConstructor(thunkEventually)))
	return mod
}
