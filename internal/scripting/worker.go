// Package scripting runs one embedded ECMA-262 runtime (github.com/dop251/goja)
// on a single dedicated OS thread, exposing it to the rest of the program
// only through a command channel, per the "strictly single-threaded
// scripting runtime" requirement: no Go value tied to the runtime (a
// goja.Value, a ThunkHandle's callable) ever crosses to another goroutine.
package scripting

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dop251/goja"
	"github.com/evanw/esbuild/pkg/api"

	"propmon/internal/extractor"
	"propmon/internal/ltl"
)

// Worker owns one goja.Runtime exclusively on its own OS thread and
// answers GetProperties/GetExtractors/GetActionGenerators/Step commands
// sent over its command channel, strictly FIFO.
type Worker struct {
	commands chan command
	done     chan struct{}
}

// StartWorker compiles source (transpiling first if filenameHint indicates
// TypeScript/TSX) and starts the worker goroutine. It blocks until the
// specification has finished loading, surfacing any load error
// synchronously rather than deferring it to the first command.
func StartWorker(source, filenameHint string) (*Worker, error) {
	w := &Worker{
		commands: make(chan command),
		done:     make(chan struct{}),
	}

	loaded := make(chan error, 1)
	go w.run(source, filenameHint, loaded)

	if err := <-loaded; err != nil {
		return nil, err
	}
	return w, nil
}

// run is the worker's entire lifetime: it owns the OS thread, the
// goja.Runtime, and every handle derived from it.
func (w *Worker) run(source, filenameHint string, loaded chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)

	st, err := safeLoadSpecification(source, filenameHint)
	loaded <- err
	if err != nil {
		w.drainWithError(ErrWorkerGone)
		return
	}

	for cmd := range w.commands {
		w.dispatch(st, cmd)
	}
}

// safeLoadSpecification recovers any panic raised while compiling or
// evaluating the specification (a goja exception from malformed source, a
// builtin's type-check panic) and reports it as a plain load error instead
// of crashing the worker's OS thread before it ever answers a command.
func safeLoadSpecification(source, filenameHint string) (st *workerState, err error) {
	defer func() {
		if r := recover(); r != nil {
			st = nil
			err = fmt.Errorf("load specification: %v", r)
		}
	}()
	return loadSpecification(source, filenameHint)
}

// dispatch executes one command against state and replies exactly once. A
// panic anywhere inside runtime-side code (a goja exception, a programming
// error in a builtin) is converted into a WorkerGone condition: the
// current command receives the error, and every command received after
// this point is failed the same way without touching the runtime again,
// since a panicked goja.Runtime is not safe to keep driving.
func (w *Worker) dispatch(st *workerState, cmd command) {
	defer func() {
		if r := recover(); r != nil {
			cmd.reply <- commandResult{err: fmt.Errorf("%w: %v", ErrWorkerGone, r)}
			// The runtime is not safe to drive further after a panic; every
			// command still arriving gets the same verdict until the command
			// channel is eventually closed.
			w.drainWithError(ErrWorkerGone)
		}
	}()

	switch cmd.kind {
	case cmdGetProperties:
		cmd.reply <- commandResult{properties: st.propertyNames()}
	case cmdGetExtractors:
		cmd.reply <- commandResult{extractors: st.extractorList()}
	case cmdGetActionGenerators:
		names := make([]string, len(st.env.generators))
		for i, g := range st.env.generators {
			names[i] = g.name
		}
		cmd.reply <- commandResult{actionGenerators: names}
	case cmdGenerateActions:
		proposals, err := st.env.runGenerators()
		cmd.reply <- commandResult{actionProposals: proposals, err: err}
	case cmdStep:
		results, err := st.step(cmd.snapshots, cmd.time)
		cmd.reply <- commandResult{stepResults: results, err: err}
	}
}

// drainWithError responds to every command still arriving on the channel
// with err, until the channel is closed. It does not itself close the
// channel: the caller (Close) owns that.
func (w *Worker) drainWithError(err error) {
	for cmd := range w.commands {
		cmd.reply <- commandResult{err: err}
	}
}

func (w *Worker) send(cmd command) (commandResult, error) {
	select {
	case w.commands <- cmd:
	case <-w.done:
		return commandResult{}, ErrWorkerGone
	}
	select {
	case res := <-cmd.reply:
		return res, res.err
	case <-w.done:
		return commandResult{}, ErrWorkerGone
	}
}

// GetProperties returns the name of every exported Formula in the loaded
// specification.
func (w *Worker) GetProperties() ([]string, error) {
	res, err := w.send(newCommand(cmdGetProperties))
	return res.properties, err
}

// GetExtractors returns the id and source text of every registered
// extractor, for the host to know which extractors to run each tick.
func (w *Worker) GetExtractors() ([]ExtractorInfo, error) {
	res, err := w.send(newCommand(cmdGetExtractors))
	return res.extractors, err
}

// GetActionGenerators returns the name of every declared ActionGenerator.
func (w *Worker) GetActionGenerators() ([]string, error) {
	res, err := w.send(newCommand(cmdGetActionGenerators))
	return res.actionGenerators, err
}

// GenerateActions invokes every declared ActionGenerator once and returns
// their proposals, for the walker to sample from.
func (w *Worker) GenerateActions() ([]ActionProposal, error) {
	res, err := w.send(newCommand(cmdGenerateActions))
	return res.actionProposals, err
}

// Step advances every property one tick, after writing snapshots into
// their extractors' current slots.
func (w *Worker) Step(snapshots []extractor.Snapshot, t ltl.Time) ([]PropertyValue, error) {
	cmd := newCommand(cmdStep)
	cmd.snapshots = snapshots
	cmd.time = t
	res, err := w.send(cmd)
	return res.stepResults, err
}

// Close shuts the worker down: closing the command channel causes the
// worker to exit at its next receive, per spec's "a dropped command
// channel shuts the worker down at the next receive."
func (w *Worker) Close() {
	select {
	case <-w.done:
		return
	default:
	}
	close(w.commands)
	<-w.done
}

// workerState is everything loadSpecification produces: the env (builtins,
// node table, extractor registry, action generators) plus the decoded
// property states.
type workerState struct {
	env        *env
	properties map[string]*ltl.PropertyState[ThunkHandle]
	order      []string
}

func (st *workerState) propertyNames() []string {
	out := make([]string, len(st.order))
	copy(out, st.order)
	return out
}

func (st *workerState) extractorList() []ExtractorInfo {
	fns := st.env.registry.Functions()
	out := make([]ExtractorInfo, 0, len(fns))
	for id, src := range fns {
		out = append(out, ExtractorInfo{ID: id, Source: src})
	}
	return out
}

func (st *workerState) step(snapshots []extractor.Snapshot, t ltl.Time) ([]PropertyValue, error) {
	_ = st.env.registry.UpdateFromSnapshots(snapshots, st.applySnapshot)
	// UpdateFromSnapshots' return is warnings, not fatal. The registry also
	// keeps them (Registry.Warnings()), but no worker command exposes them.

	out := make([]PropertyValue, 0, len(st.order))
	for _, name := range st.order {
		p := st.properties[name]
		v, err := p.Advance(t, st.resolveThunk)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		out = append(out, withPrettyFunctions(name, v))
	}
	return out, nil
}

func (st *workerState) applySnapshot(handle extractor.Handle, value []byte) error {
	obj, ok := handle.(*goja.Object)
	if !ok {
		return fmt.Errorf("extractor handle is not a runtime object")
	}
	var decoded interface{}
	if err := json.Unmarshal(value, &decoded); err != nil {
		return fmt.Errorf("decode snapshot JSON: %w", err)
	}
	return obj.Set("current", st.env.vm.ToValue(decoded))
}

// resolveThunk is the ThunkResolver passed to ltl.Evaluate/ltl.Step: it
// calls the predicate closure captured in h, owning negation per the
// contract in spec §4.2.
func (st *workerState) resolveThunk(h ThunkHandle, negated bool) (ltlFormula, error) {
	res, err := h.fn(goja.Undefined())
	if err != nil {
		return nil, fmt.Errorf("predicate %q: %w", h.pretty, err)
	}
	if b, ok := res.Export().(bool); ok {
		if negated {
			b = !b
		}
		if b {
			return ltl.FTrue{PrettyText: h.pretty}, nil
		}
		return ltl.FFalse{PrettyText: h.pretty}, nil
	}
	syn := st.env.mustSyntax(res)
	if negated {
		syn = ltl.Not[ThunkHandle]{Sub: syn}
	}
	return ltl.NNF[ThunkHandle](syn), nil
}

// loadSpecification transpiles (if needed), compiles, and evaluates source,
// then walks its exports per spec §4.5.
func loadSpecification(source, filenameHint string) (*workerState, error) {
	js, err := maybeTranspile(source, filenameHint)
	if err != nil {
		return nil, fmt.Errorf("transpile %q: %w", filenameHint, err)
	}

	vm := goja.New()
	e := newEnv(vm)
	e.install()
	installBundledModules(vm, e)

	wrapped := "(function(module, exports, require) {\n" + js + "\nreturn module.exports;\n})(module, module.exports, require)"
	must(vm.Set("module", vm.NewObject()))
	moduleObj := vm.Get("module").ToObject(vm)
	must(moduleObj.Set("exports", vm.NewObject()))

	exportsVal, err := vm.RunString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("evaluate specification: %w", err)
	}

	st := &workerState{env: e, properties: make(map[string]*ltl.PropertyState[ThunkHandle])}
	exports := exportsVal.ToObject(vm)
	for _, key := range exports.Keys() {
		if strings.HasPrefix(key, "__") {
			continue // well-known internal markers, not specification exports
		}
		val := exports.Get(key)
		obj := val.ToObject(vm)
		if obj == nil {
			return nil, fmt.Errorf("export %q: expected an object, got %s", key, val)
		}
		switch {
		case obj.Get("__node") != nil:
			node, ok := e.table.load(uint64(obj.Get("__node").ToInteger()))
			if !ok {
				return nil, fmt.Errorf("export %q: dangling Formula reference", key)
			}
			st.properties[key] = ltl.NewPropertyState[ThunkHandle](key, ltl.NNF[ThunkHandle](node.syntax))
			st.order = append(st.order, key)
		case obj.Get("__isActionGenerator") != nil:
			// Already registered in e.generators at construction time.
		default:
			return nil, fmt.Errorf("export %q: not a Formula or ActionGenerator", key)
		}
	}
	return st, nil
}

// maybeTranspile runs esbuild's TypeScript/TSX transform when the filename
// hint indicates a non-JS source file, per spec's "non-JS source files
// referenced by import are transpiled before parsing; a transpilation
// failure is a specification error."
func maybeTranspile(source, filenameHint string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filenameHint))
	var loader api.Loader
	switch ext {
	case ".ts":
		loader = api.LoaderTS
	case ".tsx":
		loader = api.LoaderTSX
	case ".jsx":
		loader = api.LoaderJSX
	default:
		return source, nil
	}
	result := api.Transform(source, api.TransformOptions{
		Loader: loader,
		Target: api.ES2020,
	})
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("%s", result.Errors[0].Text)
	}
	return string(result.Code), nil
}
