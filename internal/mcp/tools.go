package mcp

import (
	"context"
	"fmt"

	"propmon/internal/factindex"
	"propmon/internal/hostbrowser"
	"propmon/internal/monitor"
	"propmon/internal/recorder"
	"propmon/internal/runner"
	"propmon/internal/walker"
)

// ListPropertiesTool reports every property exported by the loaded
// specification, the "Property list" operation of the external interface.
type ListPropertiesTool struct {
	monitor *monitor.Monitor
}

func (t *ListPropertiesTool) Name() string        { return "list-properties" }
func (t *ListPropertiesTool) Description() string { return "List the properties exported by the loaded specification." }
func (t *ListPropertiesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}
func (t *ListPropertiesTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	names, err := t.monitor.Properties()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"properties": names}, nil
}

// ListExtractorsTool reports every extractor registered by the loaded
// specification, the "Extractor list" operation of the external interface.
type ListExtractorsTool struct {
	monitor *monitor.Monitor
}

func (t *ListExtractorsTool) Name() string        { return "list-extractors" }
func (t *ListExtractorsTool) Description() string { return "List the extractors registered by the loaded specification." }
func (t *ListExtractorsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}
func (t *ListExtractorsTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	extractors, err := t.monitor.Extractors()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, len(extractors))
	for i, e := range extractors {
		out[i] = map[string]interface{}{"id": e.ID, "source": e.Source}
	}
	return map[string]interface{}{"extractors": out}, nil
}

// RunTraceTool launches the host loop against a fresh browser host for up
// to max_ticks ticks, or until a property reaches a definite verdict.
type RunTraceTool struct {
	monitor      *monitor.Monitor
	facts        *factindex.Store
	newHost      func(ctx context.Context) (*hostbrowser.Host, error)
	walkerSeed   int64
	traceDir     string
	maxFileBytes int64
}

func (t *RunTraceTool) Name() string { return "run-trace" }
func (t *RunTraceTool) Description() string {
	return `Drive the loaded specification against a live browser host for up to max_ticks ticks.

Stops early once any property reaches a definite verdict (True or False).

Returns: {ticks, definite, violations[]}`
}
func (t *RunTraceTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"max_ticks": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of ticks to run (default 100, 0 means unbounded).",
			},
		},
	}
}
func (t *RunTraceTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	maxTicks := 100
	if v, ok := args["max_ticks"].(float64); ok {
		maxTicks = int(v)
	}

	host, err := t.newHost(ctx)
	if err != nil {
		return nil, fmt.Errorf("run-trace: start host: %w", err)
	}
	defer host.Close()

	trace, err := recorder.NewRecorder(t.traceDir, t.maxFileBytes)
	if err != nil {
		return nil, fmt.Errorf("run-trace: start recorder: %w", err)
	}

	r := &runner.Runner{
		Host:    host,
		Monitor: t.monitor,
		Walker:  walker.New(t.walkerSeed),
		Trace:   trace,
		Facts:   t.facts,
	}

	result, err := r.Run(ctx, maxTicks)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"ticks":      result.Ticks,
		"definite":   result.Definite,
		"violations": result.Violations,
	}, nil
}

// QueryFactsTool runs an ad hoc Mangle query against the accumulated
// extractor fact index, independent of and without perturbing property
// evaluation.
type QueryFactsTool struct {
	facts *factindex.Store
}

func (t *QueryFactsTool) Name() string { return "query-facts" }
func (t *QueryFactsTool) Description() string {
	return `Run a Mangle query against the facts accumulated by previous runs.

The query's head atom names the bindings returned, e.g.
"extractor_value(Id, Value, TimeMs)." returns every recorded observation.

Returns: {results: [{Var: value, ...}, ...]}`
}
func (t *QueryFactsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "A single Mangle clause whose head is the query atom.",
			},
		},
		"required": []string{"query"},
	}
}
func (t *QueryFactsTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("query-facts: missing required argument %q", "query")
	}
	results, err := t.facts.Query(query)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"results": results}, nil
}
