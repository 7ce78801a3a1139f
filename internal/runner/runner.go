// Package runner wires the reference host, the evaluator's Monitor driver,
// the random-walk action applier, the trace recorder, and the fact index
// into a single tick loop: the "run-trace" operation of the external
// interface, usable both from the CLI's direct mode and from the MCP tool
// surface.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"propmon/internal/actions"
	"propmon/internal/extractor"
	"propmon/internal/factindex"
	"propmon/internal/ltl"
	"propmon/internal/monitor"
	"propmon/internal/recorder"
	"propmon/internal/scripting"
	"propmon/internal/walker"
)

// Host is the subset of hostbrowser.Host the runner needs: a per-tick page
// snapshot and an applier for action proposals. Exposed as an interface so
// the tick loop can be driven by a fake host in tests.
type Host interface {
	Snapshot(ctx context.Context) ([]byte, time.Time, error)
	Apply(ctx context.Context, a actions.Action) error
}

// Runner owns every collaborator needed to drive one run of the host loop.
type Runner struct {
	Host    Host
	Monitor *monitor.Monitor
	Walker  *walker.Walker
	Trace   *recorder.Recorder
	Facts   *factindex.Store // optional; nil disables fact indexing
}

// Result summarizes one completed or truncated run.
type Result struct {
	Ticks      int
	Definite   bool
	Violations []scripting.PropertyValue
}

// Run drives the tick loop: snapshot, step the evaluator, record, propose
// and apply an action, repeat. It stops early once any property reaches a
// definite verdict, or after maxTicks ticks (0 means unbounded — the
// caller is expected to bound it via ctx instead).
func (r *Runner) Run(ctx context.Context, maxTicks int) (*Result, error) {
	extractors, err := r.Monitor.Extractors()
	if err != nil {
		return nil, fmt.Errorf("runner: list extractors: %w", err)
	}

	runID := uuid.NewString()
	if err := r.Trace.Start(runID); err != nil {
		return nil, fmt.Errorf("runner: start trace: %w", err)
	}
	defer r.Trace.Close()

	start := time.Now()
	for tick := 0; maxTicks <= 0 || tick < maxTicks; tick++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, takenAt, err := r.Host.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("runner: snapshot: %w", err)
		}
		t := ltl.Time(takenAt.Sub(start).Milliseconds())

		snapshots := make([]extractor.Snapshot, len(extractors))
		for i, e := range extractors {
			// The reference host captures one page-wide state blob per
			// tick; every extractor reads the same value and picks out
			// what its predicate needs from it.
			snapshots[i] = extractor.Snapshot{ID: e.ID, Value: raw}
		}

		values, err := r.Monitor.Tick(snapshots, t)
		if err != nil {
			return nil, fmt.Errorf("runner: tick %d: %w", tick, err)
		}
		if r.Facts != nil {
			if err := r.Facts.RecordAll(snapshots, int64(t)); err != nil {
				return nil, fmt.Errorf("runner: record facts: %w", err)
			}
		}
		r.Trace.LogTick(t, raw, values)

		if monitor.AnyDefinite(values) {
			return &Result{Ticks: tick + 1, Definite: true, Violations: falseValues(values)}, nil
		}

		proposals, err := r.Monitor.Actions()
		if err != nil {
			return nil, fmt.Errorf("runner: generate actions: %w", err)
		}
		if err := r.Walker.Step(ctx, r.Host, toWalkerProposals(proposals)); err != nil {
			return nil, fmt.Errorf("runner: apply action: %w", err)
		}
	}

	return &Result{Ticks: maxTicks}, nil
}

func falseValues(values []scripting.PropertyValue) []scripting.PropertyValue {
	out := make([]scripting.PropertyValue, 0, len(values))
	for _, v := range values {
		if v.Status == scripting.StatusFalse {
			out = append(out, v)
		}
	}
	return out
}

func toWalkerProposals(proposals []scripting.ActionProposal) []walker.Proposal {
	out := make([]walker.Proposal, len(proposals))
	for i, p := range proposals {
		out[i] = walker.Proposal{Generator: p.Generator, Action: p.Action}
	}
	return out
}
