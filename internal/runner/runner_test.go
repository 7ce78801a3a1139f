package runner_test

import (
	"context"
	"testing"
	"time"

	"propmon/internal/actions"
	"propmon/internal/monitor"
	"propmon/internal/recorder"
	"propmon/internal/runner"
	"propmon/internal/walker"
)

type fakeHost struct {
	values  []string
	applied []actions.Action
	taken   int
}

// Snapshot stamps each snapshot 2ms after the previous one, so tick times
// advance through a bounded property's deadline however fast the loop runs.
func (h *fakeHost) Snapshot(context.Context) ([]byte, time.Time, error) {
	v := h.values[0]
	h.values = h.values[1:]
	h.taken++
	return []byte(v), time.Now().Add(time.Duration(h.taken) * 2 * time.Millisecond), nil
}

func (h *fakeHost) Apply(_ context.Context, a actions.Action) error {
	h.applied = append(h.applied, a)
	return nil
}

const boundedSpec = `
const hit = extract(() => false);
exports.eventuallyHit = eventually(() => hit.current === true).within(3, "milliseconds");
`

func TestRunStopsOnDefiniteVerdict(t *testing.T) {
	m, err := monitor.New(boundedSpec, "spec.js", nil)
	if err != nil {
		t.Fatalf("monitor.New: %v", err)
	}
	defer m.Close()

	rec, err := recorder.NewRecorder(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	host := &fakeHost{values: []string{"false", "false", "false", "false", "false", "false"}}

	r := &runner.Runner{
		Host:    host,
		Monitor: m,
		Walker:  walker.New(1),
		Trace:   rec,
	}

	result, err := r.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Definite {
		t.Fatalf("expected a definite verdict, got %#v", result)
	}
	if len(result.Violations) != 1 {
		t.Fatalf("expected exactly one violated property, got %#v", result.Violations)
	}
}

const clickWalkerSpec = `
exports.clicker = new ActionGenerator("clicker", () => {
	const a = require("actions");
	return [a.click({ name: "submit", x: 1, y: 2 })];
});
exports.trivial = always(() => true);
`

func TestRunAppliesProposedActionsUntilTicksExhausted(t *testing.T) {
	m, err := monitor.New(clickWalkerSpec, "spec.js", nil)
	if err != nil {
		t.Fatalf("monitor.New: %v", err)
	}
	defer m.Close()

	rec, err := recorder.NewRecorder(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	host := &fakeHost{values: []string{"1", "2", "3"}}
	r := &runner.Runner{
		Host:    host,
		Monitor: m,
		Walker:  walker.New(1),
		Trace:   rec,
	}

	result, err := r.Run(context.Background(), 3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Ticks != 3 {
		t.Fatalf("expected 3 ticks, got %d", result.Ticks)
	}
	if len(host.applied) != 3 {
		t.Fatalf("expected one applied action per tick, got %d", len(host.applied))
	}
}
