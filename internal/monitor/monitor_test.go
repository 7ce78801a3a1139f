package monitor_test

import (
	"errors"
	"testing"

	"propmon/internal/extractor"
	"propmon/internal/ltl"
	"propmon/internal/monitor"
	"propmon/internal/scripting"
)

const boundedSpec = `
const hit = extract(() => false);
exports.eventuallyHit = eventually(() => hit.current === true).within(3, "milliseconds");
`

func TestMonitorTickReportsViolation(t *testing.T) {
	m, err := monitor.New(boundedSpec, "spec.js", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	extractors, err := m.Extractors()
	if err != nil {
		t.Fatalf("Extractors: %v", err)
	}
	id := extractors[0].ID

	var last []scripting.PropertyValue
	for i := 0; i <= 4; i++ {
		last, err = m.Tick([]extractor.Snapshot{{ID: id, Value: []byte(`false`)}}, ltl.Time(i))
		if err != nil {
			t.Fatalf("Tick %d: %v", i, err)
		}
		if monitor.AnyDefinite(last) {
			break
		}
	}
	if len(last) != 1 || last[0].Status != scripting.StatusFalse {
		t.Fatalf("expected a timeout False verdict, got %#v", last)
	}
}

func TestMonitorCloseThenTickReturnsWorkerGone(t *testing.T) {
	m, err := monitor.New(boundedSpec, "spec.js", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.Close()

	_, err = m.Tick(nil, 0)
	if !errors.Is(err, scripting.ErrWorkerGone) {
		t.Fatalf("expected ErrWorkerGone, got %v", err)
	}
}
