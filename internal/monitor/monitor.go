// Package monitor drives one scripting.Worker through a run: issuing Step
// commands strictly sequentially from the host's tick loop, so exactly one
// command is ever in flight, and reporting each property's terminal
// verdict once reached.
package monitor

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"propmon/internal/extractor"
	"propmon/internal/ltl"
	"propmon/internal/scripting"
)

// Monitor owns one scripting.Worker and the run's accumulated tick count.
// It is not safe for concurrent use by more than one caller, matching the
// single-in-flight-command contract of the worker it drives.
type Monitor struct {
	worker *scripting.Worker
	log    *zap.Logger
	ticks  int
}

// New starts a worker for source and wraps it in a Monitor.
func New(source, filenameHint string, log *zap.Logger) (*Monitor, error) {
	w, err := scripting.StartWorker(source, filenameHint)
	if err != nil {
		return nil, fmt.Errorf("monitor: start worker: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{worker: w, log: log}, nil
}

// Properties lists every property exported by the loaded specification.
func (m *Monitor) Properties() ([]string, error) {
	return m.worker.GetProperties()
}

// Extractors lists every extractor registered by the loaded specification.
func (m *Monitor) Extractors() ([]scripting.ExtractorInfo, error) {
	return m.worker.GetExtractors()
}

// Tick applies one snapshot set at time t and returns every property's
// value after the step. A tick after Close returns scripting.ErrWorkerGone.
func (m *Monitor) Tick(snapshots []extractor.Snapshot, t ltl.Time) ([]scripting.PropertyValue, error) {
	values, err := m.worker.Step(snapshots, t)
	if err != nil {
		if errors.Is(err, scripting.ErrWorkerGone) {
			m.log.Error("scripting worker is gone", zap.Int("tick", m.ticks))
		}
		return nil, err
	}
	m.ticks++
	for _, v := range values {
		if v.Status == scripting.StatusFalse {
			m.log.Info("property violated",
				zap.String("property", v.Name),
				zap.Int("tick", m.ticks),
				zap.String("violation", ltl.Render[string](v.Violation)),
			)
		}
	}
	return values, nil
}

// Actions invokes the specification's declared action generators once and
// returns all of their proposals for the walker to sample from; the result
// is empty if none are declared or none proposed anything this tick.
func (m *Monitor) Actions() ([]scripting.ActionProposal, error) {
	return m.worker.GenerateActions()
}

// AnyDefinite reports whether any property in values reached a definite
// (non-residual) verdict, the signal a host loop uses to decide whether to
// keep ticking.
func AnyDefinite(values []scripting.PropertyValue) bool {
	for _, v := range values {
		if v.Status != scripting.StatusResidual {
			return true
		}
	}
	return false
}

// AllTrue reports whether every property is currently True. A caller
// driving a fixed-length run uses this to distinguish "nothing ever
// decided" from "everything held."
func AllTrue(values []scripting.PropertyValue) bool {
	for _, v := range values {
		if v.Status != scripting.StatusTrue {
			return false
		}
	}
	return true
}

// Close releases the underlying worker.
func (m *Monitor) Close() {
	m.worker.Close()
}
