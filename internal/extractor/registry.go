// Package extractor bridges the host, which produces JSON snapshots of
// external state, with the scripting runtime, where user predicates read
// "current" values. Extractors are identified by a stable hash of their
// source text rather than by name or position, so adding or removing a
// predicate never disturbs the identity of the others.
package extractor

import (
	"fmt"
	"hash/fnv"
	"sync"

	"go.uber.org/multierr"
)

// ID is a stable 64-bit identity derived from an extractor's source text.
type ID uint64

// HashSource computes the identity of an extractor from its source bytes
// using FNV-1a 64-bit. FNV-1a was chosen over a keyed hash like SipHash
// because the identity only needs to resist accidental collisions between
// independently authored predicates within one specification, not an
// adversary; FNV-1a also needs no distributed seed, so the same source text
// hashes to the same id across processes and across runs.
func HashSource(source string) ID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(source))
	return ID(h.Sum64())
}

// Handle is the runtime-side counterpart of a registered extractor: the
// opaque value the scripting worker uses to write a new snapshot into the
// runtime's "current" slot for this extractor. It is never inspected by
// this package.
type Handle interface{}

// entry is the registry's bookkeeping for one extractor.
type entry struct {
	source string
	handle Handle
}

// Registry tracks every extractor registered by a loaded specification and
// the most recent warnings raised while applying host snapshots.
type Registry struct {
	mu       sync.Mutex
	entries  map[ID]entry
	warnings error
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[ID]entry)}
}

// Register extracts the identity of source and stores the mapping from
// that identity to the runtime handle. Registering the same source text
// twice is idempotent: the later handle replaces the earlier one, matching
// a specification being reloaded against the same runtime.
func (r *Registry) Register(source string, handle Handle) ID {
	id := HashSource(source)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = entry{source: source, handle: handle}
	return id
}

// Functions returns the id -> source map the host needs to know which
// extractors to run against each captured state.
func (r *Registry) Functions() map[ID]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[ID]string, len(r.entries))
	for id, e := range r.entries {
		out[id] = e.source
	}
	return out
}

// Handle returns the runtime handle registered for id, if any.
func (r *Registry) Handle(id ID) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.handle, true
}

// Snapshot is one extractor's JSON-encoded value observed at a tick.
type Snapshot struct {
	ID    ID
	Value []byte
}

// Apply is the sink a caller uses to actually write a snapshot value into
// the runtime-side extractor's current slot. The registry does not know
// how to talk to the runtime; it only owns identity and warning
// accumulation.
type Apply func(handle Handle, value []byte) error

// UpdateFromSnapshots writes each snapshot into its extractor's current
// slot via apply. An id with no registered extractor is a non-fatal
// warning, accumulated rather than aborting the rest of the tick, so one
// stale or renamed extractor id does not blind every other predicate for
// that tick.
func (r *Registry) UpdateFromSnapshots(snapshots []Snapshot, apply Apply) error {
	var warnings error
	for _, s := range snapshots {
		handle, ok := r.Handle(s.ID)
		if !ok {
			warnings = multierr.Append(warnings, fmt.Errorf("extractor: unregistered id %d in snapshot", s.ID))
			continue
		}
		if err := apply(handle, s.Value); err != nil {
			warnings = multierr.Append(warnings, fmt.Errorf("extractor %d: apply snapshot: %w", s.ID, err))
		}
	}
	r.mu.Lock()
	r.warnings = multierr.Append(r.warnings, warnings)
	r.mu.Unlock()
	return warnings
}

// Warnings returns every non-fatal warning accumulated across all calls to
// UpdateFromSnapshots since the Registry was created or last drained with
// Reset.
func (r *Registry) Warnings() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return multierr.Errors(r.warnings)
}

// Reset clears the accumulated warnings without touching registered
// extractors.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = nil
}
