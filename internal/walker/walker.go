// Package walker drives the random walk of user-like actions described for
// the reference host: each tick it asks the scripting runtime's declared
// ActionGenerators for proposals and applies one, uniformly sampled, to the
// live page.
package walker

import (
	"context"
	"fmt"
	"math/rand"

	"propmon/internal/actions"
)

// Applier performs one action against the live page.
type Applier interface {
	Apply(ctx context.Context, a actions.Action) error
}

// Walker samples one action proposal per tick from rng and hands it to an
// Applier.
type Walker struct {
	rng *rand.Rand
}

// New returns a Walker seeded with seed; seed 0 asks Go's default source,
// which is fine for a non-reproducible local run but callers doing
// regression hunting should pass a fixed, logged seed.
func New(seed int64) *Walker {
	src := rand.NewSource(seed)
	if seed == 0 {
		src = rand.NewSource(rand.Int63())
	}
	return &Walker{rng: rand.New(src)}
}

// Proposal is the action-generator output the walker samples from. It is
// the public mirror of scripting.ActionProposal — callers pass their
// []scripting.ActionProposal converted to []walker.Proposal, keeping this
// package free of a dependency on the scripting runtime's internals.
type Proposal struct {
	Generator string
	Action    actions.Action
}

// Step samples one proposal uniformly from proposals and applies it. It is
// a no-op returning nil if proposals is empty, since "no generator proposed
// anything this tick" is a normal, expected outcome.
func (w *Walker) Step(ctx context.Context, applier Applier, proposals []Proposal) error {
	if len(proposals) == 0 {
		return nil
	}
	chosen := proposals[w.rng.Intn(len(proposals))]
	if err := applier.Apply(ctx, chosen.Action); err != nil {
		return fmt.Errorf("walker: apply %s proposal: %w", chosen.Generator, err)
	}
	return nil
}
