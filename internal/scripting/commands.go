package scripting

import (
	"errors"

	"propmon/internal/extractor"
	"propmon/internal/ltl"
)

// ErrWorkerGone is returned by every Worker method once the worker's
// command channel has been closed or the runtime goroutine has panicked.
// Callers check it with errors.Is, mirroring the teacher's own
// errors.Is(startErr, context.Canceled) pattern.
var ErrWorkerGone = errors.New("scripting: worker is gone")

type commandKind int

const (
	cmdGetProperties commandKind = iota
	cmdGetExtractors
	cmdGetActionGenerators
	cmdGenerateActions
	cmdStep
)

// command bundles a reply channel for its response, per the worker
// contract: the worker blocking-receives a command, dispatches it
// synchronously, and blocking-sends exactly one reply.
type command struct {
	kind      commandKind
	snapshots []extractor.Snapshot
	time      ltl.Time
	reply     chan commandResult
}

type commandResult struct {
	properties       []string
	extractors       []ExtractorInfo
	actionGenerators []string
	actionProposals  []ActionProposal
	stepResults      []PropertyValue
	err              error
}

func newCommand(kind commandKind) command {
	return command{kind: kind, reply: make(chan commandResult, 1)}
}
