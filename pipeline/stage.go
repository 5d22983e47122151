package pipeline

import (
	"context"

	"github.com/paddockhq/paddock/types"
)

// Stage is one discrete, named transformation step in a pipeline.
//
// The run loop drives each stage through the same protocol: ShouldSkip,
// then ValidatePrerequisites, then Execute; Rollback is called in reverse
// execution order when a later stage fails. All operations may be I/O-bound
// and must honor the passed context.
type Stage interface {
	// Name returns the stage's stable identifier, used as the ledger key.
	Name() string

	// ValidatePrerequisites checks that required upstream slots are present
	// on the run context and required collaborators are wired. It must not
	// have side effects. A non-nil error is a hard failure, not a skip.
	ValidatePrerequisites(ctx context.Context, rc *Context) error

	// ShouldSkip reports whether the stage's output slot is already
	// populated, making re-execution unnecessary (idempotent re-entry).
	ShouldSkip(ctx context.Context, rc *Context) bool

	// Execute performs the stage's transformation, writes its output slot
	// onto the run context, and returns an outcome describing the result.
	// It must not leave partial writes on failure beyond what Rollback
	// undoes.
	Execute(ctx context.Context, rc *Context) (*types.StageOutcome, error)

	// Rollback reverses the stage's writes, best effort. Rollback errors
	// are logged by the run loop and never escalate.
	Rollback(ctx context.Context, rc *Context) error
}
