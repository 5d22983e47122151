// Package pipeline implements the staged execution core: the stage contract,
// the per-run context accumulator, and the run loop with failure-triggered
// rollback.
//
// This file defines the error taxonomy. Callers classify failures with
// errors.Is/errors.As rather than string matching.
package pipeline

import (
	"errors"
	"fmt"
)

// ErrConfiguration indicates an invalid pipeline or orchestrator
// configuration (empty stage list, non-positive concurrency). Raised before
// any run starts.
var ErrConfiguration = errors.New("invalid configuration")

// ErrCancelled indicates a run was cancelled between stages.
var ErrCancelled = errors.New("run cancelled")

// PrerequisiteError indicates a stage's required inputs or collaborators
// were missing. Always fatal to the current run and always triggers rollback
// of previously executed stages.
type PrerequisiteError struct {
	// Stage is the stage whose prerequisites failed.
	Stage string
	// Err is the underlying reason.
	Err error
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("stage %s: prerequisites not met: %v", e.Stage, e.Err)
}

func (e *PrerequisiteError) Unwrap() error { return e.Err }

// StageExecutionError indicates a stage's Execute failed. Fatal to the
// current run; triggers rollback of previously executed stages.
type StageExecutionError struct {
	// Stage is the stage whose execution failed.
	Stage string
	// Err is the underlying failure.
	Err error
}

func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("stage %s: execution failed: %v", e.Stage, e.Err)
}

func (e *StageExecutionError) Unwrap() error { return e.Err }

// IsPrerequisite returns true if err is (or wraps) a PrerequisiteError.
func IsPrerequisite(err error) bool {
	var target *PrerequisiteError
	return errors.As(err, &target)
}

// IsStageExecution returns true if err is (or wraps) a StageExecutionError.
func IsStageExecution(err error) bool {
	var target *StageExecutionError
	return errors.As(err, &target)
}

// IsConfiguration returns true if err is (or wraps) ErrConfiguration.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsCancelled returns true if err is (or wraps) ErrCancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
