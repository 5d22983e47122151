package types

import (
	"errors"
	"fmt"
)

// RunMeta contains run identity and lineage metadata for one pipeline run.
type RunMeta struct {
	// RunID is the canonical run identifier. Must be globally unique.
	RunID string
	// Key is the race this run processes.
	Key RaceKey
	// ParentRunID links retry runs to their predecessor. Nil for initial runs.
	ParentRunID *string
	// Attempt is the attempt number. Starts at 1 for initial runs.
	Attempt int
}

// Validate validates lineage rules:
//   - attempt >= 1
//   - attempt == 1 => parent_run_id must be nil (initial run)
//   - attempt > 1 => parent_run_id must be present (retry run)
func (r *RunMeta) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}

	if err := r.Key.Validate(); err != nil {
		return fmt.Errorf("invalid race key: %w", err)
	}

	if r.Attempt < 1 {
		return fmt.Errorf("attempt must be >= 1, got %d", r.Attempt)
	}

	if r.Attempt == 1 && r.ParentRunID != nil {
		return errors.New("initial run (attempt=1) must not have parent_run_id")
	}

	if r.Attempt > 1 && r.ParentRunID == nil {
		return fmt.Errorf("retry run (attempt=%d) must have parent_run_id", r.Attempt)
	}

	return nil
}
