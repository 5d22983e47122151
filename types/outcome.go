package types

import "time"

// StageStatus represents the terminal status of a single stage invocation.
type StageStatus string

const (
	// StagePending indicates the stage has not been evaluated yet.
	StagePending StageStatus = "pending"
	// StageRunning indicates the stage is currently executing.
	StageRunning StageStatus = "running"
	// StageCompleted indicates the stage executed successfully.
	StageCompleted StageStatus = "completed"
	// StageFailed indicates the stage failed (prerequisites or execution).
	StageFailed StageStatus = "failed"
	// StageSkipped indicates the stage was skipped (output already present).
	StageSkipped StageStatus = "skipped"
)

// String returns the string representation of the status.
func (s StageStatus) String() string {
	return string(s)
}

// StageOutcome describes the result of one stage invocation.
// Once recorded into a run's ledger an outcome is never mutated.
type StageOutcome struct {
	// Stage is the name of the stage that produced this outcome.
	Stage string `json:"stage"`
	// Status is the terminal status of the invocation.
	Status StageStatus `json:"status"`
	// Payload is stage-produced data. Nil unless Status is StageCompleted.
	Payload map[string]any `json:"payload,omitempty"`
	// Err is the failure. Present iff Status is StageFailed.
	Err error `json:"-"`
	// Metadata holds free-form stage diagnostics (counts, quality scores).
	Metadata map[string]any `json:"metadata,omitempty"`
	// ExecutionDuration is the wall-clock time of the Execute call only.
	// Prerequisite and skip checks are not billed into it.
	ExecutionDuration time.Duration `json:"execution_duration"`
}

// Completed returns a completed outcome for the named stage.
func Completed(stage string, payload, metadata map[string]any) *StageOutcome {
	return &StageOutcome{
		Stage:    stage,
		Status:   StageCompleted,
		Payload:  payload,
		Metadata: metadata,
	}
}

// Failed returns a failed outcome carrying the error.
func Failed(stage string, err error) *StageOutcome {
	return &StageOutcome{
		Stage:  stage,
		Status: StageFailed,
		Err:    err,
	}
}

// Skipped returns a skipped outcome for the named stage.
func Skipped(stage string) *StageOutcome {
	return &StageOutcome{
		Stage:  stage,
		Status: StageSkipped,
	}
}

// ErrorText returns the outcome's error message, or "" when not failed.
func (o *StageOutcome) ErrorText() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// PipelineStatus represents the lifecycle state of a pipeline instance.
type PipelineStatus string

const (
	// PipelineIdle indicates the pipeline has not started (or was reset).
	PipelineIdle PipelineStatus = "idle"
	// PipelineRunning indicates a run is in progress.
	PipelineRunning PipelineStatus = "running"
	// PipelineCompleted indicates the last run completed successfully.
	PipelineCompleted PipelineStatus = "completed"
	// PipelineFailed indicates the last run failed.
	PipelineFailed PipelineStatus = "failed"
	// PipelineCancelled indicates the last run was cancelled between stages.
	PipelineCancelled PipelineStatus = "cancelled"
)
