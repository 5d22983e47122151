package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/paddockhq/paddock/metrics"
	"github.com/paddockhq/paddock/pipeline"
	"github.com/paddockhq/paddock/types"
)

// BatchReport is the structured JSON report written after a batch.
type BatchReport struct {
	BatchID     string            `json:"batch_id"`
	StartedAt   string            `json:"started_at"`
	CompletedAt string            `json:"completed_at"`
	DurationMs  int64             `json:"duration_ms"`
	Summary     *BatchSummary     `json:"summary"`
	Metrics     *metrics.Snapshot `json:"metrics,omitempty"`
	Runs        []RunReport       `json:"runs"`
}

// RunReport describes one run inside a batch report.
type RunReport struct {
	RunID     string        `json:"run_id,omitempty"`
	Key       string        `json:"key"`
	Failed    bool          `json:"failed"`
	Error     string        `json:"error,omitempty"`
	ElapsedMs int64         `json:"elapsed_ms"`
	Stages    []StageReport `json:"stages"`
}

// StageReport describes one ledger entry in a run report.
type StageReport struct {
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// BuildBatchReport composes a BatchReport from a batch result and an
// optional metrics snapshot.
func BuildBatchReport(result *BatchResult, snap *metrics.Snapshot) *BatchReport {
	report := &BatchReport{
		BatchID:     result.BatchID,
		StartedAt:   result.StartedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		CompletedAt: result.CompletedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		DurationMs:  result.Duration().Milliseconds(),
		Summary:     Summarize(result.Contexts),
		Metrics:     snap,
		Runs:        make([]RunReport, 0, len(result.Contexts)),
	}

	for _, rc := range result.Contexts {
		run := RunReport{
			RunID:     rc.RunID,
			Key:       rc.Key.String(),
			Failed:    rc.Failed,
			ElapsedMs: rc.Elapsed().Milliseconds(),
		}
		if msg, ok := rc.Metadata["error"].(string); ok {
			run.Error = msg
		}
		for _, outcome := range rc.Ledger().Outcomes() {
			run.Stages = append(run.Stages, StageReport{
				Stage:      outcome.Stage,
				Status:     outcome.Status.String(),
				DurationMs: outcome.ExecutionDuration.Milliseconds(),
				Error:      outcome.ErrorText(),
			})
		}
		report.Runs = append(report.Runs, run)
	}
	return report
}

// WriteBatchReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteBatchReport(report *BatchReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		return writeBatchReportTo(report, os.Stderr)
	}

	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeBatchReportTo writes report JSON to any writer (for testing).
func writeBatchReportTo(report *BatchReport, w io.Writer) error {
	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func marshalReport(report *BatchReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// FailedKeys extracts the keys of failed contexts, preserving order.
// Convenience for re-running a batch's failures.
func FailedKeys(contexts []*pipeline.Context) []types.RaceKey {
	var keys []types.RaceKey
	for _, rc := range contexts {
		if rc.Failed {
			keys = append(keys, rc.Key)
		}
	}
	return keys
}
