package orchestrator

import (
	"github.com/paddockhq/paddock/pipeline"
	"github.com/paddockhq/paddock/types"
)

// StageStats tallies outcomes for one stage across a batch.
type StageStats struct {
	// Completed counts runs where the stage executed successfully.
	Completed int `json:"completed"`
	// Failed counts runs where the stage failed.
	Failed int `json:"failed"`
	// Skipped counts runs where the stage was skipped.
	Skipped int `json:"skipped"`
	// Total is Completed + Failed + Skipped.
	Total int `json:"total"`
}

// BatchSummary aggregates a batch of terminal contexts.
type BatchSummary struct {
	// Total is the number of contexts in the batch.
	Total int `json:"total"`
	// Successful counts contexts that completed without failure.
	Successful int `json:"successful"`
	// Failed counts contexts marked failed (cancelled runs included).
	Failed int `json:"failed"`
	// SuccessRate is Successful / Total. Zero for an empty batch.
	SuccessRate float64 `json:"success_rate"`
	// PerStage tallies ledger outcomes per stage name.
	PerStage map[string]StageStats `json:"per_stage"`
	// AvgElapsedMs is the mean run time over contexts with both run
	// timestamps set.
	AvgElapsedMs int64 `json:"avg_elapsed_ms"`
	// TotalElapsedMs is the summed run time over the same contexts.
	TotalElapsedMs int64 `json:"total_elapsed_ms"`
}

// Summarize aggregates the terminal contexts of one batch.
func Summarize(contexts []*pipeline.Context) *BatchSummary {
	summary := &BatchSummary{
		Total:    len(contexts),
		PerStage: make(map[string]StageStats),
	}

	timed := 0
	for _, rc := range contexts {
		if rc.Failed {
			summary.Failed++
		} else {
			summary.Successful++
		}

		for _, outcome := range rc.Ledger().Outcomes() {
			stats := summary.PerStage[outcome.Stage]
			switch outcome.Status {
			case types.StageCompleted:
				stats.Completed++
			case types.StageFailed:
				stats.Failed++
			case types.StageSkipped:
				stats.Skipped++
			}
			stats.Total = stats.Completed + stats.Failed + stats.Skipped
			summary.PerStage[outcome.Stage] = stats
		}

		if elapsed := rc.Elapsed(); elapsed > 0 || (!rc.StartedAt.IsZero() && !rc.CompletedAt.IsZero()) {
			summary.TotalElapsedMs += elapsed.Milliseconds()
			timed++
		}
	}

	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.Successful) / float64(summary.Total)
	}
	if timed > 0 {
		summary.AvgElapsedMs = summary.TotalElapsedMs / int64(timed)
	}
	return summary
}
