// Package orchestrator fans out many pipeline runs under bounded
// parallelism, isolates per-item failures, and aggregates batch statistics.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/paddockhq/paddock/adapter"
	"github.com/paddockhq/paddock/log"
	"github.com/paddockhq/paddock/metrics"
	"github.com/paddockhq/paddock/pipeline"
	"github.com/paddockhq/paddock/types"
)

// DefaultConcurrency bounds simultaneous pipeline runs. Kept small because
// stages are I/O-bound against a rate-limited upstream.
const DefaultConcurrency = 4

// PipelineFactory builds a fresh pipeline for one run. Stage instances hold
// per-run state (and collaborator handles that are not concurrency-safe), so
// every run gets its own pipeline.
type PipelineFactory func() (*pipeline.Pipeline, error)

// Config configures a batch run.
type Config struct {
	// Concurrency is the maximum number of simultaneous runs (required > 0).
	Concurrency int
	// Adapters receive the batch completion event. Publishing is best
	// effort; failures are logged, never fail the batch.
	Adapters []adapter.Adapter
	// Collector receives batch metrics (optional).
	Collector *metrics.Collector
	// LogOutput overrides the log destination (tests). Nil means stderr.
	LogOutput io.Writer
}

// Orchestrator runs batches of pipelines.
type Orchestrator struct {
	config  Config
	factory PipelineFactory
}

// New creates an orchestrator. Returns a configuration error when the
// factory is nil or the concurrency bound is not positive.
func New(cfg Config, factory PipelineFactory) (*Orchestrator, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: orchestrator requires a pipeline factory", pipeline.ErrConfiguration)
	}
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("%w: concurrency must be > 0, got %d", pipeline.ErrConfiguration, cfg.Concurrency)
	}
	return &Orchestrator{config: cfg, factory: factory}, nil
}

// BatchResult carries everything a batch run produced.
type BatchResult struct {
	// BatchID identifies the batch.
	BatchID string
	// Contexts holds exactly one terminal context per input key, in input
	// order.
	Contexts []*pipeline.Context
	// StartedAt and CompletedAt bound the whole batch.
	StartedAt   time.Time
	CompletedAt time.Time
}

// Duration returns the batch wall-clock time.
func (r *BatchResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// RunBatch runs one pipeline per key with at most Concurrency runs in
// flight. Every key yields exactly one terminal context: an individual run
// failure is converted into a failed context and never aborts its siblings.
//
// After all runs finish, the batch completion event is published to the
// configured adapters.
func (o *Orchestrator) RunBatch(ctx context.Context, keys []types.RaceKey) (*BatchResult, error) {
	batchID := uuid.New().String()
	logger := log.NewBatchLogger(batchID)
	if o.config.LogOutput != nil {
		logger = logger.WithOutput(o.config.LogOutput)
	}

	result := &BatchResult{
		BatchID:   batchID,
		Contexts:  make([]*pipeline.Context, len(keys)),
		StartedAt: time.Now(),
	}

	logger.Info("batch started", map[string]any{
		"keys":        len(keys),
		"concurrency": o.config.Concurrency,
	})

	sem := make(chan struct{}, o.config.Concurrency)
	done := make(chan int, len(keys))

	for i, key := range keys {
		go func(slot int, key types.RaceKey) {
			defer func() { done <- slot }()

			sem <- struct{}{}
			defer func() { <-sem }()

			result.Contexts[slot] = o.runOne(ctx, key, logger)
		}(i, key)
	}
	for range keys {
		<-done
	}

	result.CompletedAt = time.Now()

	summary := Summarize(result.Contexts)
	logger.Info("batch completed", map[string]any{
		"total":      summary.Total,
		"successful": summary.Successful,
		"failed":     summary.Failed,
		"elapsed":    result.Duration().String(),
	})

	o.publish(ctx, result, summary, keys, logger)

	return result, nil
}

// runOne executes a single pipeline run and always returns a terminal
// context. Failures (including factory errors and panics inside stage code)
// are contained here.
func (o *Orchestrator) runOne(ctx context.Context, key types.RaceKey, logger *log.Logger) (rc *pipeline.Context) {
	rc = pipeline.NewContext(key)

	defer func() {
		if r := recover(); r != nil {
			rc.CompletedAt = time.Now()
			rc.MarkFailed(fmt.Errorf("run panicked: %v", r))
			o.config.Collector.IncRunFailed()
			logger.Error("run panicked", map[string]any{
				"key":   key.String(),
				"panic": fmt.Sprint(r),
			})
		}
	}()

	p, err := o.factory()
	if err != nil {
		rc.StartedAt = time.Now()
		rc.CompletedAt = rc.StartedAt
		rc.MarkFailed(fmt.Errorf("build pipeline: %w", err))
		o.config.Collector.IncRunFailed()
		logger.Error("pipeline construction failed", map[string]any{
			"key":   key.String(),
			"error": err.Error(),
		})
		return rc
	}

	if _, err := p.Run(ctx, rc); err != nil {
		// The pipeline already marked the context terminal and rolled
		// back; the error is recorded, not re-raised.
		logger.Warn("run failed", map[string]any{
			"key":   key.String(),
			"error": err.Error(),
		})
	}
	return rc
}

// publish sends the batch completion event to every adapter, best effort.
func (o *Orchestrator) publish(ctx context.Context, result *BatchResult, summary *BatchSummary, keys []types.RaceKey, logger *log.Logger) {
	if len(o.config.Adapters) == 0 {
		return
	}

	startDay, endDay := dayBounds(keys)
	event := &adapter.BatchCompletedEvent{
		SchemaVersion: adapter.SchemaVersion,
		EventType:     adapter.EventTypeBatchCompleted,
		BatchID:       result.BatchID,
		StartDay:      startDay,
		EndDay:        endDay,
		Total:         summary.Total,
		Successful:    summary.Successful,
		Failed:        summary.Failed,
		SuccessRate:   summary.SuccessRate,
		Timestamp:     result.CompletedAt.UTC().Format(time.RFC3339),
		DurationMs:    result.Duration().Milliseconds(),
	}

	// Publishing must finish even when the batch caller's context has been
	// cancelled.
	pubCtx := context.WithoutCancel(ctx)
	for _, a := range o.config.Adapters {
		if err := a.Publish(pubCtx, event); err != nil {
			o.config.Collector.IncPublishFailure()
			logger.Warn("batch event publish failed", map[string]any{"error": err.Error()})
			continue
		}
		o.config.Collector.IncPublishSuccess()
	}
}

// dayBounds returns the smallest and largest day among the keys.
func dayBounds(keys []types.RaceKey) (string, string) {
	var start, end string
	for _, key := range keys {
		if start == "" || key.Day < start {
			start = key.Day
		}
		if key.Day > end {
			end = key.Day
		}
	}
	return start, end
}
