package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/paddockhq/paddock/log"
	"github.com/paddockhq/paddock/metrics"
	"github.com/paddockhq/paddock/types"
)

// Pipeline is an ordered, immutable-after-build list of stages plus a run
// loop enforcing the skip/validate/execute/rollback protocol.
//
// A pipeline may be reset and reused with a fresh Context, but must never
// run concurrently with itself: stage instances may hold collaborator
// handles that are not concurrency-safe. Run enforces this by rejecting a
// second Run while one is in progress.
type Pipeline struct {
	name      string
	stages    []Stage
	collector *metrics.Collector
	logOutput io.Writer

	mu     sync.Mutex
	status types.PipelineStatus
}

// Name returns the pipeline's name.
func (p *Pipeline) Name() string {
	return p.name
}

// Status returns the pipeline's current lifecycle status.
func (p *Pipeline) Status() types.PipelineStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Reset returns a terminal pipeline to Idle so it can be reused with a
// fresh Context. Resetting a running pipeline is a configuration error.
func (p *Pipeline) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == types.PipelineRunning {
		return fmt.Errorf("%w: cannot reset a running pipeline", ErrConfiguration)
	}
	p.status = types.PipelineIdle
	return nil
}

// Run executes all stages in order against the given Context and returns
// the mutated Context with a complete ledger.
//
// On the first fatal error (prerequisite or execution failure) remaining
// stages are not evaluated; previously executed, non-skipped stages are
// rolled back in reverse order and the original error is returned.
// Cancellation is checked at stage boundaries only: an in-flight stage is
// never preempted, and a cancelled run performs no rollback.
func (p *Pipeline) Run(ctx context.Context, rc *Context) (*Context, error) {
	if err := p.transitionRunning(); err != nil {
		return rc, err
	}

	rc.StartedAt = time.Now()
	rc.RunID = deriveRunID(rc.Key, rc.StartedAt)
	p.collector.IncRunStarted()

	logger := p.newLogger(rc)
	logger.Info("pipeline started", map[string]any{
		"pipeline": p.name,
		"stages":   len(p.stages),
	})

	var executed []Stage

	for _, stage := range p.stages {
		name := stage.Name()

		// Stage-boundary cancellation check. No rollback: nothing about
		// the already-executed stages is invalid, the run just stops.
		if err := ctx.Err(); err != nil {
			p.setStatus(types.PipelineCancelled)
			rc.CompletedAt = time.Now()
			rc.MarkFailed(ErrCancelled)
			p.collector.IncRunCancelled()
			logger.Warn("pipeline cancelled", map[string]any{
				"pipeline": p.name,
				"at_stage": name,
			})
			return rc, fmt.Errorf("%w before stage %s: %v", ErrCancelled, name, err)
		}

		rc.CurrentStage = name

		if stage.ShouldSkip(ctx, rc) {
			rc.Record(types.Skipped(name))
			p.collector.IncStageSkipped()
			logger.Info("stage skipped", map[string]any{"stage": name})
			continue
		}

		if err := stage.ValidatePrerequisites(ctx, rc); err != nil {
			perr := &PrerequisiteError{Stage: name, Err: err}
			// Prerequisite failures carry zero duration: only Execute
			// time is billed into an outcome.
			rc.Record(types.Failed(name, perr))
			p.collector.IncStageFailed()
			logger.Error("stage prerequisites failed", map[string]any{
				"stage": name,
				"error": err.Error(),
			})
			return p.fail(ctx, rc, executed, perr, logger)
		}

		start := time.Now()
		outcome, err := stage.Execute(ctx, rc)
		duration := time.Since(start)

		if err == nil && outcome != nil && outcome.Status == types.StageFailed {
			err = outcome.Err
			if err == nil {
				err = fmt.Errorf("stage %s reported failure without error", name)
			}
		}
		if err != nil {
			serr := &StageExecutionError{Stage: name, Err: err}
			failed := types.Failed(name, serr)
			failed.ExecutionDuration = duration
			if outcome != nil {
				failed.Metadata = outcome.Metadata
			}
			rc.Record(failed)
			p.collector.IncStageFailed()
			logger.Error("stage failed", map[string]any{
				"stage":    name,
				"error":    err.Error(),
				"duration": duration.String(),
			})
			return p.fail(ctx, rc, executed, serr, logger)
		}

		if outcome == nil {
			outcome = types.Completed(name, nil, nil)
		}
		outcome.Stage = name
		outcome.ExecutionDuration = duration
		rc.Record(outcome)
		executed = append(executed, stage)
		p.collector.IncStageExecuted()
		logger.Info("stage completed", map[string]any{
			"stage":    name,
			"duration": duration.String(),
		})
	}

	p.setStatus(types.PipelineCompleted)
	rc.CompletedAt = time.Now()
	rc.CurrentStage = ""
	p.collector.IncRunCompleted()
	logger.Info("pipeline completed", map[string]any{
		"pipeline": p.name,
		"elapsed":  rc.Elapsed().String(),
	})
	return rc, nil
}

// fail drives the failure path: mark the run failed, roll back executed
// stages in reverse order, then propagate the original error.
func (p *Pipeline) fail(ctx context.Context, rc *Context, executed []Stage, cause error, logger *log.Logger) (*Context, error) {
	p.setStatus(types.PipelineFailed)
	rc.CompletedAt = time.Now()
	rc.MarkFailed(cause)
	p.collector.IncRunFailed()

	// Rollback proceeds even if the caller's context has been cancelled:
	// the undo work must not be abandoned halfway.
	rbCtx := context.WithoutCancel(ctx)
	for i := len(executed) - 1; i >= 0; i-- {
		stage := executed[i]
		p.collector.IncStageRolledBack()
		if err := stage.Rollback(rbCtx, rc); err != nil {
			p.collector.IncRollbackFailure()
			logger.Warn("stage rollback failed", map[string]any{
				"stage": stage.Name(),
				"error": err.Error(),
			})
			continue
		}
		logger.Info("stage rolled back", map[string]any{"stage": stage.Name()})
	}

	return rc, cause
}

func (p *Pipeline) transitionRunning() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == types.PipelineRunning {
		return fmt.Errorf("%w: pipeline %s is already running", ErrConfiguration, p.name)
	}
	// Terminal pipelines implicitly reset when reused with a fresh Context.
	p.status = types.PipelineRunning
	return nil
}

func (p *Pipeline) setStatus(s types.PipelineStatus) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

func (p *Pipeline) newLogger(rc *Context) *log.Logger {
	meta := &types.RunMeta{RunID: rc.RunID, Key: rc.Key, Attempt: 1}
	logger := log.NewLogger(meta)
	if p.logOutput != nil {
		logger = logger.WithOutput(p.logOutput)
	}
	return logger
}

// deriveRunID builds the run identifier from the race identity and start
// time.
func deriveRunID(key types.RaceKey, start time.Time) string {
	return fmt.Sprintf("%s-%s-%02d-%d", key.Day, key.Venue, key.RaceNo, start.UnixNano())
}
