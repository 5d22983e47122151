package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/paddockhq/paddock/metrics"
	"github.com/paddockhq/paddock/types"
)

// fakeStage is a scriptable Stage recording calls into a shared journal.
type fakeStage struct {
	name        string
	skip        bool
	prereqErr   error
	execErr     error
	rollbackErr error
	journal     *[]string
}

func (s *fakeStage) Name() string { return s.name }

func (s *fakeStage) ValidatePrerequisites(_ context.Context, _ *Context) error {
	return s.prereqErr
}

func (s *fakeStage) ShouldSkip(_ context.Context, _ *Context) bool {
	return s.skip
}

func (s *fakeStage) Execute(_ context.Context, _ *Context) (*types.StageOutcome, error) {
	*s.journal = append(*s.journal, "exec:"+s.name)
	if s.execErr != nil {
		return nil, s.execErr
	}
	return types.Completed(s.name, map[string]any{"ok": true}, nil), nil
}

func (s *fakeStage) Rollback(_ context.Context, _ *Context) error {
	*s.journal = append(*s.journal, "rollback:"+s.name)
	return s.rollbackErr
}

func testKey() types.RaceKey {
	return types.RaceKey{Day: "20250601", Venue: "KWS", RaceNo: 3}
}

func buildPipeline(t *testing.T, stages ...Stage) *Pipeline {
	t.Helper()
	p, err := NewBuilder("test").With(stages...).WithLogOutput(io.Discard).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return p
}

func TestRun_StageOrdering(t *testing.T) {
	var journal []string
	p := buildPipeline(t,
		&fakeStage{name: "collection", journal: &journal},
		&fakeStage{name: "preprocessing", journal: &journal},
		&fakeStage{name: "enrichment", journal: &journal},
		&fakeStage{name: "validation", journal: &journal},
	)

	rc, err := p.Run(t.Context(), NewContext(testKey()))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"collection", "preprocessing", "enrichment", "validation"}
	got := rc.Ledger().Stages()
	if len(got) != len(want) {
		t.Fatalf("ledger length: want %d, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ledger[%d]: want %s, got %s", i, want[i], got[i])
		}
	}
	for _, o := range rc.Ledger().Outcomes() {
		if o.Status != types.StageCompleted {
			t.Errorf("stage %s: want completed, got %s", o.Stage, o.Status)
		}
	}
	if p.Status() != types.PipelineCompleted {
		t.Errorf("pipeline status: want completed, got %s", p.Status())
	}
	if !rc.Terminal() || rc.Failed {
		t.Error("context should be terminal and not failed")
	}
	if rc.Elapsed() < 0 {
		t.Error("elapsed must be non-negative")
	}
}

func TestRun_SkipRecordsSkippedOutcome(t *testing.T) {
	var journal []string
	p := buildPipeline(t,
		&fakeStage{name: "collection", journal: &journal},
		&fakeStage{name: "preprocessing", skip: true, journal: &journal},
		&fakeStage{name: "enrichment", journal: &journal},
	)

	rc, err := p.Run(t.Context(), NewContext(testKey()))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	o, ok := rc.Ledger().Get("preprocessing")
	if !ok || o.Status != types.StageSkipped {
		t.Fatalf("want skipped preprocessing outcome, got %+v", o)
	}
	for _, call := range journal {
		if call == "exec:preprocessing" {
			t.Error("skipped stage must not execute")
		}
	}
}

func TestRun_ExecutionFailureRollsBackInReverse(t *testing.T) {
	var journal []string
	boom := errors.New("enrichment store unavailable")
	p := buildPipeline(t,
		&fakeStage{name: "collection", journal: &journal},
		&fakeStage{name: "preprocessing", journal: &journal},
		&fakeStage{name: "enrichment", execErr: boom, journal: &journal},
		&fakeStage{name: "validation", journal: &journal},
	)

	rc, err := p.Run(t.Context(), NewContext(testKey()))
	if err == nil {
		t.Fatal("expected run error")
	}
	if !IsStageExecution(err) {
		t.Errorf("want StageExecutionError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("error chain must preserve the cause, got %v", err)
	}

	// Ledger: 3 entries, validation never evaluated.
	if rc.Ledger().Len() != 3 {
		t.Fatalf("ledger length: want 3, got %d", rc.Ledger().Len())
	}
	if o, _ := rc.Ledger().Get("enrichment"); o.Status != types.StageFailed {
		t.Errorf("enrichment outcome: want failed, got %s", o.Status)
	}

	// Rollback: preprocessing then collection, strictly in that order;
	// the failing stage itself is never rolled back.
	want := []string{
		"exec:collection", "exec:preprocessing", "exec:enrichment",
		"rollback:preprocessing", "rollback:collection",
	}
	if len(journal) != len(want) {
		t.Fatalf("journal: want %v, got %v", want, journal)
	}
	for i := range want {
		if journal[i] != want[i] {
			t.Fatalf("journal[%d]: want %s, got %s", i, want[i], journal[i])
		}
	}

	if p.Status() != types.PipelineFailed {
		t.Errorf("pipeline status: want failed, got %s", p.Status())
	}
	if !rc.Failed {
		t.Error("context must carry the failed marker")
	}
	if rc.Metadata["error"] == nil {
		t.Error("context metadata must carry the error text")
	}
}

func TestRun_PrerequisiteFailureStillRollsBackExecuted(t *testing.T) {
	var journal []string
	p := buildPipeline(t,
		&fakeStage{name: "collection", journal: &journal},
		&fakeStage{name: "preprocessing", skip: true, journal: &journal},
		&fakeStage{name: "enrichment", prereqErr: errors.New("no records slot"), journal: &journal},
	)

	_, err := p.Run(t.Context(), NewContext(testKey()))
	if !IsPrerequisite(err) {
		t.Fatalf("want PrerequisiteError, got %v", err)
	}

	// Only the executed (non-skipped) collection stage is rolled back.
	want := []string{"exec:collection", "rollback:collection"}
	if len(journal) != len(want) || journal[1] != "rollback:collection" {
		t.Errorf("journal: want %v, got %v", want, journal)
	}
}

func TestRun_PrerequisiteFailureHasZeroDuration(t *testing.T) {
	var journal []string
	p := buildPipeline(t,
		&fakeStage{name: "collection", prereqErr: errors.New("fetcher not wired"), journal: &journal},
	)

	rc, _ := p.Run(t.Context(), NewContext(testKey()))
	o, _ := rc.Ledger().Get("collection")
	if o.ExecutionDuration != 0 {
		t.Errorf("prerequisite failures are not billed execution time, got %v", o.ExecutionDuration)
	}
}

func TestRun_RollbackFailureDoesNotHaltWalk(t *testing.T) {
	var journal []string
	p := buildPipeline(t,
		&fakeStage{name: "collection", journal: &journal},
		&fakeStage{name: "preprocessing", rollbackErr: errors.New("undo failed"), journal: &journal},
		&fakeStage{name: "enrichment", execErr: errors.New("boom"), journal: &journal},
	)

	_, err := p.Run(t.Context(), NewContext(testKey()))
	if err == nil {
		t.Fatal("expected run error")
	}

	// collection's rollback still runs after preprocessing's rollback fails.
	last := journal[len(journal)-1]
	if last != "rollback:collection" {
		t.Errorf("rollback walk must continue past failures, journal: %v", journal)
	}
	// The rollback failure never replaces the original error.
	if !IsStageExecution(err) {
		t.Errorf("original error must propagate, got %v", err)
	}
}

func TestRun_CancelledBetweenStages(t *testing.T) {
	var journal []string
	ctx, cancel := context.WithCancel(context.Background())

	p := buildPipeline(t,
		&fakeStage{name: "collection", journal: &journal},
		&fakeStage{name: "preprocessing", journal: &journal},
	)

	// Cancel before the run; the first stage-boundary check observes it.
	cancel()

	rc, err := p.Run(ctx, NewContext(testKey()))
	if !IsCancelled(err) {
		t.Fatalf("want cancelled error, got %v", err)
	}
	if p.Status() != types.PipelineCancelled {
		t.Errorf("pipeline status: want cancelled, got %s", p.Status())
	}
	if !rc.Failed {
		t.Error("cancelled context is a terminal failure record")
	}
	// No rollback on cancellation.
	for _, call := range journal {
		if call == "rollback:collection" {
			t.Error("cancellation must not trigger rollback")
		}
	}
}

func TestRun_RejectsConcurrentSelf(t *testing.T) {
	var journal []string
	p := buildPipeline(t, &fakeStage{name: "collection", journal: &journal})
	p.setStatus(types.PipelineRunning)

	_, err := p.Run(t.Context(), NewContext(testKey()))
	if !IsConfiguration(err) {
		t.Errorf("want configuration error for concurrent run, got %v", err)
	}
}

func TestReset(t *testing.T) {
	var journal []string
	p := buildPipeline(t, &fakeStage{name: "collection", journal: &journal})

	if _, err := p.Run(t.Context(), NewContext(testKey())); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := p.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if p.Status() != types.PipelineIdle {
		t.Errorf("status after reset: want idle, got %s", p.Status())
	}

	p.setStatus(types.PipelineRunning)
	if err := p.Reset(); !IsConfiguration(err) {
		t.Errorf("resetting a running pipeline: want configuration error, got %v", err)
	}
}

func TestBuilder_EmptyStageList(t *testing.T) {
	_, err := NewBuilder("empty").Build()
	if !IsConfiguration(err) {
		t.Errorf("want configuration error, got %v", err)
	}

	_, err = New("empty")
	if !IsConfiguration(err) {
		t.Errorf("want configuration error from New, got %v", err)
	}
}

func TestBuilder_IgnoresNilStages(t *testing.T) {
	var journal []string
	p, err := NewBuilder("t").
		With(nil, &fakeStage{name: "collection", journal: &journal}, nil).
		WithLogOutput(io.Discard).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(p.stages) != 1 {
		t.Errorf("nil stages must be dropped, got %d stages", len(p.stages))
	}
}

func TestRun_MetricsCounters(t *testing.T) {
	var journal []string
	collector := metrics.NewCollector("stub", "memory", "b")
	p, err := NewBuilder("t").
		With(
			&fakeStage{name: "collection", journal: &journal},
			&fakeStage{name: "preprocessing", skip: true, journal: &journal},
			&fakeStage{name: "enrichment", execErr: errors.New("boom"), journal: &journal},
		).
		WithCollector(collector).
		WithLogOutput(io.Discard).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	_, _ = p.Run(t.Context(), NewContext(testKey()))

	snap := collector.Snapshot()
	if snap.RunsStarted != 1 || snap.RunsFailed != 1 {
		t.Errorf("unexpected run counters: %+v", snap)
	}
	if snap.StagesExecuted != 1 || snap.StagesSkipped != 1 || snap.StagesFailed != 1 {
		t.Errorf("unexpected stage counters: %+v", snap)
	}
	if snap.StagesRolledBack != 1 {
		t.Errorf("want 1 rollback, got %d", snap.StagesRolledBack)
	}
}

func TestLedger_ReplaceByKeyKeepsPosition(t *testing.T) {
	l := NewLedger()
	l.Record(types.Completed("collection", nil, nil))
	l.Record(types.Completed("preprocessing", nil, nil))
	l.Record(types.Skipped("collection"))

	stages := l.Stages()
	if len(stages) != 2 || stages[0] != "collection" || stages[1] != "preprocessing" {
		t.Errorf("replace-by-key must keep insertion position, got %v", stages)
	}
	if o, _ := l.Get("collection"); o.Status != types.StageSkipped {
		t.Error("replacement outcome must win")
	}
}

func TestDeriveRunID_Deterministic(t *testing.T) {
	rc := NewContext(testKey())
	var journal []string
	p := buildPipeline(t, &fakeStage{name: "collection", journal: &journal})

	if _, err := p.Run(t.Context(), rc); err != nil {
		t.Fatalf("run: %v", err)
	}
	if rc.RunID == "" {
		t.Fatal("run id must be assigned at run start")
	}
}
