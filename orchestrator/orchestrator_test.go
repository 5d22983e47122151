package orchestrator

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paddockhq/paddock/adapter"
	"github.com/paddockhq/paddock/pipeline"
	"github.com/paddockhq/paddock/types"
)

// probeStage counts concurrent executions and optionally fails chosen keys.
type probeStage struct {
	name     string
	inFlight atomic.Int32
	peak     atomic.Int32
	failKeys map[string]bool
	delay    time.Duration
}

func (s *probeStage) Name() string { return s.name }

func (s *probeStage) ValidatePrerequisites(context.Context, *pipeline.Context) error {
	return nil
}

func (s *probeStage) ShouldSkip(context.Context, *pipeline.Context) bool { return false }

func (s *probeStage) Execute(_ context.Context, rc *pipeline.Context) (*types.StageOutcome, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.failKeys[rc.Key.String()] {
		return nil, errors.New("probe failure")
	}
	return types.Completed(s.name, nil, nil), nil
}

func (s *probeStage) Rollback(context.Context, *pipeline.Context) error { return nil }

// sharedProbeFactory builds per-run pipelines around one shared probe, so
// the test can observe concurrency across runs.
func sharedProbeFactory(probe *probeStage) PipelineFactory {
	return func() (*pipeline.Pipeline, error) {
		return pipeline.NewBuilder("ingest").
			With(probe).
			WithLogOutput(io.Discard).
			Build()
	}
}

func testKeys(n int) []types.RaceKey {
	keys, _ := Expand("20250601", "20250601", []string{"KWS"}, seq(n))
	return keys
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestRunBatch_CompletenessWithFailures(t *testing.T) {
	keys := testKeys(10)
	failKeys := map[string]bool{}
	for _, key := range keys[:4] {
		failKeys[key.String()] = true
	}
	probe := &probeStage{name: "probe", failKeys: failKeys}

	o, err := New(Config{Concurrency: 3, LogOutput: io.Discard}, sharedProbeFactory(probe))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	result, err := o.RunBatch(t.Context(), keys)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}

	// Exactly one terminal context per key, in input order.
	if len(result.Contexts) != 10 {
		t.Fatalf("want 10 contexts, got %d", len(result.Contexts))
	}
	for i, rc := range result.Contexts {
		if rc == nil {
			t.Fatalf("context %d missing", i)
		}
		if rc.Key != keys[i] {
			t.Errorf("context %d: want key %s, got %s", i, keys[i], rc.Key)
		}
		if !rc.Terminal() {
			t.Errorf("context %d not terminal", i)
		}
	}

	summary := Summarize(result.Contexts)
	if summary.Total != 10 || summary.Successful != 6 || summary.Failed != 4 {
		t.Errorf("want 10/6/4, got %d/%d/%d", summary.Total, summary.Successful, summary.Failed)
	}
	if summary.SuccessRate != 0.6 {
		t.Errorf("want success rate 0.6, got %v", summary.SuccessRate)
	}
}

func TestRunBatch_ConcurrencyBound(t *testing.T) {
	probe := &probeStage{name: "probe", delay: 20 * time.Millisecond}

	o, err := New(Config{Concurrency: 3, LogOutput: io.Discard}, sharedProbeFactory(probe))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := o.RunBatch(t.Context(), testKeys(12)); err != nil {
		t.Fatalf("run batch: %v", err)
	}

	if peak := probe.peak.Load(); peak > 3 {
		t.Errorf("concurrency bound violated: peak %d > 3", peak)
	}
	if peak := probe.peak.Load(); peak == 0 {
		t.Error("probe never executed")
	}
}

func TestRunBatch_FactoryErrorIsolated(t *testing.T) {
	var calls atomic.Int32
	factory := func() (*pipeline.Pipeline, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("wiring broken")
		}
		return sharedProbeFactory(&probeStage{name: "probe"})()
	}

	o, err := New(Config{Concurrency: 1, LogOutput: io.Discard}, factory)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	result, err := o.RunBatch(t.Context(), testKeys(3))
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if len(result.Contexts) != 3 {
		t.Fatalf("want 3 contexts, got %d", len(result.Contexts))
	}

	failed := 0
	for _, rc := range result.Contexts {
		if rc.Failed {
			failed++
			if rc.Metadata["error"] == nil {
				t.Error("failed context must carry error metadata")
			}
		}
	}
	if failed != 1 {
		t.Errorf("want exactly 1 failed context, got %d", failed)
	}
}

func TestRunBatch_PublishesCompletionEvent(t *testing.T) {
	stub := &adapter.Stub{}
	probe := &probeStage{name: "probe"}

	o, err := New(Config{
		Concurrency: 2,
		Adapters:    []adapter.Adapter{stub},
		LogOutput:   io.Discard,
	}, sharedProbeFactory(probe))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	keys, _ := Expand("20250601", "20250602", []string{"KWS"}, []int{1})
	result, err := o.RunBatch(t.Context(), keys)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}

	if len(stub.Events) != 1 {
		t.Fatalf("want 1 published event, got %d", len(stub.Events))
	}
	event := stub.Events[0]
	if event.BatchID != result.BatchID {
		t.Errorf("event batch ID mismatch: %s vs %s", event.BatchID, result.BatchID)
	}
	if event.StartDay != "20250601" || event.EndDay != "20250602" {
		t.Errorf("unexpected day bounds: %s..%s", event.StartDay, event.EndDay)
	}
	if event.Total != 2 || event.Successful != 2 {
		t.Errorf("unexpected counts: %d total, %d successful", event.Total, event.Successful)
	}
}

func TestRunBatch_PublishFailureDoesNotFailBatch(t *testing.T) {
	stub := &adapter.Stub{Err: errors.New("sink down")}

	o, err := New(Config{
		Concurrency: 1,
		Adapters:    []adapter.Adapter{stub},
		LogOutput:   io.Discard,
	}, sharedProbeFactory(&probeStage{name: "probe"}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := o.RunBatch(t.Context(), testKeys(1)); err != nil {
		t.Errorf("publish failure must not fail the batch: %v", err)
	}
}

func TestRunBatch_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	o, err := New(Config{Concurrency: 2, LogOutput: io.Discard}, sharedProbeFactory(&probeStage{name: "probe"}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	result, err := o.RunBatch(ctx, testKeys(5))
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}

	// Cancelled runs still produce one terminal failed context each.
	if len(result.Contexts) != 5 {
		t.Fatalf("want 5 contexts, got %d", len(result.Contexts))
	}
	for i, rc := range result.Contexts {
		if !rc.Failed {
			t.Errorf("context %d must be failed after cancellation", i)
		}
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	factory := sharedProbeFactory(&probeStage{name: "probe"})

	if _, err := New(Config{Concurrency: 0}, factory); !pipeline.IsConfiguration(err) {
		t.Errorf("zero concurrency: want configuration error, got %v", err)
	}
	if _, err := New(Config{Concurrency: -2}, factory); !pipeline.IsConfiguration(err) {
		t.Errorf("negative concurrency: want configuration error, got %v", err)
	}
	if _, err := New(Config{Concurrency: 1}, nil); !pipeline.IsConfiguration(err) {
		t.Errorf("nil factory: want configuration error, got %v", err)
	}
}
