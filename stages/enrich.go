package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/paddockhq/paddock/metrics"
	"github.com/paddockhq/paddock/pipeline"
	"github.com/paddockhq/paddock/store"
	"github.com/paddockhq/paddock/types"
)

// Enrichment derives per-rider features from stored history and persists the
// run's records. It writes the Features slot and is the only stage with a
// durable side effect, which its Rollback undoes.
type Enrichment struct {
	store        store.Store
	historyLimit int
	collector    *metrics.Collector

	// saved tracks whether this invocation persisted records, so Rollback
	// only deletes what this run wrote. Stage instances are per-run.
	saved bool
}

// NewEnrichment creates the enrichment stage. A non-positive historyLimit
// falls back to the store default.
func NewEnrichment(st store.Store, historyLimit int, collector *metrics.Collector) *Enrichment {
	if historyLimit <= 0 {
		historyLimit = store.DefaultHistoryLimit
	}
	return &Enrichment{store: st, historyLimit: historyLimit, collector: collector}
}

// Name implements pipeline.Stage.
func (s *Enrichment) Name() string { return EnrichmentName }

// ValidatePrerequisites implements pipeline.Stage.
func (s *Enrichment) ValidatePrerequisites(_ context.Context, rc *pipeline.Context) error {
	if s.store == nil {
		return errors.New("result store is not wired")
	}
	if len(rc.Records) == 0 {
		return errors.New("no records to enrich")
	}
	return nil
}

// ShouldSkip implements pipeline.Stage: skip when features already exist.
func (s *Enrichment) ShouldSkip(_ context.Context, rc *pipeline.Context) bool {
	return len(rc.Features) > 0
}

// Execute implements pipeline.Stage.
func (s *Enrichment) Execute(ctx context.Context, rc *pipeline.Context) (*types.StageOutcome, error) {
	features := make(map[string]types.RiderFeatures, len(rc.Records))
	for _, rec := range rc.Records {
		if _, done := features[rec.RiderID]; done {
			continue
		}
		history, err := s.store.LoadHistory(ctx, rec.RiderID, s.historyLimit)
		if err != nil {
			s.collector.IncStoreReadFailure()
			return nil, fmt.Errorf("load history for rider %s: %w", rec.RiderID, err)
		}
		s.collector.IncStoreReadSuccess()
		features[rec.RiderID] = deriveFeatures(rec.RiderID, history)
	}

	if err := s.store.SaveResults(ctx, rc.Key, rc.Records); err != nil {
		s.collector.IncStoreWriteFailure()
		return nil, fmt.Errorf("save results for %s: %w", rc.Key, err)
	}
	s.collector.IncStoreWriteSuccess()
	s.saved = true

	rc.Features = features

	return types.Completed(EnrichmentName,
		map[string]any{"riders": len(features)},
		map[string]any{"history_limit": s.historyLimit},
	), nil
}

// Rollback implements pipeline.Stage: clear the features slot and delete the
// records this invocation persisted.
func (s *Enrichment) Rollback(ctx context.Context, rc *pipeline.Context) error {
	rc.Features = nil
	if !s.saved {
		return nil
	}
	s.saved = false
	if err := s.store.DeleteResults(ctx, rc.Key); err != nil {
		s.collector.IncStoreWriteFailure()
		return fmt.Errorf("delete results for %s: %w", rc.Key, err)
	}
	return nil
}

// deriveFeatures aggregates a rider's stored history into features.
func deriveFeatures(riderID string, history []types.ResultRecord) types.RiderFeatures {
	f := types.RiderFeatures{RiderID: riderID, Starts: len(history)}

	finished := 0
	finishSum := 0
	for _, rec := range history {
		if rec.FinishOrder == 1 {
			f.Wins++
		}
		if rec.FinishOrder >= 1 && rec.FinishOrder <= 3 {
			f.Podiums++
		}
		if rec.FinishOrder > 0 {
			finished++
			finishSum += rec.FinishOrder
		}
	}
	if f.Starts > 0 {
		f.WinRate = float64(f.Wins) / float64(f.Starts)
	}
	if finished > 0 {
		f.AvgFinish = float64(finishSum) / float64(finished)
	}
	return f
}

// Verify Enrichment implements pipeline.Stage.
var _ pipeline.Stage = (*Enrichment)(nil)
