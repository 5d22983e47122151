package stages

import (
	"github.com/paddockhq/paddock/metrics"
	"github.com/paddockhq/paddock/pipeline"
	"github.com/paddockhq/paddock/source"
	"github.com/paddockhq/paddock/store"
)

// Deps bundles the collaborators the standard stage set needs.
type Deps struct {
	// Source fetches race cards (required).
	Source source.Client
	// Store persists results and serves rider history (required).
	Store store.Store
	// Archiver archives raw payloads (optional).
	Archiver store.Archiver
	// HistoryLimit caps the history window used for enrichment.
	HistoryLimit int
	// Collector receives stage metrics (optional).
	Collector *metrics.Collector
}

// Build assembles the standard four-stage set in execution order. Each call
// returns fresh stage instances, so per-batch callers get isolated stage
// state.
func Build(d Deps) []pipeline.Stage {
	return []pipeline.Stage{
		NewCollection(d.Source, d.Archiver, d.Collector),
		NewPreprocessing(),
		NewEnrichment(d.Store, d.HistoryLimit, d.Collector),
		NewValidation(),
	}
}
