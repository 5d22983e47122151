package pipeline

import (
	"time"

	"github.com/paddockhq/paddock/types"
)

// Context is the mutable per-run accumulator. It carries the race identity,
// one data slot per pipeline phase, and an insertion-ordered ledger of stage
// outcomes.
//
// A Context is owned exclusively by the single pipeline run processing it.
// Once CompletedAt is set it is a terminal, read-only record consumed by the
// batch summary.
type Context struct {
	// Key is the race identity. Immutable after construction.
	Key types.RaceKey

	// RunID is assigned by the pipeline at run start, derived from the
	// identity and start time.
	RunID string

	// RawCard is written by the collection stage.
	RawCard *types.RaceCard
	// Records is written by the preprocessing stage.
	Records []types.ResultRecord
	// Features is written by the enrichment stage, keyed by rider ID.
	Features map[string]types.RiderFeatures
	// Report is written by the validation stage.
	Report *types.ValidationReport

	// CurrentStage is the stage presently executing, for observability.
	CurrentStage string

	// StartedAt and CompletedAt bound the whole pipeline run.
	StartedAt   time.Time
	CompletedAt time.Time

	// Failed marks a terminal context whose run did not complete. Set by
	// the pipeline on failure and by the orchestrator when isolating a
	// batch-item error.
	Failed bool

	// Metadata holds run-level diagnostics (error text on failure).
	Metadata map[string]any

	ledger *Ledger
}

// NewContext creates a Context with only identity fields populated.
func NewContext(key types.RaceKey) *Context {
	return &Context{
		Key:      key,
		Metadata: make(map[string]any),
		ledger:   NewLedger(),
	}
}

// Ledger returns the run's outcome ledger.
func (c *Context) Ledger() *Ledger {
	return c.ledger
}

// Record appends a stage outcome to the ledger (replace-by-key for
// re-entrant stages).
func (c *Context) Record(outcome *types.StageOutcome) {
	c.ledger.Record(outcome)
}

// Elapsed returns CompletedAt - StartedAt, or zero while either bound is
// unset.
func (c *Context) Elapsed() time.Duration {
	if c.StartedAt.IsZero() || c.CompletedAt.IsZero() {
		return 0
	}
	return c.CompletedAt.Sub(c.StartedAt)
}

// Terminal reports whether the run has finished (successfully or not).
func (c *Context) Terminal() bool {
	return !c.CompletedAt.IsZero()
}

// MarkFailed flags the context as failed and records the error text in
// metadata.
func (c *Context) MarkFailed(err error) {
	c.Failed = true
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	if err != nil {
		c.Metadata["error"] = err.Error()
	}
}

// Ledger is the ordered record of stage outcomes for one run. Insertion
// order equals execution order. Recorded outcomes are never mutated;
// re-recording a stage replaces the entry but keeps its position.
type Ledger struct {
	order   []string
	entries map[string]*types.StageOutcome
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[string]*types.StageOutcome),
	}
}

// Record inserts or replaces the outcome for its stage.
func (l *Ledger) Record(outcome *types.StageOutcome) {
	if _, exists := l.entries[outcome.Stage]; !exists {
		l.order = append(l.order, outcome.Stage)
	}
	l.entries[outcome.Stage] = outcome
}

// Get returns the outcome recorded for the named stage.
func (l *Ledger) Get(stage string) (*types.StageOutcome, bool) {
	o, ok := l.entries[stage]
	return o, ok
}

// Stages returns stage names in insertion order.
func (l *Ledger) Stages() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Outcomes returns outcomes in insertion order.
func (l *Ledger) Outcomes() []*types.StageOutcome {
	out := make([]*types.StageOutcome, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.entries[name])
	}
	return out
}

// Len returns the number of recorded outcomes.
func (l *Ledger) Len() int {
	return len(l.order)
}
