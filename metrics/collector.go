// Package metrics provides batch-scoped metrics collection.
//
// The Collector accumulates counters across the pipeline runs of one batch.
// It is a leaf package with no internal dependencies. All increment methods
// are nil-receiver safe so callers never need to guard against an absent
// collector.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all collected metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Pipeline lifecycle
	RunsStarted   int64 `json:"runs_started"`
	RunsCompleted int64 `json:"runs_completed"`
	RunsFailed    int64 `json:"runs_failed"`
	RunsCancelled int64 `json:"runs_cancelled"`

	// Stages
	StagesExecuted   int64 `json:"stages_executed"`
	StagesSkipped    int64 `json:"stages_skipped"`
	StagesFailed     int64 `json:"stages_failed"`
	StagesRolledBack int64 `json:"stages_rolled_back"`
	RollbackFailures int64 `json:"rollback_failures"`

	// Source collaborator
	FetchSuccess int64 `json:"fetch_success"`
	FetchFailure int64 `json:"fetch_failure"`

	// Store collaborator (per-call, not per-record)
	StoreReadSuccess  int64 `json:"store_read_success"`
	StoreReadFailure  int64 `json:"store_read_failure"`
	StoreWriteSuccess int64 `json:"store_write_success"`
	StoreWriteFailure int64 `json:"store_write_failure"`

	// Adapter
	PublishSuccess int64 `json:"publish_success"`
	PublishFailure int64 `json:"publish_failure"`

	// Dimensions (informational, set at construction)
	Source  string `json:"source,omitempty"`
	Store   string `json:"store,omitempty"`
	BatchID string `json:"batch_id,omitempty"`
}

// Collector accumulates metrics during a batch.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	runsStarted   int64
	runsCompleted int64
	runsFailed    int64
	runsCancelled int64

	stagesExecuted   int64
	stagesSkipped    int64
	stagesFailed     int64
	stagesRolledBack int64
	rollbackFailures int64

	fetchSuccess int64
	fetchFailure int64

	storeReadSuccess  int64
	storeReadFailure  int64
	storeWriteSuccess int64
	storeWriteFailure int64

	publishSuccess int64
	publishFailure int64

	source  string
	store   string
	batchID string
}

// NewCollector creates a Collector with dimension labels.
// source and store name the configured collaborator backends; batchID is
// the batch identifier these counters belong to.
func NewCollector(source, store, batchID string) *Collector {
	return &Collector{
		source:  source,
		store:   store,
		batchID: batchID,
	}
}

// --- Pipeline lifecycle ---

// IncRunStarted records a pipeline run start.
func (c *Collector) IncRunStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsStarted++
	c.mu.Unlock()
}

// IncRunCompleted records a successful pipeline run completion.
func (c *Collector) IncRunCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsCompleted++
	c.mu.Unlock()
}

// IncRunFailed records a failed pipeline run.
func (c *Collector) IncRunFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsFailed++
	c.mu.Unlock()
}

// IncRunCancelled records a pipeline run cancelled between stages.
func (c *Collector) IncRunCancelled() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsCancelled++
	c.mu.Unlock()
}

// --- Stages ---

// IncStageExecuted records a completed stage execution.
func (c *Collector) IncStageExecuted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stagesExecuted++
	c.mu.Unlock()
}

// IncStageSkipped records a skipped stage.
func (c *Collector) IncStageSkipped() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stagesSkipped++
	c.mu.Unlock()
}

// IncStageFailed records a failed stage (prerequisites or execution).
func (c *Collector) IncStageFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stagesFailed++
	c.mu.Unlock()
}

// IncStageRolledBack records a stage rollback attempt.
func (c *Collector) IncStageRolledBack() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stagesRolledBack++
	c.mu.Unlock()
}

// IncRollbackFailure records a rollback that itself failed.
func (c *Collector) IncRollbackFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.rollbackFailures++
	c.mu.Unlock()
}

// --- Source collaborator ---

// IncFetchSuccess records a successful source fetch.
func (c *Collector) IncFetchSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fetchSuccess++
	c.mu.Unlock()
}

// IncFetchFailure records a failed source fetch.
func (c *Collector) IncFetchFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fetchFailure++
	c.mu.Unlock()
}

// --- Store collaborator ---
// Store counters are per-call, not per-record. A single SaveResults call
// with N records counts as 1 success.

// IncStoreReadSuccess records a successful store read operation.
func (c *Collector) IncStoreReadSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeReadSuccess++
	c.mu.Unlock()
}

// IncStoreReadFailure records a failed store read operation.
func (c *Collector) IncStoreReadFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeReadFailure++
	c.mu.Unlock()
}

// IncStoreWriteSuccess records a successful store write operation.
func (c *Collector) IncStoreWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeWriteSuccess++
	c.mu.Unlock()
}

// IncStoreWriteFailure records a failed store write operation.
func (c *Collector) IncStoreWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeWriteFailure++
	c.mu.Unlock()
}

// --- Adapter ---

// IncPublishSuccess records a successful completion-event publish.
func (c *Collector) IncPublishSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.publishSuccess++
	c.mu.Unlock()
}

// IncPublishFailure records a failed completion-event publish.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.publishFailure++
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		RunsStarted:   c.runsStarted,
		RunsCompleted: c.runsCompleted,
		RunsFailed:    c.runsFailed,
		RunsCancelled: c.runsCancelled,

		StagesExecuted:   c.stagesExecuted,
		StagesSkipped:    c.stagesSkipped,
		StagesFailed:     c.stagesFailed,
		StagesRolledBack: c.stagesRolledBack,
		RollbackFailures: c.rollbackFailures,

		FetchSuccess: c.fetchSuccess,
		FetchFailure: c.fetchFailure,

		StoreReadSuccess:  c.storeReadSuccess,
		StoreReadFailure:  c.storeReadFailure,
		StoreWriteSuccess: c.storeWriteSuccess,
		StoreWriteFailure: c.storeWriteFailure,

		PublishSuccess: c.publishSuccess,
		PublishFailure: c.publishFailure,

		Source:  c.source,
		Store:   c.store,
		BatchID: c.batchID,
	}
}
