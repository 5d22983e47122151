// Package adapter defines the downstream notification boundary.
//
// Adapters publish batch completion events so downstream consumers (model
// training, dashboards) can react without polling the store. The
// orchestrator owns adapter lifecycle; callers provide configuration only.
package adapter

import "context"

// SchemaVersion is the event payload schema version.
const SchemaVersion = "1.0"

// EventTypeBatchCompleted is the event_type value for batch completion.
const EventTypeBatchCompleted = "batch_completed"

// BatchCompletedEvent is the payload published when a batch finishes.
type BatchCompletedEvent struct {
	SchemaVersion string  `json:"schema_version"`
	EventType     string  `json:"event_type"` // always "batch_completed"
	BatchID       string  `json:"batch_id"`
	StartDay      string  `json:"start_day"`
	EndDay        string  `json:"end_day"`
	Total         int     `json:"total"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	SuccessRate   float64 `json:"success_rate"`
	Timestamp     string  `json:"timestamp"` // ISO 8601
	DurationMs    int64   `json:"duration_ms"`
}

// Adapter publishes batch completion events to a downstream system.
type Adapter interface {
	// Publish sends a batch completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *BatchCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Stub records published events in memory for tests.
type Stub struct {
	// Events holds every published event in call order.
	Events []*BatchCompletedEvent
	// Err, when set, is returned by every publish.
	Err error
	// Closed reports whether Close was called.
	Closed bool
}

// Publish implements Adapter.
func (s *Stub) Publish(_ context.Context, event *BatchCompletedEvent) error {
	if s.Err != nil {
		return s.Err
	}
	s.Events = append(s.Events, event)
	return nil
}

// Close implements Adapter.
func (s *Stub) Close() error {
	s.Closed = true
	return nil
}

// Verify Stub implements Adapter.
var _ Adapter = (*Stub)(nil)
