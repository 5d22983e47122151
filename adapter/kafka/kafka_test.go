package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/paddockhq/paddock/adapter"
)

// fakeWriter captures written messages without a broker.
type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testEvent() *adapter.BatchCompletedEvent {
	return &adapter.BatchCompletedEvent{
		SchemaVersion: adapter.SchemaVersion,
		EventType:     adapter.EventTypeBatchCompleted,
		BatchID:       "batch-001",
		StartDay:      "20250601",
		EndDay:        "20250601",
		Total:         12,
		Successful:    12,
		SuccessRate:   1.0,
		Timestamp:     "2025-06-01T21:00:00Z",
		DurationMs:    30000,
	}
}

func TestPublish_KeysByBatchID(t *testing.T) {
	fw := &fakeWriter{}
	a := &Adapter{config: Config{Topic: DefaultTopic, Timeout: DefaultTimeout}, writer: fw}

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(fw.messages) != 1 {
		t.Fatalf("want 1 message, got %d", len(fw.messages))
	}
	if string(fw.messages[0].Key) != "batch-001" {
		t.Errorf("message key must be the batch ID, got %s", fw.messages[0].Key)
	}

	var received adapter.BatchCompletedEvent
	if err := json.Unmarshal(fw.messages[0].Value, &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if received.Total != 12 || received.EventType != adapter.EventTypeBatchCompleted {
		t.Errorf("unexpected event: %+v", received)
	}
}

func TestPublish_WriterError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	a := &Adapter{config: Config{Topic: DefaultTopic, Timeout: DefaultTimeout}, writer: fw}

	if err := a.Publish(t.Context(), testEvent()); err == nil {
		t.Fatal("expected writer error to surface")
	}
}

func TestClose_ClosesWriter(t *testing.T) {
	fw := &fakeWriter{}
	a := &Adapter{writer: fw}

	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !fw.closed {
		t.Error("close must propagate to the writer")
	}
}

func TestNew_RequiresBrokers(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing brokers")
	}
}

func TestNew_DefaultsApplied(t *testing.T) {
	a, err := New(Config{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()

	if a.config.Topic != DefaultTopic {
		t.Errorf("expected default topic %q, got %q", DefaultTopic, a.config.Topic)
	}
	if a.config.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultTimeout, a.config.Timeout)
	}
}
