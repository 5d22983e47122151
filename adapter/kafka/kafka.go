// Package kafka implements a Kafka notification adapter.
//
// Publishes batch completion events as JSON messages keyed by batch ID.
// Delivery retries are delegated to the writer's own retry handling.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/paddockhq/paddock/adapter"
)

// DefaultTopic is the default topic name.
const DefaultTopic = "paddock.batch_completed"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 10 * time.Second

// Config configures the Kafka adapter.
type Config struct {
	// Brokers are the bootstrap broker addresses (at least one required).
	Brokers []string
	// Topic is the destination topic (default: paddock.batch_completed).
	Topic string
	// Timeout is the per-publish timeout (default 10s).
	Timeout time.Duration
}

// messageWriter is the subset of kafka.Writer the adapter uses.
// Narrowing the dependency lets tests substitute an in-memory writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Adapter publishes batch completion events to a Kafka topic.
type Adapter struct {
	config Config
	writer messageWriter
}

// New creates a Kafka adapter from the given config.
// Returns an error if no brokers are configured.
func New(cfg Config) (*Adapter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka adapter requires at least one broker")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}

	return &Adapter{config: cfg, writer: writer}, nil
}

// Publish sends the event as a JSON message keyed by batch ID.
func (a *Adapter) Publish(ctx context.Context, event *adapter.BatchCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	err = a.writer.WriteMessages(publishCtx, kafkago.Message{
		Key:   []byte(event.BatchID),
		Value: body,
	})
	if err != nil {
		return fmt.Errorf("kafka: publish to %s: %w", a.config.Topic, err)
	}
	return nil
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.writer.Close()
}

// Verify Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
