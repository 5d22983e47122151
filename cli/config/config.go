package config

import (
	"fmt"
	"time"
)

// Config represents a paddock.yaml configuration file.
// All values are optional and act as defaults for paddock flags.
// CLI flags always override config values.
type Config struct {
	Source   SourceConfig    `yaml:"source"`
	Store    StoreConfig     `yaml:"store"`
	Archive  ArchiveConfig   `yaml:"archive"`
	Adapters []AdapterConfig `yaml:"adapters,omitempty"`
	Batch    BatchConfig     `yaml:"batch"`
}

// SourceConfig holds upstream result-service defaults.
type SourceConfig struct {
	BaseURL   string   `yaml:"base_url"`
	UserAgent string   `yaml:"user_agent,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty"`
}

// StoreConfig holds result-store defaults.
type StoreConfig struct {
	// Backend selects the store implementation: "memory" or "postgres".
	Backend string `yaml:"backend"`
	// DSN is the Postgres connection string (postgres backend only).
	DSN string `yaml:"dsn,omitempty"`
	// HistoryLimit caps the rider history window used by enrichment.
	HistoryLimit int `yaml:"history_limit,omitempty"`
	// Cache enables the Redis read-through history cache when URL is set.
	Cache CacheConfig `yaml:"cache,omitempty"`
}

// CacheConfig holds Redis cache defaults.
type CacheConfig struct {
	URL string   `yaml:"url,omitempty"`
	TTL Duration `yaml:"ttl,omitempty"`
}

// ArchiveConfig holds raw-card archive defaults. Archiving is enabled when
// Bucket is set.
type ArchiveConfig struct {
	Bucket      string `yaml:"bucket,omitempty"`
	Prefix      string `yaml:"prefix,omitempty"`
	Region      string `yaml:"region,omitempty"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	S3PathStyle bool   `yaml:"s3_path_style,omitempty"`
}

// AdapterConfig holds one downstream notification adapter.
type AdapterConfig struct {
	// Type selects the adapter: "redis", "webhook", or "kafka".
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url,omitempty"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Brokers []string          `yaml:"brokers,omitempty"`
	Topic   string            `yaml:"topic,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// BatchConfig holds batch orchestration defaults.
type BatchConfig struct {
	// Concurrency bounds simultaneous pipeline runs.
	Concurrency int `yaml:"concurrency,omitempty"`
	// Venues are the venue codes expanded into batch keys.
	Venues []string `yaml:"venues,omitempty"`
	// RaceNos are the race numbers expanded into batch keys.
	RaceNos []int `yaml:"race_nos,omitempty"`
	// Report is the batch report path ("-" for stderr).
	Report string `yaml:"report,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
