package cmd

import (
	"context"
	"fmt"

	"github.com/paddockhq/paddock/adapter"
	adapterkafka "github.com/paddockhq/paddock/adapter/kafka"
	adapterredis "github.com/paddockhq/paddock/adapter/redis"
	adapterwebhook "github.com/paddockhq/paddock/adapter/webhook"
	"github.com/paddockhq/paddock/cli/config"
	"github.com/paddockhq/paddock/metrics"
	"github.com/paddockhq/paddock/orchestrator"
	"github.com/paddockhq/paddock/pipeline"
	"github.com/paddockhq/paddock/source"
	"github.com/paddockhq/paddock/stages"
	"github.com/paddockhq/paddock/store"
)

// loadConfig loads the config file when --config is set; an absent flag
// yields an empty config so flags alone can drive a run.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

// buildSource creates the upstream result-service client.
func buildSource(cfg config.SourceConfig) (source.Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("source base URL is required (--base-url or source.base_url)")
	}
	return source.NewHTTPClient(source.HTTPConfig{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout.Duration,
	})
}

// buildStore creates the result store: memory by default, postgres when
// configured, optionally wrapped in the Redis history cache.
func buildStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	var (
		inner store.Store
		err   error
	)
	switch cfg.Backend {
	case "", "memory":
		inner = store.NewMemoryStore()
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres store requires store.dsn")
		}
		inner, err = store.NewPostgresStore(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q (must be memory or postgres)", cfg.Backend)
	}

	if cfg.Cache.URL == "" {
		return inner, nil
	}
	return store.NewCachedStore(inner, store.CacheConfig{
		URL: cfg.Cache.URL,
		TTL: cfg.Cache.TTL.Duration,
	})
}

// buildArchiver creates the raw-card archiver, or nil when archiving is not
// configured.
func buildArchiver(ctx context.Context, cfg config.ArchiveConfig) (store.Archiver, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}
	return store.NewS3Archiver(ctx, store.S3Config{
		Bucket:       cfg.Bucket,
		Prefix:       cfg.Prefix,
		Region:       cfg.Region,
		Endpoint:     cfg.Endpoint,
		UsePathStyle: cfg.S3PathStyle,
	})
}

// buildAdapters creates the configured notification adapters.
func buildAdapters(configs []config.AdapterConfig) ([]adapter.Adapter, error) {
	adapters := make([]adapter.Adapter, 0, len(configs))
	for _, cfg := range configs {
		a, err := buildAdapter(cfg)
		if err != nil {
			// Close anything already built before bailing.
			for _, built := range adapters {
				_ = built.Close()
			}
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

func buildAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	retries := -1
	if cfg.Retries != nil {
		retries = *cfg.Retries
	}

	switch cfg.Type {
	case "redis":
		c := adapterredis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Timeout: cfg.Timeout.Duration,
		}
		if retries >= 0 {
			c.Retries = retries
		} else {
			c.Retries = adapterredis.DefaultRetries
		}
		return adapterredis.New(c)

	case "webhook":
		c := adapterwebhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
		}
		if retries >= 0 {
			c.Retries = retries
		} else {
			c.Retries = adapterwebhook.DefaultRetries
		}
		return adapterwebhook.New(c)

	case "kafka":
		return adapterkafka.New(adapterkafka.Config{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			Timeout: cfg.Timeout.Duration,
		})

	default:
		return nil, fmt.Errorf("unknown adapter type %q (must be redis, webhook, or kafka)", cfg.Type)
	}
}

// buildFactory returns a factory producing fresh ingestion pipelines over
// the shared collaborators.
func buildFactory(deps stages.Deps) orchestrator.PipelineFactory {
	return func() (*pipeline.Pipeline, error) {
		return pipeline.NewBuilder("ingest").
			With(stages.Build(deps)...).
			WithCollector(deps.Collector).
			Build()
	}
}

// collectorLabels derives metric dimension labels from config.
func collectorLabels(cfg *config.Config) (string, string) {
	sourceLabel := "http"
	storeLabel := cfg.Store.Backend
	if storeLabel == "" {
		storeLabel = "memory"
	}
	if cfg.Store.Cache.URL != "" {
		storeLabel += "+redis"
	}
	return sourceLabel, storeLabel
}

// newCollector builds the batch metrics collector.
func newCollector(cfg *config.Config, batchID string) *metrics.Collector {
	sourceLabel, storeLabel := collectorLabels(cfg)
	return metrics.NewCollector(sourceLabel, storeLabel, batchID)
}
