package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/paddockhq/paddock/cli/config"
	"github.com/paddockhq/paddock/pipeline"
	"github.com/paddockhq/paddock/stages"
	"github.com/paddockhq/paddock/store"
	"github.com/paddockhq/paddock/types"
)

func TestBuildSource_RequiresBaseURL(t *testing.T) {
	if _, err := buildSource(config.SourceConfig{}); err == nil {
		t.Error("expected error for missing base URL")
	}
	if _, err := buildSource(config.SourceConfig{BaseURL: "https://results.example.com"}); err != nil {
		t.Errorf("valid source config rejected: %v", err)
	}
}

func TestBuildStore_Memory(t *testing.T) {
	st, err := buildStore(t.Context(), config.StoreConfig{})
	if err != nil {
		t.Fatalf("default store: %v", err)
	}
	defer func() { _ = st.Close() }()

	if _, ok := st.(*store.MemoryStore); !ok {
		t.Errorf("default backend must be memory, got %T", st)
	}
}

func TestBuildStore_CachedMemory(t *testing.T) {
	mr := miniredis.RunT(t)
	st, err := buildStore(t.Context(), config.StoreConfig{
		Backend: "memory",
		Cache:   config.CacheConfig{URL: "redis://" + mr.Addr()},
	})
	if err != nil {
		t.Fatalf("cached store: %v", err)
	}
	defer func() { _ = st.Close() }()

	if _, ok := st.(*store.CachedStore); !ok {
		t.Errorf("cache URL must wrap the store, got %T", st)
	}
}

func TestBuildStore_Errors(t *testing.T) {
	if _, err := buildStore(t.Context(), config.StoreConfig{Backend: "cassandra"}); err == nil {
		t.Error("unknown backend must error")
	}
	if _, err := buildStore(t.Context(), config.StoreConfig{Backend: "postgres"}); err == nil {
		t.Error("postgres without dsn must error")
	}
}

func TestBuildAdapters(t *testing.T) {
	adapters, err := buildAdapters([]config.AdapterConfig{
		{Type: "webhook", URL: "https://hooks.example.com/paddock"},
		{Type: "kafka", Brokers: []string{"localhost:9092"}},
	})
	if err != nil {
		t.Fatalf("build adapters: %v", err)
	}
	if len(adapters) != 2 {
		t.Errorf("want 2 adapters, got %d", len(adapters))
	}
	for _, a := range adapters {
		_ = a.Close()
	}
}

func TestBuildAdapters_UnknownType(t *testing.T) {
	if _, err := buildAdapters([]config.AdapterConfig{{Type: "carrier-pigeon"}}); err == nil {
		t.Error("unknown adapter type must error")
	}
}

func TestBuildFactory_FreshPipelines(t *testing.T) {
	deps := stages.Deps{
		Source: nil, // collection prerequisites catch this at run time
		Store:  store.NewMemoryStore(),
	}
	factory := buildFactory(deps)

	p1, err := factory()
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	p2, err := factory()
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if p1 == p2 {
		t.Error("factory must return fresh pipelines")
	}
	if p1.Status() != types.PipelineIdle {
		t.Errorf("fresh pipeline must be idle, got %s", p1.Status())
	}
}

func TestBuildRunResponse(t *testing.T) {
	rc := pipeline.NewContext(types.RaceKey{Day: "20250601", Venue: "KWS", RaceNo: 7})
	rc.RunID = "run-1"
	rc.StartedAt = time.Now()
	rc.CompletedAt = rc.StartedAt.Add(time.Second)
	rc.MarkFailed(errors.New("fetch blew up"))
	rc.Record(types.Failed("collection", errors.New("fetch blew up")))

	resp := buildRunResponse(rc)
	if !resp.Failed || resp.Error == "" {
		t.Errorf("failed run must carry error: %+v", resp)
	}
	if len(resp.Stages) != 1 || resp.Stages[0].Status != "failed" {
		t.Errorf("unexpected stage list: %+v", resp.Stages)
	}
	if resp.Key != "20250601/KWS/07" {
		t.Errorf("unexpected key: %s", resp.Key)
	}
}

func TestCollectorLabels(t *testing.T) {
	cfg := &config.Config{}
	src, st := collectorLabels(cfg)
	if src != "http" || st != "memory" {
		t.Errorf("defaults wrong: %s/%s", src, st)
	}

	cfg.Store.Backend = "postgres"
	cfg.Store.Cache.URL = "redis://localhost:6379"
	if _, st := collectorLabels(cfg); st != "postgres+redis" {
		t.Errorf("cached postgres label wrong: %s", st)
	}
}
