package store

import (
	"context"
	"sort"
	"sync"

	"github.com/paddockhq/paddock/types"
)

// MemoryStore is an in-memory Store for tests and single-process runs.
// Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string][]types.ResultRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string][]types.ResultRecord),
	}
}

// LoadResults implements Store.
func (s *MemoryStore) LoadResults(_ context.Context, key types.RaceKey) ([]types.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.results[key.String()]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]types.ResultRecord, len(records))
	copy(out, records)
	return out, nil
}

// SaveResults implements Store.
func (s *MemoryStore) SaveResults(_ context.Context, key types.RaceKey, records []types.ResultRecord) error {
	saved := make([]types.ResultRecord, len(records))
	copy(saved, records)

	s.mu.Lock()
	s.results[key.String()] = saved
	s.mu.Unlock()
	return nil
}

// DeleteResults implements Store.
func (s *MemoryStore) DeleteResults(_ context.Context, key types.RaceKey) error {
	s.mu.Lock()
	delete(s.results, key.String())
	s.mu.Unlock()
	return nil
}

// LoadHistory implements Store.
func (s *MemoryStore) LoadHistory(_ context.Context, riderID string, limit int) ([]types.ResultRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	s.mu.RLock()
	var history []types.ResultRecord
	for _, records := range s.results {
		for _, r := range records {
			if r.RiderID == riderID {
				history = append(history, r)
			}
		}
	}
	s.mu.RUnlock()

	// Most recent day first; race number breaks ties within a day.
	sort.Slice(history, func(i, j int) bool {
		if history[i].Key.Day != history[j].Key.Day {
			return history[i].Key.Day > history[j].Key.Day
		}
		return history[i].Key.RaceNo > history[j].Key.RaceNo
	})

	if len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

// Verify MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
