package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/paddockhq/paddock/types"
)

// DefaultHistoryTTL is the default lifetime of cached rider history.
const DefaultHistoryTTL = 15 * time.Minute

// historyKeyPrefix namespaces cached rider history in Redis.
const historyKeyPrefix = "paddock:history:"

// CacheConfig configures the Redis read-through cache.
type CacheConfig struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// TTL is the lifetime of cached history entries (default 15m).
	TTL time.Duration
}

// CachedStore wraps an inner Store with a Redis read-through cache for
// rider history. History is the hot path during enrichment (one lookup per
// lane per race); results themselves always go to the inner store.
//
// Cache entries are msgpack-encoded. Saves and deletes invalidate the
// affected riders' cached history.
type CachedStore struct {
	inner  Store
	client *goredis.Client
	ttl    time.Duration
}

// NewCachedStore creates a Redis read-through cache over inner.
func NewCachedStore(inner Store, cfg CacheConfig) (*CachedStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("store: cache requires a redis URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("store: invalid redis URL: %w", err)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultHistoryTTL
	}

	return &CachedStore{
		inner:  inner,
		client: goredis.NewClient(opts),
		ttl:    cfg.TTL,
	}, nil
}

// LoadResults implements Store. Results are not cached.
func (s *CachedStore) LoadResults(ctx context.Context, key types.RaceKey) ([]types.ResultRecord, error) {
	return s.inner.LoadResults(ctx, key)
}

// SaveResults implements Store. Invalidates cached history for every rider
// in the saved records after the inner save succeeds.
func (s *CachedStore) SaveResults(ctx context.Context, key types.RaceKey, records []types.ResultRecord) error {
	if err := s.inner.SaveResults(ctx, key, records); err != nil {
		return err
	}
	s.invalidate(ctx, riderIDs(records))
	return nil
}

// DeleteResults implements Store. Invalidates cached history for the riders
// of the deleted race, read from the inner store before deletion.
func (s *CachedStore) DeleteResults(ctx context.Context, key types.RaceKey) error {
	records, err := s.inner.LoadResults(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.inner.DeleteResults(ctx, key); err != nil {
		return err
	}
	s.invalidate(ctx, riderIDs(records))
	return nil
}

// LoadHistory implements Store: Redis first, inner store on miss.
// Cache failures degrade to the inner store rather than failing the read.
func (s *CachedStore) LoadHistory(ctx context.Context, riderID string, limit int) ([]types.ResultRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	cacheKey := fmt.Sprintf("%s%s:%d", historyKeyPrefix, riderID, limit)

	blob, err := s.client.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var cached []types.ResultRecord
		if err := msgpack.Unmarshal(blob, &cached); err == nil {
			return cached, nil
		}
		// Corrupt entry: drop it and fall through to the inner store.
		s.client.Del(ctx, cacheKey)
	}

	records, err := s.inner.LoadHistory(ctx, riderID, limit)
	if err != nil {
		return nil, err
	}

	if blob, err := msgpack.Marshal(records); err == nil {
		s.client.Set(ctx, cacheKey, blob, s.ttl)
	}
	return records, nil
}

// Close implements Store. Closes both the cache client and the inner store.
func (s *CachedStore) Close() error {
	cacheErr := s.client.Close()
	innerErr := s.inner.Close()
	if cacheErr != nil {
		return cacheErr
	}
	return innerErr
}

// invalidate deletes cached history for the given riders, best effort.
func (s *CachedStore) invalidate(ctx context.Context, riders []string) {
	for _, riderID := range riders {
		pattern := historyKeyPrefix + riderID + ":*"
		iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			s.client.Del(ctx, iter.Val())
		}
	}
}

func riderIDs(records []types.ResultRecord) []string {
	seen := make(map[string]struct{}, len(records))
	var ids []string
	for _, r := range records {
		if _, ok := seen[r.RiderID]; ok {
			continue
		}
		seen[r.RiderID] = struct{}{}
		ids = append(ids, r.RiderID)
	}
	return ids
}

// Verify CachedStore implements Store.
var _ Store = (*CachedStore)(nil)
