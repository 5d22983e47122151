// Package store provides the persistent result-store collaborator.
//
// The enrichment stage reads rider history and persists normalized results
// through the Store interface. Implementations: MemoryStore (tests,
// single-process runs), PostgresStore (durable), CachedStore (Redis
// read-through cache over any Store).
package store

import (
	"context"
	"errors"

	"github.com/paddockhq/paddock/types"
)

// ErrNotFound indicates no results are stored for the key.
var ErrNotFound = errors.New("results not found")

// DefaultHistoryLimit is the default number of prior results loaded per
// rider during enrichment.
const DefaultHistoryLimit = 50

// Store persists normalized race results and serves per-rider history.
// Implementations must be safe for concurrent use: the orchestrator shares
// one Store across all pipeline runs in a batch.
type Store interface {
	// LoadResults returns the stored results for one race.
	// Returns ErrNotFound when the race has never been saved.
	LoadResults(ctx context.Context, key types.RaceKey) ([]types.ResultRecord, error)

	// SaveResults stores the results for one race, replacing any previous
	// save for the same key.
	SaveResults(ctx context.Context, key types.RaceKey, records []types.ResultRecord) error

	// DeleteResults removes the stored results for one race. Deleting a
	// key that was never saved is not an error.
	DeleteResults(ctx context.Context, key types.RaceKey) error

	// LoadHistory returns up to limit prior results for one rider, most
	// recent day first.
	LoadHistory(ctx context.Context, riderID string, limit int) ([]types.ResultRecord, error)

	// Close releases store resources.
	Close() error
}
