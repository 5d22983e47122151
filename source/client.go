// Package source provides the upstream race-card collaborator.
//
// The collection stage is agnostic to the implementation behind Client;
// HTTPClient talks to the real result service and StubClient serves tests.
package source

import (
	"context"
	"errors"

	"github.com/paddockhq/paddock/types"
)

// Sentinel errors for fetch failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrNotFound indicates the source has no card for the key (404).
	ErrNotFound = errors.New("race card not found")

	// ErrThrottled indicates the source is rate limiting (429).
	ErrThrottled = errors.New("source rate limited")

	// ErrUpstream indicates a source-side failure (5xx).
	ErrUpstream = errors.New("source unavailable")
)

// Client fetches race cards from the upstream source.
type Client interface {
	// FetchRaceCard retrieves the card for one race. The returned card
	// carries both the decoded entries and the raw response payload.
	FetchRaceCard(ctx context.Context, key types.RaceKey) (*types.RaceCard, error)
}

// StubClient is a test client serving canned cards without network I/O.
type StubClient struct {
	// Cards maps key strings (RaceKey.String()) to canned responses.
	Cards map[string]*types.RaceCard
	// Err, when set, is returned by every fetch.
	Err error
	// Calls records every fetched key in order.
	Calls []types.RaceKey
}

// NewStubClient creates an empty stub client.
func NewStubClient() *StubClient {
	return &StubClient{Cards: make(map[string]*types.RaceCard)}
}

// Add registers a canned card under its own key.
func (c *StubClient) Add(card *types.RaceCard) *StubClient {
	c.Cards[card.Key.String()] = card
	return c
}

// FetchRaceCard implements Client.
func (c *StubClient) FetchRaceCard(_ context.Context, key types.RaceKey) (*types.RaceCard, error) {
	c.Calls = append(c.Calls, key)
	if c.Err != nil {
		return nil, c.Err
	}
	card, ok := c.Cards[key.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return card, nil
}

// Verify StubClient implements Client.
var _ Client = (*StubClient)(nil)
