package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paddockhq/paddock/iox"
	"github.com/paddockhq/paddock/types"
)

// DefaultTimeout is the default per-fetch HTTP timeout.
const DefaultTimeout = 15 * time.Second

// defaultUserAgent identifies paddock to the result service.
const defaultUserAgent = "paddock/" + types.Version

// HTTPConfig configures the HTTP source client.
type HTTPConfig struct {
	// BaseURL is the result service root (required), without trailing slash.
	BaseURL string
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// Timeout is the per-request timeout (default 15s).
	Timeout time.Duration
}

// HTTPClient fetches race cards over HTTP.
// Card URLs follow the result service's path scheme:
// {base}/cards/{day}/{venue}/{race_no}.
type HTTPClient struct {
	config HTTPConfig
	client *http.Client
}

// NewHTTPClient creates an HTTP source client from the given config.
// Returns an error if the base URL is empty.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("source: base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &HTTPClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// cardResponse is the wire shape of the result service's card endpoint.
type cardResponse struct {
	Day     string `json:"day"`
	Venue   string `json:"venue"`
	RaceNo  int    `json:"race_no"`
	Entries []struct {
		Lane        int     `json:"lane"`
		RiderID     string  `json:"rider_id"`
		RiderName   string  `json:"rider_name"`
		FinishOrder int     `json:"finish_order"`
		FinishTime  string  `json:"finish_time"`
		Odds        float64 `json:"odds"`
	} `json:"entries"`
}

// FetchRaceCard implements Client.
// Non-2xx responses are classified into the package sentinels so stages can
// distinguish missing cards from throttling and upstream failures.
func (c *HTTPClient) FetchRaceCard(ctx context.Context, key types.RaceKey) (*types.RaceCard, error) {
	url := fmt.Sprintf("%s/cards/%s/%s/%d", c.config.BaseURL, key.Day, key.Venue, key.RaceNo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: fetch %s: %w", key, err)
	}
	defer iox.DiscardClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("source: %s: %w", key, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("source: %s: %w", key, ErrThrottled)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("source: %s: status %d: %w", key, resp.StatusCode, ErrUpstream)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("source: %s: unexpected status %d", key, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("source: read body for %s: %w", key, err)
	}

	var wire cardResponse
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("source: decode card for %s: %w", key, err)
	}

	card := &types.RaceCard{
		Key:       key,
		FetchedAt: time.Now().UTC(),
		Payload:   payload,
	}
	for _, e := range wire.Entries {
		card.Entries = append(card.Entries, types.CardEntry{
			Lane:        e.Lane,
			RiderID:     e.RiderID,
			RiderName:   e.RiderName,
			FinishOrder: e.FinishOrder,
			FinishTime:  e.FinishTime,
			Odds:        e.Odds,
		})
	}
	return card, nil
}

// Verify HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
