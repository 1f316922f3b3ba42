package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Profile is an optional display name and message for a sender identity.
type Profile struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message,omitempty"`
}

// Client looks up sender profiles in batches. It is purely additive to
// display and never sits on the hot aggregation path.
type Client struct {
	endpoint   string
	maxBatch   int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a profile lookup client. An empty endpoint disables
// lookups; Lookup then returns an empty map.
func NewClient(endpoint string, maxBatch int, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBatch <= 0 {
		maxBatch = 64
	}
	return &Client{
		endpoint: endpoint,
		maxBatch: maxBatch,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

type lookupRequest struct {
	Addresses []string `json:"addresses"`
}

type lookupResponse struct {
	Profiles []Profile `json:"profiles"`
}

// Lookup resolves profiles for the given senders, keyed by lowercase
// address. Batches larger than the configured maximum are truncated for
// cost control.
func (c *Client) Lookup(ctx context.Context, senders []string) (map[string]Profile, error) {
	if c.endpoint == "" || len(senders) == 0 {
		return map[string]Profile{}, nil
	}
	if len(senders) > c.maxBatch {
		c.logger.Debug("truncating profile batch",
			zap.Int("requested", len(senders)),
			zap.Int("max", c.maxBatch),
		)
		senders = senders[:c.maxBatch]
	}

	body, err := json.Marshal(lookupRequest{Addresses: senders})
	if err != nil {
		return nil, fmt.Errorf("marshal lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile lookup status %d", resp.StatusCode)
	}

	var decoded lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}

	profiles := make(map[string]Profile, len(decoded.Profiles))
	for _, p := range decoded.Profiles {
		profiles[strings.ToLower(p.Address)] = p
	}
	return profiles, nil
}
