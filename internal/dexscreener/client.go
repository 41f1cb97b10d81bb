// Package dexscreener is a client for the public token-profile and pair feeds.
package dexscreener

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"solana-token-gate/internal/observability"
)

// Default endpoints and transport settings.
const (
	DefaultProfilesURL = "https://api.dexscreener.com/token-profiles/latest/v1"
	DefaultPairsURL    = "https://api.dexscreener.com/latest/dex/tokens/"

	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// ErrInvalidResponse is returned when a body is not the expected JSON shape.
var ErrInvalidResponse = errors.New("invalid response")

// Limiter gates outbound calls. Satisfied by *throttle.Throttle.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Client fetches profiles and pairs over HTTP.
type Client struct {
	profilesURL string
	pairsURL    string
	client      *http.Client
	limiter     Limiter
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for 429 and 5xx responses.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithThrottle makes every outbound request wait on l first.
func WithThrottle(l Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewClient creates a client. Empty URLs fall back to the public defaults.
func NewClient(profilesURL, pairsURL string, opts ...Option) *Client {
	if profilesURL == "" {
		profilesURL = DefaultProfilesURL
	}
	if pairsURL == "" {
		pairsURL = DefaultPairsURL
	}
	c := &Client{
		profilesURL: profilesURL,
		pairsURL:    pairsURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestProfiles fetches the latest token profiles.
// The body must be a JSON array.
func (c *Client) LatestProfiles(ctx context.Context) ([]Profile, error) {
	body, err := c.get(ctx, "profiles", c.profilesURL)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: profiles body is not a list", ErrInvalidResponse)
	}

	var profiles []Profile
	if err := json.Unmarshal(trimmed, &profiles); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return profiles, nil
}

// TokenPairs fetches the pairs of a token. Returns nil when the feed has none.
func (c *Client) TokenPairs(ctx context.Context, address string) ([]Pair, error) {
	body, err := c.get(ctx, "pairs", c.pairsEndpoint(address))
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: pairs body is not an object", ErrInvalidResponse)
	}

	var resp pairsResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if len(resp.Pairs) == 0 {
		return nil, nil
	}
	return resp.Pairs, nil
}

func (c *Client) pairsEndpoint(address string) string {
	base := c.pairsURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + url.PathEscape(address)
}

// get performs a GET with retries on 429 and 5xx.
func (c *Client) get(ctx context.Context, endpoint, target string) ([]byte, error) {
	start := time.Now()
	defer func() {
		observability.RecordHTTPLatency(endpoint, time.Since(start).Seconds())
	}()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Acquire(ctx); err != nil {
				return nil, fmt.Errorf("throttle: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
