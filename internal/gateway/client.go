// Package gateway implements the client for the external data service. The
// service exposes named procedures taking keyword parameters and returning
// row-shaped results, with an optional paginated-fetch mode.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jordanharb/moneytrail/internal/cache"
	"github.com/jordanharb/moneytrail/internal/common"
	"github.com/jordanharb/moneytrail/internal/config"
	"github.com/jordanharb/moneytrail/internal/service"
)

// Client invokes named procedures over HTTP. An optional result cache
// short-circuits repeated identical calls within a run.
type Client struct {
	httpClient *http.Client
	results    *cache.Cache
	ttls       map[string]time.Duration
	baseURL    string
	apiKey     string
	defaultTTL time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithCache attaches a result cache. Per-procedure TTLs override the
// default; near-static reference data warrants long TTLs, volatile data
// short ones.
func WithCache(c *cache.Cache, defaultTTL time.Duration, perProc map[string]time.Duration) Option {
	return func(g *Client) {
		g.results = c
		g.defaultTTL = defaultTTL
		g.ttls = perProc
	}
}

// New creates a gateway client for the configured data service.
func New(cfg config.Gateway, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: gateway URL is required", common.ErrMissingConfig)
	}

	g := &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// rpcResponse is the wire shape of a procedure result.
type rpcResponse struct {
	Error string            `json:"error,omitempty"`
	Rows  []json.RawMessage `json:"rows"`
}

// Call invokes proc with params and decodes the result rows into dest,
// which must be a pointer to a slice. Results are served from the cache
// when a fresh entry exists.
func (g *Client) Call(ctx context.Context, proc string, params service.Params, dest any) error {
	key := cache.Key(proc, params)

	if g.results != nil {
		if payload, ok := g.results.Get(key); ok {
			if raw, isRaw := payload.([]byte); isRaw {
				return json.Unmarshal(raw, dest)
			}
		}
	}

	rows, err := g.invoke(ctx, proc, params)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to re-encode rows: %w", err)
	}

	if g.results != nil {
		g.results.Set(key, raw, g.ttlFor(proc))
	}

	return json.Unmarshal(raw, dest)
}

// CallPaged invokes proc with pagination controls and returns the raw rows
// for that single page. Paged results bypass the cache; page windows over
// volatile data are not worth memoizing.
func (g *Client) CallPaged(ctx context.Context, proc string, params service.Params, page service.Page) ([]json.RawMessage, error) {
	merged := make(service.Params, len(params)+2)
	for k, v := range params {
		merged[k] = v
	}
	merged["limit"] = page.Limit
	merged["offset"] = page.Offset

	return g.invoke(ctx, proc, merged)
}

func (g *Client) invoke(ctx context.Context, proc string, params service.Params) ([]json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{"params": params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	url := fmt.Sprintf("%s/rpc/%s", g.baseURL, proc)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrDataFetch, proc, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to read response: %v", common.ErrDataFetch, proc, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d: %s", common.ErrDataFetch, proc, resp.StatusCode, string(respBody))
	}

	var result rpcResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: %s: failed to parse response: %v", common.ErrDataFetch, proc, err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s: %s", common.ErrDataFetch, proc, result.Error)
	}

	return result.Rows, nil
}

func (g *Client) ttlFor(proc string) time.Duration {
	if ttl, ok := g.ttls[proc]; ok {
		return ttl
	}
	if g.defaultTTL > 0 {
		return g.defaultTTL
	}
	return 5 * time.Minute
}
