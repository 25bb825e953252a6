// Package client talks to a running boxwatch daemon's status API. It is used
// by the status command and is importable by external tooling.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/boxwatch/boxwatch/internal/history"
	"github.com/boxwatch/boxwatch/internal/watchdog"
)

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns the client defaults matching the daemon's defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8080/api",
		Timeout: 10 * time.Second,
	}
}

// Client provides HTTP access to a boxwatch daemon.
type Client struct {
	baseURL string
	client  *http.Client
}

func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// IsReachable reports whether a daemon answers on the configured address.
func (c *Client) IsReachable(ctx context.Context) bool {
	st, err := c.get(ctx, "/healthz")
	if err != nil {
		return false
	}
	return st == http.StatusOK
}

// Status fetches the daemon's state snapshot.
func (c *Client) Status(ctx context.Context) (watchdog.Status, error) {
	var out watchdog.Status
	if err := c.getJSON(ctx, "/status", &out); err != nil {
		return watchdog.Status{}, err
	}
	return out, nil
}

// History fetches the newest audit events, most recent first.
func (c *Client) History(ctx context.Context, limit int) ([]history.Event, error) {
	path := "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []history.Event
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errorResp); err == nil && errorResp.Error != "" {
			return fmt.Errorf("API error: %s", errorResp.Error)
		}
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
