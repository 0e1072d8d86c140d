// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/M-Chimiste/DCSOlympus/pkg/core"
	"github.com/M-Chimiste/DCSOlympus/pkg/streaming"
)

// Cursor supplies the server time of the last applied units payload.
type Cursor interface {
	ServerTime() int64
}

type fullCursor struct{}

func (fullCursor) ServerTime() int64 { return 0 }

// Config holds the connection settings for the Olympus server.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	// Cursor drives delta requests. Without one every delta asks for time 0.
	Cursor Cursor
}

// Client handles communication with the Olympus simulation server. Every
// request updates the connected flag read by the sync loop.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client

	connected atomic.Bool
	cursor    Cursor
}

// New creates a new API client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cursor := cfg.Cursor
	if cursor == nil {
		cursor = fullCursor{}
	}
	return &Client{
		cursor:     cursor,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Connected reports whether the last request reached the server.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Healthcheck checks if the Olympus server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/healthcheck", nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// FetchUnits requests units changed since the last applied server time, or every
// unit when fullRefresh is set. The cursor only moves when the caller applies a
// payload, so responses dropped as stale never skip deltas.
func (c *Client) FetchUnits(ctx context.Context, fullRefresh bool) (*core.UnitsData, error) {
	since := int64(0)
	if !fullRefresh {
		since = c.cursor.ServerTime()
	}

	var data core.UnitsData
	if err := c.getJSON(ctx, "/units?time="+strconv.FormatInt(since, 10), &data); err != nil {
		return nil, fmt.Errorf("fetch units: %w", err)
	}
	data.FullRefresh = fullRefresh
	return &data, nil
}

// FetchAirbases requests the full airbase list.
func (c *Client) FetchAirbases(ctx context.Context) (*core.AirbasesData, error) {
	var data core.AirbasesData
	if err := c.getJSON(ctx, "/airbases", &data); err != nil {
		return nil, fmt.Errorf("fetch airbases: %w", err)
	}
	return &data, nil
}

// FetchBullseyes requests the coalition bullseyes.
func (c *Client) FetchBullseyes(ctx context.Context) (*core.BullseyesData, error) {
	var data core.BullseyesData
	if err := c.getJSON(ctx, "/bullseyes", &data); err != nil {
		return nil, fmt.Errorf("fetch bullseyes: %w", err)
	}
	return &data, nil
}

// Send delivers a command envelope with a PUT to /commands.
func (c *Client) Send(ctx context.Context, env streaming.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.Type, err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/commands", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", env.Type, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", env.Type, resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return req, nil
}

// do performs the request and records reachability.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.connected.Store(false)
		return nil, err
	}
	c.connected.Store(resp.StatusCode < http.StatusInternalServerError)
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
