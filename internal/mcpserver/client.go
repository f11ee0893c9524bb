package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the TiltCheck API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
}

// TiltCheckClient is a pure HTTP client for the TiltCheck API. The MCP
// server proxies tool calls through the public API rather than reaching
// into the stores, so both surfaces stay consistent.
type TiltCheckClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewTiltCheckClient creates a new client for the TiltCheck API.
func NewTiltCheckClient(cfg Config) *TiltCheckClient {
	return &TiltCheckClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error string `json:"error"`
}

// doGet makes a GET request to the API and returns the response body.
func (c *TiltCheckClient) doGet(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("api error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("api returned status %d", resp.StatusCode)
	}
	return body, nil
}

// GetSession fetches one session by ID.
func (c *TiltCheckClient) GetSession(ctx context.Context, id string) (json.RawMessage, error) {
	return c.doGet(ctx, "/v1/sessions/"+url.PathEscape(id), nil)
}

// ListSessions lists sessions with optional filters.
func (c *TiltCheckClient) ListSessions(ctx context.Context, user, platform, minLevel string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	setIf(q, "user", user)
	setIf(q, "platform", platform)
	setIf(q, "minLevel", minLevel)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doGet(ctx, "/v1/sessions", q)
}

// ListAlerts lists alert history with optional filters.
func (c *TiltCheckClient) ListAlerts(ctx context.Context, user, platform, level string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	setIf(q, "user", user)
	setIf(q, "platform", platform)
	setIf(q, "level", level)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doGet(ctx, "/v1/alerts", q)
}

// DailyStats fetches daily aggregates for a date range.
func (c *TiltCheckClient) DailyStats(ctx context.Context, from, to string) (json.RawMessage, error) {
	q := url.Values{}
	setIf(q, "from", from)
	setIf(q, "to", to)
	return c.doGet(ctx, "/v1/stats/daily", q)
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
