package overseerr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"overseerr-about/internal/status"
	"overseerr-about/internal/version"
)

const (
	AboutPath  = "/api/v1/settings/about"
	StatusPath = "/api/v1/status"
)

// --- robust helpers for JSON responses ---

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// readJSON enforces 200 OK and JSON-decodes into dst.
// On failure, it returns an error that includes status and a short body snippet.
func readJSON(resp *http.Response, dst any) error {
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &StatusError{
			Code: resp.StatusCode,
			URL:  resp.Request.URL.String(),
			Body: snippet(b),
		}
	}

	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode json from %s: %w; body: %q", resp.Request.URL.String(), err, snippet(b))
	}
	return nil
}

func snippet(b []byte) string {
	s := string(b)
	if len(s) > 240 {
		s = s[:240] + "…"
	}
	return s
}

// StatusError is returned for any non-200 upstream response.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d from %s: %s", e.Code, e.URL, e.Body)
}

type Client struct {
	BaseURL string
	APIKey  string
	http    httpDoer
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// About fetches version, counts and time zone.
func (c *Client) About(ctx context.Context) (status.AboutInfo, error) {
	var out status.AboutInfo
	if err := c.get(ctx, AboutPath, &out); err != nil {
		return status.AboutInfo{}, err
	}
	return out, nil
}

// Status fetches update availability. The endpoint is public upstream but the
// key is sent anyway so proxies in front of it can authenticate.
func (c *Client) Status(ctx context.Context) (status.StatusInfo, error) {
	var out status.StatusInfo
	if err := c.get(ctx, StatusPath, &out); err != nil {
		return status.StatusInfo{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	if c == nil || c.BaseURL == "" {
		return fmt.Errorf("overseerr: base URL not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.APIKey != "" {
		req.Header.Set("X-Api-Key", c.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return readJSON(resp, dst)
}
