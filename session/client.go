package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultServerURL is where the session server listens by default.
const DefaultServerURL = "http://localhost:9222"

// ErrServerDown is returned by Ping when the server cannot be reached.
var ErrServerDown = errors.New("session: browser server is not running")

// Client talks to a session server on behalf of one session.
type Client struct {
	baseURL   string
	sessionID string
	http      *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout. Default: 10s.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient returns a client for sessionID on the server at baseURL.
func NewClient(baseURL, sessionID string, opts ...ClientOption) (*Client, error) {
	if sessionID == "" {
		return nil, errors.New("session: no session id (set ARIASNAP_SESSION_ID or --session-id)")
	}
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	c := &Client{
		baseURL:   baseURL,
		sessionID: sessionID,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// SessionID returns the session the client acts for.
func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) pagesURL(name string) string {
	u := c.baseURL + "/sessions/" + url.PathEscape(c.sessionID) + "/pages"
	if name != "" {
		u += "/" + url.PathEscape(name)
	}
	return u
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := c.ServerInfo(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrServerDown, err)
	}
	return nil
}

// ServerInfo returns the browser's DevTools WebSocket endpoint.
func (c *Client) ServerInfo(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/", nil, &info); err != nil {
		return ServerInfo{}, fmt.Errorf("session: server info: %w", err)
	}
	if info.WSEndpoint == "" {
		return ServerInfo{}, errors.New("session: server did not return wsEndpoint")
	}
	return info, nil
}

// ListPages returns the session's pages. A session without pages yields
// an empty list.
func (c *Client) ListPages(ctx context.Context) ([]PageInfo, error) {
	var out struct {
		Pages []PageInfo `json:"pages"`
	}
	err := c.do(ctx, http.MethodGet, c.pagesURL(""), nil, &out)
	if errors.Is(err, ErrNotFound) {
		return []PageInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: list pages: %w", err)
	}
	return out.Pages, nil
}

// CreatePage opens a named page, navigated to pageURL when non-empty.
func (c *Client) CreatePage(ctx context.Context, name, pageURL string) (PageInfo, error) {
	var info PageInfo
	req := CreatePageRequest{Name: name, URL: pageURL}
	if err := c.do(ctx, http.MethodPost, c.pagesURL(""), req, &info); err != nil {
		return PageInfo{}, fmt.Errorf("session: create page: %w", err)
	}
	return info, nil
}

// GetPage returns one page.
func (c *Client) GetPage(ctx context.Context, name string) (PageInfo, error) {
	var info PageInfo
	if err := c.do(ctx, http.MethodGet, c.pagesURL(name), nil, &info); err != nil {
		return PageInfo{}, fmt.Errorf("session: get page %s: %w", name, err)
	}
	return info, nil
}

// ClosePage closes the page's tab and forgets its name.
func (c *Client) ClosePage(ctx context.Context, name string) error {
	if err := c.do(ctx, http.MethodDelete, c.pagesURL(name), nil, nil); err != nil {
		return fmt.Errorf("session: close page %s: %w", name, err)
	}
	return nil
}

// StatusError is a non-2xx answer; Message is the server's "error" field.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

// Is maps status codes onto the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrExists:
		return e.Code == http.StatusConflict
	case ErrInvalidName:
		return e.Code == http.StatusBadRequest
	}
	return false
}

func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			se.Message = e.Error
		}
		return se
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
