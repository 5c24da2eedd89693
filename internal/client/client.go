// Package client talks to the Digital Buho REST API on behalf of the front end.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ErrNoToken is returned by authenticated calls when no access token is stored
var ErrNoToken = errors.New("no access token, please sign in")

// TokenStore persists the access and refresh tokens between runs
type TokenStore interface {
	Tokens() (access, refresh string, err error)
	SetTokens(access, refresh string) error
	ClearTokens() error
}

// MemoryTokens is a TokenStore that lives only as long as the process
type MemoryTokens struct {
	access, refresh string
}

// Tokens implements TokenStore
func (m *MemoryTokens) Tokens() (string, string, error) { return m.access, m.refresh, nil }

// SetTokens implements TokenStore
func (m *MemoryTokens) SetTokens(access, refresh string) error {
	m.access = access
	if refresh != "" {
		m.refresh = refresh
	}
	return nil
}

// ClearTokens implements TokenStore
func (m *MemoryTokens) ClearTokens() error {
	m.access, m.refresh = "", ""
	return nil
}

// APIError is a non-2xx response
type APIError struct {
	Status int
	Detail string
	Code   string
	Fields map[string][]string
}

// Error renders field errors as "field: a, b; other: c", otherwise the detail
func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		fields := make([]string, 0, len(e.Fields))
		for f := range e.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = f + ": " + strings.Join(e.Fields[f], ", ")
		}
		return strings.Join(parts, "; ")
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d %s", e.Status, http.StatusText(e.Status))
}

// IsUnauthorized reports whether err is a 401 from the API
func IsUnauthorized(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

// Client is a REST client bound to one API base URL
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenStore
}

// New creates a client for baseURL, e.g. "http://127.0.0.1:8000/api/"
func New(baseURL string, timeout time.Duration, tokens TokenStore) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", baseURL)
	}
	if tokens == nil {
		tokens = &MemoryTokens{}
	}
	return &Client{
		base:   base,
		http:   &http.Client{Timeout: timeout},
		tokens: tokens,
	}, nil
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.base.String()
}

// request describes one API call
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	anon   bool
}

// do runs req, refreshing the access token once when the API rejects it.
// When the API also rejects the refresh token the stored pair is dropped.
func (c *Client) do(ctx context.Context, req request) error {
	err := c.send(ctx, req)
	if req.anon || !IsUnauthorized(err) {
		return err
	}
	if rerr := c.Refresh(ctx); rerr != nil {
		var ae *APIError
		if errors.As(rerr, &ae) {
			if cerr := c.tokens.ClearTokens(); cerr != nil {
				return fmt.Errorf("clear tokens: %w", cerr)
			}
		}
		return err
	}
	return c.send(ctx, req)
}

func (c *Client) send(ctx context.Context, req request) error {
	u := c.base.JoinPath(req.path)
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(raw)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return err
	}
	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if !req.anon {
		access, _, err := c.tokens.Tokens()
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		if access == "" {
			return ErrNoToken
		}
		hreq.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, u.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}
	if req.out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, req.out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.method, u.Path, err)
	}
	return nil
}

// decodeError reads {"detail": "..."} bodies and {"field": ["msg"]} maps alike
func decodeError(status int, raw []byte) *APIError {
	ae := &APIError{Status: status}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		ae.Detail = strings.TrimSpace(string(raw))
		if len(ae.Detail) > 200 {
			ae.Detail = ae.Detail[:200]
		}
		return ae
	}

	for key, value := range doc {
		switch key {
		case "detail":
			_ = json.Unmarshal(value, &ae.Detail)
			continue
		case "code":
			_ = json.Unmarshal(value, &ae.Code)
			continue
		}
		var msgs []string
		if err := json.Unmarshal(value, &msgs); err != nil {
			var msg string
			if err := json.Unmarshal(value, &msg); err != nil {
				msg = string(value)
			}
			msgs = []string{msg}
		}
		if ae.Fields == nil {
			ae.Fields = map[string][]string{}
		}
		ae.Fields[key] = msgs
	}
	return ae
}
