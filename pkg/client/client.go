// Package client is a small Go client for the therapy platform auth API.
//
// The bearer credential is never captured at construction time. Every
// authenticated call asks its TokenSource for the current token, so a login,
// logout or refresh elsewhere in the program is seen by the next request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// TokenSource returns the bearer token to use for one request. An empty
// token with a nil error means "not logged in".
type TokenSource func(ctx context.Context) (string, error)

// ErrNotLoggedIn is returned by authenticated calls when the TokenSource has
// no token.
var ErrNotLoggedIn = errors.New("client: not logged in")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// MemoryTokenStore keeps the session token in memory. Its Token method is a
// TokenSource.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

func (s *MemoryTokenStore) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryTokenStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *MemoryTokenStore) Clear() { s.Set("") }

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	store   *MemoryTokenStore
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource sets where authenticated calls read their token from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithTokenStore makes Login save and Logout clear the token in store, and
// uses the store as the TokenSource unless one was set explicitly.
func WithTokenStore(store *MemoryTokenStore) Option {
	return func(c *Client) { c.store = store }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil && c.store != nil {
		c.tokens = c.store.Token
	}
	return c
}

type SignupRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Username       string `json:"username,omitempty"`
	Role           string `json:"role,omitempty"`
	Name           string `json:"name,omitempty"`
	Address        string `json:"address,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Bio            string `json:"bio,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	LicenseNumber  string `json:"license_number,omitempty"`
}

type Session struct {
	Token     string        `json:"token"`
	ExpiresIn time.Duration `json:"-"`
	Role      string        `json:"role"`
}

type Principal struct {
	ID        string            `json:"id"`
	Username  string            `json:"username"`
	Email     string            `json:"email"`
	Role      string            `json:"role"`
	Profile   map[string]string `json:"profile"`
	IsActive  bool              `json:"is_active"`
	CreatedAt time.Time         `json:"created_at"`
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/signup", req, nil, false)
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var raw struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expiresIn"`
		Role      string `json:"role"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &raw, false); err != nil {
		return nil, err
	}
	if c.store != nil {
		c.store.Set(raw.Token)
	}
	return &Session{
		Token:     raw.Token,
		ExpiresIn: time.Duration(raw.ExpiresIn) * time.Millisecond,
		Role:      raw.Role,
	}, nil
}

func (c *Client) Me(ctx context.Context) (*Principal, error) {
	var p Principal
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &p, true); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, true); err != nil {
		return err
	}
	if c.store != nil {
		c.store.Clear()
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, authed bool) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		token, err := c.currentToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func (c *Client) currentToken(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", ErrNotLoggedIn
	}
	token, err := c.tokens(ctx)
	if err != nil {
		return "", fmt.Errorf("client: token source: %w", err)
	}
	if token == "" {
		return "", ErrNotLoggedIn
	}
	return token, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err == nil {
		apiErr.Message = payload.Error
		apiErr.Fields = payload.Fields
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
