package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/naveenspark/clinica/pkg/domain"
)

// RequestObserver receives the outcome of every API request.
// status is 0 when the request never produced a response.
type RequestObserver interface {
	ObserveRequest(method string, status int, elapsed time.Duration)
}

// Client is the clinic API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	observer   RequestObserver

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithObserver reports request timings to o.
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithToken sets the initial bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a new API client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token sent with every request. Empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// LoginRequest is the credential payload of POST /auth/login.
type LoginRequest struct {
	Correo   string `json:"correo"`
	Password string `json:"password"`
}

// LoginResponse is the body of a login reply. Token is empty when the
// credentials were rejected.
type LoginResponse struct {
	Token   string `json:"token"`
	Message string `json:"mensaje,omitempty"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, correo, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, "/auth/login", LoginRequest{Correo: correo, Password: password}, &resp); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return &resp, nil
}

// RoleMenu is one raw row of GET /rol/menus/{roleId}. Field names differ
// between API versions, so rows are kept as decoded JSON objects.
type RoleMenu map[string]any

// RoleMenus fetches the menu rows assigned to a role. Both a bare array and
// an object wrapping the array under "data" or "menus" are accepted.
func (c *Client) RoleMenus(ctx context.Context, roleID string) ([]RoleMenu, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/rol/menus/"+url.PathEscape(roleID), &raw); err != nil {
		return nil, fmt.Errorf("client.RoleMenus: %w", err)
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return nil, fmt.Errorf("client.RoleMenus: %w", err)
	}
	return rows, nil
}

func decodeRows(raw json.RawMessage) ([]RoleMenu, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []RoleMenu{}, nil
	}
	if trimmed[0] == '[' {
		var rows []RoleMenu
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("decode menus: %w", err)
		}
		return rows, nil
	}
	var wrapped struct {
		Data  []RoleMenu `json:"data"`
		Menus []RoleMenu `json:"menus"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode menus: %w", err)
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	if wrapped.Menus != nil {
		return wrapped.Menus, nil
	}
	return []RoleMenu{}, nil
}

// RoleMenuUpdate sets the enabled flag of one menu for a role.
type RoleMenuUpdate struct {
	MenuID  int64 `json:"idMenu"`
	Enabled bool  `json:"habilitado"`
}

// UpdateRoleMenus replaces the menu flags of a role.
func (c *Client) UpdateRoleMenus(ctx context.Context, roleID string, menus []RoleMenuUpdate) error {
	if err := c.doRequest(ctx, http.MethodPut, "/rol/menus/"+url.PathEscape(roleID), menus, nil); err != nil {
		return fmt.Errorf("client.UpdateRoleMenus: %w", err)
	}
	return nil
}

// ListRoles returns every role known to the API.
func (c *Client) ListRoles(ctx context.Context) ([]domain.Role, error) {
	var roles []domain.Role
	if err := c.get(ctx, "/rol", &roles); err != nil {
		return nil, fmt.Errorf("client.ListRoles: %w", err)
	}
	return roles, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, 0, start)
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close
	c.observe(method, resp.StatusCode, start)

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: "failed to read body: " + readErr.Error()}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: apiErrorMessage(respBody)}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) observe(method string, status int, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveRequest(method, status, time.Since(start))
}
