// Package client is a typed Go client for the portal API.
//
// Calls authenticate with the bearer token held by the Client's
// SessionProvider. The controller constructors in controllers.go wrap the
// calls in pkg/fetch Query, Paged and Mutation controllers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smartbin/portal/internal/model"
	"smartbin/portal/pkg/authz"
	"smartbin/portal/pkg/fetch"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    int
	Message string
}

// Error returns the server's message so controllers surface it unchanged.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// Session is the login result.
type Session struct {
	Token       string             `json:"token"`
	ExpiresAt   time.Time          `json:"expires_at"`
	User        *model.User        `json:"user"`
	Home        authz.Home         `json:"home"`
	Permissions []authz.Permission `json:"permissions"`
}

// Me describes the signed-in account.
type Me struct {
	User        *model.User        `json:"user"`
	Role        authz.Role         `json:"role"`
	Permissions []authz.Permission `json:"permissions"`
	Home        authz.Home         `json:"home"`
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type pagedData[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	session SessionProvider
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u.String(),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithSession returns a copy of c that authenticates with p.
func (c *Client) WithSession(p SessionProvider) *Client {
	cp := *c
	cp.session = p
	return &cp
}

// SignIn exchanges credentials for a session token. It does not store the
// token; see MemorySession.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var sess Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", "", body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignOut revokes token on the server.
func (c *Client) SignOut(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/logout", token, nil, nil)
}

func (c *Client) Me(ctx context.Context) (*Me, error) {
	var me Me
	if err := c.call(ctx, http.MethodGet, "/api/v1/auth/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

func (c *Client) Stats(ctx context.Context) (*model.FleetStats, error) {
	var stats model.FleetStats
	if err := c.call(ctx, http.MethodGet, "/api/v1/dashboard/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) Overview(ctx context.Context) (*model.Overview, error) {
	var ov model.Overview
	if err := c.call(ctx, http.MethodGet, "/api/v1/hq/overview", nil, &ov); err != nil {
		return nil, err
	}
	return &ov, nil
}

// ListBins loads one 1-based page of bins visible to the session.
func (c *Client) ListBins(ctx context.Context, page, pageSize int) (fetch.Page[model.Bin], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var data pagedData[model.Bin]
	if err := c.call(ctx, http.MethodGet, "/api/v1/bins?"+q.Encode(), nil, &data); err != nil {
		return fetch.Page[model.Bin]{}, err
	}

	total := int(data.Total)
	return fetch.Page[model.Bin]{
		Items:    data.Items,
		Total:    &total,
		Page:     data.Page,
		PageSize: data.PageSize,
	}, nil
}

func (c *Client) ReportFill(ctx context.Context, id uuid.UUID, level int) (*model.Bin, error) {
	var bin model.Bin
	body := map[string]int{"level": level}
	if err := c.call(ctx, http.MethodPost, "/api/v1/bins/"+id.String()+"/fill", body, &bin); err != nil {
		return nil, err
	}
	return &bin, nil
}

func (c *Client) EmptyBin(ctx context.Context, id uuid.UUID) (*model.Bin, error) {
	var bin model.Bin
	if err := c.call(ctx, http.MethodPost, "/api/v1/bins/"+id.String()+"/empty", nil, &bin); err != nil {
		return nil, err
	}
	return &bin, nil
}

// call sends an authenticated request using the session's token.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var token string
	if c.session != nil {
		token = c.session.Token()
	}
	return c.do(ctx, method, path, token, in, out)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Code: resp.StatusCode}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
