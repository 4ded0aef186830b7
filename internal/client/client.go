// Package client is a thin HTTP client for the tasktrack API. Error responses
// unwrap to the tracker sentinels so callers can use errors.Is across the wire.
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
	"strings"
	"time"

	"tasktrack.org/internal/auth"
	"tasktrack.org/internal/tracker"
)

// Client talks to a running tasktrack-api.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		baseURL: u.String(),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Token returns the bearer token currently in use.
func (c *Client) Token() string { return c.token }

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("tasktrack: %d %s (request_id=%s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("tasktrack: %d %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return tracker.ErrInvalidInput
	case http.StatusUnauthorized:
		return tracker.ErrUnauthenticated
	case http.StatusForbidden:
		return tracker.ErrForbidden
	case http.StatusNotFound:
		return tracker.ErrNotFound
	case http.StatusConflict:
		return tracker.ErrConflict
	default:
		return nil
	}
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (auth.Token, error) {
	var tok auth.Token
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &tok); err != nil {
		return auth.Token{}, err
	}
	c.token = tok.AccessToken
	return tok, nil
}

// Profile returns the actor behind the current token.
func (c *Client) Profile(ctx context.Context) (auth.Actor, error) {
	var actor auth.Actor
	err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &actor)
	return actor, err
}

// TaskInput is the body for CreateTask. Empty strings take server defaults.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
	AssignedTo  *int64 `json:"assigned_to,omitempty"`
}

// TaskChanges is the body for UpdateTask. Nil fields are left untouched.
type TaskChanges struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	AssignedTo  *int64  `json:"assigned_to,omitempty"`
}

func (c *Client) ListTasks(ctx context.Context) ([]tracker.Task, error) {
	var tasks []tracker.Task
	err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks)
	return tasks, err
}

func (c *Client) CreateTask(ctx context.Context, in TaskInput) (tracker.Task, error) {
	var task tracker.Task
	err := c.do(ctx, http.MethodPost, "/tasks", in, &task)
	return task, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, changes TaskChanges) (tracker.Task, error) {
	var task tracker.Task
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tasks/%d", id), changes, &task)
	return task, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) (tracker.Deletion, error) {
	var res tracker.Deletion
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d", id), nil, &res)
	return res, err
}

func (c *Client) ListOrganizations(ctx context.Context) ([]tracker.Organization, error) {
	var orgs []tracker.Organization
	err := c.do(ctx, http.MethodGet, "/organizations", nil, &orgs)
	return orgs, err
}

func (c *Client) CreateOrganization(ctx context.Context, name string, parentID *int64) (tracker.Organization, error) {
	var org tracker.Organization
	body := map[string]any{"name": name}
	if parentID != nil {
		body["parent_id"] = *parentID
	}
	err := c.do(ctx, http.MethodPost, "/organizations", body, &org)
	return org, err
}

func (c *Client) DeleteOrganization(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/organizations/%d", id), nil, nil)
}

func (c *Client) ListUsers(ctx context.Context) ([]tracker.UserView, error) {
	var users []tracker.UserView
	err := c.do(ctx, http.MethodGet, "/users", nil, &users)
	return users, err
}

// Registration is the body for Register. Role is honoured only when the
// client holds a privileged token.
type Registration struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Role           string `json:"role,omitempty"`
	OrganizationID *int64 `json:"organization_id,omitempty"`
}

func (c *Client) Register(ctx context.Context, reg Registration) (tracker.User, error) {
	var user tracker.User
	err := c.do(ctx, http.MethodPost, "/users", reg, &user)
	return user, err
}

func (c *Client) Promote(ctx context.Context, userID int64, role auth.Role) (tracker.UserView, error) {
	var view tracker.UserView
	body := map[string]string{"role": string(role)}
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/users/%d/role", userID), body, &view)
	return view, err
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Error     string `json:"error"`
		RequestID string `json:"request_id"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.RequestID = payload.RequestID
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.RequestID == "" {
		apiErr.RequestID = resp.Header.Get("X-Request-ID")
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
