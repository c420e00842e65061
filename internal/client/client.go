// Package client is an HTTP client for the task manager API. It carries the
// caller's credentials, attaches the access token to every request and, on a
// 401, refreshes the access token once and replays the request.
//
// Concurrent requests that hit a 401 together share a single refresh call.
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
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/taskmanager/taskmanager-go/internal/model"
)

const (
	accessTokenHeader  = "x-access-token"
	refreshTokenHeader = "x-refresh-token"
	userIDHeader       = "_id"
)

var (
	// ErrSessionEnded is returned when the refresh session was rejected and
	// the client dropped its credentials.
	ErrSessionEnded = errors.New("session ended, log in again")
	ErrNotLoggedIn  = errors.New("not logged in")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the task manager API on behalf of one user.
type Client struct {
	baseURL        string
	http           *http.Client
	onLogout       func()
	refreshTimeout time.Duration

	mu           sync.RWMutex
	userID       string
	accessToken  string
	refreshToken string

	refreshes singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogoutHook registers fn to run when the client drops its credentials
// after a rejected refresh.
func WithLogoutHook(fn func()) Option {
	return func(c *Client) { c.onLogout = fn }
}

// WithRefreshTimeout bounds the shared refresh call. It does not depend on
// the context of whichever caller started the refresh.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) { c.refreshTimeout = d }
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{Timeout: 30 * time.Second},
		refreshTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Signup creates an account and keeps the returned credentials.
func (c *Client) Signup(ctx context.Context, email, password string) (model.UserResponse, error) {
	return c.startSession(ctx, "/users", email, password)
}

// Login opens a session and keeps the returned credentials.
func (c *Client) Login(ctx context.Context, email, password string) (model.UserResponse, error) {
	return c.startSession(ctx, "/users/login", email, password)
}

// Logout ends the server session and drops local credentials.
func (c *Client) Logout(ctx context.Context) error {
	userID, _, refreshToken := c.Credentials()
	if refreshToken == "" {
		return ErrNotLoggedIn
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/users/me/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set(refreshTokenHeader, refreshToken)
	req.Header.Set(userIDHeader, userID)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.clearCredentials()
	return readResponse(resp, nil)
}

// Credentials returns the user id and token pair currently held.
func (c *Client) Credentials() (userID, accessToken, refreshToken string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.accessToken, c.refreshToken
}

// SetCredentials installs a previously saved session.
func (c *Client) SetCredentials(userID, accessToken, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID, c.accessToken, c.refreshToken = userID, accessToken, refreshToken
}

// Me returns the logged in user.
func (c *Client) Me(ctx context.Context) (model.UserResponse, error) {
	var out model.UserResponse
	err := c.do(ctx, http.MethodGet, "/users/me", nil, &out)
	return out, err
}

// Lists returns the caller's lists.
func (c *Client) Lists(ctx context.Context) ([]model.ListResponse, error) {
	var out []model.ListResponse
	err := c.do(ctx, http.MethodGet, "/lists", nil, &out)
	return out, err
}

// GetList returns one list.
func (c *Client) GetList(ctx context.Context, id string) (model.ListResponse, error) {
	var out model.ListResponse
	err := c.do(ctx, http.MethodGet, "/lists/"+url.PathEscape(id), nil, &out)
	return out, err
}

// CreateList creates a list.
func (c *Client) CreateList(ctx context.Context, title string) (model.ListResponse, error) {
	var out model.ListResponse
	err := c.do(ctx, http.MethodPost, "/lists", model.ListRequest{Title: &title}, &out)
	return out, err
}

// UpdateList renames a list.
func (c *Client) UpdateList(ctx context.Context, id, title string) (model.ListResponse, error) {
	var out model.ListResponse
	err := c.do(ctx, http.MethodPatch, "/lists/"+url.PathEscape(id), model.ListRequest{Title: &title}, &out)
	return out, err
}

// DeleteList deletes a list and its tasks.
func (c *Client) DeleteList(ctx context.Context, id string) (model.DeleteListResponse, error) {
	var out model.DeleteListResponse
	err := c.do(ctx, http.MethodDelete, "/lists/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Tasks returns the tasks of a list.
func (c *Client) Tasks(ctx context.Context, listID string) ([]model.TaskResponse, error) {
	var out []model.TaskResponse
	err := c.do(ctx, http.MethodGet, taskPath(listID, ""), nil, &out)
	return out, err
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, listID, id string) (model.TaskResponse, error) {
	var out model.TaskResponse
	err := c.do(ctx, http.MethodGet, taskPath(listID, id), nil, &out)
	return out, err
}

// CreateTask adds a task to a list.
func (c *Client) CreateTask(ctx context.Context, listID, title string) (model.TaskResponse, error) {
	var out model.TaskResponse
	err := c.do(ctx, http.MethodPost, taskPath(listID, ""), model.TaskRequest{Title: &title}, &out)
	return out, err
}

// UpdateTask applies a partial update to a task.
func (c *Client) UpdateTask(ctx context.Context, listID, id string, req model.TaskRequest) (model.TaskResponse, error) {
	var out model.TaskResponse
	err := c.do(ctx, http.MethodPatch, taskPath(listID, id), req, &out)
	return out, err
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, listID, id string) (model.TaskResponse, error) {
	var out model.TaskResponse
	err := c.do(ctx, http.MethodDelete, taskPath(listID, id), nil, &out)
	return out, err
}

func taskPath(listID, id string) string {
	base := "/lists/" + url.PathEscape(listID) + "/tasks"
	if id == "" {
		return base
	}
	return base + "/" + url.PathEscape(id)
}

func (c *Client) startSession(ctx context.Context, path, email, password string) (model.UserResponse, error) {
	body, err := json.Marshal(model.LoginRequest{Email: email, Password: password})
	if err != nil {
		return model.UserResponse{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return model.UserResponse{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.UserResponse{}, err
	}
	defer resp.Body.Close()

	var user model.UserResponse
	if err := readResponse(resp, &user); err != nil {
		return model.UserResponse{}, err
	}

	c.SetCredentials(user.ID, resp.Header.Get(accessTokenHeader), resp.Header.Get(refreshTokenHeader))
	return user, nil
}

// do sends an authenticated request. A 401 triggers one refresh and one
// replay; a second 401 is returned as is.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = b
	}

	_, sent, _ := c.Credentials()
	resp, err := c.send(ctx, method, path, body, sent)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		if err := c.refresh(ctx, sent); err != nil {
			return err
		}

		_, fresh, _ := c.Credentials()
		resp, err = c.send(ctx, method, path, body, fresh)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	return readResponse(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, accessToken string) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if accessToken != "" {
		req.Header.Set(accessTokenHeader, accessToken)
	}
	return c.http.Do(req)
}

// refresh obtains a new access token unless one already replaced stale.
// Concurrent callers share one in-flight refresh. The shared call runs
// detached from ctx so one caller giving up does not fail the others; each
// caller still stops waiting when its own ctx is done.
func (c *Client) refresh(ctx context.Context, stale string) error {
	if c.replaced(stale) {
		return nil
	}

	ch := c.refreshes.DoChan("refresh", func() (any, error) {
		if c.replaced(stale) {
			return nil, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		return nil, c.fetchAccessToken(fetchCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) replaced(stale string) bool {
	_, current, _ := c.Credentials()
	return current != "" && current != stale
}

func (c *Client) fetchAccessToken(ctx context.Context) error {
	userID, _, refreshToken := c.Credentials()
	if refreshToken == "" {
		return ErrSessionEnded
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/users/me/access-token", nil)
	if err != nil {
		return err
	}
	req.Header.Set(refreshTokenHeader, refreshToken)
	req.Header.Set(userIDHeader, userID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("refreshing access token: %w", err)
	}
	defer resp.Body.Close()

	var out model.AccessTokenResponse
	if err := readResponse(resp, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.endSession()
			return fmt.Errorf("%w: %s", ErrSessionEnded, apiErr.Message)
		}
		return err
	}

	token := resp.Header.Get(accessTokenHeader)
	if token == "" {
		token = out.AccessToken
	}

	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
	return nil
}

// endSession drops credentials; the logout hook fires once per session.
func (c *Client) endSession() {
	c.mu.Lock()
	hadSession := c.refreshToken != ""
	c.userID, c.accessToken, c.refreshToken = "", "", ""
	c.mu.Unlock()

	if hadSession && c.onLogout != nil {
		c.onLogout()
	}
}

func (c *Client) clearCredentials() {
	c.SetCredentials("", "", "")
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func readResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
