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
	"time"

	"github.com/smartsim-dev/smartsim/internal/auth"
	"github.com/smartsim-dev/smartsim/internal/models"
)

var (
	// ErrMalformedResponse is wrapped when a 2xx body cannot be decoded
	ErrMalformedResponse = errors.New("malformed response body")
	// ErrNotAuthenticated is returned when an authenticated call has no credentials
	ErrNotAuthenticated = errors.New("not authenticated. Please run 'smartsim login' first")
)

// APIError is a non-2xx response from the internal API
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed (status %d): %s", e.Op, e.StatusCode, e.Body)
}

// Client represents an HTTP client for the internal SmartSim API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client bound to baseURL
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the URL the client is bound to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SessionRequest represents the sign-in request body
type SessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse represents the sign-in response.
// Some deployments send the role at the root instead of on the user.
type SessionResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
	Admin bool        `json:"admin,omitempty"`
}

// IsAdmin folds both role locations into one answer
func (r *SessionResponse) IsAdmin() bool {
	return r.Admin || r.User.IsAdmin
}

// CreateSession authenticates with email and password
func (c *Client) CreateSession(ctx context.Context, email, password string) (*SessionResponse, error) {
	var resp SessionResponse
	err := c.do(ctx, "sign in", http.MethodPost, "/sessions", "", SessionRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Token == "" || resp.User.ID == "" {
		return nil, fmt.Errorf("sign in: %w: token or user missing", ErrMalformedResponse)
	}

	return &resp, nil
}

// UpdateUserRequest assigns an SMS gateway key to the customer with Email
type UpdateUserRequest struct {
	Email  string `json:"email"`
	SMSKey string `json:"sms_key"`
}

// UpdateUser provisions a customer. authorization is the full header value
// ("Bearer <token>") of the caller's session.
func (c *Client) UpdateUser(ctx context.Context, authorization string, req UpdateUserRequest) error {
	if authorization == "" {
		return ErrNotAuthenticated
	}
	if _, err := auth.ExtractBearerToken(authorization); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return c.do(ctx, "update user", http.MethodPut, "/users", authorization, req, nil)
}

// do sends one request; out may be nil when the body is ignored
func (c *Client) do(ctx context.Context, op, method, path, authorization string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	return nil
}
