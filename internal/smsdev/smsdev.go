// Package smsdev is a client for the external SMS gateway.
//
// The gateway answers HTTP 200 even when a send is refused; the refusal is
// carried by the "codigo" field of the body. Send turns the known refusal
// codes into errors so a 2xx body is never mistaken for a delivered message.
package smsdev

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultMessageType is the gateway's short-message type
const DefaultMessageType = 9

// Refusal codes
const (
	CodeNotProvisioned      = "403"
	CodeInsufficientBalance = "408"
)

var (
	ErrNotProvisioned      = errors.New("account not provisioned for sending")
	ErrInsufficientBalance = errors.New("insufficient SMS balance")
	ErrMalformedResponse   = errors.New("malformed response body")
	ErrMissingKey          = errors.New("no SMS gateway key assigned to this user")
)

// APIError is a non-2xx response from the gateway
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed (status %d): %s", e.Op, e.StatusCode, e.Body)
}

// GatewayError is a refusal reported inside a 2xx body
type GatewayError struct {
	Code        string
	Description string
	Err         error
}

func (e *GatewayError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%v (codigo %s: %s)", e.Err, e.Code, e.Description)
	}
	return fmt.Sprintf("%v (codigo %s)", e.Err, e.Code)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Value decodes a JSON string or number into its string form
type Value string

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = Value(n.String())
	return nil
}

// SendResult is the body of GET /send
type SendResult struct {
	Situation   string `json:"situacao"`
	Code        Value  `json:"codigo"`
	ID          Value  `json:"id"`
	Description string `json:"descricao"`
}

// Balance is the body of GET /balance
type Balance struct {
	Situation   string `json:"situacao"`
	Credits     Value  `json:"saldo_sms"`
	Description string `json:"descricao"`
}

// Count returns the balance as an integer
func (b *Balance) Count() (int, error) {
	n, err := strconv.Atoi(string(b.Credits))
	if err != nil {
		return 0, fmt.Errorf("%w: saldo_sms %q", ErrMalformedResponse, b.Credits)
	}
	return n, nil
}

// Client represents an HTTP client for the SMS gateway
type Client struct {
	baseURL     string
	messageType int
	httpClient  *http.Client
}

// New creates a new gateway client
func New(baseURL string, messageType int, timeout time.Duration) *Client {
	if messageType == 0 {
		messageType = DefaultMessageType
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		messageType: messageType,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// Send queues msg for number using the customer's gateway key
func (c *Client) Send(ctx context.Context, key, number, msg string) (*SendResult, error) {
	if key == "" {
		return nil, ErrMissingKey
	}

	params := url.Values{}
	params.Set("key", key)
	params.Set("type", strconv.Itoa(c.messageType))
	params.Set("number", number)
	params.Set("msg", msg)

	var result SendResult
	if err := c.get(ctx, "send SMS", "/send", params, &result); err != nil {
		return nil, err
	}

	switch string(result.Code) {
	case CodeNotProvisioned:
		return &result, &GatewayError{Code: string(result.Code), Description: result.Description, Err: ErrNotProvisioned}
	case CodeInsufficientBalance:
		return &result, &GatewayError{Code: string(result.Code), Description: result.Description, Err: ErrInsufficientBalance}
	}

	return &result, nil
}

// Balance returns the remaining credits for key
func (c *Client) Balance(ctx context.Context, key string) (*Balance, error) {
	if key == "" {
		return nil, ErrMissingKey
	}

	params := url.Values{}
	params.Set("key", key)

	var balance Balance
	if err := c.get(ctx, "fetch balance", "/balance", params, &balance); err != nil {
		return nil, err
	}
	if balance.Credits == "" {
		return nil, fmt.Errorf("fetch balance: %w: saldo_sms missing", ErrMalformedResponse)
	}
	return &balance, nil
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	return nil
}
