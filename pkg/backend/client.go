// Package backend is the typed client for the marketplace REST API. Every
// response passes through one envelope decode and validation step so callers
// never guess at alternative payload shapes.
package backend

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

	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
)

const (
	defaultTimeout        = 15 * time.Second
	responseBodyReadLimit = 4 << 20
	errorBodyReadLimit    = 1024
)

var errBaseURLRequired = errors.New("backend base url is required")

type unauthorizedSignal interface {
	RaiseUnauthorized(ctx context.Context)
}

type requestRecorder interface {
	IncBackendRequest(endpoint, status string)
}

// Client calls the marketplace REST API on behalf of a visitor.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	unauthorized unauthorizedSignal
	recorder     requestRecorder
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUnauthorizedSignal installs the signal raised when an authenticated call is rejected with 401.
func WithUnauthorizedSignal(signal unauthorizedSignal) Option {
	return func(c *Client) {
		c.unauthorized = signal
	}
}

// WithRecorder installs a request counter.
func WithRecorder(recorder requestRecorder) Option {
	return func(c *Client) {
		c.recorder = recorder
	}
}

// NewClient builds a backend client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Envelope is the response wrapper every backend endpoint uses.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// StatusError carries the upstream HTTP status. Status 0 means the backend was unreachable.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend unreachable: %s", e.Message)
	}
	return fmt.Sprintf("backend status %d: %s", e.Status, e.Message)
}

// StatusCode implements the status carrier used by error dumps.
func (e *StatusError) StatusCode() int {
	return e.Status
}

// StatusOf extracts the upstream status from err; ok is false when err did not come from the backend.
func StatusOf(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status, true
	}
	return 0, false
}

type request struct {
	endpoint    string
	method      string
	path        string
	query       url.Values
	body        any
	rawBody     io.Reader
	contentType string
	token       string
}

func (c *Client) do(ctx context.Context, req request, dest any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "backend client not configured")
	}

	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build "+req.endpoint+" request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.record(req.endpoint, "unreachable")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, &StatusError{Message: err.Error()}, req.endpoint+" request failed")
	}
	defer func() { _ = resp.Body.Close() }()
	c.record(req.endpoint, statusClass(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(ctx, req, resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read "+req.endpoint+" response")
	}
	return decodeEnvelope(req.endpoint, resp.StatusCode, body, dest)
}

func (c *Client) newHTTPRequest(ctx context.Context, req request) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.path, "/")
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	contentType := req.contentType
	switch {
	case req.rawBody != nil:
		body = req.rawBody
	case req.body != nil:
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	return httpReq, nil
}

func (c *Client) statusError(ctx context.Context, req request, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	message := upstreamMessage(raw)
	cause := &StatusError{Status: resp.StatusCode, Message: message}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if req.token != "" && c.unauthorized != nil {
			c.unauthorized.RaiseUnauthorized(ctx)
		}
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, cause, publicOr(message, "authentication required"))
	case resp.StatusCode == http.StatusForbidden:
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, cause, publicOr(message, "access denied"))
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, cause, publicOr(message, "resource not found"))
	case resp.StatusCode == http.StatusConflict:
		return pkgerrors.Wrap(pkgerrors.CodeConflict, cause, publicOr(message, "conflict detected"))
	case resp.StatusCode == http.StatusTooManyRequests:
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, cause, publicOr(message, "rate limit exceeded"))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, cause, publicOr(message, "request rejected"))
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, req.endpoint+" request failed")
	}
}

// decodeEnvelope unwraps the shared envelope. Payloads without a data member
// (the auth endpoints return token and user at the top level) decode from the
// whole body.
func decodeEnvelope(endpoint string, status int, body []byte, dest any) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+endpoint+" envelope")
	}
	if !env.Success {
		message := publicOr(firstNonEmpty(env.Error, env.Message), "request rejected")
		return pkgerrors.Wrap(pkgerrors.CodeValidation, &StatusError{Status: status, Message: message}, message)
	}
	if dest == nil {
		return nil
	}

	payload := []byte(env.Data)
	if len(payload) == 0 || string(payload) == "null" {
		payload = body
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+endpoint+" payload")
	}
	if err := validatePayload(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unexpected "+endpoint+" payload")
	}
	return nil
}

func (c *Client) record(endpoint, status string) {
	if c.recorder != nil {
		c.recorder.IncBackendRequest(endpoint, status)
	}
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}

func upstreamMessage(raw []byte) string {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if msg := firstNonEmpty(env.Error, env.Message); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(raw))
}

func publicOr(message, fallback string) string {
	if strings.TrimSpace(message) == "" {
		return fallback
	}
	return message
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
