// Package client is a typed HTTP client for the directory API.
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
	"time"

	"github.com/hashicorp/go-retryablehttp"

	types "github.com/yungbote/employee-directory/internal/domain"
	"github.com/yungbote/employee-directory/internal/pkg/httpx"
)

const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  []types.FieldViolation
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s, HTTP %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// Unwrap exposes the server's code as a domain error so callers can use
// domain.IsCode on client errors.
func (e *APIError) Unwrap() error {
	code := types.ErrorCode(e.Code)
	if code == "" {
		if e.Status >= 500 {
			code = types.CodeStoreUnavailable
		} else {
			code = types.CodeValidation
		}
	}
	return types.NewError(code, "api", e.Message, nil)
}

type errorEnvelope struct {
	Error struct {
		Message string                 `json:"message"`
		Code    string                 `json:"code"`
		Fields  []types.FieldViolation `json:"fields"`
	} `json:"error"`
}

type Client struct {
	baseURL string
	// reads go through the retrying client; writes are sent once
	reads  *retryablehttp.Client
	writes *http.Client
	stream *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the transport used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.writes = hc
		c.reads.HTTPClient = hc
	}
}

// WithReadRetries sets how many times an idempotent read is retried.
func WithReadRetries(n int) Option {
	return func(c *Client) { c.reads.RetryMax = n }
}

func New(baseURL string, opts ...Option) *Client {
	hc := &http.Client{Timeout: DefaultTimeout}
	reads := retryablehttp.NewClient()
	reads.HTTPClient = hc
	reads.RetryMax = 2
	reads.RetryWaitMin = 100 * time.Millisecond
	reads.RetryWaitMax = time.Second
	reads.Logger = nil
	reads.CheckRetry = httpx.CheckRetry
	reads.Backoff = httpx.Backoff
	// Hand the last response back instead of a "giving up" error so the
	// server's error envelope can still be decoded.
	reads.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		reads:   reads,
		writes:  hc,
		stream:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// employeePath percent-encodes key as a single path segment.
func (c *Client) employeePath(key types.EmployeeKey) string {
	return c.baseURL + "/api/employees/" + url.PathEscape(key.String())
}

func (c *Client) List(ctx context.Context) ([]types.Employee, error) {
	var out []types.Employee
	if err := c.read(ctx, "employee.list", c.baseURL+"/api/employees", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Sum returns the server-computed aggregate.
func (c *Client) Sum(ctx context.Context) (int64, error) {
	var out int64
	if err := c.read(ctx, "aggregate.sum", c.baseURL+"/api/list", &out); err != nil {
		return 0, err
	}
	return out, nil
}

func (c *Client) Add(ctx context.Context, rec types.Employee) (types.Employee, error) {
	var out types.Employee
	if err := c.write(ctx, "employee.add", http.MethodPost, c.baseURL+"/api/employees", rec, &out); err != nil {
		return types.Employee{}, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, key types.EmployeeKey, replacement types.Employee) error {
	return c.write(ctx, "employee.update", http.MethodPut, c.employeePath(key), replacement, nil)
}

func (c *Client) Delete(ctx context.Context, key types.EmployeeKey) error {
	return c.write(ctx, "employee.delete", http.MethodDelete, c.employeePath(key), nil, nil)
}

func (c *Client) IncrementAll(ctx context.Context) error {
	return c.write(ctx, "employee.increment", http.MethodPatch, c.baseURL+"/api/list", nil, nil)
}

func (c *Client) read(ctx context.Context, op, u string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return types.Wrap(types.CodeInternal, op, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.reads.Do(req)
	if err != nil {
		return types.Wrap(types.CodeStoreUnavailable, op, err)
	}
	defer resp.Body.Close()
	return decodeResponse(op, resp, out)
}

func (c *Client) write(ctx context.Context, op, method, u string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return types.Wrap(types.CodeInternal, op, err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return types.Wrap(types.CodeInternal, op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.writes.Do(req)
	if err != nil {
		return types.Wrap(types.CodeStoreUnavailable, op, err)
	}
	defer resp.Body.Close()
	return decodeResponse(op, resp, out)
}

func decodeResponse(op string, resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.Wrap(types.CodeInternal, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Fields = env.Error.Fields
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
