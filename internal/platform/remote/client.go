// Package remote is the synchronous call pattern front services use to reach
// back services over HTTP. A call is made exactly once; its outcome is a
// decoded value, a client fault (downstream 4xx) or a server fault
// (downstream 5xx, transport failure, timeout).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medrec/medrec/internal/platform/middleware"
)

// DefaultTimeout bounds a single call when the caller's context has no
// earlier deadline.
const DefaultTimeout = 5 * time.Second

const maxBodyBytes = 1 << 20

// Empty is the response type for endpoints that return no body.
type Empty struct{}

// Request describes one call relative to the client's base URL.
type Request struct {
	Method string
	Path   string
	Body   interface{}
	Header http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for call tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client calls one back service at a statically configured base address.
type Client struct {
	service    string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

// New creates a client for the named service.
func New(service, baseURL string, opts ...Option) *Client {
	c := &Client{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Service returns the name of the target service.
func (c *Client) Service() string { return c.service }

// BaseURL returns the target base address.
func (c *Client) BaseURL() string { return c.baseURL }

// Path joins segments into an escaped path, e.g. Path("myAppointments", "Ana María", "Ruiz").
func Path(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// Do performs req once and classifies the outcome.
func Do[T any](ctx context.Context, c *Client, req Request) Result[T] {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + req.Path
	fault := func(outcome Outcome, status int, msg string, cause error) Result[T] {
		f := &FaultError{
			Outcome: outcome,
			Status:  status,
			Message: msg,
			Service: c.service,
			Method:  req.Method,
			URL:     target,
			Cause:   cause,
		}
		c.logger.Warn().Err(cause).
			Str("service", c.service).
			Str("method", req.Method).
			Str("url", target).
			Int("status", status).
			Str("outcome", outcome.String()).
			Msg(msg)
		return failed[T](f)
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return fault(ServerFault, 0, fmt.Sprintf("encode request to %s service", c.service), err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return fault(ServerFault, 0, fmt.Sprintf("build request to %s service", c.service), err)
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if rid := middleware.RequestIDFromContext(ctx); rid != "" {
		httpReq.Header.Set(middleware.RequestIDHeader, rid)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return fault(ServerFault, 0, fmt.Sprintf("%s service timed out", c.service), err)
		}
		return fault(ServerFault, 0, fmt.Sprintf("%s service unavailable", c.service), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fault(ServerFault, resp.StatusCode, fmt.Sprintf("read response from %s service", c.service), err)
	}

	c.logger.Debug().
		Str("service", c.service).
		Str("method", req.Method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("remote call")

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var v T
		if len(bytes.TrimSpace(raw)) == 0 {
			return succeeded(v)
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return fault(ServerFault, 0, fmt.Sprintf("malformed response from %s service", c.service), err)
		}
		return succeeded(v)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fault(ClientFault, resp.StatusCode, errorMessage(raw, resp.StatusCode), nil)
	default:
		return fault(ServerFault, resp.StatusCode, errorMessage(raw, resp.StatusCode), nil)
	}
}

// Get is Do with GET and no body.
func Get[T any](ctx context.Context, c *Client, path string) Result[T] {
	return Do[T](ctx, c, Request{Method: http.MethodGet, Path: path})
}

// Post is Do with POST and a JSON body.
func Post[T any](ctx context.Context, c *Client, path string, body interface{}, header http.Header) Result[T] {
	return Do[T](ctx, c, Request{Method: http.MethodPost, Path: path, Body: body, Header: header})
}

// Patch is Do with PATCH and a JSON body.
func Patch[T any](ctx context.Context, c *Client, path string, body interface{}, header http.Header) Result[T] {
	return Do[T](ctx, c, Request{Method: http.MethodPatch, Path: path, Body: body, Header: header})
}

// Delete is Do with DELETE, expecting no body back.
func Delete(ctx context.Context, c *Client, path string) Result[Empty] {
	return Do[Empty](ctx, c, Request{Method: http.MethodDelete, Path: path})
}

// errorMessage extracts the message of an error body. Services answer with
// {"message": "..."}; a bare JSON string or plain text is accepted too.
func errorMessage(raw []byte, status int) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return http.StatusText(status)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil && s != "" {
		return s
	}
	return string(trimmed)
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
