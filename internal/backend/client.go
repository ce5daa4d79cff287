package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime"
	"mime/multipart"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/telemed-portal/internal/compliance"
	"github.com/wolfman30/telemed-portal/pkg/logging"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultRetryPause = 200 * time.Millisecond
)

// Observer receives one observation per backend round trip.
type Observer interface {
	ObserveBackendCall(method, route string, status int, seconds float64)
}

// Client is the typed REST client of the telemedicine backend. A Client is
// immutable; WithToken returns a copy bound to a patient's access token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	retryPause time.Duration
	logger     *logging.Logger
	tracer     trace.Tracer
	observer   Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetryPause sets the pause before the single GET retry.
func WithRetryPause(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.retryPause = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New constructs a backend client for baseURL (e.g. "https://host/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		retryPause: defaultRetryPause,
		logger:     logging.Default(),
		tracer:     otel.Tracer("portal.internal.backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of the client that authenticates as token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = strings.TrimSpace(token)
	return &cp
}

// Token returns the bound access token, if any.
func (c *Client) Token() string {
	return c.token
}

// getJSON issues a GET and decodes a validated object into out.
func (c *Client) getJSON(ctx context.Context, path string, out validator) error {
	body, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	return decodeValidated(path, body, out)
}

// getList issues a GET and decodes a validated JSON array.
func getList[T validator](ctx context.Context, c *Client, path string) ([]T, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	var items []T
	if len(bytes.TrimSpace(body)) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, &DecodeError{Path: path, Err: err}
		}
	}
	return items, nil
}

// sendJSON issues a mutation with a JSON body. out may be nil.
func (c *Client) sendJSON(ctx context.Context, method, path string, in any, out validator) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: marshal request: %w", err)
		}
	}
	body, err := c.do(ctx, method, path, payload, "application/json")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeValidated(path, body, out)
}

// sendForm posts multipart form fields.
func (c *Client) sendForm(ctx context.Context, path string, fields map[string]string, out validator) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, key := range sortedKeys(fields) {
		if err := mw.WriteField(key, fields[key]); err != nil {
			return fmt.Errorf("backend: write form field %s: %w", key, err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("backend: close form: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, path, buf.Bytes(), mw.FormDataContentType())
	if err != nil {
		return err
	}
	return decodeValidated(path, body, out)
}

// download fetches a binary attachment.
func (c *Client) download(ctx context.Context, path, fallbackName string) (*Download, error) {
	resp, body, err := c.roundTrip(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	name := filenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = fallbackName
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/pdf"
	}
	return &Download{Filename: name, ContentType: ct, Body: body}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, contentType string) ([]byte, error) {
	_, body, err := c.roundTrip(ctx, method, path, payload, contentType)
	return body, err
}

// roundTrip performs the request. Idempotent GETs are retried exactly once on
// transport errors and 5xx responses; mutations are never retried.
func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, contentType string) (*http.Response, []byte, error) {
	route := routeLabel(path)
	ctx, span := c.tracer.Start(ctx, "backend."+strings.ToLower(method),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
		))
	defer span.End()

	attempts := 1
	if method == http.MethodGet {
		attempts = 2
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				span.RecordError(ctx.Err())
				return nil, nil, ctx.Err()
			case <-time.After(c.retryPause):
			}
			c.logger.Debug("retrying backend request", "method", method, "path", route)
		}

		resp, body, err := c.attempt(ctx, method, path, route, payload, contentType)
		if err == nil {
			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
			return resp, body, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}
	span.RecordError(lastErr)
	return nil, nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, path, route string, payload []byte, contentType string) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, route, 0, start)
		return nil, nil, fmt.Errorf("backend: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.observe(method, route, resp.StatusCode, start)
	if err != nil {
		return nil, nil, fmt.Errorf("backend: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Path: route, Detail: parseDetail(body)}
		detail := compliance.RedactPII(apiErr.Detail)
		if resp.StatusCode >= 500 {
			c.logger.Warn("backend non-2xx response", "status", resp.StatusCode, "path", route, "detail", detail)
		} else {
			c.logger.Debug("backend non-2xx response", "status", resp.StatusCode, "path", route, "detail", detail)
		}
		return resp, nil, apiErr
	}
	return resp, body, nil
}

func (c *Client) observe(method, route string, status int, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveBackendCall(method, route, status, time.Since(start).Seconds())
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return true
}

func decodeValidated(path string, body []byte, out validator) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	if err := out.Validate(); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}

var numericSegment = regexp.MustCompile(`/\d+(/|$)`)

// routeLabel strips the query and replaces numeric ids so metrics stay low-cardinality.
func routeLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for numericSegment.MatchString(path) {
		path = numericSegment.ReplaceAllString(path, "/{id}$1")
	}
	return path
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
