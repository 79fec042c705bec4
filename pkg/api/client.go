package api

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

	"butterfliy/pkg/config"
	errs "butterfliy/pkg/errors"
	"butterfliy/pkg/logger"
	"butterfliy/pkg/metrics"
	"butterfliy/pkg/ratelimit"
	"butterfliy/pkg/retry"

	"github.com/google/uuid"
)

const (
	// Version is reported in the User-Agent header
	Version = "1.0"

	// DefaultBaseURL is used when no base URL is configured
	DefaultBaseURL = "http://localhost:3000"

	// RequestIDHeader carries a fresh id for every exchange
	RequestIDHeader = "X-Request-ID"

	// maxErrorBody bounds how much of an error response is kept
	maxErrorBody = 64 << 10
)

// TokenSource supplies the bearer token for outgoing requests. An empty
// token sends the request unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Client talks to the Butterfliy REST API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	logger      logger.Logger
	tokens      TokenSource
	limiter     ratelimit.Limiter
	retryOpts   *retry.Options
	retryUnsafe bool
	recorder    metrics.Recorder
}

// Option configures a Client
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetryOptions replaces the retry policy used by GetJSON and PostJSON
func WithRetryOptions(opts *retry.Options) Option {
	return func(c *Client) { c.retryOpts = opts }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithRetryUnsafe lets PostJSON retry. Only use it against endpoints that
// are idempotent on the server side.
func WithRetryUnsafe(enabled bool) Option {
	return func(c *Client) { c.retryUnsafe = enabled }
}

// NewClient creates a new API client. A nil cfg uses the defaults.
func NewClient(cfg *config.APIConfig, opts ...Option) *Client {
	if cfg == nil {
		cfg = &config.DefaultConfig().API
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "butterfliy-cli/" + Version
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL + "/api",
		userAgent:  userAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logger.GetLogger()
	}
	if c.limiter == nil {
		c.limiter = ratelimit.Unlimited{}
	}
	if c.recorder == nil {
		c.recorder = metrics.NopRecorder{}
	}
	if c.retryOpts == nil {
		c.retryOpts = retry.DefaultOptions()
	}
	return c
}

// BaseURL returns the API root every path is resolved against
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Locations returns the location endpoints
func (c *Client) Locations() *LocationService {
	return &LocationService{client: c}
}

// Do performs exactly one exchange. Transport failures are returned as
// *errors.NetworkError and non-2xx responses as *errors.HTTPError.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	target, payload, err := c.prepare(path, nil, body)
	if err != nil {
		return nil, err
	}
	return c.exchange(ctx, method, target, payload)
}

// GetJSON performs a GET with retry and decodes the JSON response into target
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, target interface{}) error {
	raw, err := c.GetRaw(ctx, path, query)
	if err != nil {
		return err
	}
	return c.decode(raw, target)
}

// GetRaw performs a GET with retry and returns the response body
func (c *Client) GetRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target, _, err := c.prepare(path, query, nil)
	if err != nil {
		return nil, err
	}
	return c.withRetry(ctx, http.MethodGet, target, nil, true)
}

// PostJSON sends body as JSON and decodes the response into target. It is
// only retried when the client was built WithRetryUnsafe(true).
func (c *Client) PostJSON(ctx context.Context, path string, body, target interface{}) error {
	endpoint, payload, err := c.prepare(path, nil, body)
	if err != nil {
		return err
	}
	raw, err := c.withRetry(ctx, http.MethodPost, endpoint, payload, c.retryUnsafe)
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	return c.decode(raw, target)
}

func (c *Client) withRetry(ctx context.Context, method, endpoint string, payload []byte, retryable bool) ([]byte, error) {
	opts := *c.retryOpts
	if !retryable {
		opts.MaxRetries = 0
	}
	if opts.Logger == nil {
		opts.Logger = c.logger
	}
	opts.OnRetry = retry.ChainOnRetry(c.retryOpts.OnRetry, func(attempt int, err error) {
		c.recorder.ObserveRetry(err)
	})

	raw, err := retry.RunWithResult(ctx, func() ([]byte, error) {
		return c.exchange(ctx, method, endpoint, payload)
	}, &opts)
	if err != nil && opts.MaxRetries > 0 && ctx.Err() == nil && errs.IsRetryable(err) {
		c.recorder.ObserveExhausted(err)
	}
	return raw, err
}

// prepare resolves path against the API root and encodes the body once so
// every attempt sends the same bytes
func (c *Client) prepare(path string, query url.Values, body interface{}) (string, []byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return "", nil, fmt.Errorf("invalid request url: %w", err)
	}

	if body == nil {
		return endpoint, nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return endpoint, payload, nil
}

func (c *Client) exchange(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.setHeaders(ctx, req, payload != nil); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		netErr := &errs.NetworkError{Cause: err}
		c.recorder.ObserveRequest(method, netErr, time.Since(start))
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":      method,
			"url":         endpoint,
			"request_id":  req.Header.Get(RequestIDHeader),
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil, netErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		httpErr := &errs.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       errs.ParseResponseBody(raw),
			Method:     method,
			URL:        endpoint,
		}
		c.finish(method, endpoint, resp.StatusCode, httpErr, start)
		return nil, httpErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		netErr := &errs.NetworkError{Message: "failed to read response body", Cause: err}
		c.finish(method, endpoint, resp.StatusCode, netErr, start)
		return nil, netErr
	}

	c.finish(method, endpoint, resp.StatusCode, nil, start)
	return body, nil
}

func (c *Client) finish(method, endpoint string, status int, err error, start time.Time) {
	duration := time.Since(start)
	c.recorder.ObserveRequest(method, err, duration)
	logger.LogExchange(c.logger, method, endpoint, status, duration)
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request, hasBody bool) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func (c *Client) decode(raw []byte, target interface{}) error {
	if err := json.Unmarshal(raw, target); err != nil {
		preview := string(raw)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"error":        err.Error(),
			"body_preview": preview,
		})
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// ErrDecode is returned when a successful response is not the expected JSON
var ErrDecode = errors.New("failed to decode response")
