package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"butterfliy/pkg/config"
	errs "butterfliy/pkg/errors"
	"butterfliy/pkg/logger"
	"butterfliy/pkg/retry"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu        sync.Mutex
	requests  []string
	retries   int
	exhausted int
}

func (r *fakeRecorder) ObserveRequest(method string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	class := "ok"
	if err != nil {
		class = string(errs.Classify(err).Class())
	}
	r.requests = append(r.requests, method+" "+class)
}

func (r *fakeRecorder) ObserveRetry(error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries++
}

func (r *fakeRecorder) ObserveExhausted(error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exhausted++
}

type countingLimiter struct {
	waits atomic.Int32
}

func (l *countingLimiter) Allow() bool { return true }
func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits.Add(1)
	return ctx.Err()
}
func (l *countingLimiter) Reset() {}

func fastRetry(maxRetries int) *retry.Options {
	return &retry.Options{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		Logger:       logger.NewNopLogger(),
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *fakeRecorder) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	rec := &fakeRecorder{}
	base := []Option{
		WithLogger(logger.NewNopLogger()),
		WithRecorder(rec),
		WithRetryOptions(fastRetry(2)),
	}
	client := NewClient(&config.APIConfig{BaseURL: server.URL, Timeout: 5 * time.Second}, append(base, opts...)...)
	return client, rec
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(nil, WithLogger(logger.NewNopLogger()))
	assert.Equal(t, "http://localhost:3000/api", client.BaseURL())
	assert.Equal(t, "butterfliy-cli/1.0", client.userAgent)

	client = NewClient(&config.APIConfig{BaseURL: "https://example.com/"}, WithLogger(logger.NewNopLogger()))
	assert.Equal(t, "https://example.com/api", client.BaseURL())
	assert.Equal(t, "butterfliy-cli/"+Version, client.userAgent)
}

func TestGetJSONSendsHeaders(t *testing.T) {
	var got http.Header
	var path string
	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		path = r.URL.RequestURI()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, WithTokenSource(StaticToken("abc")))

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, client.GetJSON(context.Background(), "status", nil, &out))

	assert.True(t, out.OK)
	assert.Equal(t, "/api/status", path)
	assert.Equal(t, "Bearer abc", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "butterfliy-cli/1.0", got.Get("User-Agent"))
	_, err := uuid.Parse(got.Get(RequestIDHeader))
	assert.NoError(t, err)
	assert.Equal(t, []string{"GET ok"}, rec.requests)
}

func TestNoAuthorizationWithoutToken(t *testing.T) {
	var auth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}, WithTokenSource(StaticToken("")))

	require.NoError(t, client.GetJSON(context.Background(), "/x", nil, &map[string]interface{}{}))
	assert.Empty(t, auth)
}

func TestTokenSourceError(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, WithTokenSource(tokenFunc(func() (string, error) { return "", errors.New("keyring locked") })),
		WithRetryOptions(fastRetry(0)))

	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyring locked")
	assert.Zero(t, calls.Load())
}

type tokenFunc func() (string, error)

func (f tokenFunc) Token(context.Context) (string, error) { return f() }

func TestRetriesTransientStatusThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	var out map[string]bool
	require.NoError(t, client.GetJSON(context.Background(), "/x", nil, &out))

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2, rec.retries)
	assert.Zero(t, rec.exhausted)
	assert.Equal(t, []string{"GET server_error", "GET server_error", "GET ok"}, rec.requests)
}

func TestRetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := client.GetJSON(context.Background(), "/x", nil, &struct{}{})

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1, rec.exhausted)
	assert.Equal(t, errs.MessageRateLimited, errs.UserFriendlyMessage(err))
}

func TestClientErrorNotRetried(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		auth    bool
	}{
		{"unauthorized", 401, `{"message":"jwt expired"}`, errs.MessageAuth, true},
		{"forbidden", 403, ``, errs.MessageForbidden, false},
		{"not found", 404, `{"error":"Not Found"}`, errs.MessageNotFound, false},
		{"conflict", 409, `{"message":"Location already exists"}`, "Location already exists", false},
		{"validation", 422, `{"error":"Unprocessable"}`, errs.MessageValidation, false},
		{"bad request", 400, `{"error":"country is required"}`, "country is required", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := client.GetJSON(context.Background(), "/x", nil, &struct{}{})
			require.Error(t, err)

			info := errs.Classify(err)
			assert.Equal(t, int32(1), calls.Load())
			assert.Zero(t, rec.retries)
			assert.True(t, info.IsClientError)
			assert.Equal(t, tt.auth, info.IsAuthError)
			assert.False(t, info.CanRetry)
			assert.Equal(t, tt.message, info.Message)
			require.NotNil(t, info.StatusCode)
			assert.Equal(t, tt.status, *info.StatusCode)
		})
	}
}

func TestNetworkErrorIsRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	rec := &fakeRecorder{}
	var retried []int
	opts := fastRetry(2)
	opts.OnRetry = func(attempt int, err error) { retried = append(retried, attempt) }

	client := NewClient(&config.APIConfig{BaseURL: url, Timeout: time.Second},
		WithLogger(logger.NewNopLogger()), WithRecorder(rec), WithRetryOptions(opts))

	_, err := client.GetRaw(context.Background(), "/x", nil)

	var netErr *errs.NetworkError
	require.ErrorAs(t, err, &netErr)
	info := errs.Classify(err)
	assert.True(t, info.IsNetworkError)
	assert.True(t, info.CanRetry)
	assert.Nil(t, info.StatusCode)
	assert.NotEmpty(t, info.Message)
	assert.Equal(t, []int{1, 2}, retried)
	assert.Equal(t, 2, rec.retries)
	assert.Equal(t, 1, rec.exhausted)
	assert.Equal(t, []string{"GET network", "GET network", "GET network"}, rec.requests)
}

func TestDoPerformsSingleExchange(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, errs.Classify(err).IsServerError)
}

func TestPostNotRetriedByDefault(t *testing.T) {
	var calls atomic.Int32
	var received map[string]string
	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.PostJSON(context.Background(), "/locations", map[string]string{"country": "Kenya"}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "Kenya", received["country"])
	assert.Zero(t, rec.retries)
	assert.Zero(t, rec.exhausted)
}

func TestPostRetriedWhenUnsafeEnabled(t *testing.T) {
	var calls atomic.Int32
	var bodies []string
	var mu sync.Mutex
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		mu.Lock()
		bodies = append(bodies, in["country"])
		mu.Unlock()
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}, WithRetryUnsafe(true))

	var out map[string]bool
	require.NoError(t, client.PostJSON(context.Background(), "/locations", map[string]string{"country": "Peru"}, &out))
	assert.True(t, out["success"])
	assert.Equal(t, []string{"Peru", "Peru"}, bodies, "every attempt resends the body")
}

func TestLimiterWaitedPerAttempt(t *testing.T) {
	var calls atomic.Int32
	limiter := &countingLimiter{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}, WithLimiter(limiter))

	require.NoError(t, client.GetJSON(context.Background(), "/x", nil, &struct{}{}))
	assert.Equal(t, int32(2), limiter.waits.Load())
}

func TestContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	opts := &retry.Options{
		MaxRetries:   3,
		InitialDelay: time.Hour,
		OnRetry:      func(int, error) { cancel() },
		Logger:       logger.NewNopLogger(),
	}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithRetryOptions(opts))

	start := time.Now()
	_, err := client.GetRaw(ctx, "/x", nil)

	assert.Less(t, time.Since(start), time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	var httpErr *errs.HTTPError
	assert.ErrorAs(t, err, &httpErr)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDecodeError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	err := client.GetJSON(context.Background(), "/x", nil, &struct{}{})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestExchangeIsLogged(t *testing.T) {
	log := logger.NewTestLogger()
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, WithLogger(log))

	_, _ = client.Do(context.Background(), http.MethodGet, "/missing", nil)

	warns := log.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, 404, warns[0].Fields["status_code"])
}
