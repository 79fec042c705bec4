package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errs "butterfliy/pkg/errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClass(t *testing.T) {
	assert.Equal(t, "ok", Class(nil))
	assert.Equal(t, "network", Class(errors.New("connection reset")))
	assert.Equal(t, "server_error", Class(&errs.HTTPError{StatusCode: 502}))
	assert.Equal(t, "rate_limit", Class(&errs.HTTPError{StatusCode: 429}))
	assert.Equal(t, "auth", Class(&errs.HTTPError{StatusCode: 401}))
	assert.Equal(t, "client_error", Class(&errs.HTTPError{StatusCode: 404}))
}

func TestPrometheusRecorder(t *testing.T) {
	r := NewPrometheusRecorder()

	r.ObserveRequest("GET", nil, 20*time.Millisecond)
	r.ObserveRequest("GET", &errs.HTTPError{StatusCode: 503}, 5*time.Millisecond)
	r.ObserveRequest("GET", &errs.HTTPError{StatusCode: 503}, 5*time.Millisecond)
	r.ObserveRetry(&errs.HTTPError{StatusCode: 503})
	r.ObserveExhausted(&errs.HTTPError{StatusCode: 503})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.requests.WithLabelValues("GET", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.requests.WithLabelValues("GET", "server_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.retries.WithLabelValues("server_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.exhausted.WithLabelValues("server_error")))
}

func TestHandler(t *testing.T) {
	r := NewPrometheusRecorder()
	r.ObserveRetry(errors.New("timeout"))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `butterfliy_retries_total{class="network"} 1`)
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = NopRecorder{}
	r.ObserveRequest("GET", nil, time.Second)
	r.ObserveRetry(nil)
	r.ObserveExhausted(nil)
}
