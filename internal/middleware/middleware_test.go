package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/metrics"
)

func TestKeyedLimiterRefillsAfterWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewKeyedLimiter(config.RateLimitConfig{Requests: 2, Window: time.Second, Burst: 2, TTL: time.Minute}).
		WithNowFunc(func() time.Time { return now })

	if !limiter.Allow("login:1.2.3.4") || !limiter.Allow("login:1.2.3.4") {
		t.Fatal("expected burst to be allowed")
	}

	rejected := testutil.ToFloat64(metrics.RateLimited.WithLabelValues("login"))
	if limiter.Allow("login:1.2.3.4") {
		t.Fatal("expected third request to be limited")
	}
	if got := testutil.ToFloat64(metrics.RateLimited.WithLabelValues("login")); got != rejected+1 {
		t.Fatalf("expected rejection to be counted, got %v", got)
	}
	if !limiter.Allow("login:5.6.7.8") {
		t.Fatal("expected other keys to have their own budget")
	}

	now = now.Add(500 * time.Millisecond)
	if !limiter.Allow("login:1.2.3.4") {
		t.Fatal("expected a token to be refilled")
	}
}

func TestKeyedLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewKeyedLimiter(config.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 1, TTL: time.Minute}).
		WithNowFunc(func() time.Time { return now })

	limiter.Allow("a")
	limiter.Allow("b")
	if got := limiter.Len(); got != 2 {
		t.Fatalf("expected 2 buckets got %d", got)
	}

	now = now.Add(2 * time.Minute)
	limiter.Allow("c")
	if got := limiter.Len(); got != 1 {
		t.Fatalf("expected idle buckets to be swept, got %d", got)
	}
}

func TestKeyedLimiterDefaults(t *testing.T) {
	limiter := NewKeyedLimiter(config.RateLimitConfig{})
	if !limiter.Allow("") {
		t.Fatal("expected first request to be allowed")
	}
	if limiter.Allow("") {
		t.Fatal("expected default burst of one")
	}
}

func TestRequestLoggerRequestID(t *testing.T) {
	var seen string
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, rec.Header().Get(RequestIDHeader), seen)
}

func TestRequestLoggerRecoversPanics(t *testing.T) {
	handler := RequestLogger(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"statusCode":500,"message":"internal server error","errors":[],"success":false}`, rec.Body.String())
}

func TestMetricsLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(RequestLogger(nil), Metrics)
	r.Get("/things/{thingID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	counter := metrics.HTTPRequests.WithLabelValues("/things/{thingID}", http.MethodGet, "202")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/"+id, nil))
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	handler := CORS(config.CORSConfig{Origins: "https://app.example.com, https://admin.example.com"})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	sameOrigin := CORS(config.CORSConfig{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec = httptest.NewRecorder()
	sameOrigin.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGlobalLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	disabled := GlobalLimit(config.RateLimitConfig{}, nil)(ok)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	limited := GlobalLimit(config.RateLimitConfig{GlobalRequests: 2, GlobalWindow: time.Minute}, nil)(ok)
	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		last = httptest.NewRecorder()
		limited.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "61", last.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"statusCode":429,"message":"too many requests, try again later","errors":[],"success":false}`, last.Body.String())
}

func TestClientIPIgnoresForwardingFromUntrustedPeers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")

	var none *ClientIP
	assert.Equal(t, "203.0.113.7", none.Resolve(req))
	assert.Equal(t, "203.0.113.7", NewClientIP(nil).Resolve(req))
	assert.Equal(t, "203.0.113.7", NewClientIP([]netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}).Resolve(req))
}

func TestClientIPWalksTrustedProxyChain(t *testing.T) {
	clients := NewClientIP([]netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")})

	cases := []struct {
		name      string
		forwarded string
		want      string
	}{
		{"single hop", "198.51.100.1", "198.51.100.1"},
		{"spoofed prefix", "1.1.1.1, 198.51.100.1", "198.51.100.1"},
		{"inner proxy", "198.51.100.1, 10.0.0.9", "198.51.100.1"},
		{"garbage hop", "nonsense, 198.51.100.1", "198.51.100.1"},
		{"only proxies", "10.0.0.8", "10.0.0.8"},
		{"no header", "", "10.1.2.3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.1.2.3:443"
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			assert.Equal(t, tc.want, clients.Resolve(req))
		})
	}
}
