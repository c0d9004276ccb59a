package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/http-skeleton/internal/baseurl"
	"github.com/eugenenazirov/http-skeleton/internal/config"
)

type staticLimiter struct {
	allow bool
}

func (s *staticLimiter) Allow(string) bool {
	return s.allow
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := RequestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty id, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	t.Run("generates a uuid", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if _, err := uuid.Parse(seen); err != nil {
			t.Fatalf("expected generated uuid, got %q", seen)
		}
		if rec.Header().Get("X-Request-ID") != seen {
			t.Fatalf("expected response header to echo the id")
		}
	})

	t.Run("keeps incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "upstream-1")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if seen != "upstream-1" {
			t.Fatalf("expected upstream id, got %q", seen)
		}
	})
}

func TestLoggingMiddleware(t *testing.T) {
	logger := zaptest.NewLogger(t)
	var called bool
	handler := loggingMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called {
		t.Fatalf("expected handler to be called")
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := zaptest.NewLogger(t)
	handler := recoveryMiddleware(logger, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
}

func TestResponseRecorder(t *testing.T) {
	underlying := httptest.NewRecorder()
	rec := &responseRecorder{ResponseWriter: underlying, status: http.StatusOK}
	rec.WriteHeader(http.StatusTeapot)
	_, _ = rec.Write([]byte("short and stout"))

	if rec.status != http.StatusTeapot {
		t.Fatalf("expected status to be recorded")
	}
	if rec.bytes != len("short and stout") {
		t.Fatalf("expected byte count, got %d", rec.bytes)
	}
	if underlying.Code != http.StatusTeapot {
		t.Fatalf("expected status to propagate to ResponseWriter")
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := corsMiddleware(config.CORS{Enabled: true, AllowOrigin: "https://app.example.com"}, okHandler)

	t.Run("preflight answered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
			t.Fatalf("unexpected origin header %q", rec.Header().Get("Access-Control-Allow-Origin"))
		}
	})

	t.Run("plain OPTIONS reaches the router", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected handler response, got %d", rec.Code)
		}
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("blocks when limiter denies", func(t *testing.T) {
		middleware := rateLimitMiddleware(&staticLimiter{allow: false}, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatalf("handler should not execute when rate limited")
		}))
		rec := httptest.NewRecorder()
		middleware.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Fatalf("expected Retry-After header")
		}
	})

	t.Run("passes when limiter allows", func(t *testing.T) {
		var called bool
		middleware := rateLimitMiddleware(&staticLimiter{allow: true}, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			called = true
		}))
		middleware.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if !called {
			t.Fatalf("expected handler to execute when limiter allows")
		}
	})
}

func TestClientLimiter(t *testing.T) {
	t.Run("defaults allow the first request", func(t *testing.T) {
		if !newClientLimiter(0, 0).Allow("192.0.2.1") {
			t.Fatalf("expected first request to be allowed")
		}
	})

	t.Run("buckets are per client", func(t *testing.T) {
		limiter := newClientLimiter(1, 1)
		if !limiter.Allow("192.0.2.1") || limiter.Allow("192.0.2.1") {
			t.Fatalf("expected the second request of one client to be denied")
		}
		if !limiter.Allow("192.0.2.2") {
			t.Fatalf("expected another client to have its own bucket")
		}
	})

	t.Run("idle buckets are swept", func(t *testing.T) {
		now := time.Unix(1_700_000_000, 0)
		limiter := newClientLimiter(1, 1)
		limiter.now = func() time.Time { return now }

		limiter.Allow("192.0.2.1")
		now = now.Add(2 * idleTTL)
		limiter.Allow("192.0.2.2")

		if got := limiter.size(); got != 1 {
			t.Fatalf("expected idle bucket to be removed, %d left", got)
		}
	})
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:52100"
	if got := clientKey(req); got != "198.51.100.7" {
		t.Fatalf("expected host without port, got %q", got)
	}
	req.RemoteAddr = "pipe"
	if got := clientKey(req); got != "pipe" {
		t.Fatalf("expected raw address, got %q", got)
	}
}

func TestChainOptions(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("rate limiter option applies", func(t *testing.T) {
		h := Chain(okHandler, logger, WithLogging(false), WithRateLimiter(&staticLimiter{allow: false}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected rate limiter to block request, got %d", rec.Code)
		}
	})

	t.Run("zero rate limit disables limiter", func(t *testing.T) {
		h := Chain(okHandler, logger, WithLogging(false), WithRateLimiter(&staticLimiter{allow: false}), WithRateLimit(0, 0))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected limiter to be disabled, got %d", rec.Code)
		}
	})

	t.Run("rate limit enforced", func(t *testing.T) {
		h := Chain(okHandler, logger, WithLogging(false), WithRateLimit(1, 1))
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected first request to succeed, got %d", rec.Code)
		}
		rec2 := httptest.NewRecorder()
		h.ServeHTTP(rec2, req.Clone(req.Context()))
		if rec2.Code != http.StatusTooManyRequests {
			t.Fatalf("expected second request to be blocked, got %d", rec2.Code)
		}

		other := req.Clone(req.Context())
		other.RemoteAddr = "198.51.100.7:4000"
		rec3 := httptest.NewRecorder()
		h.ServeHTTP(rec3, other)
		if rec3.Code != http.StatusOK {
			t.Fatalf("expected another client to pass, got %d", rec3.Code)
		}
	})

	t.Run("base url reaches the handler", func(t *testing.T) {
		resolver, err := baseurl.New(baseurl.Policy{Environment: config.Prod, Configured: "https://www.example.com"})
		if err != nil {
			t.Fatalf("baseurl.New: %v", err)
		}
		var seen string
		h := Chain(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			seen = baseurl.FromContext(r.Context())
		}), logger, WithBaseURL(resolver))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if seen != "https://www.example.com" {
			t.Fatalf("expected base URL in context, got %q", seen)
		}
	})
}

func TestMetrics(t *testing.T) {
	m := NewMetrics("test")
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), zaptest.NewLogger(t), WithLogging(false), WithMetrics(m))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("BREW", "/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("X-RANDOM-1", "/", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`test_http_requests_total{method="GET",status="200"} 1`,
		`test_http_requests_total{method="GET",status="404"} 1`,
		`test_http_request_duration_seconds_count{method="GET"} 2`,
		`test_http_requests_total{method="OTHER",status="200"} 2`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
	if strings.Contains(body, "BREW") {
		t.Fatalf("unexpected raw method label in metrics output")
	}
}
