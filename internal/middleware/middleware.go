// Package middleware wraps the router with the server's standard chain:
// request id, rate limit, access log, metrics, panic recovery, CORS and
// base URL resolution.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eugenenazirov/http-skeleton/internal/baseurl"
	"github.com/eugenenazirov/http-skeleton/internal/config"
)

// Option configures the behaviour of Chain.
type Option func(*chainConfig)

// WithLogging controls whether access logs are emitted.
func WithLogging(enabled bool) Option {
	return func(cfg *chainConfig) {
		cfg.enableLogging = enabled
	}
}

// WithRateLimit installs a token bucket per client address. Zero for either
// value disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(cfg *chainConfig) {
		if rps <= 0 || burst <= 0 {
			cfg.rateLimiter = nil
			return
		}
		cfg.rateLimiter = newClientLimiter(rps, burst)
	}
}

// WithRateLimiter overrides the request rate limiter (primarily for tests).
func WithRateLimiter(limiter RateLimiter) Option {
	return func(cfg *chainConfig) {
		cfg.rateLimiter = limiter
	}
}

// WithCORS adds CORS headers when enabled.
func WithCORS(cors config.CORS) Option {
	return func(cfg *chainConfig) {
		cfg.cors = cors
	}
}

// WithMetrics records request metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(cfg *chainConfig) {
		cfg.metrics = m
	}
}

// WithBaseURL stores the public root URL of each request in its context.
func WithBaseURL(r *baseurl.Resolver) Option {
	return func(cfg *chainConfig) {
		cfg.baseURL = r
	}
}

type chainConfig struct {
	enableLogging bool
	logger        *zap.Logger
	rateLimiter   RateLimiter
	cors          config.CORS
	metrics       *Metrics
	baseURL       *baseurl.Resolver
}

// Chain wraps next with the standard middleware.
func Chain(next http.Handler, logger *zap.Logger, opts ...Option) http.Handler {
	cfg := chainConfig{
		enableLogging: true,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	root := next
	if cfg.baseURL != nil {
		root = cfg.baseURL.Middleware(root)
	}
	if cfg.cors.Enabled {
		root = corsMiddleware(cfg.cors, root)
	}
	root = recoveryMiddleware(cfg.logger, root)
	if cfg.metrics != nil {
		root = cfg.metrics.instrument(root)
	}
	if cfg.enableLogging {
		root = loggingMiddleware(cfg.logger, root)
	}
	root = rateLimitMiddleware(cfg.rateLimiter, root)
	root = requestIDMiddleware(root)

	return root
}

func corsMiddleware(cors config.CORS, next http.Handler) http.Handler {
	origin := cors.AllowOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET,HEAD,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Requested-With")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")
		if origin != "*" {
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		requestID := RequestIDFromContext(r.Context())
		logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", duration),
			zap.String("request_id", requestID),
		)
	})
}

func recoveryMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					zap.Any("error", rec),
					zap.String("request_id", RequestIDFromContext(r.Context())),
				)
				http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

const requestIDHeader = "X-Request-ID"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		ctx := contextWithRequestID(r.Context(), requestID)

		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey string

const requestIDContextKey contextKey = "requestID"

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext returns the request id assigned by the chain, or "".
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDContextKey).(string); ok {
		return v
	}
	return ""
}

type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (r *responseRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
