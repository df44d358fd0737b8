package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"rotacultural/internal/ratelimit/models"
	"rotacultural/pkg/platform/httputil"
	request "rotacultural/pkg/platform/middleware/request"
	"rotacultural/pkg/requestcontext"
)

// BucketStore admits or rejects one request against a sliding window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// Observer counts rejected requests.
type Observer interface {
	IncrementRateLimited(class string)
}

// Middleware enforces per-IP budgets for each endpoint class.
type Middleware struct {
	buckets  BucketStore
	limits   map[models.EndpointClass]models.Limit
	logger   *slog.Logger
	observer Observer
	disabled bool
}

// Option configures the Middleware.
type Option func(*Middleware)

// WithLimit sets the budget for a class. Classes without a budget pass through.
func WithLimit(class models.EndpointClass, limit models.Limit) Option {
	return func(m *Middleware) {
		if class.IsValid() && limit.Requests > 0 && limit.Window > 0 {
			m.limits[class] = limit
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(m *Middleware) {
		m.observer = observer
	}
}

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(buckets BucketStore, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		buckets: buckets,
		limits:  make(map[models.EndpointClass]models.Limit),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RateLimit returns middleware that charges each request to the client IP's
// bucket for class. Store failures let the request through.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit, ok := m.limits[class]
			if m.disabled || !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			result, err := m.buckets.Allow(ctx, models.BucketKey(class, ip), limit.Requests, limit.Window)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check rate limit",
					"request_id", request.GetRequestID(ctx),
					"class", string(class),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"request_id", request.GetRequestID(ctx),
					"class", string(class),
					"client_ip", ip,
				)
				if m.observer != nil {
					m.observer.IncrementRateLimited(string(class))
				}
				writeRateLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests from this IP address. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
