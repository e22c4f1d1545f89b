package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"idauth/internal/ratelimit/metrics"
	"idauth/pkg/platform/httputil"
	"idauth/pkg/requestcontext"
)

// CodeRateLimited is the error code written on refusal.
const CodeRateLimited = "rate_limit_exceeded"

// Limiter applies per-device limits to route groups.
type Limiter struct {
	store    Store
	limits   map[Class]Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(l *Limiter) { l.disabled = disabled }
}

func New(store Store, limits map[Class]Limit, opts ...Option) *Limiter {
	l := &Limiter{store: store, limits: limits, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PerDevice limits requests of class by the calling device. Requests without a
// device id are limited by client IP. A store failure lets the request through.
func (l *Limiter) PerDevice(class Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil || l.disabled {
				next.ServeHTTP(w, r)
				return
			}
			limit, ok := l.limits[class]
			if !ok || limit.Requests <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			subject := requestcontext.Headers(ctx).MobileUID
			if subject == "" {
				subject = "ip:" + requestcontext.ClientIP(ctx)
			}

			result, err := l.store.Allow(ctx, Key(class, subject), limit)
			if err != nil {
				l.metrics.IncStoreErrors()
				l.logger.ErrorContext(ctx, "rate limit check failed",
					"class", string(class),
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			l.metrics.IncDecision(string(class), result.Allowed)
			setHeaders(w, result)
			if !result.Allowed {
				l.logger.WarnContext(ctx, "device rate limited",
					"class", string(class),
					"mobile_uid", requestcontext.Headers(ctx).MobileUID,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(result)))
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.ErrorResponse{
					Error:            CodeRateLimited,
					ErrorDescription: "too many requests from this device, try again later",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func retrySeconds(result *Result) int {
	secs := int(math.Ceil(result.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
