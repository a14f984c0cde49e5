package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/privacy"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/requestcontext"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/ratelimit/limiter"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/ratelimit/metrics"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/transport/httputil"
)

// Checker is satisfied by *limiter.Limiter.
type Checker interface {
	Check(identifier string, rule limiter.Rule) bool
}

type Middleware struct {
	limiter Checker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(l Checker, logger *slog.Logger, m *metrics.Metrics) *Middleware {
	return &Middleware{
		limiter: l,
		logger:  logger,
		metrics: m,
	}
}

// RateLimit rejects callers over rule with a plain-text 429 before the wrapped
// handler (and any database access) runs. Callers are keyed by client IP, so
// every endpoint wrapped this way draws from one window per client. Requests
// without an IP share the limiter's unknown bucket.
func (m *Middleware) RateLimit(endpoint string, rule limiter.Rule) func(http.Handler) http.Handler {
	return m.limit(endpoint, rule, func(ip string) string { return ip })
}

// RateLimitScoped is RateLimit with a window of its own per client, keyed
// "<endpoint>:<ip>", so traffic here neither spends nor is spent by other
// limited endpoints.
func (m *Middleware) RateLimitScoped(endpoint string, rule limiter.Rule) func(http.Handler) http.Handler {
	return m.limit(endpoint, rule, func(ip string) string { return ScopedKey(endpoint, ip) })
}

// ScopedKey is the limiter identifier RateLimitScoped uses.
func ScopedKey(endpoint, ip string) string {
	return endpoint + ":" + ip
}

func (m *Middleware) limit(endpoint string, rule limiter.Rule, key func(ip string) string) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(math.Ceil(rule.Window.Seconds())))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			if ip == "" {
				ip = limiter.UnknownClient
			}

			limited := m.limiter.Check(key(ip), rule)
			if m.metrics != nil {
				m.metrics.ObserveCheck(endpoint, limited)
			}
			if limited {
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"endpoint", endpoint,
					"ip_prefix", privacy.AnonymizeIP(ip),
					"limit", rule.Limit,
					"window", rule.Window.String(),
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Retry-After", retryAfter)
				httputil.WriteTooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
