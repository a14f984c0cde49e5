package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"

	adminhandler "github.com/mrlts-del/cigar-accessories-v5-sub001/internal/admin"
	authhandler "github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/handler"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/guard"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/health"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/metrics"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/middleware"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/ratelimit/limiter"
	rlhandler "github.com/mrlts-del/cigar-accessories-v5-sub001/internal/ratelimit/handler"
	rlmiddleware "github.com/mrlts-del/cigar-accessories-v5-sub001/internal/ratelimit/middleware"
)

// Deps are the handlers and middleware main builds. Health, HTTPMetrics and
// MetricsHandler are optional.
type Deps struct {
	Logger         *slog.Logger
	TrustedProxies []netip.Prefix
	RequestTimeout time.Duration

	Auth      *authhandler.Handler
	Admin     *adminhandler.Handler
	RateLimit *rlhandler.Handler
	Health    *health.Handler

	Limits *rlmiddleware.Middleware
	Guard  *guard.Guard

	HTTPMetrics    *metrics.Metrics
	MetricsHandler http.Handler
}

// NewRouter wires all public endpoints with middleware.
//
// The guard runs for every request and only acts on its prefix, so an admin
// route cannot be mounted outside its reach. Rate limits wrap the individual
// handlers and run before any store access.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.NewClientMetadata(d.TrustedProxies).Handler)
	r.Use(middleware.Logger(d.Logger))
	if d.HTTPMetrics != nil {
		r.Use(d.HTTPMetrics.Middleware)
	}
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}
	r.Use(d.Guard.Middleware)

	r.With(d.Limits.RateLimit("register", limiter.RegisterRule)).
		Post("/api/auth/register", d.Auth.HandleRegister)
	r.With(d.Limits.RateLimit("forgot_password", limiter.PasswordResetRule)).
		Post("/api/auth/forgot-password", d.Auth.HandleForgotPassword)
	r.With(d.Limits.RateLimit("reset_password", limiter.PasswordResetRule)).
		Post("/api/auth/reset-password", d.Auth.HandleResetPassword)
	r.With(d.Limits.RateLimitScoped("signin", limiter.SignInRule)).
		Post("/api/auth/signin/credentials", d.Auth.HandleCredentialsSignIn)
	d.Auth.Register(r)

	d.Admin.Register(r)
	d.RateLimit.RegisterAdmin(r)

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	return r
}
