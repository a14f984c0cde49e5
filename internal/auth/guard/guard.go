// Package guard protects the admin area. Decisions are made from the locally
// verified session token only; the database is never consulted per request.
package guard

import (
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/metrics"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/session"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/requestcontext"
	s "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/string"
)

const (
	DefaultPrefix     = "/admin"
	DefaultSignInPath = "/admin/signin"
)

// Decision is the outcome of evaluating one request.
type Decision int

const (
	PassOutsidePrefix Decision = iota
	PassSignInPage
	RedirectNoToken
	RedirectWrongRole
	Authorized
	// AuthorizedOverride is the superuser escape hatch: a non-admin token
	// whose email equals the configured override address.
	AuthorizedOverride
)

func (d Decision) String() string {
	switch d {
	case PassOutsidePrefix:
		return "pass_outside_prefix"
	case PassSignInPage:
		return "pass_signin_page"
	case RedirectNoToken:
		return "redirect_no_token"
	case RedirectWrongRole:
		return "redirect_wrong_role"
	case Authorized:
		return "authorized"
	case AuthorizedOverride:
		return "authorized_override"
	default:
		return "unknown"
	}
}

// Allows reports whether the request proceeds to the next handler.
func (d Decision) Allows() bool {
	return d != RedirectNoToken && d != RedirectWrongRole
}

type Config struct {
	Prefix        string
	SignInPath    string
	OverrideEmail string
}

type Option func(*Guard)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

type Guard struct {
	prefix        string
	signInPath    string
	overrideEmail string
	verifier      session.SessionVerifier
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

func New(cfg Config, verifier session.SessionVerifier, opts ...Option) *Guard {
	g := &Guard{
		prefix:        strings.TrimSuffix(cfg.Prefix, "/"),
		signInPath:    cfg.SignInPath,
		overrideEmail: strings.TrimSpace(cfg.OverrideEmail),
		verifier:      verifier,
		logger:        slog.Default(),
	}
	if g.prefix == "" {
		g.prefix = DefaultPrefix
	}
	if g.signInPath == "" {
		g.signInPath = DefaultSignInPath
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) SignInPath() string { return g.signInPath }

// Decide evaluates a request path against an optional verified identity.
// A request under the prefix is authorized iff the role is ADMIN, or an
// override email is configured and matches the token's email.
func (g *Guard) Decide(requestPath string, id *session.Identity) Decision {
	p := cleanPath(requestPath)
	if !g.covers(p) {
		return PassOutsidePrefix
	}
	if p == g.signInPath {
		return PassSignInPage
	}
	if id == nil {
		return RedirectNoToken
	}
	if id.IsAdmin() {
		return Authorized
	}
	if g.overrideEmail != "" && s.EqualFoldTrimmed(id.Email, g.overrideEmail) {
		return AuthorizedOverride
	}
	return RedirectWrongRole
}

// Middleware forwards allowed requests unchanged apart from the verified
// identity in the context, and redirects everything else to the sign-in page.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.covers(cleanPath(r.URL.Path)) {
			next.ServeHTTP(w, r)
			return
		}

		var id *session.Identity
		if token := session.TokenFromRequest(r); token != "" {
			id = g.verifier.VerifySession(token)
		}

		decision := g.Decide(r.URL.Path, id)
		if g.metrics != nil {
			g.metrics.IncGuardDecision(decision.String())
		}

		ctx := r.Context()
		if !decision.Allows() {
			g.logger.InfoContext(ctx, "admin access redirected",
				"path", r.URL.Path,
				"decision", decision.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Location", g.signInPath)
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusFound)
			return
		}

		if decision == AuthorizedOverride {
			g.logger.WarnContext(ctx, "admin access granted via override email",
				"path", r.URL.Path,
				"user_id", id.UserID,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		if id != nil {
			ctx = session.WithIdentity(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// covers is segment-aware: /admin and /admin/x match, /administrator does not.
func (g *Guard) covers(p string) bool {
	return p == g.prefix || strings.HasPrefix(p, g.prefix+"/")
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}
