package guard

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/metrics"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/session"
)

// stubVerifier maps raw tokens to identities; unknown tokens verify to nil.
type stubVerifier map[string]*session.Identity

func (v stubVerifier) VerifySession(token string) *session.Identity {
	return v[token]
}

// GuardSuite covers the admin route guard.
// The invariant "a redirected request never reaches the handler" must hold.
type GuardSuite struct {
	suite.Suite
	verifier stubVerifier
	metrics  *metrics.Metrics
	guard    *Guard
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.verifier = stubVerifier{
		"admin-token":    {UserID: "u-admin", Email: "boss@example.com", Role: models.RoleAdmin},
		"user-token":     {UserID: "u-user", Email: "buyer@example.com", Role: models.RoleUser},
		"override-token": {UserID: "u-owner", Email: "Owner@Example.com", Role: models.RoleUser},
	}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.guard = New(Config{OverrideEmail: " owner@example.com "}, s.verifier,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
}

func (s *GuardSuite) serve(path, token string) (*httptest.ResponseRecorder, bool, *session.Identity) {
	called := false
	var seen *session.Identity
	h := s.guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen = session.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, called, seen
}

func (s *GuardSuite) TestDecide() {
	admin := &session.Identity{Role: models.RoleAdmin}
	user := &session.Identity{Role: models.RoleUser, Email: "buyer@example.com"}
	owner := &session.Identity{Role: models.RoleUser, Email: "OWNER@example.com"}

	cases := []struct {
		name string
		path string
		id   *session.Identity
		want Decision
	}{
		{"outside prefix", "/products", nil, PassOutsidePrefix},
		{"lookalike prefix", "/administrator", nil, PassOutsidePrefix},
		{"signin page without token", "/admin/signin", nil, PassSignInPage},
		{"signin page trailing slash", "/admin/signin/", nil, PassSignInPage},
		{"dashboard without token", "/admin/dashboard", nil, RedirectNoToken},
		{"prefix root without token", "/admin", nil, RedirectNoToken},
		{"dashboard as user", "/admin/dashboard", user, RedirectWrongRole},
		{"dashboard as admin", "/admin/dashboard", admin, Authorized},
		{"dashboard as override", "/admin/dashboard", owner, AuthorizedOverride},
		{"dot segments resolve under prefix", "/products/../admin/dashboard", nil, RedirectNoToken},
		{"signin escape resolves to dashboard", "/admin/signin/../dashboard", nil, RedirectNoToken},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.Equal(tc.want, s.guard.Decide(tc.path, tc.id))
		})
	}
}

func (s *GuardSuite) TestOverrideDisabledWhenUnset() {
	g := New(Config{}, s.verifier)
	s.Equal(RedirectWrongRole, g.Decide("/admin/dashboard", &session.Identity{Role: models.RoleUser, Email: ""}))
	s.Equal(RedirectWrongRole, g.Decide("/admin/dashboard", &session.Identity{Role: models.RoleUser, Email: "owner@example.com"}))
}

func (s *GuardSuite) TestSignInPageWithoutToken() {
	rec, called, _ := s.serve("/admin/signin", "")
	s.True(called)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *GuardSuite) TestDashboardWithoutTokenRedirects() {
	rec, called, _ := s.serve("/admin/dashboard", "")
	s.False(called, "handler must not run")
	s.Equal(http.StatusFound, rec.Code)
	s.Equal("/admin/signin", rec.Header().Get("Location"))
	s.Empty(rec.Body.String())
}

func (s *GuardSuite) TestMalformedTokenTreatedAsMissing() {
	rec, called, _ := s.serve("/admin/dashboard", "garbage")
	s.False(called)
	s.Equal(http.StatusFound, rec.Code)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.GuardDecisionsTotal.WithLabelValues("redirect_no_token")))
}

func (s *GuardSuite) TestNonAdminRedirects() {
	rec, called, _ := s.serve("/admin/dashboard", "user-token")
	s.False(called)
	s.Equal(http.StatusFound, rec.Code)
	s.Equal("/admin/signin", rec.Header().Get("Location"))
}

func (s *GuardSuite) TestAdminPassesWithIdentity() {
	rec, called, seen := s.serve("/admin/dashboard", "admin-token")
	s.True(called)
	s.Equal(http.StatusOK, rec.Code)
	s.Require().NotNil(seen)
	s.Equal("u-admin", seen.UserID)
}

func (s *GuardSuite) TestOverrideEmailPasses() {
	rec, called, seen := s.serve("/admin/dashboard", "override-token")
	s.True(called)
	s.Equal(http.StatusOK, rec.Code)
	s.Require().NotNil(seen)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.GuardDecisionsTotal.WithLabelValues("authorized_override")))
}

func (s *GuardSuite) TestBearerHeaderAccepted() {
	called := false
	h := s.guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	req := httptest.NewRequest(http.MethodPost, "/admin/api/ratelimit/reset", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	h.ServeHTTP(httptest.NewRecorder(), req)
	s.True(called)
}

func (s *GuardSuite) TestOutsidePrefixSkipsVerification() {
	called := false
	g := New(Config{}, panicVerifier{})
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "anything"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	s.True(called)
}

type panicVerifier struct{}

func (panicVerifier) VerifySession(string) *session.Identity {
	panic("verifier must not be called outside the admin prefix")
}
