package handler

//go:generate mockgen -source=handler.go -destination=mocks/auth-mocks.go -package=mocks Service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/handler/mocks"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/provider"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/service"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/session"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain"
	dErrors "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain-errors"
)

type AuthHandlerSuite struct {
	suite.Suite
	tokens *session.TokenService
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) SetupTest() {
	s.tokens = session.NewTokenService("handler-test-secret", time.Hour)
}

type stubProvider struct {
	lastAttempt *provider.LoginAttempt
	profile     *models.ProviderProfile
	err         error
}

func (p *stubProvider) AuthCodeURL(attempt *provider.LoginAttempt) string {
	p.lastAttempt = attempt
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(attempt.State)
}

func (p *stubProvider) Exchange(_ context.Context, code string, attempt *provider.LoginAttempt) (*models.ProviderProfile, error) {
	if p.err != nil {
		return nil, p.err
	}
	if code != "good-code" || attempt.CodeVerifier == "" {
		return nil, provider.ErrMissingIDToken
	}
	return p.profile, nil
}

func (s *AuthHandlerSuite) newHandler(t *testing.T, p Provider) (*mocks.MockService, *chi.Mux) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockService(ctrl)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var opts []Option
	if p != nil {
		opts = append(opts, WithProvider(p))
	}
	h := New(mockService, s.tokens, logger, time.Hour, opts...)

	r := chi.NewRouter()
	r.Post("/api/auth/register", h.HandleRegister)
	r.Post("/api/auth/forgot-password", h.HandleForgotPassword)
	r.Post("/api/auth/reset-password", h.HandleResetPassword)
	r.Post("/api/auth/signin/credentials", h.HandleCredentialsSignIn)
	h.Register(r)
	return mockService, r
}

func (s *AuthHandlerSuite) enrichedSignIn() *service.SignInResult {
	user := &models.User{
		ID:    domain.NewUserID(),
		Name:  "Ann",
		Email: "ann@example.com",
		Role:  models.RoleAdmin,
	}
	sess := session.Enrich(session.Session{User: session.SessionUser{Name: user.Name, Email: user.Email}}, user)
	token, err := s.tokens.Issue(context.Background(), sess)
	s.Require().NoError(err)
	return &service.SignInResult{Token: token, Session: sess, User: user}
}

func (s *AuthHandlerSuite) TestRegister() {
	s.T().Run("created user is returned with 201", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		mockService.EXPECT().Register(gomock.Any(), &models.RegisterRequest{
			Name:     "Ann",
			Email:    "ann@example.com",
			Password: "longenough",
		}).Return(&models.UserResult{ID: "u-1", Name: "Ann", Email: "ann@example.com", Role: models.RoleUser}, nil)

		rr := s.do(router, http.MethodPost, "/api/auth/register",
			`{"name":"Ann","email":"  ANN@Example.com ","password":"longenough"}`, nil)

		assert.Equal(t, http.StatusCreated, rr.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "u-1", body["id"])
		assert.Equal(t, "USER", body["role"])
		assert.NotContains(t, body, "password_hash")
	})

	s.T().Run("invalid body never reaches the service", func(t *testing.T) {
		_, router := s.newHandler(t, nil)

		rr := s.do(router, http.MethodPost, "/api/auth/register",
			`{"name":"Ann","email":"ann@example.com","password":"short"}`, nil)
		s.assertErrorResponse(t, rr, http.StatusBadRequest, "bad_request")

		rr = s.do(router, http.MethodPost, "/api/auth/register", `{not json`, nil)
		s.assertErrorResponse(t, rr, http.StatusBadRequest, "bad_request")
	})

	s.T().Run("duplicate email is a conflict", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		mockService.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "email already registered"))

		rr := s.do(router, http.MethodPost, "/api/auth/register",
			`{"name":"Ann","email":"ann@example.com","password":"longenough"}`, nil)
		s.assertErrorResponse(t, rr, http.StatusConflict, "conflict")
	})
}

func (s *AuthHandlerSuite) TestForgotPassword() {
	mockService, router := s.newHandler(s.T(), nil)
	mockService.EXPECT().RequestPasswordReset(gomock.Any(), &models.ForgotPasswordRequest{Email: "nobody@example.com"}).
		Return(&models.MessageResult{Message: service.ForgotPasswordMessage}, nil)

	rr := s.do(router, http.MethodPost, "/api/auth/forgot-password", `{"email":"Nobody@example.com"}`, nil)

	s.Equal(http.StatusOK, rr.Code)
	var body models.MessageResult
	s.Require().NoError(json.NewDecoder(rr.Body).Decode(&body))
	s.Equal(service.ForgotPasswordMessage, body.Message)
}

func (s *AuthHandlerSuite) TestResetPassword() {
	s.T().Run("valid token resets the password", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		mockService.EXPECT().ResetPassword(gomock.Any(), &models.ResetPasswordRequest{Token: "raw-token", Password: "new-humidor-99"}).
			Return(&models.MessageResult{Message: service.PasswordResetMessage}, nil)

		rr := s.do(router, http.MethodPost, "/api/auth/reset-password",
			`{"token":"  raw-token ","password":"new-humidor-99"}`, nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var body models.MessageResult
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, service.PasswordResetMessage, body.Message)
	})

	s.T().Run("spent token is a bad request", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		mockService.EXPECT().ResetPassword(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeBadRequest, "reset token is invalid or expired"))

		rr := s.do(router, http.MethodPost, "/api/auth/reset-password",
			`{"token":"raw-token","password":"new-humidor-99"}`, nil)
		s.assertErrorResponse(t, rr, http.StatusBadRequest, "bad_request")
	})

	s.T().Run("short password never reaches the service", func(t *testing.T) {
		_, router := s.newHandler(t, nil)

		rr := s.do(router, http.MethodPost, "/api/auth/reset-password",
			`{"token":"raw-token","password":"short"}`, nil)
		s.assertErrorResponse(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *AuthHandlerSuite) TestOversizedBodyIsRejected() {
	_, router := s.newHandler(s.T(), nil)
	body := `{"name":"Ann","email":"ann@example.com","password":"` + strings.Repeat("x", maxBodyBytes) + `"}`

	rr := s.do(router, http.MethodPost, "/api/auth/register", body, nil)
	s.assertErrorResponse(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *AuthHandlerSuite) TestCredentialsSignIn() {
	s.T().Run("success sets the session cookie", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		res := s.enrichedSignIn()
		mockService.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any()).Return(res, nil)

		rr := s.do(router, http.MethodPost, "/api/auth/signin/credentials",
			`{"email":"ann@example.com","password":"longenough"}`, nil)

		require.Equal(t, http.StatusOK, rr.Code)
		cookie := findCookie(rr, session.CookieName)
		require.NotNil(t, cookie)
		assert.Equal(t, res.Token, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, 3600, cookie.MaxAge)
	})

	s.T().Run("bad credentials are unauthorized", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		mockService.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password"))

		rr := s.do(router, http.MethodPost, "/api/auth/signin/credentials",
			`{"email":"ann@example.com","password":"wrong-password"}`, nil)
		s.assertErrorResponse(t, rr, http.StatusUnauthorized, "unauthorized")
		assert.Nil(t, findCookie(rr, session.CookieName))
	})
}

func (s *AuthHandlerSuite) TestSessionEndpoint() {
	_, router := s.newHandler(s.T(), nil)

	s.T().Run("no cookie yields an empty object", func(t *testing.T) {
		rr := s.do(router, http.MethodGet, "/api/auth/session", "", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{}`, rr.Body.String())
	})

	s.T().Run("garbage cookie yields an empty object", func(t *testing.T) {
		rr := s.do(router, http.MethodGet, "/api/auth/session", "",
			&http.Cookie{Name: session.CookieName, Value: "not-a-token"})
		assert.JSONEq(t, `{}`, rr.Body.String())
	})

	s.T().Run("valid cookie yields the enriched session", func(t *testing.T) {
		res := s.enrichedSignIn()
		rr := s.do(router, http.MethodGet, "/api/auth/session", "",
			&http.Cookie{Name: session.CookieName, Value: res.Token})

		require.Equal(t, http.StatusOK, rr.Code)
		var got session.Session
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, res.Session.User, got.User)
		assert.False(t, got.Expires.IsZero())
	})
}

func (s *AuthHandlerSuite) TestSignOutClearsCookie() {
	_, router := s.newHandler(s.T(), nil)

	rr := s.do(router, http.MethodPost, "/api/auth/signout", "", nil)

	s.Equal(http.StatusOK, rr.Code)
	cookie := findCookie(rr, session.CookieName)
	s.Require().NotNil(cookie)
	s.Empty(cookie.Value)
	s.Less(cookie.MaxAge, 0)
}

func (s *AuthHandlerSuite) TestOAuthWithoutProviderIsUnavailable() {
	_, router := s.newHandler(s.T(), nil)

	rr := s.do(router, http.MethodGet, "/api/auth/signin", "", nil)
	s.assertErrorResponse(s.T(), rr, http.StatusServiceUnavailable, "service_unavailable")

	rr = s.do(router, http.MethodGet, "/api/auth/callback?state=x&code=y", "", nil)
	s.assertErrorResponse(s.T(), rr, http.StatusServiceUnavailable, "service_unavailable")
}

func (s *AuthHandlerSuite) TestOAuthRoundTrip() {
	profile := &models.ProviderProfile{Subject: "sub-1", Email: "ann@example.com", Name: "Ann"}

	s.T().Run("callback issues the session and returns to next", func(t *testing.T) {
		idp := &stubProvider{profile: profile}
		mockService, router := s.newHandler(t, idp)
		res := s.enrichedSignIn()
		mockService.EXPECT().CompleteOAuthSignIn(gomock.Any(), profile).Return(res, nil)

		start := s.do(router, http.MethodGet, "/api/auth/signin?callbackUrl=%2Fadmin%2Fdashboard", "", nil)
		require.Equal(t, http.StatusFound, start.Code)
		assert.True(t, strings.HasPrefix(start.Header().Get("Location"), "https://idp.example.com/authorize"))
		attemptCookie := findCookie(start, attemptCookieName)
		require.NotNil(t, attemptCookie)
		require.NotNil(t, idp.lastAttempt)

		callback := s.do(router, http.MethodGet,
			"/api/auth/callback?code=good-code&state="+url.QueryEscape(idp.lastAttempt.State), "", attemptCookie)

		require.Equal(t, http.StatusFound, callback.Code)
		assert.Equal(t, "/admin/dashboard", callback.Header().Get("Location"))
		sessionCookie := findCookie(callback, session.CookieName)
		require.NotNil(t, sessionCookie)
		assert.Equal(t, res.Token, sessionCookie.Value)
	})

	s.T().Run("state mismatch is rejected before exchange", func(t *testing.T) {
		idp := &stubProvider{profile: profile}
		_, router := s.newHandler(t, idp)

		start := s.do(router, http.MethodGet, "/api/auth/signin", "", nil)
		attemptCookie := findCookie(start, attemptCookieName)
		require.NotNil(t, attemptCookie)

		rr := s.do(router, http.MethodGet, "/api/auth/callback?code=good-code&state=forged", "", attemptCookie)
		s.assertErrorResponse(t, rr, http.StatusBadRequest, "bad_request")
	})

	s.T().Run("missing attempt cookie is rejected", func(t *testing.T) {
		_, router := s.newHandler(t, &stubProvider{profile: profile})
		rr := s.do(router, http.MethodGet, "/api/auth/callback?code=good-code&state=x", "", nil)
		s.assertErrorResponse(t, rr, http.StatusBadRequest, "bad_request")
	})

	s.T().Run("failed exchange is unauthorized", func(t *testing.T) {
		idp := &stubProvider{err: provider.ErrEmailUnverified}
		_, router := s.newHandler(t, idp)

		start := s.do(router, http.MethodGet, "/api/auth/signin", "", nil)
		attemptCookie := findCookie(start, attemptCookieName)
		require.NotNil(t, attemptCookie)

		rr := s.do(router, http.MethodGet,
			"/api/auth/callback?code=good-code&state="+url.QueryEscape(idp.lastAttempt.State), "", attemptCookie)
		s.assertErrorResponse(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                       "/",
		"/admin/dashboard":       "/admin/dashboard",
		"https://evil.example":   "/",
		"//evil.example/path":    "/",
		"/\\evil.example":        "/",
		"relative/path":          "/",
		"/account?tab=orders#id": "/account?tab=orders#id",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeNext(in), "safeNext(%q)", in)
	}
}

func (s *AuthHandlerSuite) do(router http.Handler, method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func (s *AuthHandlerSuite) assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rr.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, code, body["error"])
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
