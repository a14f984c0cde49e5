package handler

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/provider"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/service"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/session"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/requestcontext"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/transport/httputil"
	dErrors "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain-errors"
)

const (
	attemptCookieName = "oauth_attempt"
	attemptCookiePath = "/api/auth"
	attemptMaxAge     = 10 * time.Minute

	maxBodyBytes = 64 * 1024
)

// Service defines the authentication operations the handler needs.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.UserResult, error)
	RequestPasswordReset(ctx context.Context, req *models.ForgotPasswordRequest) (*models.MessageResult, error)
	ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) (*models.MessageResult, error)
	CompleteOAuthSignIn(ctx context.Context, profile *models.ProviderProfile) (*service.SignInResult, error)
	SignInWithPassword(ctx context.Context, req *models.CredentialsSignInRequest) (*service.SignInResult, error)
}

// Provider is the delegated identity provider. Nil when OAuth is not configured.
type Provider interface {
	AuthCodeURL(attempt *provider.LoginAttempt) string
	Exchange(ctx context.Context, code string, attempt *provider.LoginAttempt) (*models.ProviderProfile, error)
}

// SessionReader decodes the session cookie for GET /api/auth/session.
type SessionReader interface {
	ParseSession(token string) (*session.Session, error)
}

type Option func(*Handler)

func WithProvider(p Provider) Option {
	return func(h *Handler) {
		h.provider = p
	}
}

func WithSecureCookies(secure bool) Option {
	return func(h *Handler) {
		h.secureCookies = secure
	}
}

// Handler serves /api/auth. Rate limits are applied by the router.
type Handler struct {
	auth          Service
	sessions      SessionReader
	provider      Provider
	logger        *slog.Logger
	sessionTTL    time.Duration
	secureCookies bool
}

func New(auth Service, sessions SessionReader, logger *slog.Logger, sessionTTL time.Duration, opts ...Option) *Handler {
	h := &Handler{
		auth:       auth,
		sessions:   sessions,
		logger:     logger,
		sessionTTL: sessionTTL,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register wires the routes that carry no rate limit. Register, forgot and
// reset password and credentials sign-in are mounted by the router behind
// their limits.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/auth/signin", h.HandleSignIn)
	r.Get("/api/auth/callback", h.HandleCallback)
	r.Get("/api/auth/session", h.HandleSession)
	r.Post("/api/auth/signout", h.HandleSignOut)
}

// HandleRegister implements POST /api/auth/register.
//
// Input: { "name": "Ann", "email": "ann@example.com", "password": "..." }
// Output: 201 with the public user.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req models.RegisterRequest
	if !h.decode(w, r, &req, "register") {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "invalid register request", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	res, err := h.auth.Register(ctx, &req)
	if err != nil {
		h.logServiceError(ctx, "register failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, res)
}

// HandleForgotPassword implements POST /api/auth/forgot-password. The answer
// never reveals whether the address has an account.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.ForgotPasswordRequest
	if !h.decode(w, r, &req, "forgot password") {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "invalid forgot password request", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	res, err := h.auth.RequestPasswordReset(ctx, &req)
	if err != nil {
		h.logServiceError(ctx, "forgot password failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleResetPassword implements POST /api/auth/reset-password.
//
// Input: { "token": "<from the reset link>", "password": "..." }
// Output: 200 with a confirmation message, 400 for an unusable token.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.ResetPasswordRequest
	if !h.decode(w, r, &req, "reset password") {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.auth.ResetPassword(ctx, &req)
	if err != nil {
		h.logServiceError(ctx, "reset password failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleCredentialsSignIn implements POST /api/auth/signin/credentials.
func (h *Handler) HandleCredentialsSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CredentialsSignInRequest
	if !h.decode(w, r, &req, "credentials sign-in") {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.auth.SignInWithPassword(ctx, &req)
	if err != nil {
		h.logServiceError(ctx, "credentials sign-in failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.setSessionCookie(w, res.Token)
	httputil.WriteJSON(w, http.StatusOK, h.withExpiry(res.Session))
}

// HandleSignIn starts the provider handshake: it stores state, nonce and the
// PKCE verifier in a short-lived cookie and redirects to the provider.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "oauth sign-in is not configured"))
		return
	}

	attempt, err := provider.NewLoginAttempt()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create login attempt", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start sign-in"))
		return
	}

	encoded, err := encodeAttempt(pendingAttempt{LoginAttempt: *attempt, Next: safeNext(r.URL.Query().Get("callbackUrl"))})
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start sign-in"))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     attemptCookieName,
		Value:    encoded,
		Path:     attemptCookiePath,
		MaxAge:   int(attemptMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthCodeURL(attempt), http.StatusFound)
}

// HandleCallback completes the handshake, enriches and issues the session,
// and redirects to the page the sign-in started from.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.provider == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "oauth sign-in is not configured"))
		return
	}

	cookie, err := r.Cookie(attemptCookieName)
	h.clearCookie(w, attemptCookieName, attemptCookiePath)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "sign-in attempt not found"))
		return
	}
	attempt, err := decodeAttempt(cookie.Value)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "sign-in attempt is malformed"))
		return
	}

	q := r.URL.Query()
	if providerErr := q.Get("error"); providerErr != "" {
		h.logger.WarnContext(ctx, "provider returned error", "error", providerErr, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "sign-in was not completed"))
		return
	}
	if subtle.ConstantTimeCompare([]byte(q.Get("state")), []byte(attempt.State)) != 1 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "state mismatch"))
		return
	}
	code := q.Get("code")
	if code == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "code is required"))
		return
	}

	profile, err := h.provider.Exchange(ctx, code, &attempt.LoginAttempt)
	if err != nil {
		h.logger.WarnContext(ctx, "provider exchange failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnauthorized, "sign-in failed"))
		return
	}

	res, err := h.auth.CompleteOAuthSignIn(ctx, profile)
	if err != nil {
		h.logServiceError(ctx, "oauth sign-in failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.setSessionCookie(w, res.Token)
	http.Redirect(w, r, attempt.Next, http.StatusFound)
}

// HandleSession returns the current session, or {} when there is none.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	token := session.TokenFromRequest(r)
	if token == "" {
		httputil.WriteJSON(w, http.StatusOK, struct{}{})
		return
	}
	sess, err := h.sessions.ParseSession(token)
	if err != nil {
		httputil.WriteJSON(w, http.StatusOK, struct{}{})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, session.CookieName, "/")
	httputil.WriteJSON(w, http.StatusOK, models.MessageResult{Message: "signed out"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		ctx := r.Context()
		h.logger.WarnContext(ctx, "failed to decode "+op+" request",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return false
	}
	return true
}

// logServiceError keeps expected client errors at warn level.
func (h *Handler) logServiceError(ctx context.Context, msg string, err error) {
	requestID := requestcontext.RequestID(ctx)
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeUnavailable) {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestID)
		return
	}
	h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestID)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) withExpiry(s session.Session) session.Session {
	if s.Expires.IsZero() && h.sessionTTL > 0 {
		s.Expires = time.Now().Add(h.sessionTTL).UTC()
	}
	return s
}

type pendingAttempt struct {
	provider.LoginAttempt
	Next string `json:"next"`
}

func encodeAttempt(a pendingAttempt) (string, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeAttempt(v string) (*pendingAttempt, error) {
	raw, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return nil, err
	}
	var a pendingAttempt
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	if a.State == "" || a.CodeVerifier == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "incomplete sign-in attempt")
	}
	a.Next = safeNext(a.Next)
	return &a, nil
}

// safeNext only allows same-site absolute paths as post sign-in targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	return next
}
