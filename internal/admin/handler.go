// Package admin serves the admin area. Every route here sits behind the
// route guard; the sign-in page is the guard's one pass-through.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/audit"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/session"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/requestcontext"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/transport/httputil"
	dErrors "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain-errors"
)

// UserCounter is satisfied by the auth service.
type UserCounter interface {
	CountUsers(ctx context.Context) (int, error)
}

// AuditReader is satisfied by *audit.Publisher.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
}

const defaultAuditLimit = 50

type Handler struct {
	users      UserCounter
	audit      AuditReader
	logger     *slog.Logger
	signInPath string
	now        func() time.Time
}

type Option func(*Handler)

// WithAuditTrail enables GET /admin/api/audit/recent.
func WithAuditTrail(a AuditReader) Option {
	return func(h *Handler) {
		h.audit = a
	}
}

func New(users UserCounter, logger *slog.Logger, signInPath string, opts ...Option) *Handler {
	h := &Handler{
		users:      users,
		logger:     logger,
		signInPath: signInPath,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Get(h.signInPath, h.HandleSignInPage)
	r.Get("/admin/dashboard", h.HandleDashboard)
	if h.audit != nil {
		r.Get("/admin/api/audit/recent", h.HandleRecentAuditEvents)
	}
}

// AdminView is the signed-in admin as the dashboard shows it.
type AdminView struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type DashboardResponse struct {
	Admin     AdminView `json:"admin"`
	UserCount int       `json:"user_count"`
	Timestamp time.Time `json:"timestamp"`
}

const signInPage = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Admin sign in</title></head>
<body>
<h1>Admin sign in</h1>
<p><a href="/api/auth/signin?callbackUrl=%2Fadmin%2Fdashboard">Continue with your account</a></p>
</body>
</html>
`

func (h *Handler) HandleSignInPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(signInPage))
}

// HandleDashboard returns the signed-in admin and the number of accounts.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id := session.IdentityFromContext(ctx)
	if id == nil {
		// Only reachable when the guard is not mounted in front of this handler.
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not signed in"))
		return
	}

	count, err := h.users.CountUsers(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to count users",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "admin dashboard retrieved",
		"request_id", requestID,
		"user_id", id.UserID,
	)

	httputil.WriteJSON(w, http.StatusOK, &DashboardResponse{
		Admin: AdminView{
			UserID: id.UserID,
			Email:  id.Email,
			Role:   id.Role.String(),
		},
		UserCount: count,
		Timestamp: h.now().UTC(),
	})
}

// HandleRecentAuditEvents returns recent audit events, newest first.
func (h *Handler) HandleRecentAuditEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	limit := defaultAuditLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := h.audit.Recent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get recent audit events",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get audit events"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"total":  len(events),
	})
}
