package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/session"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/privacy"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/requestcontext"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/ratelimit/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/transport/httputil"
	dErrors "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain-errors"
)

// Limiter is the slice of *limiter.Limiter the admin endpoints use.
type Limiter interface {
	Reset(identifier string)
	Len() int
}

type Handler struct {
	limiter Limiter
	logger  *slog.Logger
}

func New(l Limiter, logger *slog.Logger) *Handler {
	return &Handler{
		limiter: l,
		logger:  logger,
	}
}

// RegisterAdmin mounts the routes. Callers must place them behind the admin guard.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/api/ratelimit/reset", h.HandleResetRateLimit)
	r.Get("/admin/api/ratelimit/status", h.HandleStatus)
}

// HandleResetRateLimit implements POST /admin/api/ratelimit/reset.
//
// Input: { "identifier": "203.0.113.7" }
// Output: { "identifier": "203.0.113.7", "reset": true }
func (h *Handler) HandleResetRateLimit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)

	var req models.ResetRateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode reset rate limit request",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.limiter.Reset(req.Identifier)

	attrs := []any{
		"identifier_prefix", privacy.AnonymizeIP(req.Identifier),
		"request_id", requestID,
		"log_type", "audit",
	}
	if id := session.IdentityFromContext(ctx); id != nil {
		attrs = append(attrs, "admin_user_id", id.UserID)
	}
	h.logger.InfoContext(ctx, "rate_limit_reset", attrs...)

	httputil.WriteJSON(w, http.StatusOK, &models.ResetRateLimitResponse{
		Identifier: req.Identifier,
		Reset:      true,
	})
}

func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, &models.StatusResponse{TrackedIdentifiers: h.limiter.Len()})
}
