package email

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
)

// ResetPath is the storefront page that completes a reset.
const ResetPath = "/reset-password"

// LogNotifier writes password reset links to the log instead of sending mail.
// The link carries the raw token, so it is only wired in local environments.
type LogNotifier struct {
	logger  *slog.Logger
	baseURL string
}

func NewLogNotifier(logger *slog.Logger, baseURL string) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger, baseURL: baseURL}
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, user *models.User, rawToken string, expiresAt time.Time) error {
	n.logger.InfoContext(ctx, "password reset link issued",
		"user_id", user.ID.String(),
		"link", ResetLink(n.baseURL, rawToken),
		"expires_at", expiresAt.UTC(),
	)
	return nil
}

// ResetLink builds the link a customer follows to finish a reset.
func ResetLink(baseURL, rawToken string) string {
	return baseURL + ResetPath + "?token=" + url.QueryEscape(rawToken)
}
