package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/sentinel"
	dErrors "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain-errors"
)

const (
	// ForgotPasswordMessage is returned for every request, matched or not.
	ForgotPasswordMessage = "If an account exists for that email, a reset link has been sent."
	// PasswordResetMessage confirms a completed reset.
	PasswordResetMessage = "Your password has been reset."
)

var errInvalidResetToken = dErrors.New(dErrors.CodeBadRequest, "reset token is invalid or expired")

// RequestPasswordReset mints a reset token for a known email. Unknown
// addresses and store failures are indistinguishable to the caller; both
// yield the generic acknowledgement.
func (s *Service) RequestPasswordReset(ctx context.Context, req *models.ForgotPasswordRequest) (*models.MessageResult, error) {
	ctx, span := s.startSpan(ctx, "auth.password_reset")
	var spanErr error
	defer func() { endSpan(span, spanErr) }()

	generic := &models.MessageResult{Message: ForgotPasswordMessage}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			spanErr = err
			s.logger.ErrorContext(ctx, "password reset lookup failed", "error", err)
		}
		s.recordResetRequest(false)
		s.logAudit(ctx, "password_reset_requested", "matched", false)
		return generic, nil
	}

	raw, hash, err := newResetToken()
	if err != nil {
		spanErr = err
		s.logger.ErrorContext(ctx, "password reset token generation failed", "error", err)
		return generic, nil
	}
	now := s.now()
	token := &models.PasswordResetToken{
		TokenHash: hash,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.resetTTL),
	}
	if err := s.resetTokens.Save(ctx, token); err != nil {
		spanErr = err
		s.logger.ErrorContext(ctx, "password reset token save failed", "error", err, "user_id", user.ID.String())
		return generic, nil
	}

	if s.notifier != nil {
		if err := s.notifier.SendPasswordReset(ctx, user, raw, token.ExpiresAt); err != nil {
			spanErr = err
			s.logger.ErrorContext(ctx, "password reset delivery failed", "error", err, "user_id", user.ID.String())
		}
	}
	s.recordResetRequest(true)
	s.logAudit(ctx, "password_reset_requested",
		"matched", true,
		"user_id", user.ID.String(),
		"token_ref", hash[:8],
		"expires_at", token.ExpiresAt,
	)
	return generic, nil
}

// ResetPassword consumes a reset token and replaces the account password.
// Unknown, used and expired tokens all fail the same way. The token is spent
// even when the password update fails, so a new reset must be requested.
func (s *Service) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) (_ *models.MessageResult, err error) {
	ctx, span := s.startSpan(ctx, "auth.password_reset_complete")
	defer func() { endSpan(span, err) }()

	tokenHash := HashResetToken(req.Token)
	token, err := s.resetTokens.Consume(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			s.recordReset("invalid_token")
			s.logAudit(ctx, "password_reset_rejected", "reason", "invalid_token")
			return nil, errInvalidResetToken
		}
		s.recordReset("error")
		return nil, s.wrapStoreError(err, "failed to consume reset token")
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		s.recordReset("error")
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logAudit(ctx, "password_reset_rejected", "reason", "user_missing", "user_id", token.UserID.String())
			return nil, errInvalidResetToken
		}
		return nil, s.wrapStoreError(err, "failed to look up user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		s.recordReset("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	user.PasswordHash = string(hash)
	if err := s.users.Save(ctx, user); err != nil {
		s.recordReset("error")
		return nil, s.wrapStoreError(err, "failed to save user")
	}

	s.recordReset("success")
	s.logAudit(ctx, "password_reset_completed",
		"user_id", user.ID.String(),
		"token_ref", tokenHash[:8],
	)
	return &models.MessageResult{Message: PasswordResetMessage}, nil
}

func (s *Service) recordReset(outcome string) {
	if s.metrics != nil {
		s.metrics.IncPasswordReset(outcome)
	}
}

func (s *Service) recordResetRequest(matched bool) {
	if s.metrics != nil {
		s.metrics.IncPasswordResetRequest(matched)
	}
}

// HashResetToken is the lookup key for a raw token.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newResetToken() (raw, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate reset token: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(b)
	return raw, HashResetToken(raw), nil
}
