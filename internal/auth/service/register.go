package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/sentinel"
	dErrors "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain-errors"
)

// Register creates a password account with the USER role. The request is
// expected to be normalized and validated by the handler.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (_ *models.UserResult, err error) {
	ctx, span := s.startSpan(ctx, "auth.register")
	defer func() { endSpan(span, err) }()

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		s.logAudit(ctx, "registration_rejected", "reason", "email_taken")
		return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, s.wrapStoreError(err, "failed to look up user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user := models.NewUser(req.Name, req.Email, "", s.now())
	user.PasswordHash = string(hash)

	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, s.wrapStoreError(err, "failed to save user")
	}

	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	if s.metrics != nil {
		s.metrics.IncUsersCreated()
	}
	s.logAudit(ctx, "user_registered", "user_id", user.ID.String())

	return models.NewUserResult(user), nil
}
