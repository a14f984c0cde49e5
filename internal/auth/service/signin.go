package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/email"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/session"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/sentinel"
	dErrors "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain-errors"
)

const (
	methodOAuth       = "oauth"
	methodCredentials = "credentials"
)

// CompleteOAuthSignIn runs after the provider handshake: it finds or creates
// the account for the verified email, enriches the session from the stored
// record and issues the session token.
func (s *Service) CompleteOAuthSignIn(ctx context.Context, profile *models.ProviderProfile) (_ *SignInResult, err error) {
	started := s.now().UnixNano()
	ctx, span := s.startSpan(ctx, "auth.signin", attribute.String("auth.method", methodOAuth))
	defer func() {
		endSpan(span, err)
		s.observeSignIn(methodOAuth, err == nil, started)
	}()

	if profile == nil || profile.Email == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "provider returned no email")
	}
	p := *profile
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = email.DisplayNameFromEmail(p.Email)
	}

	candidate := models.NewUser(p.Name, p.Email, p.Picture, s.now())
	user, created, err := s.users.FindOrCreateByEmail(ctx, p.Email, candidate)
	if err != nil {
		return nil, s.wrapStoreError(err, "failed to resolve user")
	}
	if created {
		if s.metrics != nil {
			s.metrics.IncUsersCreated()
		}
		s.logAudit(ctx, "user_created", "user_id", user.ID.String(), "method", methodOAuth)
	}

	res, err := s.issue(ctx, session.FromProfile(p), user)
	if err != nil {
		return nil, err
	}
	res.Created = created
	return res, nil
}

// SignInWithPassword checks credentials for password accounts. Unknown
// emails, provider-only accounts and wrong passwords all return the same
// error after a bcrypt comparison.
func (s *Service) SignInWithPassword(ctx context.Context, req *models.CredentialsSignInRequest) (_ *SignInResult, err error) {
	started := s.now().UnixNano()
	ctx, span := s.startSpan(ctx, "auth.signin", attribute.String("auth.method", methodCredentials))
	defer func() {
		endSpan(span, err)
		s.observeSignIn(methodCredentials, err == nil, started)
	}()

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.wrapStoreError(err, "failed to look up user")
		}
		s.burnComparison(req.Password)
		s.logAudit(ctx, "signin_failed", "method", methodCredentials, "reason", "unknown_email")
		return nil, errInvalidCredentials
	}
	if !user.HasPassword() {
		s.burnComparison(req.Password)
		s.logAudit(ctx, "signin_failed", "method", methodCredentials, "reason", "no_password", "user_id", user.ID.String())
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logAudit(ctx, "signin_failed", "method", methodCredentials, "reason", "bad_password", "user_id", user.ID.String())
		return nil, errInvalidCredentials
	}

	base := session.Session{User: session.SessionUser{
		Name:  user.Name,
		Email: user.Email,
		Image: user.Image,
	}}
	return s.issue(ctx, base, user)
}

// issue enriches base from the persisted user and signs it. Every sign-in
// path goes through here, so the role on a token always comes from the
// stored record.
func (s *Service) issue(ctx context.Context, base session.Session, user *models.User) (*SignInResult, error) {
	enriched := session.Enrich(base, user)
	token, err := s.tokens.Issue(ctx, enriched)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session")
	}
	s.logAudit(ctx, "signed_in", "user_id", user.ID.String(), "role", user.Role.String())
	return &SignInResult{Token: token, Session: enriched, User: user}, nil
}

// burnComparison spends the same time as a real password check.
func (s *Service) burnComparison(password string) {
	s.dummyHashOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("storefront-timing-equaliser"), s.bcryptCost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password)) //nolint:errcheck // result intentionally ignored
}
