package service

import (
	"context"
	"errors"

	"go.uber.org/mock/gomock"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/session"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/sentinel"
	dErrors "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain-errors"
)

func (s *ServiceSuite) TestCompleteOAuthSignIn() {
	profile := &models.ProviderProfile{
		Subject: "provider-sub",
		Email:   "boss@example.com",
		Name:    "Provider Name",
		Picture: "https://img.example.com/boss.png",
	}

	s.Run("enriches the session from the stored record", func() {
		stored := models.NewUser("Stored Name", "boss@example.com", "", s.now)
		stored.Role = models.RoleAdmin

		s.mockUsers.EXPECT().FindOrCreateByEmail(gomock.Any(), "boss@example.com", gomock.Any()).Return(stored, false, nil)
		s.mockTokens.EXPECT().Issue(gomock.Any(), session.Session{User: session.SessionUser{
			ID:    stored.ID.String(),
			Name:  "Provider Name",
			Email: "boss@example.com",
			Image: "https://img.example.com/boss.png",
			Role:  models.RoleAdmin,
		}}).Return("signed-token", nil)

		res, err := s.service.CompleteOAuthSignIn(context.Background(), profile)
		s.Require().NoError(err)
		s.Equal("signed-token", res.Token)
		s.Equal(models.RoleAdmin, res.Session.User.Role)
		s.False(res.Created)
	})

	s.Run("first sign-in creates a USER account", func() {
		var candidate *models.User
		s.mockUsers.EXPECT().FindOrCreateByEmail(gomock.Any(), "new@example.com", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, u *models.User) (*models.User, bool, error) {
				candidate = u
				return u, true, nil
			})
		s.mockTokens.EXPECT().Issue(gomock.Any(), gomock.Any()).Return("t", nil)

		res, err := s.service.CompleteOAuthSignIn(context.Background(), &models.ProviderProfile{Email: "new@example.com"})
		s.Require().NoError(err)
		s.True(res.Created)
		s.Equal(models.RoleUser, candidate.Role)
		s.Equal("New", candidate.Name, "name falls back to the email local part")
	})

	s.Run("missing email", func() {
		_, err := s.service.CompleteOAuthSignIn(context.Background(), &models.ProviderProfile{})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("store failure", func() {
		s.mockUsers.EXPECT().FindOrCreateByEmail(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, false, errors.New("db down"))
		_, err := s.service.CompleteOAuthSignIn(context.Background(), profile)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestSignInWithPassword() {
	req := &models.CredentialsSignInRequest{Email: "ann@example.com", Password: "humidor-42"}

	s.Run("valid credentials", func() {
		user := s.newPasswordUser("ann@example.com", "humidor-42", models.RoleUser)
		s.mockUsers.EXPECT().FindByEmail(gomock.Any(), "ann@example.com").Return(user, nil)
		s.mockTokens.EXPECT().Issue(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, sess session.Session) (string, error) {
				s.Equal(user.ID.String(), sess.User.ID)
				s.Equal(models.RoleUser, sess.User.Role)
				return "signed", nil
			})

		res, err := s.service.SignInWithPassword(context.Background(), req)
		s.Require().NoError(err)
		s.Equal("signed", res.Token)
	})

	s.Run("wrong password", func() {
		user := s.newPasswordUser("ann@example.com", "something-else", models.RoleUser)
		s.mockUsers.EXPECT().FindByEmail(gomock.Any(), "ann@example.com").Return(user, nil)

		_, err := s.service.SignInWithPassword(context.Background(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown email looks the same", func() {
		s.mockUsers.EXPECT().FindByEmail(gomock.Any(), "ann@example.com").Return(nil, sentinel.ErrNotFound)

		_, err := s.service.SignInWithPassword(context.Background(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("invalid email or password", err.Error())
	})

	s.Run("provider-only account", func() {
		s.mockUsers.EXPECT().FindByEmail(gomock.Any(), "ann@example.com").Return(models.NewUser("Ann", "ann@example.com", "", s.now), nil)

		_, err := s.service.SignInWithPassword(context.Background(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("issuer failure is internal", func() {
		user := s.newPasswordUser("ann@example.com", "humidor-42", models.RoleAdmin)
		s.mockUsers.EXPECT().FindByEmail(gomock.Any(), "ann@example.com").Return(user, nil)
		s.mockTokens.EXPECT().Issue(gomock.Any(), gomock.Any()).Return("", errors.New("sign failed"))

		_, err := s.service.SignInWithPassword(context.Background(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
