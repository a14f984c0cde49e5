package service

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/requestcontext"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/sentinel"
	dErrors "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain-errors"
)

func (s *ServiceSuite) registerRequest() *models.RegisterRequest {
	return &models.RegisterRequest{Name: "Ann Smoker", Email: "ann@example.com", Password: "humidor-42"}
}

func (s *ServiceSuite) TestRegister() {
	s.Run("creates a USER account with a bcrypt hash", func() {
		var saved *models.User
		s.mockUsers.EXPECT().FindByEmail(gomock.Any(), "ann@example.com").Return(nil, sentinel.ErrNotFound)
		s.mockUsers.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
			saved = u
			return nil
		})

		res, err := s.service.Register(context.Background(), s.registerRequest())
		s.Require().NoError(err)

		s.Equal(models.RoleUser, res.Role)
		s.Equal("ann@example.com", res.Email)
		s.Equal(saved.ID.String(), res.ID)
		s.True(res.CreatedAt.Equal(s.now))
		s.NoError(bcrypt.CompareHashAndPassword([]byte(saved.PasswordHash), []byte("humidor-42")))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.UsersCreated))
	})

	s.Run("existing email is a conflict", func() {
		s.mockUsers.EXPECT().FindByEmail(gomock.Any(), "ann@example.com").Return(&models.User{Email: "ann@example.com"}, nil)

		_, err := s.service.Register(context.Background(), s.registerRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("race on save is a conflict", func() {
		s.mockUsers.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
		s.mockUsers.EXPECT().Save(gomock.Any(), gomock.Any()).Return(sentinel.ErrAlreadyUsed)

		_, err := s.service.Register(context.Background(), s.registerRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("store failure is internal", func() {
		s.mockUsers.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

		_, err := s.service.Register(context.Background(), s.registerRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestCountUsers() {
	s.mockUsers.EXPECT().Count(gomock.Any()).Return(42, nil)
	n, err := s.service.CountUsers(context.Background())
	s.Require().NoError(err)
	s.Equal(42, n)

	s.mockUsers.EXPECT().Count(gomock.Any()).Return(0, errors.New("boom"))
	_, err = s.service.CountUsers(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestRegisterEmitsAuditEvent() {
	s.mockUsers.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
	s.mockUsers.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

	ctx := requestcontext.WithClientMetadata(context.Background(), "203.0.113.47", "")
	res, err := s.service.Register(ctx, s.registerRequest())
	s.Require().NoError(err)

	events, err := s.auditTrail.Recent(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("user_registered", events[0].Action)
	s.Equal(res.ID, events[0].UserID)
	s.Equal("203.0.113.0", events[0].ClientIPPrefix)
}
