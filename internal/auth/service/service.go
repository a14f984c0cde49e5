package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/audit"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/metrics"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/session"
	id "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain"
)

// UserStore defines the persistence interface for user data.
// Error Contract: Find methods return sentinel.ErrNotFound when the user
// doesn't exist; Save returns sentinel.ErrAlreadyUsed for a taken email.
type UserStore interface {
	Save(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindOrCreateByEmail(ctx context.Context, email string, user *models.User) (*models.User, bool, error)
	Count(ctx context.Context) (int, error)
}

// ResetTokenStore keeps reset tokens by hash.
// Error Contract: Consume returns sentinel.ErrNotFound for unknown or already
// used tokens and sentinel.ErrExpired for expired ones.
type ResetTokenStore interface {
	Save(ctx context.Context, token *models.PasswordResetToken) error
	Consume(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
}

// ResetNotifier delivers the raw reset token to the account owner. The raw
// token is never logged or stored.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, user *models.User, rawToken string, expiresAt time.Time) error
}

// TokenIssuer signs enriched sessions.
type TokenIssuer interface {
	Issue(ctx context.Context, s session.Session) (string, error)
}

// AuditPublisher receives the audit trail alongside the audit log lines.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// SignInResult is returned by every sign-in path.
type SignInResult struct {
	Token   string
	Session session.Session
	User    *models.User
	Created bool
}

type Service struct {
	users       UserStore
	resetTokens ResetTokenStore
	notifier    ResetNotifier
	audit       AuditPublisher
	tokens      TokenIssuer
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	bcryptCost  int
	resetTTL    time.Duration
	now         func() time.Time

	dummyHashOnce sync.Once
	dummyHash     []byte
}

const defaultResetTTL = time.Hour

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithResetNotifier(n ResetNotifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.audit = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithBcryptCost lowers the hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func WithResetTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(users UserStore, resetTokens ResetTokenStore, tokens TokenIssuer, opts ...Option) *Service {
	svc := &Service{
		users:       users,
		resetTokens: resetTokens,
		tokens:      tokens,
		bcryptCost:  bcrypt.DefaultCost,
		resetTTL:    defaultResetTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.tracer == nil {
		svc.tracer = otel.Tracer("storefront/auth")
	}
	return svc
}

// CountUsers backs the admin dashboard.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return 0, s.wrapStoreError(err, "failed to count users")
	}
	return n, nil
}
