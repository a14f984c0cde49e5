package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	dErrors "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain-errors"
)

// CookieName holds the signed session token.
const CookieName = "session_token"

const issuer = "storefront"

// sessionClaims is the token body. Subject is the user ID.
type sessionClaims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

type TokenOption func(*TokenService)

// WithTokenClock replaces time.Now for issue and verification.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewTokenService(signingKey string, ttl time.Duration, opts ...TokenOption) *TokenService {
	s := &TokenService{
		signingKey: []byte(signingKey),
		ttl:        ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs an enriched session. Sessions without a user ID were never
// enriched and are refused.
func (s *TokenService) Issue(_ context.Context, sess Session) (string, error) {
	if sess.User.ID == "" {
		return "", dErrors.New(dErrors.CodeInternal, "session is not enriched")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Name:    sess.User.Name,
		Email:   sess.User.Email,
		Picture: sess.User.Image,
		Role:    sess.User.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.User.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session token")
	}
	return signed, nil
}

// ParseSession verifies the token and rebuilds the session it carries.
func (s *TokenService) ParseSession(tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing session token")
	}

	claims := new(sessionClaims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}

	return &Session{
		User: SessionUser{
			ID:    claims.Subject,
			Name:  claims.Name,
			Email: claims.Email,
			Image: claims.Picture,
			Role:  models.ParseRole(claims.Role),
		},
		Expires: claims.ExpiresAt.Time,
	}, nil
}

// VerifySession implements SessionVerifier.
func (s *TokenService) VerifySession(token string) *Identity {
	sess, err := s.ParseSession(token)
	if err != nil {
		return nil
	}
	return &Identity{
		UserID: sess.User.ID,
		Email:  sess.User.Email,
		Role:   sess.User.Role,
	}
}

// TokenFromRequest prefers the session cookie and falls back to a bearer
// Authorization header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}
