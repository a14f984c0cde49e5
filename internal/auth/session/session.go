// Package session shapes the session handed to browsers and API callers,
// and verifies the signed token that carries it.
package session

import (
	"context"
	"time"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
)

// SessionUser is the user sub-object of a session. ID and Role are only set
// by Enrich.
type SessionUser struct {
	ID    string      `json:"id,omitempty"`
	Name  string      `json:"name,omitempty"`
	Email string      `json:"email,omitempty"`
	Image string      `json:"image,omitempty"`
	Role  models.Role `json:"role,omitempty"`
}

type Session struct {
	User    SessionUser `json:"user"`
	Expires time.Time   `json:"expires,omitempty"`
}

// FromProfile shapes the un-enriched session the provider handshake yields.
func FromProfile(p models.ProviderProfile) Session {
	return Session{User: SessionUser{Name: p.Name, Email: p.Email, Image: p.Picture}}
}

// Enrich copies the persisted user's ID and Role onto the session. It is the
// only place a role is written onto a session. A nil user leaves the session
// untouched.
func Enrich(s Session, u *models.User) Session {
	if u == nil {
		return s
	}
	s.User.ID = u.ID.String()
	s.User.Role = u.Role
	return s
}

// Identity is what the route guard needs from a verified token.
type Identity struct {
	UserID string
	Email  string
	Role   models.Role
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role.IsAdmin()
}

// SessionVerifier checks a token locally. A nil Identity means no session;
// malformed, expired and missing tokens are indistinguishable.
type SessionVerifier interface {
	VerifySession(token string) *Identity
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by the guard, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	if v, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return v
	}
	return nil
}
