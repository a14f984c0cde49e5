package models

import (
	"time"

	id "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain"
)

// Role is the authorization level stored on the user record and copied onto
// sessions during enrichment.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

func (r Role) String() string { return string(r) }

func (r Role) IsAdmin() bool { return r == RoleAdmin }

// ParseRole accepts the stored spelling only; anything else is a standard user.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// User is a storefront account. PasswordHash is empty for accounts created
// through the identity provider.
type User struct {
	ID           id.UserID
	Name         string
	Email        string
	Image        string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// NewUser builds a standard account; callers persist it.
func NewUser(name, email, image string, now time.Time) *User {
	return &User{
		ID:        id.NewUserID(),
		Name:      name,
		Email:     email,
		Image:     image,
		Role:      RoleUser,
		CreatedAt: now,
	}
}

// PasswordResetToken is stored by hash; the raw token only ever leaves the
// process through the reset email.
type PasswordResetToken struct {
	TokenHash string
	UserID    id.UserID
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
