package models

import (
	s "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/string"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/validation"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (r *RegisterRequest) Normalize() {
	s.TrimStrings(&r.Name)
	r.Email = s.NormalizeEmail(r.Email)
}

func (r *RegisterRequest) Validate() error {
	return validation.Validate(r)
}

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

func (r *ForgotPasswordRequest) Normalize() {
	r.Email = s.NormalizeEmail(r.Email)
}

func (r *ForgotPasswordRequest) Validate() error {
	return validation.Validate(r)
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password. Token is
// the raw value from the reset link.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required,notblank,max=128"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (r *ResetPasswordRequest) Normalize() {
	s.TrimStrings(&r.Token)
}

func (r *ResetPasswordRequest) Validate() error {
	return validation.Validate(r)
}

// CredentialsSignInRequest is the body of POST /api/auth/signin/credentials.
type CredentialsSignInRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

func (r *CredentialsSignInRequest) Normalize() {
	r.Email = s.NormalizeEmail(r.Email)
}

func (r *CredentialsSignInRequest) Validate() error {
	return validation.Validate(r)
}

// ProviderProfile is what the identity provider tells us about the caller
// after a successful handshake.
type ProviderProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}
