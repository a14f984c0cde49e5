// Package provider delegates sign-in to an external OpenID Connect identity
// provider. The handshake itself is handled by go-oidc and x/oauth2.
package provider

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/config"
	s "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/string"
)

var (
	ErrMissingIDToken  = errors.New("token response has no id_token")
	ErrNonceMismatch   = errors.New("id_token nonce mismatch")
	ErrEmailUnverified = errors.New("provider reports email as unverified")
	ErrMissingEmail    = errors.New("id_token has no email claim")
)

// LoginAttempt is the per-browser state carried between /signin and /callback.
type LoginAttempt struct {
	State        string `json:"state"`
	Nonce        string `json:"nonce"`
	CodeVerifier string `json:"code_verifier"`
}

func NewLoginAttempt() (*LoginAttempt, error) {
	state, err := randomString(32)
	if err != nil {
		return nil, err
	}
	nonce, err := randomString(32)
	if err != nil {
		return nil, err
	}
	return &LoginAttempt{
		State:        state,
		Nonce:        nonce,
		CodeVerifier: oauth2.GenerateVerifier(),
	}, nil
}

type claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// OIDCProvider wraps the discovered provider and OAuth2 client config.
type OIDCProvider struct {
	oauth2Conf *oauth2.Config
	verifier   *oidc.IDTokenVerifier
}

// NewOIDC runs discovery against cfg.IssuerURL.
func NewOIDC(ctx context.Context, cfg config.OAuthConfig) (*OIDCProvider, error) {
	p, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint:     p.Endpoint(),
	}
	return newOIDCProvider(conf, p.Verifier(&oidc.Config{ClientID: cfg.ClientID})), nil
}

func newOIDCProvider(conf *oauth2.Config, verifier *oidc.IDTokenVerifier) *OIDCProvider {
	return &OIDCProvider{oauth2Conf: conf, verifier: verifier}
}

// AuthCodeURL builds the provider redirect with S256 PKCE and a nonce.
func (p *OIDCProvider) AuthCodeURL(attempt *LoginAttempt) string {
	return p.oauth2Conf.AuthCodeURL(attempt.State,
		oauth2.S256ChallengeOption(attempt.CodeVerifier),
		oauth2.SetAuthURLParam("nonce", attempt.Nonce),
	)
}

// Exchange trades the authorization code for tokens, verifies the ID token
// and returns the caller's profile.
func (p *OIDCProvider) Exchange(ctx context.Context, code string, attempt *LoginAttempt) (*models.ProviderProfile, error) {
	token, err := p.oauth2Conf.Exchange(ctx, code, oauth2.VerifierOption(attempt.CodeVerifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrMissingIDToken
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}
	if idToken.Nonce != attempt.Nonce {
		return nil, ErrNonceMismatch
	}

	var c claims
	if err := idToken.Claims(&c); err != nil {
		return nil, fmt.Errorf("failed to extract claims: %w", err)
	}
	return profileFromClaims(c)
}

func profileFromClaims(c claims) (*models.ProviderProfile, error) {
	email := s.NormalizeEmail(c.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	if c.EmailVerified != nil && !*c.EmailVerified {
		return nil, ErrEmailUnverified
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = strings.TrimSpace(c.GivenName + " " + c.FamilyName)
	}
	return &models.ProviderProfile{
		Subject:       c.Subject,
		Email:         email,
		EmailVerified: c.EmailVerified != nil && *c.EmailVerified,
		Name:          name,
		Picture:       c.Picture,
	}, nil
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random string: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
