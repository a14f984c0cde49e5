// Package main provides a CLI tool for minting session tokens for the
// storefront API. Tokens are signed with the dev secret unless -secret or
// AUTH_SECRET says otherwise, and are meant for local development only.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/session"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/config"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain"
)

const defaultTokenTTL = time.Hour

type tokenOutput struct {
	Token     string            `json:"token"`
	ExpiresIn string            `json:"expires_in"`
	Session   session.Session   `json:"session"`
	Usage     map[string]string `json:"usage"`
}

type options struct {
	userID string
	name   string
	email  string
	role   string
	secret string
	ttl    time.Duration
	json   bool
}

func main() {
	sessionCmd := flag.NewFlagSet("session", flag.ExitOnError)
	opts := options{}
	sessionCmd.StringVar(&opts.userID, "user-id", "", "User ID (UUID). Generated if empty.")
	sessionCmd.StringVar(&opts.name, "name", "Dev User", "Display name")
	sessionCmd.StringVar(&opts.email, "email", "dev@example.com", "Email address")
	sessionCmd.StringVar(&opts.role, "role", "USER", "Role: ADMIN or USER")
	sessionCmd.StringVar(&opts.secret, "secret", os.Getenv("AUTH_SECRET"), "Signing secret (defaults to AUTH_SECRET or the dev secret)")
	sessionCmd.DurationVar(&opts.ttl, "ttl", defaultTokenTTL, "Token time-to-live")
	sessionCmd.BoolVar(&opts.json, "json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "session":
		_ = sessionCmd.Parse(os.Args[2:])
	case "admin":
		_ = sessionCmd.Parse(os.Args[2:])
		opts.role = string(models.RoleAdmin)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	out, err := mint(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}
	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}

	fmt.Println("Session Token (JWT)")
	fmt.Println("===================")
	fmt.Printf("User ID:    %s\n", out.Session.User.ID)
	fmt.Printf("Email:      %s\n", out.Session.User.Email)
	fmt.Printf("Role:       %s\n", out.Session.User.Role)
	fmt.Printf("Expires In: %s\n", out.ExpiresIn)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(out.Token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  curl -b '%s=<token>' http://localhost:8080/admin/dashboard\n", session.CookieName)
}

// mint builds the same enriched session a sign-in would and signs it.
func mint(opts options) (*tokenOutput, error) {
	secret := opts.secret
	if secret == "" {
		secret = config.DevAuthSecret
	}

	uid := domain.NewUserID()
	if opts.userID != "" {
		parsed, err := domain.ParseUserID(opts.userID)
		if err != nil {
			return nil, fmt.Errorf("invalid -user-id: %w", err)
		}
		uid = parsed
	}

	user := &models.User{ID: uid, Name: opts.name, Email: opts.email, Role: models.ParseRole(opts.role)}
	sess := session.Enrich(session.Session{User: session.SessionUser{Name: user.Name, Email: user.Email}}, user)

	tokens := session.NewTokenService(secret, opts.ttl)
	token, err := tokens.Issue(context.Background(), sess)
	if err != nil {
		return nil, err
	}
	return &tokenOutput{
		Token:     token,
		ExpiresIn: opts.ttl.String(),
		Session:   sess,
		Usage: map[string]string{
			"cookie": session.CookieName + "=<token>",
			"header": "Authorization: Bearer <token>",
		},
	}, nil
}

func printUsage() {
	fmt.Println(`tokengen - Generate session tokens for the storefront API

WARNING: Tokens are signed with the dev secret unless -secret or AUTH_SECRET is set.
         Only use for local development and testing.

Usage:
  tokengen <command> [flags]

Commands:
  session   Mint a session token (role from -role, default USER)
  admin     Mint a session token with the ADMIN role

Examples:
  tokengen admin -email owner@example.com
  tokengen session -role USER -ttl 15m -json

Use "tokengen <command> -h" for more information about a command.`)
}
