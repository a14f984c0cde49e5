package resettoken

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/sentinel"
)

// InMemoryStore holds reset tokens keyed by hash. Expired tokens are dropped
// on Consume and by DeleteExpiredTokens, which the auth cleanup worker runs.
type InMemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*models.PasswordResetToken
	now    func() time.Time
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		tokens: make(map[string]*models.PasswordResetToken),
		now:    time.Now,
	}
}

// NewInMemoryWithClock is used by tests that need to cross the expiry.
func NewInMemoryWithClock(now func() time.Time) *InMemoryStore {
	s := NewInMemory()
	s.now = now
	return s
}

func (s *InMemoryStore) Save(_ context.Context, token *models.PasswordResetToken) error {
	if token == nil || token.TokenHash == "" {
		return fmt.Errorf("reset token is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *token
	s.tokens[token.TokenHash] = &stored
	return nil
}

// Consume returns the token and deletes it. A token can be consumed once.
func (s *InMemoryStore) Consume(_ context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[tokenHash]
	if !ok {
		return nil, fmt.Errorf("reset token not found: %w", sentinel.ErrNotFound)
	}
	delete(s.tokens, tokenHash)
	if t.IsExpired(s.now()) {
		return nil, fmt.Errorf("reset token expired: %w", sentinel.ErrExpired)
	}
	found := *t
	return &found, nil
}

// DeleteExpiredTokens removes every token expired at now and reports how many.
func (s *InMemoryStore) DeleteExpiredTokens(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for hash, t := range s.tokens {
		if t.IsExpired(now) {
			delete(s.tokens, hash)
			deleted++
		}
	}
	return deleted, nil
}

func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
