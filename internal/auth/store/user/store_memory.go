package user

import (
	"context"
	"fmt"
	"sync"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/sentinel"
	id "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain"
)

// Error Contract:
// - ErrNotFound when the requested user does not exist
// - ErrAlreadyUsed when another user already owns the email
// - wrapped errors for infrastructure failures (Postgres only)

// InMemoryUserStore keeps users in memory. Used when DATABASE_URL is unset
// and in tests.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	users   map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:   make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

// Save inserts or updates a user.
func (s *InMemoryUserStore) Save(_ context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.byEmail[user.Email]; ok && owner != user.ID {
		return fmt.Errorf("email already registered: %w", sentinel.ErrAlreadyUsed)
	}
	if prev, ok := s.users[user.ID]; ok && prev.Email != user.Email {
		delete(s.byEmail, prev.Email)
	}
	stored := *user
	s.users[user.ID] = &stored
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		found := *user
		return &found, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.byEmail[email]; ok {
		found := *s.users[userID]
		return &found, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// FindOrCreateByEmail returns the existing user for email, or stores user.
// The boolean reports whether user was created.
func (s *InMemoryUserStore) FindOrCreateByEmail(_ context.Context, email string, user *models.User) (*models.User, bool, error) {
	if user == nil {
		return nil, false, fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID, ok := s.byEmail[email]; ok {
		found := *s.users[userID]
		return &found, false, nil
	}

	stored := *user
	stored.Email = email
	s.users[stored.ID] = &stored
	s.byEmail[email] = stored.ID
	created := stored
	return &created, true, nil
}

func (s *InMemoryUserStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}
