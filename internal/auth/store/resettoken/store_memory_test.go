package resettoken

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/sentinel"
	id "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain"
)

func TestInMemoryStore(t *testing.T) {
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	newToken := func(hash string) *models.PasswordResetToken {
		return &models.PasswordResetToken{
			TokenHash: hash,
			UserID:    id.NewUserID(),
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}
	}

	t.Run("consume once", func(t *testing.T) {
		store := NewInMemoryWithClock(clock)
		tok := newToken("h1")
		require.NoError(t, store.Save(context.Background(), tok))

		got, err := store.Consume(context.Background(), "h1")
		require.NoError(t, err)
		assert.Equal(t, tok.UserID, got.UserID)

		_, err = store.Consume(context.Background(), "h1")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("expired token", func(t *testing.T) {
		current := now
		store := NewInMemoryWithClock(func() time.Time { return current })
		require.NoError(t, store.Save(context.Background(), newToken("h2")))

		current = now.Add(time.Hour)
		_, err := store.Consume(context.Background(), "h2")
		assert.ErrorIs(t, err, sentinel.ErrExpired)
	})

	t.Run("delete expired tokens", func(t *testing.T) {
		store := NewInMemoryWithClock(clock)
		require.NoError(t, store.Save(context.Background(), newToken("old")))
		fresh := newToken("new")
		fresh.ExpiresAt = now.Add(3 * time.Hour)
		require.NoError(t, store.Save(context.Background(), fresh))

		deleted, err := store.DeleteExpiredTokens(context.Background(), now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)
		assert.Equal(t, 1, store.Len())

		_, err = store.Consume(context.Background(), "new")
		require.NoError(t, err)
	})

	t.Run("rejects empty hash", func(t *testing.T) {
		store := NewInMemory()
		require.Error(t, store.Save(context.Background(), &models.PasswordResetToken{}))
		require.Error(t, store.Save(context.Background(), nil))
	})
}
