package resettoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/sentinel"
	id "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain"
)

const keyPrefix = "password_reset:"

type tokenJSON struct {
	UserID    string `json:"user_id"`
	CreatedAt int64  `json:"created_at"` // Unix nano
	ExpiresAt int64  `json:"expires_at"` // Unix nano
}

// RedisStore keeps reset tokens in Redis; expiry is enforced by key TTL.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Save(ctx context.Context, token *models.PasswordResetToken) error {
	if token == nil || token.TokenHash == "" {
		return fmt.Errorf("reset token is required")
	}
	ttl := token.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("reset token already expired: %w", sentinel.ErrExpired)
	}

	payload, err := json.Marshal(tokenJSON{
		UserID:    token.UserID.String(),
		CreatedAt: token.CreatedAt.UnixNano(),
		ExpiresAt: token.ExpiresAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("marshal reset token: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+token.TokenHash, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes the token.
func (s *RedisStore) Consume(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	raw, err := s.client.GetDel(ctx, keyPrefix+tokenHash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("reset token not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}

	var j tokenJSON
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("unmarshal reset token: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}

	t := &models.PasswordResetToken{
		TokenHash: tokenHash,
		UserID:    id.UserID(userID),
		CreatedAt: time.Unix(0, j.CreatedAt),
		ExpiresAt: time.Unix(0, j.ExpiresAt),
	}
	if t.IsExpired(s.now()) {
		return nil, fmt.Errorf("reset token expired: %w", sentinel.ErrExpired)
	}
	return t, nil
}
