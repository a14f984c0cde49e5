package email

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/models"
)

func TestLogNotifierWritesResetLink(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)), "http://localhost:8080")
	user := models.NewUser("Ann", "ann@example.com", "", time.Now())

	require.NoError(t, n.SendPasswordReset(context.Background(), user, "abc_DEF-123", time.Now().Add(time.Hour)))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "password reset link issued", line["msg"])
	assert.Equal(t, user.ID.String(), line["user_id"])
	assert.Equal(t, "http://localhost:8080/reset-password?token=abc_DEF-123", line["link"])
}

func TestResetLinkEscapesToken(t *testing.T) {
	assert.Equal(t, "https://shop.example.com/reset-password?token=a%2Bb%2Fc",
		ResetLink("https://shop.example.com", "a+b/c"))
}
