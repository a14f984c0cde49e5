package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/mrlts-del/cigar-accessories-v5-sub001/pkg/domain-errors"
)

type signupForm struct {
	DisplayName string `json:"display_name" validate:"required,notblank,max=64"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		form    signupForm
		wantMsg string
	}{
		{"missing name", signupForm{Email: "a@b.co", Password: "longenough"}, "display_name is required"},
		{"blank name", signupForm{DisplayName: "   ", Email: "a@b.co", Password: "longenough"}, "display_name must not be blank"},
		{"bad email", signupForm{DisplayName: "Ann", Email: "nope", Password: "longenough"}, "email must be a valid email"},
		{"short password", signupForm{DisplayName: "Ann", Email: "a@b.co", Password: "short"}, "password must be at least 8 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.form)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}

	t.Run("valid form passes", func(t *testing.T) {
		require.NoError(t, Validate(signupForm{DisplayName: "Ann", Email: "a@b.co", Password: "longenough"}))
	})
}
