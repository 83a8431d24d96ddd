package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginPayload struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func TestValidatePasses(t *testing.T) {
	v := NewValidator()
	err := v.Validate(loginPayload{Email: "user@example.com", Password: "secret-123"})
	require.NoError(t, err)
}

func TestValidateFlattensFieldErrors(t *testing.T) {
	v := NewValidator()
	err := v.Validate(loginPayload{Email: "not-an-email", Password: "short"})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "Email failed on email")
	assert.Contains(t, err.Error(), "Password failed on min")
}

func TestValidateRequired(t *testing.T) {
	v := NewValidator()
	err := v.Validate(loginPayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email failed on required")
}
