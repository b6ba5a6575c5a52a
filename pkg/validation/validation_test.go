package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trustid/pkg/domain-errors"
)

type registerRequest struct {
	Phone    string `validate:"required,phone"`
	Password string `validate:"required,min=8"`
	Role     string `validate:"omitempty,oneof=citizen organization"`
}

func TestValidate(t *testing.T) {
	t.Run("valid request passes", func(t *testing.T) {
		require.NoError(t, Validate(registerRequest{Phone: "+919876543210", Password: "hunter2hunter2"}))
	})

	t.Run("phone tag rejects letters", func(t *testing.T) {
		err := Validate(registerRequest{Phone: "98765abc", Password: "hunter2hunter2"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, "phone must be a valid phone number", err.Error())
	})

	t.Run("min reports the bound", func(t *testing.T) {
		err := Validate(registerRequest{Phone: "9876543210", Password: "short"})
		require.Error(t, err)
		assert.Equal(t, "password must be at least 8", err.Error())
	})

	t.Run("oneof lists choices", func(t *testing.T) {
		err := Validate(registerRequest{Phone: "9876543210", Password: "hunter2hunter2", Role: "admin"})
		require.Error(t, err)
		assert.Equal(t, "role must be one of [citizen organization]", err.Error())
	})
}

func TestIsPhone(t *testing.T) {
	assert.True(t, IsPhone("9876543210"))
	assert.True(t, IsPhone("+447911123456"))
	assert.False(t, IsPhone("alice@example.com"))
	assert.False(t, IsPhone("12345"))
}
