package otp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustid/internal/auth/models"
	"trustid/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	const phone = "9876543210"

	save := func(t *testing.T, s *InMemoryStore, code string, purpose models.OTPPurpose) {
		t.Helper()
		require.NoError(t, s.Save(ctx, &models.OTP{
			Phone: phone, Purpose: purpose, Code: code, ExpiresAt: now.Add(5 * time.Minute),
		}))
	}

	t.Run("single use", func(t *testing.T) {
		s := New()
		save(t, s, "123456", models.OTPLogin)
		require.NoError(t, s.Consume(ctx, phone, models.OTPLogin, "123456", now))
		assert.ErrorIs(t, s.Consume(ctx, phone, models.OTPLogin, "123456", now), sentinel.ErrNotFound)
	})

	t.Run("purposes do not mix", func(t *testing.T) {
		s := New()
		save(t, s, "123456", models.OTPPasswordReset)
		assert.ErrorIs(t, s.Consume(ctx, phone, models.OTPLogin, "123456", now), sentinel.ErrNotFound)
	})

	t.Run("resend replaces the code", func(t *testing.T) {
		s := New()
		save(t, s, "111111", models.OTPLogin)
		save(t, s, "222222", models.OTPLogin)
		assert.ErrorIs(t, s.Consume(ctx, phone, models.OTPLogin, "111111", now), sentinel.ErrInvalidState)
		assert.NoError(t, s.Consume(ctx, phone, models.OTPLogin, "222222", now))
	})

	t.Run("expired at the expiry instant", func(t *testing.T) {
		s := New()
		save(t, s, "123456", models.OTPLogin)
		err := s.Consume(ctx, phone, models.OTPLogin, "123456", now.Add(5*time.Minute))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("burned after too many wrong guesses", func(t *testing.T) {
		s := New()
		save(t, s, "123456", models.OTPLogin)
		for range models.MaxOTPAttempts {
			assert.ErrorIs(t, s.Consume(ctx, phone, models.OTPLogin, "000000", now), sentinel.ErrInvalidState)
		}
		assert.ErrorIs(t, s.Consume(ctx, phone, models.OTPLogin, "123456", now), sentinel.ErrNotFound)
	})
}
