package otp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"trustid/internal/auth/models"
	"trustid/pkg/platform/sentinel"
)

// Error Contract:
// - Consume returns sentinel.ErrNotFound when no live code exists for the phone
// - Consume returns sentinel.ErrInvalidState for a wrong code; the code is
//   burned after models.MaxOTPAttempts wrong guesses
// - a successful Consume deletes the code

type key struct {
	phone   string
	purpose models.OTPPurpose
}

// InMemoryStore holds one outstanding code per phone and purpose.
type InMemoryStore struct {
	mu    sync.Mutex
	codes map[key]*models.OTP
}

func New() *InMemoryStore {
	return &InMemoryStore{codes: make(map[key]*models.OTP)}
}

// Save replaces any outstanding code for the same phone and purpose.
func (s *InMemoryStore) Save(_ context.Context, otp *models.OTP) error {
	if otp == nil {
		return fmt.Errorf("otp is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *otp
	s.codes[key{otp.Phone, otp.Purpose}] = &cp
	return nil
}

func (s *InMemoryStore) Consume(_ context.Context, phone string, purpose models.OTPPurpose, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{phone, purpose}
	stored, ok := s.codes[k]
	if !ok || !now.Before(stored.ExpiresAt) {
		delete(s.codes, k)
		return fmt.Errorf("otp not found: %w", sentinel.ErrNotFound)
	}
	if !codesMatch(stored.Code, code) {
		stored.Attempts++
		if stored.Attempts >= models.MaxOTPAttempts {
			delete(s.codes, k)
		}
		return fmt.Errorf("otp mismatch: %w", sentinel.ErrInvalidState)
	}
	delete(s.codes, k)
	return nil
}

func codesMatch(stored, given string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
