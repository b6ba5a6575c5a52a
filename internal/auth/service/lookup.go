package service

import (
	"context"
	"errors"
	"strings"

	"trustid/internal/auth/models"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/platform/sentinel"
)

// PhoneRegistered reports whether an account signs in with phone.
func (s *Service) PhoneRegistered(ctx context.Context, phone string) (bool, error) {
	return registered(s.users.FindByPhone(ctx, strings.TrimSpace(phone)))
}

// EmailRegistered reports whether an account signs in with email. Addresses
// are compared case-insensitively.
func (s *Service) EmailRegistered(ctx context.Context, email string) (bool, error) {
	return registered(s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email))))
}

func registered(_ *models.User, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return false, nil
	default:
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}
}
