package service

import (
	"context"
	"errors"

	"trustid/internal/auth/models"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/platform/sentinel"
	"trustid/pkg/secrets"
)

// ChangePassword replaces the password after checking the current one and
// signs out every other session.
func (s *Service) ChangePassword(ctx context.Context, userID id.UserID, current id.SessionID, oldPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}
	if err := secrets.Verify(oldPassword, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return dErrors.New(dErrors.CodeUnauthorized, "incorrect current password")
		}
		return err
	}
	if err := s.setPassword(ctx, userID, newPassword); err != nil {
		return err
	}
	if _, err := s.TerminateOtherSessions(ctx, userID, current); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "password changed", "user_id", userID)
	return nil
}

// ResetPassword sets a new password using a code sent by SendOTP with the
// password_reset purpose. Every session of the account is ended.
func (s *Service) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	if err := s.consumeOTP(ctx, phone, models.OTPPasswordReset, code); err != nil {
		return err
	}
	user, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}
	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return err
	}
	if _, err := s.TerminateOtherSessions(ctx, user.ID, id.SessionID{}); err != nil {
		return err
	}
	s.logger.WarnContext(ctx, "password reset by otp", "user_id", user.ID)
	return nil
}

func (s *Service) setPassword(ctx context.Context, userID id.UserID, password string) error {
	hash, err := secrets.Hash(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update password")
	}
	return nil
}
