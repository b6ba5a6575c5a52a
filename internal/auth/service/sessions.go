package service

import (
	"context"
	"errors"
	"sort"

	"trustid/internal/auth/models"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/platform/sentinel"
	"trustid/pkg/requestcontext"
)

// SessionActive backs the auth middleware: a token is honoured only while its
// session exists and belongs to the token's user. Activity is recorded on a
// best-effort basis.
func (s *Service) SessionActive(ctx context.Context, userID id.UserID, sessionID id.SessionID) (bool, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if session.UserID != userID || session.IsExpired(requestcontext.Now(ctx)) {
		return false, nil
	}
	if err := s.sessions.Touch(ctx, sessionID, requestcontext.Now(ctx)); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "failed to record session activity", "session_id", sessionID, "error", err)
	}
	return true, nil
}

// Logout ends the current session. Ending an already ended session succeeds.
func (s *Service) Logout(ctx context.Context, userID id.UserID, sessionID id.SessionID) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "user ID required")
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to end session")
	}
	s.metrics.IncrementSessionsEnded("logout", 1)
	s.logger.InfoContext(ctx, "user signed out", "user_id", userID, "session_id", sessionID)
	return nil
}

// ListSessions returns the user's live sessions, most recently active first.
func (s *Service) ListSessions(ctx context.Context, userID id.UserID, current id.SessionID) ([]models.SessionView, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user ID required")
	}
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}

	now := requestcontext.Now(ctx)
	out := make([]models.SessionView, 0, len(sessions))
	for _, session := range sessions {
		if session == nil || session.IsExpired(now) {
			continue
		}
		out = append(out, models.SessionView{Session: session, Current: session.ID == current})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Session.LastSeenAt.After(out[j].Session.LastSeenAt)
	})
	return out, nil
}

// TerminateSession ends one of the user's sessions. Sessions belonging to
// anyone else are reported as not found.
func (s *Service) TerminateSession(ctx context.Context, userID id.UserID, sessionID id.SessionID) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "user ID required")
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to find session")
	}
	if session.UserID != userID {
		s.logger.WarnContext(ctx, "session terminate denied - owner mismatch",
			"user_id", userID,
			"session_id", sessionID,
		)
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to end session")
	}
	s.metrics.IncrementSessionsEnded("terminated", 1)
	s.logger.InfoContext(ctx, "session terminated", "user_id", userID, "session_id", sessionID)
	return nil
}

// TerminateOtherSessions ends every session of the user except current and
// reports how many were ended.
func (s *Service) TerminateOtherSessions(ctx context.Context, userID id.UserID, current id.SessionID) (int, error) {
	if userID.IsNil() {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "user ID required")
	}
	removed, err := s.sessions.DeleteByUserExcept(ctx, userID, current)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to end sessions")
	}
	s.metrics.IncrementSessionsEnded("terminated", removed)
	s.metrics.ObserveTerminateAll(removed)
	s.logger.InfoContext(ctx, "other sessions terminated", "user_id", userID, "count", removed)
	return removed, nil
}
