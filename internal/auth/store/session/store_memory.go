package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trustid/internal/auth/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
)

// Error Contract:
// - FindByID and Delete return sentinel.ErrNotFound for unknown or expired sessions
// - ListByUser skips expired sessions

// InMemorySessionStore keeps sessions in memory for tests and single-node runs.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
}

func New() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[id.SessionID]*models.Session)}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.IsExpired(time.Now()) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	cp := *session
	return &cp, nil
}

func (s *InMemorySessionStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	var out []*models.Session
	for _, session := range s.sessions {
		if session.UserID != userID || session.IsExpired(now) {
			continue
		}
		cp := *session
		out = append(out, &cp)
	}
	return out, nil
}

// Touch records activity on a session.
func (s *InMemorySessionStore) Touch(_ context.Context, sessionID id.SessionID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if at.After(session.LastSeenAt) {
		session.LastSeenAt = at
	}
	return nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	delete(s.sessions, sessionID)
	return nil
}

// DeleteByUserExcept removes every session of userID other than keep and
// reports how many were removed. A nil keep removes them all.
func (s *InMemorySessionStore) DeleteByUserExcept(_ context.Context, userID id.UserID, keep id.SessionID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for sid, session := range s.sessions {
		if session.UserID == userID && sid != keep {
			delete(s.sessions, sid)
			removed++
		}
	}
	return removed, nil
}
