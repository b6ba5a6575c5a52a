package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustid/internal/auth/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
)

func newSession(userID id.UserID, ttl time.Duration) *models.Session {
	now := time.Now()
	return &models.Session{
		ID:         id.NewSessionID(),
		UserID:     userID,
		Device:     "Firefox on Linux",
		IP:         "203.0.113.0",
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		LastSeenAt: now,
	}
}

func TestInMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	userID := id.NewUserID()

	current := newSession(userID, time.Hour)
	other := newSession(userID, time.Hour)
	expired := newSession(userID, -time.Minute)
	foreign := newSession(id.NewUserID(), time.Hour)
	for _, sess := range []*models.Session{current, other, expired, foreign} {
		require.NoError(t, s.Create(ctx, sess))
	}

	t.Run("expired sessions are invisible", func(t *testing.T) {
		_, err := s.FindByID(ctx, expired.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		listed, err := s.ListByUser(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, listed, 2)
	})

	t.Run("touch only moves forward", func(t *testing.T) {
		later := current.LastSeenAt.Add(time.Minute)
		require.NoError(t, s.Touch(ctx, current.ID, later))
		require.NoError(t, s.Touch(ctx, current.ID, later.Add(-time.Hour)))

		got, err := s.FindByID(ctx, current.ID)
		require.NoError(t, err)
		assert.True(t, got.LastSeenAt.Equal(later))
	})

	t.Run("delete all but current", func(t *testing.T) {
		removed, err := s.DeleteByUserExcept(ctx, userID, current.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		_, err = s.FindByID(ctx, current.ID)
		assert.NoError(t, err)
		_, err = s.FindByID(ctx, other.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = s.FindByID(ctx, foreign.ID)
		assert.NoError(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, current.ID))
		assert.ErrorIs(t, s.Delete(ctx, current.ID), sentinel.ErrNotFound)
	})
}
