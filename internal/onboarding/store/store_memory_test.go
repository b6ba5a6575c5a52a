package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustid/internal/onboarding/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
)

func newRequest(t *testing.T, email string, at time.Time) *models.Request {
	t.Helper()
	r, err := models.NewRequest(models.SubmitInput{Name: "Acme", Email: email, RegistrationNumber: "R-" + email}, at)
	require.NoError(t, err)
	return r
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC)

	t.Run("email is unique across requests", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Create(ctx, newRequest(t, "kyc@bank.example", t0)))
		assert.ErrorIs(t, s.Create(ctx, newRequest(t, "kyc@bank.example", t0)), sentinel.ErrConflict)
	})

	t.Run("lists newest first by status", func(t *testing.T) {
		s := New()
		older := newRequest(t, "a@bank.example", t0)
		newer := newRequest(t, "b@bank.example", t0.Add(time.Minute))
		decided := newRequest(t, "c@bank.example", t0.Add(2*time.Minute))
		for _, r := range []*models.Request{older, newer, decided} {
			require.NoError(t, s.Create(ctx, r))
		}
		_, err := s.Transition(ctx, decided.ID, models.StatusPending, models.StatusRejected, Decision{By: id.NewUserID(), At: t0})
		require.NoError(t, err)

		pending, err := s.ListByStatus(ctx, models.StatusPending)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, newer.ID, pending[0].ID)
		assert.Equal(t, older.ID, pending[1].ID)
	})

	t.Run("transition is guarded by the current status", func(t *testing.T) {
		s := New()
		r := newRequest(t, "kyc@bank.example", t0)
		require.NoError(t, s.Create(ctx, r))
		gov := id.NewUserID()

		got, err := s.Transition(ctx, r.ID, models.StatusPending, models.StatusApproved, Decision{By: gov, At: t0})
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, got.Status)
		assert.Equal(t, gov, got.DecidedBy)
		require.NotNil(t, got.DecidedAt)

		_, err = s.Transition(ctx, r.ID, models.StatusPending, models.StatusRejected, Decision{By: gov, At: t0})
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)

		reverted, err := s.Transition(ctx, r.ID, models.StatusApproved, models.StatusPending, Decision{})
		require.NoError(t, err)
		assert.True(t, reverted.DecidedBy.IsNil())
		assert.Nil(t, reverted.DecidedAt)

		_, err = s.Transition(ctx, id.NewOrgRequestID(), models.StatusPending, models.StatusApproved, Decision{})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
