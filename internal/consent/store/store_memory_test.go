package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustid/internal/consent/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
	txcontext "trustid/pkg/platform/tx"
)

func newConsent(t *testing.T, subject, requester id.EntityID, createdAt time.Time) *models.Consent {
	t.Helper()
	c, err := models.NewRequest(id.NewConsentID(), subject, requester, "Acme Bank", "KYC", []string{"fullName", "dob"}, createdAt)
	require.NoError(t, err)
	return c
}

func TestInMemoryStoreExecute(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	c := newConsent(t, id.NewEntityID(), id.NewEntityID(), now)
	require.NoError(t, s.Create(ctx, c))

	t.Run("duplicate id conflicts", func(t *testing.T) {
		assert.ErrorIs(t, s.Create(ctx, c), sentinel.ErrConflict)
	})

	t.Run("mutate error leaves record untouched", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := s.Execute(ctx, c.ID, func(m *models.Consent) error {
			m.Status = models.StatusRejected
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.FindByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, got.Status)
	})

	t.Run("mutation is persisted", func(t *testing.T) {
		updated, err := s.Execute(ctx, c.ID, func(m *models.Consent) error {
			return m.Approve([]string{"dob"}, 30, now)
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, updated.Status)

		got, err := s.FindByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"dob"}, got.Attributes)
		require.NotNil(t, got.ExpiresOn)
	})

	t.Run("missing consent", func(t *testing.T) {
		_, err := s.Execute(ctx, id.NewConsentID(), func(*models.Consent) error { return nil })
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestInMemoryStoreListing(t *testing.T) {
	ctx := context.Background()
	s := New()
	subject := id.NewEntityID()
	requester := id.NewEntityID()
	base := time.Now()

	first := newConsent(t, subject, requester, base)
	second := newConsent(t, subject, requester, base)
	third := newConsent(t, subject, id.NewEntityID(), base.Add(time.Minute))
	for _, c := range []*models.Consent{first, second, third} {
		require.NoError(t, s.Create(ctx, c))
	}

	t.Run("subject list is newest first with insertion order breaking ties", func(t *testing.T) {
		got, err := s.ListBySubject(ctx, subject)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, third.ID, got[0].ID)
		assert.Equal(t, second.ID, got[1].ID)
		assert.Equal(t, first.ID, got[2].ID)
	})

	t.Run("requester list puts most recent grant first", func(t *testing.T) {
		_, err := s.Execute(ctx, first.ID, func(m *models.Consent) error {
			return m.Approve(nil, 10, base.Add(2*time.Minute))
		})
		require.NoError(t, err)

		got, err := s.ListByRequester(ctx, requester)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, second.ID, got[1].ID)
	})

	t.Run("open list skips terminal consents", func(t *testing.T) {
		_, err := s.Execute(ctx, second.ID, func(m *models.Consent) error { return m.Reject(base) })
		require.NoError(t, err)

		got, err := s.ListOpenByEntity(ctx, requester)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, first.ID, got[0].ID)
	})
}

func TestInMemoryStoreRollbackUndoesOnlyJournaledWrites(t *testing.T) {
	s := New()
	kept := newConsent(t, id.NewEntityID(), id.NewEntityID(), time.Now())
	require.NoError(t, s.Create(context.Background(), kept))

	txCtx, journal := txcontext.WithJournal(context.Background())
	dropped := newConsent(t, id.NewEntityID(), id.NewEntityID(), time.Now())
	require.NoError(t, s.Create(txCtx, dropped))
	_, err := s.Execute(txCtx, kept.ID, func(m *models.Consent) error { return m.Reject(time.Now()) })
	require.NoError(t, err)

	outside := newConsent(t, id.NewEntityID(), id.NewEntityID(), time.Now())
	require.NoError(t, s.Create(context.Background(), outside))

	journal.Rollback()

	_, err = s.FindByID(context.Background(), dropped.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	got, err := s.FindByID(context.Background(), kept.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	_, err = s.FindByID(context.Background(), outside.ID)
	assert.NoError(t, err, "writes outside the transaction survive rollback")
}
