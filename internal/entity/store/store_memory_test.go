package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustid/internal/entity/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
	txcontext "trustid/pkg/platform/tx"
)

func newEntity(t *testing.T, owner id.UserID, variant models.Variant, key string) *models.Entity {
	t.Helper()
	in := models.CreateInput{Variant: variant, Name: "Test " + string(variant)}
	if key != "" {
		in.RegistrationNumber = &key
	}
	e, err := models.NewEntity(id.NewEntityID(), owner, in, time.Now())
	require.NoError(t, err)
	return e
}

func TestInMemoryStoreOperations(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := id.NewUserID()

	org := newEntity(t, owner, models.VariantOrganization, "REG-1")
	require.NoError(t, s.Create(ctx, org))

	t.Run("uniqueness key is global across variants", func(t *testing.T) {
		dup := newEntity(t, id.NewUserID(), models.VariantGovernment, "REG-1")
		assert.ErrorIs(t, s.Create(ctx, dup), sentinel.ErrConflict)
	})

	t.Run("returned copies are isolated", func(t *testing.T) {
		fetched, err := s.FindByID(ctx, org.ID)
		require.NoError(t, err)
		fetched.Name = "changed"
		fetched.Attributes["x"] = models.StringValue("y")

		again, err := s.FindByID(ctx, org.ID)
		require.NoError(t, err)
		assert.Equal(t, org.Name, again.Name)
		assert.NotContains(t, again.Attributes, "x")
	})

	t.Run("update releases the old key", func(t *testing.T) {
		updated := org.Clone()
		newKey := "REG-2"
		updated.RegistrationNumber = &newKey
		updated.UniquenessKey = &newKey
		require.NoError(t, s.Update(ctx, updated))

		reuse := newEntity(t, id.NewUserID(), models.VariantOrganization, "REG-1")
		assert.NoError(t, s.Create(ctx, reuse))
	})

	t.Run("update to a taken key conflicts", func(t *testing.T) {
		other := newEntity(t, owner, models.VariantOrganization, "REG-3")
		require.NoError(t, s.Create(ctx, other))
		taken := "REG-2"
		other.UniquenessKey = &taken
		assert.ErrorIs(t, s.Update(ctx, other), sentinel.ErrConflict)
	})

	t.Run("primary individual is the first created", func(t *testing.T) {
		_, err := s.FindFirstIndividualByOwner(ctx, owner)
		require.ErrorIs(t, err, sentinel.ErrNotFound)

		first := newEntity(t, owner, models.VariantIndividual, "")
		second := newEntity(t, owner, models.VariantIndividual, "")
		require.NoError(t, s.Create(ctx, first))
		require.NoError(t, s.Create(ctx, second))

		found, err := s.FindFirstIndividualByOwner(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
	})

	t.Run("list by owner keeps creation order", func(t *testing.T) {
		list, err := s.ListByOwner(ctx, owner)
		require.NoError(t, err)
		require.Len(t, list, 4)
		assert.Equal(t, org.ID, list[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, org.ID))
		_, err := s.FindByID(ctx, org.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, org.ID), sentinel.ErrNotFound)
	})
}

func TestInMemoryStoreRollback(t *testing.T) {
	bg := context.Background()
	s := New()
	owner := id.NewUserID()
	first := newEntity(t, owner, models.VariantIndividual, "")
	kept := newEntity(t, owner, models.VariantIndividual, "")
	require.NoError(t, s.Create(bg, first))
	require.NoError(t, s.Create(bg, kept))

	ctx, journal := txcontext.WithJournal(bg)
	dropped := newEntity(t, id.NewUserID(), models.VariantOrganization, "DROP")
	require.NoError(t, s.Create(ctx, dropped))
	require.NoError(t, s.Delete(ctx, first.ID))

	concurrent := newEntity(t, id.NewUserID(), models.VariantOrganization, "OTHER")
	require.NoError(t, s.Create(bg, concurrent))

	journal.Rollback()

	primary, err := s.FindFirstIndividualByOwner(bg, owner)
	require.NoError(t, err)
	assert.Equal(t, first.ID, primary.ID, "a restored entity keeps its place")
	_, err = s.FindByID(bg, dropped.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	require.NoError(t, s.Create(bg, newEntity(t, id.NewUserID(), models.VariantOrganization, "DROP")), "key released")
	_, err = s.FindByID(bg, concurrent.ID)
	assert.NoError(t, err)
}

func TestInMemoryStoreRollbackUpdate(t *testing.T) {
	bg := context.Background()
	s := New()
	org := newEntity(t, id.NewUserID(), models.VariantOrganization, "OLD")
	require.NoError(t, s.Create(bg, org))

	ctx, journal := txcontext.WithJournal(bg)
	renamed := org.Clone()
	newKey := "NEW"
	renamed.UniquenessKey = &newKey
	require.NoError(t, s.Update(ctx, renamed))
	journal.Rollback()

	got, err := s.FindByID(bg, org.ID)
	require.NoError(t, err)
	assert.Equal(t, org.UniquenessKey, got.UniquenessKey)
	assert.ErrorIs(t, s.Create(bg, newEntity(t, id.NewUserID(), models.VariantOrganization, "OLD")), sentinel.ErrConflict)
	assert.NoError(t, s.Create(bg, newEntity(t, id.NewUserID(), models.VariantOrganization, "NEW")))
}
