//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"trustid/internal/directory/models"
	"trustid/internal/directory/store"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
	"trustid/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) entity(ctx context.Context, name string) id.EntityID {
	owner := s.postgres.CreateTestUser(ctx, s.T())
	entityID := uuid.New()
	_, err := s.postgres.DB.ExecContext(ctx, `
		INSERT INTO entities (id, owner_id, variant, name, created_at, updated_at)
		VALUES ($1, $2, 'organization', $3, NOW(), NOW())
	`, entityID, owner, name)
	s.Require().NoError(err)
	return id.EntityID(entityID)
}

func (s *PostgresStoreSuite) TestSaveAndList() {
	ctx := context.Background()
	t0 := time.Now().UTC().Truncate(time.Microsecond)

	zeta := &models.Provider{EntityID: s.entity(ctx, "Zeta"), Name: "Zeta Insurance", Category: "INSURANCE", Active: true, CreatedAt: t0, UpdatedAt: t0}
	acme := &models.Provider{EntityID: s.entity(ctx, "Acme"), Name: "Acme Bank", Category: "BANK", Active: true, CreatedAt: t0, UpdatedAt: t0}
	dormant := &models.Provider{EntityID: s.entity(ctx, "Dormant"), Name: "Dormant Ltd", Category: "OTHER", CreatedAt: t0, UpdatedAt: t0}
	for _, p := range []*models.Provider{zeta, acme, dormant} {
		s.Require().NoError(s.store.Save(ctx, p))
	}

	acme.Promote("Savings accounts", "", t0.Add(time.Minute))
	acme.CreatedAt = t0.Add(time.Hour)
	s.Require().NoError(s.store.Save(ctx, acme))

	got, err := s.store.FindByID(ctx, acme.EntityID)
	s.Require().NoError(err)
	s.True(got.GovernmentService)
	s.Equal("Savings accounts", got.Description)
	s.True(got.CreatedAt.Equal(t0))

	list, err := s.store.ListActive(ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(acme.EntityID, list[0].EntityID)
	s.Equal(zeta.EntityID, list[1].EntityID)

	_, err = s.store.FindByID(ctx, id.NewEntityID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListingGoesWithEntity() {
	ctx := context.Background()
	t0 := time.Now().UTC().Truncate(time.Microsecond)
	p := &models.Provider{EntityID: s.entity(ctx, "Acme"), Name: "Acme Bank", Category: "BANK", Active: true, CreatedAt: t0, UpdatedAt: t0}
	s.Require().NoError(s.store.Save(ctx, p))

	_, err := s.postgres.DB.ExecContext(ctx, `DELETE FROM entities WHERE id = $1`, uuid.UUID(p.EntityID))
	s.Require().NoError(err)

	_, err = s.store.FindByID(ctx, p.EntityID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
