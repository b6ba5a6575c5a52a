//go:build integration

package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustid/internal/entity/models"
	"trustid/internal/entity/store"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
	"trustid/pkg/testutil"
	"trustid/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	owner    id.UserID
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
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateAll(ctx))
	s.owner = id.UserID(s.postgres.CreateTestUser(ctx, s.T()))
}

func (s *PostgresStoreSuite) newEntity(variant models.Variant, attrs models.Attributes, registration *string) *models.Entity {
	e, err := models.NewEntity(id.NewEntityID(), s.owner, models.CreateInput{
		Variant:            variant,
		Name:               "Entity " + string(variant),
		Attributes:         attrs,
		RegistrationNumber: registration,
	}, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return e
}

func (s *PostgresStoreSuite) TestRoundTripAttributes() {
	ctx := context.Background()
	e := s.newEntity(models.VariantIndividual, models.Attributes{
		"fullName":     models.StringValue("Asha Rao"),
		"annualIncome": models.NumberValue(1250000),
		"isResident":   models.BoolValue(true),
	}, nil)
	s.Require().NoError(s.store.Create(ctx, e))

	got, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e.Attributes, got.Attributes)
	s.True(got.Verified)
	s.Nil(got.UniquenessKey)
	s.Equal(e.CreatedAt, got.CreatedAt.UTC())
}

func (s *PostgresStoreSuite) TestUniqueViolationMapsToConflict() {
	ctx := context.Background()
	first := s.newEntity(models.VariantIndividual, models.Attributes{"idNumber": models.StringValue("1234-5678")}, nil)
	s.Require().NoError(s.store.Create(ctx, first))

	reg := "1234-5678"
	dup := s.newEntity(models.VariantOrganization, nil, &reg)
	s.ErrorIs(s.store.Create(ctx, dup), sentinel.ErrConflict)

	other := s.newEntity(models.VariantOrganization, nil, nil)
	s.Require().NoError(s.store.Create(ctx, other))
	other.UniquenessKey = &reg
	s.ErrorIs(s.store.Update(ctx, other), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestConcurrentCreateSameKey() {
	ctx := context.Background()
	reg := "GOV-DL-001"

	result := testutil.RunConcurrent(20, func(idx int) error {
		e := s.newEntity(models.VariantGovernment, nil, &reg)
		e.Name = fmt.Sprintf("Dept %d", idx)
		return s.store.Create(ctx, e)
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(19), result.Conflicts)
	s.Zero(result.Errors)
}

func (s *PostgresStoreSuite) TestPrimaryIndividualAndDelete() {
	ctx := context.Background()
	org := s.newEntity(models.VariantOrganization, nil, nil)
	s.Require().NoError(s.store.Create(ctx, org))
	_, err := s.store.FindFirstIndividualByOwner(ctx, s.owner)
	s.ErrorIs(err, sentinel.ErrNotFound)

	person := s.newEntity(models.VariantIndividual, nil, nil)
	s.Require().NoError(s.store.Create(ctx, person))
	found, err := s.store.FindFirstIndividualByOwner(ctx, s.owner)
	s.Require().NoError(err)
	s.Equal(person.ID, found.ID)

	list, err := s.store.ListByOwner(ctx, s.owner)
	s.Require().NoError(err)
	s.Len(list, 2)

	s.Require().NoError(s.store.Delete(ctx, person.ID))
	s.ErrorIs(s.store.Delete(ctx, person.ID), sentinel.ErrNotFound)
}
