package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustid/internal/directory/models"
	"trustid/internal/directory/store"
	entitymodels "trustid/internal/entity/models"
	entityservice "trustid/internal/entity/service"
	entitystore "trustid/internal/entity/store"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/platform/sentinel"
	"trustid/pkg/requestcontext"
)

type noOwners struct{}

func (noOwners) ResolveOwner(context.Context, string) (id.UserID, error) {
	return id.UserID{}, sentinel.ErrNotFound
}

type DirectorySuite struct {
	suite.Suite
	ctx      context.Context
	entities *entitystore.InMemoryStore
	store    *store.InMemoryStore
	service  *Service
	owner    id.UserID
	bank     *entitymodels.Entity
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC))
	s.entities = entitystore.New()
	s.store = store.New()
	entities := entityservice.NewService(s.entities, noOwners{}, entityservice.WithLogger(logger))
	s.service = NewService(s.store, entities, logger)

	s.owner = id.NewUserID()
	bank, err := entities.Create(s.ctx, s.owner, entitymodels.CreateInput{
		Variant:  entitymodels.VariantOrganization,
		Name:     "Acme Bank",
		Verified: true,
	})
	s.Require().NoError(err)
	s.bank = bank
}

func (s *DirectorySuite) profile() models.Profile {
	return models.Profile{Name: "Acme Bank", Description: "Retail banking", Category: "bank", Website: "https://acme.example"}
}

func (s *DirectorySuite) TestUpsert() {
	s.Run("new listing inherits verification", func() {
		listing, err := s.service.Upsert(s.ctx, s.owner, s.bank.ID, s.profile())
		s.Require().NoError(err)
		s.True(listing.Provider.Verified)
		s.True(listing.Provider.Active)
		s.Equal("BANK", listing.Provider.Category)
	})

	s.Run("edits keep the listing", func() {
		p := s.profile()
		p.Description = "Retail and business banking"
		listing, err := s.service.Upsert(s.ctx, s.owner, s.bank.ID, p)
		s.Require().NoError(err)
		s.Equal("Retail and business banking", listing.Provider.Description)

		list, err := s.service.List(s.ctx)
		s.Require().NoError(err)
		s.Len(list, 1)
	})

	s.Run("only the owner may edit", func() {
		_, err := s.service.Upsert(s.ctx, id.NewUserID(), s.bank.ID, s.profile())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("owners cannot claim the government category", func() {
		p := s.profile()
		p.Category = models.CategoryGovernment
		_, err := s.service.Upsert(s.ctx, s.owner, s.bank.ID, p)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *DirectorySuite) TestPromoteAndDemote() {
	listing, err := s.service.Promote(s.ctx, s.bank.ID, "", "Help@Acme.example")
	s.Require().NoError(err)
	s.True(listing.Provider.GovernmentService)
	s.Equal(models.CategoryGovernment, listing.Provider.Category)
	s.Equal("Government Service provided by Acme Bank", listing.Provider.Description)
	s.Equal("help@acme.example", listing.Provider.ContactEmail)

	listing, err = s.service.Demote(s.ctx, s.bank.ID)
	s.Require().NoError(err)
	s.False(listing.Provider.GovernmentService)
	s.Equal(models.CategoryOther, listing.Provider.Category)

	_, err = s.service.Promote(s.ctx, id.NewEntityID(), "", "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DirectorySuite) TestDemoteWithoutListing() {
	_, err := s.service.Demote(s.ctx, s.bank.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DirectorySuite) TestListSkipsRetiredEntities() {
	_, err := s.service.Upsert(s.ctx, s.owner, s.bank.ID, s.profile())
	s.Require().NoError(err)
	s.Require().NoError(s.entities.Delete(s.ctx, s.bank.ID))

	list, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(list)

	_, err = s.service.Get(s.ctx, s.bank.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
