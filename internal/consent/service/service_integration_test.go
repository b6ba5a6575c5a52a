//go:build integration

package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	accesslogstore "trustid/internal/accesslog/store"
	"trustid/internal/consent/models"
	"trustid/internal/consent/service"
	entitymodels "trustid/internal/entity/models"
	entityservice "trustid/internal/entity/service"
	entitystore "trustid/internal/entity/store"
	outboxstore "trustid/internal/outbox/store"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/platform/sentinel"
	"trustid/pkg/requestcontext"
	"trustid/pkg/testutil"
	"trustid/pkg/testutil/containers"
)

type noOwners struct{}

func (noOwners) ResolveOwner(context.Context, string) (id.UserID, error) {
	return id.UserID{}, sentinel.ErrNotFound
}

type LedgerPostgresSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	entities  *entityservice.Service
	ledger    *service.Service
	ctx       context.Context
	citizen   id.UserID
	bank      id.UserID
	subject   *entitymodels.Entity
	requester *entitymodels.Entity
}

func TestLedgerPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(LedgerPostgresSuite))
}

func (s *LedgerPostgresSuite) SetupSuite() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.postgres = containers.GetManager().GetPostgres(s.T())
	db := s.postgres.DB
	s.entities = entityservice.NewService(entitystore.NewPostgres(db), noOwners{}, entityservice.WithLogger(logger))
	s.ledger = service.NewService(service.PostgresStores(db), service.NewPostgresTx(db), s.entities, service.WithLogger(logger))
}

func (s *LedgerPostgresSuite) SetupTest() {
	bg := context.Background()
	s.Require().NoError(s.postgres.TruncateAll(bg))
	s.ctx = requestcontext.WithTime(bg, time.Now().UTC().Truncate(time.Microsecond))
	s.citizen = id.UserID(s.postgres.CreateTestUser(bg, s.T()))
	s.bank = id.UserID(s.postgres.CreateTestUser(bg, s.T()))

	var err error
	s.subject, err = s.entities.Create(s.ctx, s.citizen, entitymodels.CreateInput{
		Variant: entitymodels.VariantIndividual,
		Name:    "Asha Rao",
		Attributes: entitymodels.Attributes{
			"Name":    entitymodels.StringValue("Asha Rao"),
			"Address": entitymodels.StringValue("12 MG Road"),
			"Income":  entitymodels.NumberValue(1250000),
		},
	})
	s.Require().NoError(err)
	s.requester, err = s.entities.Create(s.ctx, s.bank, entitymodels.CreateInput{
		Variant: entitymodels.VariantOrganization,
		Name:    "Acme Bank",
	})
	s.Require().NoError(err)
}

func (s *LedgerPostgresSuite) request(attrs ...string) *models.Consent {
	c, err := s.ledger.Request(s.ctx, s.bank, service.RequestInput{
		SubjectID:   s.subject.ID,
		RequesterID: s.requester.ID,
		Purpose:     "KYC",
		Attributes:  attrs,
	})
	s.Require().NoError(err)
	return c
}

func (s *LedgerPostgresSuite) TestLifecycleWritesLogAndOutbox() {
	c := s.request("Name", "Address", "Income")

	active, err := s.ledger.Respond(s.ctx, s.citizen, c.ID, service.RespondInput{
		Action:       models.ActionApprove,
		Approved:     []string{"Name", "Address"},
		DurationDays: 90,
	})
	s.Require().NoError(err)
	s.Equal(90*24*time.Hour, active.ExpiresOn.Sub(*active.GrantedOn))

	_, err = s.ledger.LogAccess(s.ctx, s.bank, c.ID)
	s.Require().NoError(err)

	disclosures, err := s.ledger.ListOutbound(s.ctx, s.bank, s.requester.ID)
	s.Require().NoError(err)
	s.Require().Len(disclosures, 1)
	s.ElementsMatch([]string{"Name", "Address"}, disclosures[0].Data.Names())

	entries, err := accesslogstore.NewPostgres(s.postgres.DB).ListForSubject(s.ctx, s.subject.ID)
	s.Require().NoError(err)
	s.Len(entries, 2)

	pending, err := outboxstore.NewPostgres(s.postgres.DB).CountPending(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(3), pending)
}

func (s *LedgerPostgresSuite) TestConcurrentResponsesHaveOneWinner() {
	c := s.request("Name")

	result := testutil.RunConcurrent(10, func(idx int) error {
		action := models.ActionApprove
		if idx%2 == 1 {
			action = models.ActionReject
		}
		_, err := s.ledger.Respond(s.ctx, s.citizen, c.ID, service.RespondInput{Action: action, DurationDays: 30})
		return err
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(9), result.InvalidStates)
	s.Equal(int32(0), result.Errors)
}

func (s *LedgerPostgresSuite) TestRetireEntityCascades() {
	pending := s.request("Name")
	active := s.request("Address")
	_, err := s.ledger.Respond(s.ctx, s.citizen, active.ID, service.RespondInput{Action: models.ActionApprove})
	s.Require().NoError(err)

	result, err := s.ledger.RetireEntity(s.ctx, s.requester.ID)
	s.Require().NoError(err)
	s.Equal(1, result.Rejected)
	s.Equal(1, result.Revoked)

	inbound, err := s.ledger.ListInbound(s.ctx, s.citizen, s.subject.ID)
	s.Require().NoError(err)
	statuses := map[id.ConsentID]models.Status{}
	for _, in := range inbound {
		statuses[in.Consent.ID] = in.Status
	}
	s.Equal(models.StatusRejected, statuses[pending.ID])
	s.Equal(models.StatusRevoked, statuses[active.ID])

	_, err = s.entities.Get(s.ctx, s.requester.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
