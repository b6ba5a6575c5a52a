//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustid/internal/accesslog/models"
	"trustid/internal/accesslog/store"
	id "trustid/pkg/domain"
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
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "access_logs"))
}

func (s *PostgresStoreSuite) TestAppendListErase() {
	ctx := context.Background()
	subject := id.NewEntityID()
	consent := id.NewConsentID()
	t0 := time.Now().UTC().Truncate(time.Microsecond)

	grant := models.NewGrantEntry(subject, consent, "Acme", []string{"Name", "Address"}, t0)
	s.Require().NoError(s.store.Append(ctx, grant))
	for i := range 3 {
		e := models.NewAccessEntry(subject, consent, "Acme", "KYC", []string{"Name"}, t0.Add(time.Duration(i+1)*time.Second))
		s.Require().NoError(s.store.Append(ctx, e))
	}

	list, err := s.store.ListForSubject(ctx, subject)
	s.Require().NoError(err)
	s.Require().Len(list, 4)
	for i := 1; i < len(list); i++ {
		s.False(list[i].Timestamp.After(list[i-1].Timestamp))
	}
	last := list[3]
	s.Equal(grant.ID, last.ID)
	s.Equal([]string{"Name", "Address"}, last.Attributes)
	s.Require().NotNil(last.ConsentID)
	s.Equal(consent, *last.ConsentID)

	n, err := s.store.EraseForSubject(ctx, subject)
	s.Require().NoError(err)
	s.Equal(int64(4), n)
}
