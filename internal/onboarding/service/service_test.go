package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	authmodels "trustid/internal/auth/models"
	authservice "trustid/internal/auth/service"
	otpstore "trustid/internal/auth/store/otp"
	sessionstore "trustid/internal/auth/store/session"
	userstore "trustid/internal/auth/store/user"
	entitymodels "trustid/internal/entity/models"
	entityservice "trustid/internal/entity/service"
	entitystore "trustid/internal/entity/store"
	jwttoken "trustid/internal/jwt_token"
	"trustid/internal/onboarding/models"
	"trustid/internal/onboarding/store"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/requestcontext"
)

type silentNotifier struct{}

func (silentNotifier) SendOTP(context.Context, string, string) error { return nil }

// failingAccounts refuses to open accounts.
type failingAccounts struct {
	Accounts
}

func (failingAccounts) RegisterOrganization(context.Context, authservice.OrganizationInput) (*authservice.RegisterResult, error) {
	return nil, errors.New("user store unavailable")
}

type OnboardingSuite struct {
	suite.Suite
	ctx      context.Context
	logger   *slog.Logger
	users    *userstore.InMemoryUserStore
	entities *entitystore.InMemoryStore
	store    *store.InMemoryStore
	accounts *authservice.Service
	service  *Service
	reviewer id.UserID
}

func TestOnboardingSuite(t *testing.T) {
	suite.Run(t, new(OnboardingSuite))
}

func (s *OnboardingSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC))
	s.users = userstore.New()
	s.entities = entitystore.New()
	s.store = store.New()

	entities := entityservice.NewService(s.entities, s.users, entityservice.WithLogger(s.logger))
	s.accounts = authservice.NewService(s.users, sessionstore.New(), otpstore.New(), entities,
		jwttoken.NewJWTService("test-key", "trustid-test", "trustid-api"), silentNotifier{}, authservice.Config{},
		authservice.WithLogger(s.logger),
	)
	s.service = NewService(s.store, s.users, s.accounts, s.logger)

	gov, err := s.accounts.RegisterGovernment(s.ctx, "income-tax", "Income Tax Department", "gov-password")
	s.Require().NoError(err)
	s.reviewer = gov.UserID
}

func (s *OnboardingSuite) submit(email string) *models.Request {
	req, err := s.service.Submit(s.ctx, models.SubmitInput{
		Name:               "Acme Bank",
		Email:              email,
		RegistrationNumber: "REG-" + email,
		Jurisdiction:       "IN",
		Address:            "1 Marine Drive, Mumbai",
	})
	s.Require().NoError(err)
	return req
}

func (s *OnboardingSuite) TestSubmit() {
	s.Run("duplicate request for an email", func() {
		s.submit("kyc@acme.example")
		_, err := s.service.Submit(s.ctx, models.SubmitInput{Name: "Acme", Email: "KYC@acme.example", RegistrationNumber: "R2"})
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateKey))
	})

	s.Run("email with an existing account", func() {
		_, err := s.accounts.RegisterOrganization(s.ctx, authservice.OrganizationInput{Email: "ops@other.example", Name: "Other", Password: "long-password"})
		s.Require().NoError(err)

		_, err = s.service.Submit(s.ctx, models.SubmitInput{Name: "Other", Email: "ops@other.example", RegistrationNumber: "R3"})
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateKey))
	})
}

func (s *OnboardingSuite) TestReviewRequiresGovernment() {
	req := s.submit("kyc@acme.example")
	citizen, err := s.accounts.Register(s.ctx, "9876543210", "citizen-password")
	s.Require().NoError(err)

	_, err = s.service.ListPending(s.ctx, citizen.UserID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	_, err = s.service.Approve(s.ctx, citizen.UserID, req.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	_, err = s.service.Reject(s.ctx, id.NewUserID(), req.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	pending, err := s.service.ListPending(s.ctx, s.reviewer)
	s.Require().NoError(err)
	s.Len(pending, 1)
}

func (s *OnboardingSuite) TestApproveOpensVerifiedOrganization() {
	req := s.submit("kyc@acme.example")

	approval, err := s.service.Approve(s.ctx, s.reviewer, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, approval.Request.Status)
	s.Equal(s.reviewer, approval.Request.DecidedBy)
	s.Equal("kyc@acme.example", approval.Email)
	s.NotEmpty(approval.Password)

	entity, err := s.entities.FindByID(s.ctx, approval.EntityID)
	s.Require().NoError(err)
	s.True(entity.Verified)
	s.Equal(entitymodels.VariantOrganization, entity.Variant)
	s.Equal(approval.UserID, entity.OwnerID)
	s.Equal("IN", entity.Jurisdiction)
	s.Require().NotNil(entity.UniquenessKey)
	s.Equal("REG-kyc@acme.example", *entity.UniquenessKey)
	address, ok := entity.Attributes["address"].AsString()
	s.True(ok)
	s.Equal("1 Marine Drive, Mumbai", address)

	res, err := s.accounts.Login(s.ctx, "", approval.Email, approval.Password)
	s.Require().NoError(err)
	s.Require().NotNil(res.Token)
	s.Equal(authmodels.KindOrganization, res.Token.User.Kind)

	_, err = s.service.Approve(s.ctx, s.reviewer, req.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	pending, err := s.service.ListPending(s.ctx, s.reviewer)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *OnboardingSuite) TestApproveFailureReleasesRequest() {
	req := s.submit("kyc@acme.example")
	svc := NewService(s.store, s.users, failingAccounts{Accounts: s.accounts}, s.logger)

	_, err := svc.Approve(s.ctx, s.reviewer, req.ID)
	s.Require().Error(err)

	got, err := s.store.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, got.Status)
	s.True(got.DecidedBy.IsNil())
}

func (s *OnboardingSuite) TestReject() {
	req := s.submit("kyc@acme.example")

	rejected, err := s.service.Reject(s.ctx, s.reviewer, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, rejected.Status)
	s.Require().NotNil(rejected.DecidedAt)

	_, err = s.service.Approve(s.ctx, s.reviewer, req.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	_, err = s.service.Reject(s.ctx, s.reviewer, id.NewOrgRequestID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	exists, err := s.accounts.EmailRegistered(s.ctx, req.Email)
	s.Require().NoError(err)
	s.False(exists)
}
