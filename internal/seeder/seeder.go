package seeder

import (
	"context"
	"fmt"
	"log/slog"

	accesslogmodels "trustid/internal/accesslog/models"
	authservice "trustid/internal/auth/service"
	consentmodels "trustid/internal/consent/models"
	consentservice "trustid/internal/consent/service"
	directorymodels "trustid/internal/directory/models"
	directoryservice "trustid/internal/directory/service"
	entitymodels "trustid/internal/entity/models"
	id "trustid/pkg/domain"
)

// DemoPassword is shared by every seeded account.
const DemoPassword = "demo-password"

// Accounts defines the account registration methods the seeder needs.
type Accounts interface {
	Register(ctx context.Context, phone, password string) (*authservice.RegisterResult, error)
	RegisterOrganization(ctx context.Context, in authservice.OrganizationInput) (*authservice.RegisterResult, error)
	RegisterGovernment(ctx context.Context, serviceID, serviceName, password string) (*authservice.RegisterResult, error)
}

// Profiles fills in the attributes of seeded entities.
type Profiles interface {
	Update(ctx context.Context, owner id.UserID, entityID id.EntityID, patch entitymodels.Patch) (*entitymodels.Entity, error)
}

// Ledger defines the consent operations used to build demo history.
type Ledger interface {
	Request(ctx context.Context, actor id.UserID, in consentservice.RequestInput) (*consentmodels.Consent, error)
	Respond(ctx context.Context, actor id.UserID, consentID id.ConsentID, in consentservice.RespondInput) (*consentmodels.Consent, error)
	LogAccess(ctx context.Context, actor id.UserID, consentID id.ConsentID) (*accesslogmodels.Entry, error)
}

// Directory lists the seeded requesters as service providers.
type Directory interface {
	Upsert(ctx context.Context, actor id.UserID, entityID id.EntityID, profile directorymodels.Profile) (*directoryservice.Listing, error)
	Promote(ctx context.Context, entityID id.EntityID, description, contactEmail string) (*directoryservice.Listing, error)
}

// Seeder populates empty stores with demo data
type Seeder struct {
	accounts  Accounts
	profiles  Profiles
	ledger    Ledger
	directory Directory
	logger    *slog.Logger
}

func New(accounts Accounts, profiles Profiles, ledger Ledger, directory Directory, logger *slog.Logger) *Seeder {
	return &Seeder{
		accounts:  accounts,
		profiles:  profiles,
		ledger:    ledger,
		directory: directory,
		logger:    logger,
	}
}

type citizen struct {
	phone string
	name  string
	attrs entitymodels.Attributes
	res   *authservice.RegisterResult
}

// SeedAll registers demo citizens, a bank and a government service, then
// walks a few consents through the ledger.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("seeding demo data...")

	citizens, err := s.seedCitizens(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed citizens: %w", err)
	}

	requesters, err := s.seedRequesters(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed requesters: %w", err)
	}

	consents, err := s.seedConsents(ctx, citizens, requesters)
	if err != nil {
		return fmt.Errorf("failed to seed consents: %w", err)
	}

	s.logger.Info("demo data seeded successfully",
		"citizens", len(citizens),
		"requesters", len(requesters),
		"consents", consents,
	)
	return nil
}

func (s *Seeder) seedCitizens(ctx context.Context) ([]*citizen, error) {
	citizens := []*citizen{
		{phone: "9876543210", name: "Asha Rao", attrs: entitymodels.Attributes{
			"fullName":    entitymodels.StringValue("Asha Rao"),
			"dateOfBirth": entitymodels.StringValue("1990-04-12"),
			"address":     entitymodels.StringValue("12 MG Road, Bengaluru"),
			"panNumber":   entitymodels.StringValue("ABCPR1234K"),
			"idNumber":    entitymodels.StringValue("DEMO-0001"),
		}},
		{phone: "9123456780", name: "Vikram Singh", attrs: entitymodels.Attributes{
			"fullName":      entitymodels.StringValue("Vikram Singh"),
			"address":       entitymodels.StringValue("4 Park Street, Kolkata"),
			"annualIncome":  entitymodels.NumberValue(1250000),
			"idNumber":      entitymodels.StringValue("DEMO-0002"),
			"emailVerified": entitymodels.BoolValue(true),
		}},
		{phone: "9000000001"},
	}

	for _, c := range citizens {
		res, err := s.accounts.Register(ctx, c.phone, DemoPassword)
		if err != nil {
			return nil, err
		}
		c.res = res
		if len(c.attrs) == 0 {
			continue
		}
		name := c.name
		if _, err := s.profiles.Update(ctx, res.UserID, res.EntityID, entitymodels.Patch{
			Name:       &name,
			Attributes: c.attrs,
		}); err != nil {
			return nil, err
		}
	}
	return citizens, nil
}

func (s *Seeder) seedRequesters(ctx context.Context) ([]*authservice.RegisterResult, error) {
	bank, err := s.accounts.RegisterOrganization(ctx, authservice.OrganizationInput{
		Email:              "kyc@acmebank.example",
		Name:               "Acme Bank",
		RegistrationNumber: "U65100MH2001PLC000001",
		Jurisdiction:       "IN",
		Profile: entitymodels.Attributes{
			"industry": entitymodels.StringValue("Banking"),
		},
		Password: DemoPassword,
	})
	if err != nil {
		return nil, err
	}

	tax, err := s.accounts.RegisterGovernment(ctx, "income-tax", "Income Tax Department", DemoPassword)
	if err != nil {
		return nil, err
	}

	if _, err := s.directory.Upsert(ctx, bank.UserID, bank.EntityID, directorymodels.Profile{
		Name:         "Acme Bank",
		Description:  "Retail banking and loans",
		Category:     "BANK",
		Website:      "https://acmebank.example",
		ContactEmail: "kyc@acmebank.example",
	}); err != nil {
		return nil, err
	}
	if _, err := s.directory.Promote(ctx, tax.EntityID, "Income tax filing and assessment", ""); err != nil {
		return nil, err
	}

	return []*authservice.RegisterResult{bank, tax}, nil
}

func (s *Seeder) seedConsents(ctx context.Context, citizens []*citizen, requesters []*authservice.RegisterResult) (int, error) {
	flows := []struct {
		citizenIdx   int
		requesterIdx int
		purpose      string
		attributes   []string
		action       consentmodels.Action
		approved     []string
		accesses     int
	}{
		{0, 0, "Loan application KYC", []string{"fullName", "address", "panNumber"}, consentmodels.ActionApprove, []string{"fullName", "address"}, 2},
		{0, 1, "Tax filing verification", []string{"panNumber"}, "", nil, 0},
		{1, 0, "Credit card eligibility", []string{"fullName", "annualIncome"}, consentmodels.ActionReject, nil, 0},
		{1, 1, "Income assessment", []string{"annualIncome", "address"}, consentmodels.ActionApprove, nil, 1},
	}

	count := 0
	for _, f := range flows {
		if f.citizenIdx >= len(citizens) || f.requesterIdx >= len(requesters) {
			continue
		}
		subject := citizens[f.citizenIdx]
		req := requesters[f.requesterIdx]

		consent, err := s.ledger.Request(ctx, req.UserID, consentservice.RequestInput{
			SubjectID:   subject.res.EntityID,
			RequesterID: req.EntityID,
			Purpose:     f.purpose,
			Attributes:  f.attributes,
		})
		if err != nil {
			return count, err
		}
		count++

		if f.action == "" {
			continue
		}
		if _, err := s.ledger.Respond(ctx, subject.res.UserID, consent.ID, consentservice.RespondInput{
			Action:   f.action,
			Approved: f.approved,
		}); err != nil {
			return count, err
		}
		for range f.accesses {
			if _, err := s.ledger.LogAccess(ctx, req.UserID, consent.ID); err != nil {
				return count, err
			}
		}
	}
	return count, nil
}
