package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustid/internal/auth/models"
	otpstore "trustid/internal/auth/store/otp"
	sessionstore "trustid/internal/auth/store/session"
	userstore "trustid/internal/auth/store/user"
	entitymodels "trustid/internal/entity/models"
	entityservice "trustid/internal/entity/service"
	entitystore "trustid/internal/entity/store"
	jwttoken "trustid/internal/jwt_token"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/requestcontext"
)

const (
	testPhone    = "9876543210"
	testPassword = "correct-horse-battery"
	chromeUA     = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// capturingNotifier remembers the last code sent to each phone.
type capturingNotifier struct {
	mu    sync.Mutex
	codes map[string]string
}

func (n *capturingNotifier) SendOTP(_ context.Context, phone, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[phone] = code
	return nil
}

func (n *capturingNotifier) last(phone string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[phone]
}

type recordedAlert struct {
	owner  id.UserID
	device string
	ip     string
}

type capturingAlerter struct {
	alerts []recordedAlert
}

func (a *capturingAlerter) RaiseLoginAlerts(_ context.Context, owner id.UserID, device, ip string) {
	a.alerts = append(a.alerts, recordedAlert{owner: owner, device: device, ip: ip})
}

type AuthServiceSuite struct {
	suite.Suite
	ctx      context.Context
	users    *userstore.InMemoryUserStore
	sessions *sessionstore.InMemorySessionStore
	entities *entitystore.InMemoryStore
	notifier *capturingNotifier
	alerter  *capturingAlerter
	jwt      *jwttoken.JWTService
	service  *Service
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := requestcontext.WithTime(context.Background(), time.Now())
	s.ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.45", chromeUA)

	s.users = userstore.New()
	s.sessions = sessionstore.New()
	s.entities = entitystore.New()
	s.notifier = &capturingNotifier{codes: map[string]string{}}
	s.alerter = &capturingAlerter{}
	s.jwt = jwttoken.NewJWTService("test-key", "trustid-test", "trustid-api")

	entities := entityservice.NewService(s.entities, s.users, entityservice.WithLogger(logger))
	s.service = NewService(s.users, s.sessions, otpstore.New(), entities, s.jwt, s.notifier, Config{},
		WithLogger(logger),
		WithLoginAlerts(s.alerter),
	)
}

func (s *AuthServiceSuite) register() *RegisterResult {
	res, err := s.service.Register(s.ctx, testPhone, testPassword)
	s.Require().NoError(err)
	return res
}

func (s *AuthServiceSuite) signIn() *models.Token {
	res, err := s.service.Login(s.ctx, testPhone, "", testPassword)
	s.Require().NoError(err)
	s.Require().True(res.OTPSent)
	token, err := s.service.VerifyOTP(s.ctx, testPhone, s.notifier.last(testPhone))
	s.Require().NoError(err)
	return token
}

func (s *AuthServiceSuite) TestRegister() {
	s.Run("creates an unverified individual profile", func() {
		res := s.register()
		entity, err := s.entities.FindByID(s.ctx, res.EntityID)
		s.Require().NoError(err)
		s.Equal(entitymodels.VariantIndividual, entity.Variant)
		s.Equal(DefaultProfileName, entity.Name)
		s.False(entity.Verified)
		s.Equal(res.UserID, entity.OwnerID)
	})

	s.Run("same phone and password adds a profile", func() {
		first, err := s.users.FindByPhone(s.ctx, testPhone)
		s.Require().NoError(err)
		res := s.register()
		s.Equal(first.ID, res.UserID)

		owned, err := s.entities.ListByOwner(s.ctx, first.ID)
		s.Require().NoError(err)
		s.Len(owned, 2)
	})

	s.Run("same phone with another password is rejected", func() {
		_, err := s.service.Register(s.ctx, testPhone, "something-else")
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateKey))
	})
}

func (s *AuthServiceSuite) TestRegisterGovernment() {
	res, err := s.service.RegisterGovernment(s.ctx, "GOV-TAX-01", "Income Tax Department", testPassword)
	s.Require().NoError(err)

	entity, err := s.entities.FindByID(s.ctx, res.EntityID)
	s.Require().NoError(err)
	s.Equal(entitymodels.VariantGovernment, entity.Variant)
	s.True(entity.Verified)

	_, err = s.service.RegisterGovernment(s.ctx, "GOV-TAX-01", "Copycat", testPassword)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateKey))

	token, err := s.service.LoginGovernment(s.ctx, "GOV-TAX-01", testPassword)
	s.Require().NoError(err)
	s.Equal(models.KindGovernment, token.User.Kind)
	s.WithinDuration(requestcontext.Now(s.ctx).Add(12*time.Hour), token.ExpiresAt, time.Second)
}

func (s *AuthServiceSuite) TestCitizenLoginRequiresOTP() {
	s.register()

	s.Run("wrong password sends nothing", func() {
		_, err := s.service.Login(s.ctx, testPhone, "", "nope")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Empty(s.notifier.last(testPhone))
	})

	s.Run("unknown phone", func() {
		_, err := s.service.Login(s.ctx, "9000000000", "", testPassword)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("otp completes sign-in once", func() {
		res, err := s.service.Login(s.ctx, testPhone, "", testPassword)
		s.Require().NoError(err)
		s.Nil(res.Token)
		code := s.notifier.last(testPhone)
		s.Len(code, 6)

		_, err = s.service.VerifyOTP(s.ctx, testPhone, "000000")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		token, err := s.service.VerifyOTP(s.ctx, testPhone, code)
		s.Require().NoError(err)
		s.NotEmpty(token.AccessToken)
		s.WithinDuration(requestcontext.Now(s.ctx).Add(7*24*time.Hour), token.ExpiresAt, time.Second)

		claims, err := s.jwt.ValidateToken(token.AccessToken)
		s.Require().NoError(err)
		s.Equal(token.SessionID.String(), claims.SessionID)

		_, err = s.service.VerifyOTP(s.ctx, testPhone, code)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *AuthServiceSuite) TestOrganizationLoginByEmail() {
	reg, err := s.service.RegisterOrganization(s.ctx, OrganizationInput{
		Email:              " KYC@Bank.example ",
		Name:               "Acme Bank",
		RegistrationNumber: "U65100MH2001PLC000001",
		Jurisdiction:       "IN",
		Password:           testPassword,
	})
	s.Require().NoError(err)

	entity, err := s.entities.FindByID(s.ctx, reg.EntityID)
	s.Require().NoError(err)
	s.True(entity.Verified)
	s.Equal(entitymodels.VariantOrganization, entity.Variant)
	s.Equal("IN", entity.Jurisdiction)
	s.Require().NotNil(entity.UniquenessKey)
	s.Equal("U65100MH2001PLC000001", *entity.UniquenessKey)

	res, err := s.service.Login(s.ctx, "", "kyc@bank.example", testPassword)
	s.Require().NoError(err)
	s.False(res.OTPSent)
	s.Require().NotNil(res.Token)
	s.Equal(reg.UserID, res.Token.User.ID)
	s.Equal(models.KindOrganization, res.Token.User.Kind)

	_, err = s.service.RegisterOrganization(s.ctx, OrganizationInput{Email: "kyc@bank.example", Name: "Acme Again", Password: testPassword})
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateKey))
}

func (s *AuthServiceSuite) TestSessionCarriesDeviceAndRaisesAlert() {
	res := s.register()
	token := s.signIn()

	session, err := s.sessions.FindByID(s.ctx, token.SessionID)
	s.Require().NoError(err)
	s.Contains(session.Device, "Chrome")
	s.Equal("203.0.113.0", session.IP)
	s.True(session.ExpiresAt.Equal(token.ExpiresAt))

	s.Require().Len(s.alerter.alerts, 1)
	s.Equal(res.UserID, s.alerter.alerts[0].owner)
	s.Equal("203.0.113.0", s.alerter.alerts[0].ip)
}

func (s *AuthServiceSuite) TestSessionLifecycle() {
	res := s.register()
	first := s.signIn()
	second := s.signIn()
	third := s.signIn()

	active, err := s.service.SessionActive(s.ctx, res.UserID, first.SessionID)
	s.Require().NoError(err)
	s.True(active)

	s.Run("session of another user is not active", func() {
		active, err := s.service.SessionActive(s.ctx, id.NewUserID(), first.SessionID)
		s.Require().NoError(err)
		s.False(active)
	})

	s.Run("list flags the current session", func() {
		views, err := s.service.ListSessions(s.ctx, res.UserID, second.SessionID)
		s.Require().NoError(err)
		s.Len(views, 3)
		current := 0
		for _, v := range views {
			if v.Current {
				current++
				s.Equal(second.SessionID, v.Session.ID)
			}
		}
		s.Equal(1, current)
	})

	s.Run("terminate a foreign session is not found", func() {
		err := s.service.TerminateSession(s.ctx, id.NewUserID(), third.SessionID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("terminate one", func() {
		s.Require().NoError(s.service.TerminateSession(s.ctx, res.UserID, third.SessionID))
		active, err := s.service.SessionActive(s.ctx, res.UserID, third.SessionID)
		s.Require().NoError(err)
		s.False(active)

		err = s.service.TerminateSession(s.ctx, res.UserID, third.SessionID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("terminate all keeps the current session", func() {
		removed, err := s.service.TerminateOtherSessions(s.ctx, res.UserID, second.SessionID)
		s.Require().NoError(err)
		s.Equal(1, removed)

		views, err := s.service.ListSessions(s.ctx, res.UserID, second.SessionID)
		s.Require().NoError(err)
		s.Require().Len(views, 1)
		s.True(views[0].Current)
	})

	s.Run("logout is idempotent", func() {
		s.Require().NoError(s.service.Logout(s.ctx, res.UserID, second.SessionID))
		s.Require().NoError(s.service.Logout(s.ctx, res.UserID, second.SessionID))
		active, err := s.service.SessionActive(s.ctx, res.UserID, second.SessionID)
		s.Require().NoError(err)
		s.False(active)
	})
}

func (s *AuthServiceSuite) TestChangePassword() {
	res := s.register()
	current := s.signIn()
	other := s.signIn()

	err := s.service.ChangePassword(s.ctx, res.UserID, current.SessionID, "wrong", "new-password-123")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.Require().NoError(s.service.ChangePassword(s.ctx, res.UserID, current.SessionID, testPassword, "new-password-123"))

	active, err := s.service.SessionActive(s.ctx, res.UserID, other.SessionID)
	s.Require().NoError(err)
	s.False(active)
	active, err = s.service.SessionActive(s.ctx, res.UserID, current.SessionID)
	s.Require().NoError(err)
	s.True(active)

	_, err = s.service.Login(s.ctx, testPhone, "", testPassword)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	_, err = s.service.Login(s.ctx, testPhone, "", "new-password-123")
	s.NoError(err)
}

func (s *AuthServiceSuite) TestResetPassword() {
	res := s.register()
	session := s.signIn()

	s.Run("unknown phone", func() {
		err := s.service.SendOTP(s.ctx, "9000000000", models.OTPPasswordReset)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("login code cannot reset", func() {
		s.Require().NoError(s.service.SendOTP(s.ctx, testPhone, models.OTPLogin))
		err := s.service.ResetPassword(s.ctx, testPhone, s.notifier.last(testPhone), "new-password-123")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("reset ends every session", func() {
		s.Require().NoError(s.service.SendOTP(s.ctx, testPhone, models.OTPPasswordReset))
		s.Require().NoError(s.service.ResetPassword(s.ctx, testPhone, s.notifier.last(testPhone), "new-password-123"))

		active, err := s.service.SessionActive(s.ctx, res.UserID, session.SessionID)
		s.Require().NoError(err)
		s.False(active)

		_, err = s.service.Login(s.ctx, testPhone, "", "new-password-123")
		s.NoError(err)
	})
}

func (s *AuthServiceSuite) TestRegisteredLookups() {
	exists, err := s.service.PhoneRegistered(s.ctx, testPhone)
	s.Require().NoError(err)
	s.False(exists)

	s.register()
	exists, err = s.service.PhoneRegistered(s.ctx, " "+testPhone+" ")
	s.Require().NoError(err)
	s.True(exists)

	_, err = s.service.RegisterOrganization(s.ctx, OrganizationInput{Email: "kyc@bank.example", Name: "Acme Bank", Password: testPassword})
	s.Require().NoError(err)
	exists, err = s.service.EmailRegistered(s.ctx, "KYC@Bank.Example")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.service.EmailRegistered(s.ctx, "other@bank.example")
	s.Require().NoError(err)
	s.False(exists)
}
