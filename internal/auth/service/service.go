package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"trustid/internal/auth/device"
	"trustid/internal/auth/metrics"
	"trustid/internal/auth/models"
	entitymodels "trustid/internal/entity/models"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/platform/privacy"
	"trustid/pkg/platform/sentinel"
	"trustid/pkg/requestcontext"
	"trustid/pkg/secrets"
)

// UserStore persists accounts.
// Error Contract: Find methods return sentinel.ErrNotFound; Create returns
// sentinel.ErrConflict when a login key is taken.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByServiceID(ctx context.Context, serviceID string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID id.UserID, passwordHash string) error
	Delete(ctx context.Context, userID id.UserID) error
}

// SessionStore persists live sessions. Expired sessions behave as missing.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error)
	Touch(ctx context.Context, sessionID id.SessionID, at time.Time) error
	Delete(ctx context.Context, sessionID id.SessionID) error
	DeleteByUserExcept(ctx context.Context, userID id.UserID, keep id.SessionID) (int, error)
}

// OTPStore holds outstanding one-time codes.
type OTPStore interface {
	Save(ctx context.Context, otp *models.OTP) error
	Consume(ctx context.Context, phone string, purpose models.OTPPurpose, code string, now time.Time) error
}

// Entities creates the profile entity that comes with a new account.
type Entities interface {
	Create(ctx context.Context, owner id.UserID, in entitymodels.CreateInput) (*entitymodels.Entity, error)
}

type TokenIssuer interface {
	GenerateSessionToken(ctx context.Context, userID id.UserID, sessionID id.SessionID, kind string, ttl time.Duration) (string, time.Time, error)
}

// LoginAlerter records a "new login" notice on the user's entities.
type LoginAlerter interface {
	RaiseLoginAlerts(ctx context.Context, owner id.UserID, device, ip string)
}

type Notifier interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// DefaultProfileName names the individual entity created at registration.
const DefaultProfileName = "New Profile"

// Config holds token and code lifetimes.
type Config struct {
	UserTokenTTL       time.Duration
	GovernmentTokenTTL time.Duration
	LoginOTPTTL        time.Duration
	VerifyOTPTTL       time.Duration
}

func (c *Config) applyDefaults() {
	if c.UserTokenTTL <= 0 {
		c.UserTokenTTL = 7 * 24 * time.Hour
	}
	if c.GovernmentTokenTTL <= 0 {
		c.GovernmentTokenTTL = 12 * time.Hour
	}
	if c.LoginOTPTTL <= 0 {
		c.LoginOTPTTL = 5 * time.Minute
	}
	if c.VerifyOTPTTL <= 0 {
		c.VerifyOTPTTL = 10 * time.Minute
	}
}

type Service struct {
	users    UserStore
	sessions SessionStore
	otps     OTPStore
	entities Entities
	tokens   TokenIssuer
	notifier Notifier
	alerts   LoginAlerter
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLoginAlerts(alerts LoginAlerter) Option {
	return func(s *Service) {
		s.alerts = alerts
	}
}

func NewService(
	users UserStore,
	sessions SessionStore,
	otps OTPStore,
	entities Entities,
	tokens TokenIssuer,
	notifier Notifier,
	cfg Config,
	opts ...Option,
) *Service {
	cfg.applyDefaults()
	svc := &Service{
		users:    users,
		sessions: sessions,
		otps:     otps,
		entities: entities,
		tokens:   tokens,
		notifier: notifier,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// RegisterResult names the account and the entity created for it.
type RegisterResult struct {
	UserID   id.UserID
	EntityID id.EntityID
}

// Register creates a citizen account with an unverified individual profile.
// Registering an existing phone with the right password adds another
// profile to that account.
func (s *Service) Register(ctx context.Context, phone, password string) (*RegisterResult, error) {
	existing, err := s.users.FindByPhone(ctx, phone)
	switch {
	case err == nil:
		if existing.Kind != models.KindCitizen {
			return nil, dErrors.New(dErrors.CodeDuplicateKey, "an account with this phone already exists")
		}
		if err := secrets.Verify(password, existing.PasswordHash); err != nil {
			if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
				return nil, dErrors.New(dErrors.CodeDuplicateKey, "an account with this phone already exists")
			}
			return nil, err
		}
		entity, err := s.entities.Create(ctx, existing.ID, entitymodels.CreateInput{
			Variant: entitymodels.VariantIndividual,
			Name:    DefaultProfileName,
		})
		if err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "profile added to existing account", "user_id", existing.ID, "entity_id", entity.ID)
		return &RegisterResult{UserID: existing.ID, EntityID: entity.ID}, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}

	user, err := s.newUser(ctx, models.KindCitizen, password)
	if err != nil {
		return nil, err
	}
	user.Phone = &phone
	entityID, err := s.createAccount(ctx, user, entitymodels.CreateInput{
		Variant: entitymodels.VariantIndividual,
		Name:    DefaultProfileName,
	})
	if err != nil {
		return nil, err
	}
	return &RegisterResult{UserID: user.ID, EntityID: entityID}, nil
}

// RegisterGovernment creates a government service account and its verified
// government entity.
func (s *Service) RegisterGovernment(ctx context.Context, serviceID, serviceName, password string) (*RegisterResult, error) {
	user, err := s.newUser(ctx, models.KindGovernment, password)
	if err != nil {
		return nil, err
	}
	user.ServiceID = &serviceID
	entityID, err := s.createAccount(ctx, user, entitymodels.CreateInput{
		Variant:  entitymodels.VariantGovernment,
		Name:     serviceName,
		Verified: true,
	})
	if err != nil {
		return nil, err
	}
	return &RegisterResult{UserID: user.ID, EntityID: entityID}, nil
}

// OrganizationInput describes a vetted organization account.
type OrganizationInput struct {
	Email              string
	Name               string
	RegistrationNumber string
	Jurisdiction       string
	Profile            entitymodels.Attributes
	Password           string
}

// RegisterOrganization creates an organization account that signs in by
// e-mail, with a verified organization entity. Government approval of an
// onboarding request and the demo seeder call it; it has no route of its own.
func (s *Service) RegisterOrganization(ctx context.Context, in OrganizationInput) (*RegisterResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	user, err := s.newUser(ctx, models.KindOrganization, in.Password)
	if err != nil {
		return nil, err
	}
	user.Email = &email
	profile := entitymodels.CreateInput{
		Variant:      entitymodels.VariantOrganization,
		Name:         in.Name,
		Attributes:   in.Profile,
		Jurisdiction: in.Jurisdiction,
		Verified:     true,
	}
	if in.RegistrationNumber != "" {
		reg := in.RegistrationNumber
		profile.RegistrationNumber = &reg
	}
	entityID, err := s.createAccount(ctx, user, profile)
	if err != nil {
		return nil, err
	}
	return &RegisterResult{UserID: user.ID, EntityID: entityID}, nil
}

func (s *Service) newUser(ctx context.Context, kind models.Kind, password string) (*models.User, error) {
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:           id.NewUserID(),
		Kind:         kind,
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx),
	}, nil
}

// createAccount stores user and its first entity, removing the user again if
// the entity cannot be created.
func (s *Service) createAccount(ctx context.Context, user *models.User, profile entitymodels.CreateInput) (id.EntityID, error) {
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return id.EntityID{}, dErrors.New(dErrors.CodeDuplicateKey, "account already registered")
		}
		return id.EntityID{}, dErrors.Wrap(err, dErrors.CodeInternal, "create user")
	}
	entity, err := s.entities.Create(ctx, user.ID, profile)
	if err != nil {
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to remove account after profile error", "user_id", user.ID, "error", delErr)
		}
		return id.EntityID{}, err
	}
	s.metrics.IncrementRegistered(string(user.Kind))
	s.logger.InfoContext(ctx, "account registered", "user_id", user.ID, "kind", user.Kind, "entity_id", entity.ID)
	return entity.ID, nil
}

// LoginResult carries a token for password-only accounts, or OTPSent for
// citizens who must complete sign-in with a code.
type LoginResult struct {
	Token   *models.Token
	OTPSent bool
}

// Login checks a password. Organizations sign in by e-mail and get a token
// directly; citizens sign in by phone and receive a one-time code.
func (s *Service) Login(ctx context.Context, phone, email, password string) (*LoginResult, error) {
	var (
		user *models.User
		err  error
	)
	switch {
	case phone != "":
		user, err = s.users.FindByPhone(ctx, phone)
	case email != "":
		user, err = s.users.FindByEmail(ctx, email)
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "phone or email is required")
	}
	if err := s.checkPassword(ctx, user, err, password); err != nil {
		return nil, err
	}

	if phone != "" {
		if err := s.issueOTP(ctx, phone, models.OTPLogin, s.cfg.LoginOTPTTL); err != nil {
			return nil, err
		}
		return &LoginResult{OTPSent: true}, nil
	}
	token, err := s.startSession(ctx, user, "password")
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token}, nil
}

// LoginGovernment signs a government service in with its service ID.
func (s *Service) LoginGovernment(ctx context.Context, serviceID, password string) (*models.Token, error) {
	user, err := s.users.FindByServiceID(ctx, serviceID)
	if err := s.checkPassword(ctx, user, err, password); err != nil {
		return nil, err
	}
	return s.startSession(ctx, user, "service_id")
}

func (s *Service) checkPassword(ctx context.Context, user *models.User, lookupErr error, password string) error {
	if lookupErr != nil {
		if errors.Is(lookupErr, sentinel.ErrNotFound) {
			s.metrics.IncrementAuthFailure("unknown_account")
			return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return dErrors.Wrap(lookupErr, dErrors.CodeInternal, "find user")
	}
	if err := secrets.Verify(password, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.metrics.IncrementAuthFailure("bad_password")
			s.logger.WarnContext(ctx, "failed login", "user_id", user.ID, "ip", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)))
		}
		return err
	}
	return nil
}

// SendOTP issues a fresh code to a registered phone number.
func (s *Service) SendOTP(ctx context.Context, phone string, purpose models.OTPPurpose) error {
	if _, err := s.users.FindByPhone(ctx, phone); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}
	ttl := s.cfg.VerifyOTPTTL
	if purpose == models.OTPLogin {
		ttl = s.cfg.LoginOTPTTL
	}
	return s.issueOTP(ctx, phone, purpose, ttl)
}

func (s *Service) issueOTP(ctx context.Context, phone string, purpose models.OTPPurpose, ttl time.Duration) error {
	code, err := secrets.GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.otps.Save(ctx, &models.OTP{
		Phone:     phone,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: requestcontext.Now(ctx).Add(ttl),
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save otp")
	}
	if err := s.notifier.SendOTP(ctx, phone, code); err != nil {
		s.logger.WarnContext(ctx, "failed to deliver otp", "phone", privacy.MaskPhone(phone), "error", err)
	}
	s.metrics.IncrementOTPIssued(string(purpose))
	return nil
}

// VerifyOTP completes a citizen sign-in.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string) (*models.Token, error) {
	if err := s.consumeOTP(ctx, phone, models.OTPLogin, code); err != nil {
		return nil, err
	}
	user, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}
	return s.startSession(ctx, user, "otp")
}

func (s *Service) consumeOTP(ctx context.Context, phone string, purpose models.OTPPurpose, code string) error {
	err := s.otps.Consume(ctx, phone, purpose, code, requestcontext.Now(ctx))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrInvalidState):
		s.metrics.IncrementAuthFailure("bad_otp")
		return dErrors.New(dErrors.CodeUnauthorized, "invalid or expired OTP")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "verify otp")
	}
}

// startSession creates a session and signs a token bound to it. Both expire
// together.
func (s *Service) startSession(ctx context.Context, user *models.User, method string) (*models.Token, error) {
	ttl := s.cfg.UserTokenTTL
	if user.Kind == models.KindGovernment {
		ttl = s.cfg.GovernmentTokenTTL
	}
	sessionID := id.NewSessionID()
	token, expiresAt, err := s.tokens.GenerateSessionToken(ctx, user.ID, sessionID, string(user.Kind), ttl)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	ip := privacy.AnonymizeIP(requestcontext.ClientIP(ctx))
	session := &models.Session{
		ID:         sessionID,
		UserID:     user.ID,
		Device:     device.Name(requestcontext.UserAgent(ctx)),
		IP:         ip,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
		LastSeenAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create session")
	}

	s.metrics.IncrementLogin(method)
	s.logger.InfoContext(ctx, "user signed in",
		"user_id", user.ID,
		"session_id", sessionID,
		"kind", user.Kind,
		"method", method,
	)
	if s.alerts != nil {
		s.alerts.RaiseLoginAlerts(ctx, user.ID, session.Device, ip)
	}
	return &models.Token{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		SessionID:   sessionID,
		User:        user,
	}, nil
}
