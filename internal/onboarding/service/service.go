package service

import (
	"context"
	"errors"
	"log/slog"

	authmodels "trustid/internal/auth/models"
	authservice "trustid/internal/auth/service"
	entitymodels "trustid/internal/entity/models"
	"trustid/internal/onboarding/models"
	"trustid/internal/onboarding/store"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/platform/sentinel"
	"trustid/pkg/requestcontext"
	"trustid/pkg/secrets"
)

// Users resolves the reviewer of a request.
type Users interface {
	FindByID(ctx context.Context, userID id.UserID) (*authmodels.User, error)
}

// Accounts opens the organization account on approval.
type Accounts interface {
	EmailRegistered(ctx context.Context, email string) (bool, error)
	RegisterOrganization(ctx context.Context, in authservice.OrganizationInput) (*authservice.RegisterResult, error)
}

type Service struct {
	store    store.Store
	users    Users
	accounts Accounts
	logger   *slog.Logger
}

func NewService(store store.Store, users Users, accounts Accounts, logger *slog.Logger) *Service {
	return &Service{store: store, users: users, accounts: accounts, logger: logger}
}

// Approval is the outcome of approving a request. Password is the temporary
// sign-in secret; it is returned once and never stored in clear.
type Approval struct {
	Request  *models.Request
	UserID   id.UserID
	EntityID id.EntityID
	Email    string
	Password string
}

// Submit records a pending request. An email that already has a request or
// an account is refused.
func (s *Service) Submit(ctx context.Context, in models.SubmitInput) (*models.Request, error) {
	req, err := models.NewRequest(in, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	taken, err := s.accounts.EmailRegistered(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, dErrors.New(dErrors.CodeDuplicateKey, "an account already exists for this email")
	}
	if err := s.store.Create(ctx, req); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeDuplicateKey, "a request was already submitted for this email")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create org request")
	}
	s.logger.InfoContext(ctx, "organization request submitted", "request_id", req.ID, "email", req.Email)
	return req, nil
}

// ListPending returns pending requests, newest first.
func (s *Service) ListPending(ctx context.Context, actor id.UserID) ([]*models.Request, error) {
	if err := s.requireGovernment(ctx, actor); err != nil {
		return nil, err
	}
	reqs, err := s.store.ListByStatus(ctx, models.StatusPending)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list org requests")
	}
	return reqs, nil
}

// Approve claims the request, then opens the organization account. If the
// account cannot be opened the request returns to pending.
func (s *Service) Approve(ctx context.Context, actor id.UserID, reqID id.OrgRequestID) (*Approval, error) {
	if err := s.requireGovernment(ctx, actor); err != nil {
		return nil, err
	}
	req, err := s.store.Transition(ctx, reqID, models.StatusPending, models.StatusApproved,
		store.Decision{By: actor, At: requestcontext.Now(ctx)})
	if err != nil {
		return nil, translate(err, "approve org request")
	}

	password, err := secrets.Generate()
	if err != nil {
		s.release(ctx, req)
		return nil, err
	}
	profile := entitymodels.Attributes{}
	for k, v := range req.Profile() {
		profile[k] = entitymodels.StringValue(v)
	}
	account, err := s.accounts.RegisterOrganization(ctx, authservice.OrganizationInput{
		Email:              req.Email,
		Name:               req.Name,
		RegistrationNumber: req.RegistrationNumber,
		Jurisdiction:       req.Jurisdiction,
		Profile:            profile,
		Password:           password,
	})
	if err != nil {
		s.release(ctx, req)
		return nil, err
	}

	s.logger.InfoContext(ctx, "organization request approved",
		"request_id", req.ID,
		"reviewer", actor,
		"user_id", account.UserID,
		"entity_id", account.EntityID,
	)
	return &Approval{
		Request:  req,
		UserID:   account.UserID,
		EntityID: account.EntityID,
		Email:    req.Email,
		Password: password,
	}, nil
}

func (s *Service) Reject(ctx context.Context, actor id.UserID, reqID id.OrgRequestID) (*models.Request, error) {
	if err := s.requireGovernment(ctx, actor); err != nil {
		return nil, err
	}
	req, err := s.store.Transition(ctx, reqID, models.StatusPending, models.StatusRejected,
		store.Decision{By: actor, At: requestcontext.Now(ctx)})
	if err != nil {
		return nil, translate(err, "reject org request")
	}
	s.logger.InfoContext(ctx, "organization request rejected", "request_id", req.ID, "reviewer", actor)
	return req, nil
}

// release puts an approved request back in the queue.
func (s *Service) release(ctx context.Context, req *models.Request) {
	if _, err := s.store.Transition(ctx, req.ID, models.StatusApproved, models.StatusPending, store.Decision{}); err != nil {
		s.logger.ErrorContext(ctx, "failed to release org request", "request_id", req.ID, "error", err)
	}
}

func (s *Service) requireGovernment(ctx context.Context, actor id.UserID) error {
	user, err := s.users.FindByID(ctx, actor)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeForbidden, "government access required")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}
	if user.Kind != authmodels.KindGovernment {
		return dErrors.New(dErrors.CodeForbidden, "government access required")
	}
	return nil
}

func translate(err error, action string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "organization request not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "organization request was already decided")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, action)
	}
}
