package store

import (
	"context"
	"time"

	"trustid/internal/onboarding/models"
	id "trustid/pkg/domain"
)

// Store persists onboarding requests. Missing requests yield
// sentinel.ErrNotFound; a second request for an email yields
// sentinel.ErrConflict.
type Store interface {
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, reqID id.OrgRequestID) (*models.Request, error)
	ListByStatus(ctx context.Context, status models.Status) ([]*models.Request, error)
	// Transition moves a request from one status to another and records the
	// decision. It fails with sentinel.ErrInvalidState when the request is
	// not in from. A zero decision clears any earlier one.
	Transition(ctx context.Context, reqID id.OrgRequestID, from, to models.Status, d Decision) (*models.Request, error)
}

// Decision names who moved a request and when.
type Decision struct {
	By id.UserID
	At time.Time
}
