package store

import (
	"context"

	"trustid/internal/alert/models"
	id "trustid/pkg/domain"
)

// Store persists alerts. Missing alerts yield sentinel.ErrNotFound.
type Store interface {
	Create(ctx context.Context, alert *models.Alert) error
	FindByID(ctx context.Context, alertID id.AlertID) (*models.Alert, error)
	Acknowledge(ctx context.Context, alertID id.AlertID) (*models.Alert, error)
	Delete(ctx context.Context, alertID id.AlertID) error
	ListForSubject(ctx context.Context, subjectID id.EntityID) ([]*models.Alert, error)
	DeleteForSubject(ctx context.Context, subjectID id.EntityID) (int64, error)
}
