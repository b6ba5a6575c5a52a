package store

import (
	"context"

	"trustid/internal/entity/models"
	id "trustid/pkg/domain"
)

// Error Contract:
// - ErrNotFound when the entity does not exist
// - ErrConflict when another entity already holds the uniqueness key
// - wrapped errors for infrastructure failures
type Store interface {
	Create(ctx context.Context, entity *models.Entity) error
	Update(ctx context.Context, entity *models.Entity) error
	FindByID(ctx context.Context, entityID id.EntityID) (*models.Entity, error)
	ListByOwner(ctx context.Context, owner id.UserID) ([]*models.Entity, error)
	FindFirstIndividualByOwner(ctx context.Context, owner id.UserID) (*models.Entity, error)
	Delete(ctx context.Context, entityID id.EntityID) error
}
