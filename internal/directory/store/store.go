package store

import (
	"context"

	"trustid/internal/directory/models"
	id "trustid/pkg/domain"
)

// Store persists one listing per entity. Missing listings yield
// sentinel.ErrNotFound.
type Store interface {
	FindByID(ctx context.Context, entityID id.EntityID) (*models.Provider, error)
	// ListActive returns active listings ordered by name.
	ListActive(ctx context.Context) ([]*models.Provider, error)
	// Save inserts the listing or replaces the stored one, keeping its
	// CreatedAt.
	Save(ctx context.Context, p *models.Provider) error
}
