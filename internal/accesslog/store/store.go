package store

import (
	"context"

	"trustid/internal/accesslog/models"
	id "trustid/pkg/domain"
)

// Store is append-only in normal operation. EraseForSubject is an
// administrative compliance path and must only be reachable from admin routes.
type Store interface {
	Append(ctx context.Context, entry *models.Entry) error
	// ListForSubject returns entries newest first; equal timestamps keep
	// reverse append order.
	ListForSubject(ctx context.Context, subjectID id.EntityID) ([]*models.Entry, error)
	EraseForSubject(ctx context.Context, subjectID id.EntityID) (int64, error)
}
