package store

import (
	"context"

	"trustid/internal/consent/models"
	id "trustid/pkg/domain"
)

// Store persists consents.
//
// Error Contract:
//   - ErrNotFound when the consent does not exist
//   - ErrInvalidState when a guarded write finds the status changed underneath it
//   - errors returned by an Execute mutate func are passed through unchanged
type Store interface {
	Create(ctx context.Context, consent *models.Consent) error
	FindByID(ctx context.Context, consentID id.ConsentID) (*models.Consent, error)
	// Execute loads the consent under lock, applies mutate and writes the
	// result back. Nothing is written when mutate returns an error.
	Execute(ctx context.Context, consentID id.ConsentID, mutate func(*models.Consent) error) (*models.Consent, error)
	// ListBySubject returns the subject's consents, newest first.
	ListBySubject(ctx context.Context, subjectID id.EntityID) ([]*models.Consent, error)
	// ListByRequester returns the requester's consents, most recently granted first.
	ListByRequester(ctx context.Context, requesterID id.EntityID) ([]*models.Consent, error)
	// ListOpenByEntity returns pending and active consents where the entity
	// is either subject or requester.
	ListOpenByEntity(ctx context.Context, entityID id.EntityID) ([]*models.Consent, error)
}
