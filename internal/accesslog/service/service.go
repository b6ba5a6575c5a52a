package service

import (
	"context"
	"log/slog"

	"trustid/internal/accesslog/models"
	"trustid/internal/accesslog/store"
	entitymodels "trustid/internal/entity/models"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/requestcontext"
)

// EntityReader resolves an entity the actor manages, or a not-found error.
type EntityReader interface {
	GetOwned(ctx context.Context, owner id.UserID, entityID id.EntityID) (*entitymodels.Entity, error)
}

type Service struct {
	store    store.Store
	entities EntityReader
	logger   *slog.Logger
}

func NewService(store store.Store, entities EntityReader, logger *slog.Logger) *Service {
	return &Service{store: store, entities: entities, logger: logger}
}

// ListForOwner returns the disclosure history of an entity the actor owns.
func (s *Service) ListForOwner(ctx context.Context, actor id.UserID, subjectID id.EntityID) ([]*models.Entry, error) {
	if _, err := s.entities.GetOwned(ctx, actor, subjectID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListForSubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list access logs")
	}
	return entries, nil
}

// EraseForSubject deletes a subject's disclosure history. This bypasses the
// append-only contract for compliance erasure and is reachable only from
// admin routes.
func (s *Service) EraseForSubject(ctx context.Context, subjectID id.EntityID) (int64, error) {
	n, err := s.store.EraseForSubject(ctx, subjectID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "erase access logs")
	}
	s.logger.WarnContext(ctx, "access log erased by administrator",
		"subject_id", subjectID,
		"entries", n,
		"admin_actor", requestcontext.AdminActor(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	return n, nil
}
