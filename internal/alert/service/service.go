package service

import (
	"context"
	"errors"
	"log/slog"

	"trustid/internal/alert/models"
	"trustid/internal/alert/store"
	entitymodels "trustid/internal/entity/models"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/platform/sentinel"
	"trustid/pkg/requestcontext"
)

// Entities is the slice of the entity service the alert feed needs.
type Entities interface {
	GetOwned(ctx context.Context, owner id.UserID, entityID id.EntityID) (*entitymodels.Entity, error)
	ListByOwner(ctx context.Context, owner id.UserID) ([]*entitymodels.Entity, error)
}

type Service struct {
	store    store.Store
	entities Entities
	logger   *slog.Logger
}

func NewService(store store.Store, entities Entities, logger *slog.Logger) *Service {
	return &Service{store: store, entities: entities, logger: logger}
}

func (s *Service) Create(ctx context.Context, subjectID id.EntityID, severity models.Severity, title, message string) (*models.Alert, error) {
	alert, err := models.NewAlert(subjectID, severity, title, message, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, alert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create alert")
	}
	return alert, nil
}

func (s *Service) Acknowledge(ctx context.Context, actor id.UserID, alertID id.AlertID) (*models.Alert, error) {
	if _, err := s.owned(ctx, actor, alertID); err != nil {
		return nil, err
	}
	alert, err := s.store.Acknowledge(ctx, alertID)
	if err != nil {
		return nil, translate(err, "acknowledge alert")
	}
	return alert, nil
}

// Dismiss permanently deletes the alert.
func (s *Service) Dismiss(ctx context.Context, actor id.UserID, alertID id.AlertID) error {
	if _, err := s.owned(ctx, actor, alertID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, alertID); err != nil {
		return translate(err, "dismiss alert")
	}
	return nil
}

func (s *Service) ListForSubject(ctx context.Context, actor id.UserID, subjectID id.EntityID) ([]*models.Alert, error) {
	if _, err := s.entities.GetOwned(ctx, actor, subjectID); err != nil {
		return nil, err
	}
	alerts, err := s.store.ListForSubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list alerts")
	}
	return alerts, nil
}

// RaiseLoginAlerts records an informational login notice on every entity the
// user owns. Failures are logged and do not fail the login.
func (s *Service) RaiseLoginAlerts(ctx context.Context, owner id.UserID, device, ip string) {
	entities, err := s.entities.ListByOwner(ctx, owner)
	if err != nil {
		s.logger.WarnContext(ctx, "login alert skipped", "user_id", owner, "error", err)
		return
	}
	message := models.NewLoginMessage(device, ip)
	for _, e := range entities {
		if _, err := s.Create(ctx, e.ID, models.SeverityInfo, models.TitleNewLogin, message); err != nil {
			s.logger.WarnContext(ctx, "failed to raise login alert", "entity_id", e.ID, "error", err)
		}
	}
}

// owned loads an alert and hides alerts on entities the actor does not own.
func (s *Service) owned(ctx context.Context, actor id.UserID, alertID id.AlertID) (*models.Alert, error) {
	alert, err := s.store.FindByID(ctx, alertID)
	if err != nil {
		return nil, translate(err, "find alert")
	}
	if _, err := s.entities.GetOwned(ctx, actor, alert.SubjectID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "alert not found")
		}
		return nil, err
	}
	return alert, nil
}

func translate(err error, op string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "alert not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, op)
}
