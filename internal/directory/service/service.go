package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"trustid/internal/directory/models"
	"trustid/internal/directory/store"
	entitymodels "trustid/internal/entity/models"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/platform/sentinel"
	"trustid/pkg/requestcontext"
)

// Entities is the slice of the entity service the directory needs.
type Entities interface {
	Get(ctx context.Context, entityID id.EntityID) (*entitymodels.Entity, error)
	GetOwned(ctx context.Context, owner id.UserID, entityID id.EntityID) (*entitymodels.Entity, error)
}

type Service struct {
	store    store.Store
	entities Entities
	logger   *slog.Logger
}

func NewService(store store.Store, entities Entities, logger *slog.Logger) *Service {
	return &Service{store: store, entities: entities, logger: logger}
}

// Listing is a directory entry with the entity behind it.
type Listing struct {
	Provider *models.Provider
	Entity   *entitymodels.Entity
}

// List returns active listings by name. Listings whose entity has been
// retired are skipped.
func (s *Service) List(ctx context.Context) ([]Listing, error) {
	providers, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list service providers")
	}
	out := make([]Listing, 0, len(providers))
	for _, p := range providers {
		entity, err := s.entities.Get(ctx, p.EntityID)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, Listing{Provider: p, Entity: entity})
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, entityID id.EntityID) (*Listing, error) {
	entity, err := s.entities.Get(ctx, entityID)
	if err != nil {
		return nil, err
	}
	p, err := s.store.FindByID(ctx, entityID)
	if err != nil {
		return nil, translate(err, "get service provider")
	}
	return &Listing{Provider: p, Entity: entity}, nil
}

// Upsert creates or edits the listing of an entity actor owns. A new listing
// starts active and inherits the entity's verification.
func (s *Service) Upsert(ctx context.Context, actor id.UserID, entityID id.EntityID, profile models.Profile) (*Listing, error) {
	entity, err := s.entities.GetOwned(ctx, actor, entityID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	p, err := s.load(ctx, entity, now)
	if err != nil {
		return nil, err
	}
	p.Verified = p.Verified || entity.Verified
	if err := p.Apply(profile, now); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save service provider")
	}
	s.logger.InfoContext(ctx, "service provider saved", "entity_id", entityID, "owner_id", actor, "category", p.Category)
	return &Listing{Provider: p, Entity: entity}, nil
}

// Promote lists the entity as a government service, creating the listing
// when it has none.
func (s *Service) Promote(ctx context.Context, entityID id.EntityID, description, contactEmail string) (*Listing, error) {
	entity, err := s.entities.Get(ctx, entityID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	p, err := s.load(ctx, entity, now)
	if err != nil {
		return nil, err
	}
	if p.Description == "" && description == "" {
		description = "Government Service provided by " + entity.Name
	}
	p.Promote(description, contactEmail, now)
	if err := s.store.Save(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "promote service provider")
	}
	s.logger.WarnContext(ctx, "service provider promoted", "entity_id", entityID)
	return &Listing{Provider: p, Entity: entity}, nil
}

func (s *Service) Demote(ctx context.Context, entityID id.EntityID) (*Listing, error) {
	listing, err := s.Get(ctx, entityID)
	if err != nil {
		return nil, err
	}
	listing.Provider.Demote(requestcontext.Now(ctx))
	if err := s.store.Save(ctx, listing.Provider); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "demote service provider")
	}
	s.logger.WarnContext(ctx, "service provider demoted", "entity_id", entityID)
	return listing, nil
}

// load returns the stored listing or a fresh active one named after entity.
func (s *Service) load(ctx context.Context, entity *entitymodels.Entity, now time.Time) (*models.Provider, error) {
	p, err := s.store.FindByID(ctx, entity.ID)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return &models.Provider{
			EntityID:  entity.ID,
			Name:      entity.Name,
			Category:  models.CategoryOther,
			Verified:  entity.Verified,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find service provider")
	}
}

func translate(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "service provider not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}
