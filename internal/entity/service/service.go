package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"trustid/internal/entity/models"
	"trustid/internal/entity/store"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/platform/sentinel"
	"trustid/pkg/requestcontext"
	pkgstring "trustid/pkg/string"
)

// OwnerResolver maps a phone number or e-mail address to the account that
// registered it. It returns sentinel.ErrNotFound for unknown keys.
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, ownerKey string) (id.UserID, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service manages entity registration and lookup.
type Service struct {
	store  store.Store
	owners OwnerResolver
	logger *slog.Logger
}

func NewService(store store.Store, owners OwnerResolver, opts ...Option) *Service {
	svc := &Service{store: store, owners: owners, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) Create(ctx context.Context, owner id.UserID, in models.CreateInput) (*models.Entity, error) {
	entity, err := models.NewEntity(id.NewEntityID(), owner, in, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, entity); err != nil {
		return nil, s.translate(err, "create entity")
	}
	s.logger.InfoContext(ctx, "entity created",
		"entity_id", entity.ID,
		"owner_id", owner,
		"variant", entity.Variant,
		"keyed", entity.UniquenessKey != nil,
	)
	return entity, nil
}

// Update applies a patch to an entity owned by owner. Entities owned by
// someone else are reported as not found.
func (s *Service) Update(ctx context.Context, owner id.UserID, entityID id.EntityID, patch models.Patch) (*models.Entity, error) {
	entity, err := s.GetOwned(ctx, owner, entityID)
	if err != nil {
		return nil, err
	}
	if err := entity.Apply(patch, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, entity); err != nil {
		return nil, s.translate(err, "update entity")
	}
	s.logger.InfoContext(ctx, "entity updated", "entity_id", entity.ID, "owner_id", owner)
	return entity, nil
}

func (s *Service) Get(ctx context.Context, entityID id.EntityID) (*models.Entity, error) {
	entity, err := s.store.FindByID(ctx, entityID)
	if err != nil {
		return nil, s.translate(err, "get entity")
	}
	return entity, nil
}

// GetOwned returns the entity only when owner manages it.
func (s *Service) GetOwned(ctx context.Context, owner id.UserID, entityID id.EntityID) (*models.Entity, error) {
	entity, err := s.Get(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if entity.OwnerID != owner {
		return nil, dErrors.New(dErrors.CodeNotFound, "entity not found")
	}
	return entity, nil
}

func (s *Service) ListByOwner(ctx context.Context, owner id.UserID) ([]*models.Entity, error) {
	entities, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, s.translate(err, "list entities")
	}
	return entities, nil
}

// FindPrimaryIndividual resolves a phone number or e-mail to its account and
// returns the first individual entity that account registered.
func (s *Service) FindPrimaryIndividual(ctx context.Context, ownerKey string) (*models.Entity, error) {
	key := pkgstring.NormalizeOwnerKey(ownerKey)
	if key == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "owner key is required")
	}
	owner, err := s.owners.ResolveOwner(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no account registered for "+maskKey(key))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolve owner")
	}
	entity, err := s.store.FindFirstIndividualByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account has no individual entity")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find primary individual")
	}
	return entity, nil
}

func (s *Service) translate(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "entity not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeDuplicateKey, "an entity with this registration or id number already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, op)
	}
}

func maskKey(key string) string {
	if at := strings.IndexByte(key, '@'); at > 0 {
		return key[:1] + "***" + key[at:]
	}
	if len(key) > 4 {
		return "***" + key[len(key)-4:]
	}
	return "***"
}
