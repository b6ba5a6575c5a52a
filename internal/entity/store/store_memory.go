package store

import (
	"context"
	"slices"
	"sync"

	"trustid/internal/entity/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
	txcontext "trustid/pkg/platform/tx"
)

// InMemoryStore keeps entities in insertion order for tests and local runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	entities map[id.EntityID]*models.Entity
	keys     map[string]id.EntityID
	order    []id.EntityID
}

func New() *InMemoryStore {
	return &InMemoryStore{
		entities: make(map[id.EntityID]*models.Entity),
		keys:     make(map[string]id.EntityID),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, entity *models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[entity.ID]; exists {
		return sentinel.ErrConflict
	}
	if entity.UniquenessKey != nil {
		if _, taken := s.keys[*entity.UniquenessKey]; taken {
			return sentinel.ErrConflict
		}
		s.keys[*entity.UniquenessKey] = entity.ID
	}
	s.entities[entity.ID] = entity.Clone()
	s.order = append(s.order, entity.ID)
	txcontext.Record(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.remove(entity.ID)
	})
	return nil
}

func (s *InMemoryStore) Update(ctx context.Context, entity *models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.entities[entity.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if entity.UniquenessKey != nil {
		if holder, taken := s.keys[*entity.UniquenessKey]; taken && holder != entity.ID {
			return sentinel.ErrConflict
		}
	}
	if existing.UniquenessKey != nil {
		delete(s.keys, *existing.UniquenessKey)
	}
	if entity.UniquenessKey != nil {
		s.keys[*entity.UniquenessKey] = entity.ID
	}
	s.entities[entity.ID] = entity.Clone()
	txcontext.Record(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		current, ok := s.entities[existing.ID]
		if !ok {
			return
		}
		s.releaseKey(current)
		s.claimKey(existing)
		s.entities[existing.ID] = existing
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, entityID id.EntityID) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.entities[entityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return entity.Clone(), nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, owner id.UserID) ([]*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Entity
	for _, entityID := range s.order {
		if e := s.entities[entityID]; e.OwnerID == owner {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryStore) FindFirstIndividualByOwner(_ context.Context, owner id.UserID) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entityID := range s.order {
		e := s.entities[entityID]
		if e.OwnerID == owner && e.Variant == models.VariantIndividual {
			return e.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Delete(ctx context.Context, entityID id.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[entityID]
	if !ok {
		return sentinel.ErrNotFound
	}
	pos := slices.Index(s.order, entityID)
	s.remove(entityID)
	txcontext.Record(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, back := s.entities[entityID]; back {
			return
		}
		s.claimKey(e)
		s.entities[entityID] = e
		s.order = slices.Insert(s.order, min(pos, len(s.order)), entityID)
	})
	return nil
}

// remove drops the entity with its key; callers hold mu.
func (s *InMemoryStore) remove(entityID id.EntityID) {
	if e, ok := s.entities[entityID]; ok {
		s.releaseKey(e)
	}
	delete(s.entities, entityID)
	s.order = slices.DeleteFunc(s.order, func(x id.EntityID) bool { return x == entityID })
}

func (s *InMemoryStore) releaseKey(e *models.Entity) {
	if e.UniquenessKey != nil && s.keys[*e.UniquenessKey] == e.ID {
		delete(s.keys, *e.UniquenessKey)
	}
}

// claimKey takes the key back only when nobody holds it.
func (s *InMemoryStore) claimKey(e *models.Entity) {
	if e.UniquenessKey == nil {
		return
	}
	if _, taken := s.keys[*e.UniquenessKey]; !taken {
		s.keys[*e.UniquenessKey] = e.ID
	}
}
