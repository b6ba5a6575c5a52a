package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"trustid/internal/directory/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	providers map[id.EntityID]*models.Provider
}

func New() *InMemoryStore {
	return &InMemoryStore{providers: make(map[id.EntityID]*models.Provider)}
}

func (s *InMemoryStore) FindByID(_ context.Context, entityID id.EntityID) (*models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[entityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) ListActive(_ context.Context) ([]*models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Provider
	for _, p := range s.providers {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Provider) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.EntityID.String(), b.EntityID.String())
	})
	return out, nil
}

func (s *InMemoryStore) Save(_ context.Context, p *models.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	if existing, ok := s.providers[p.EntityID]; ok {
		cp.CreatedAt = existing.CreatedAt
	}
	s.providers[p.EntityID] = &cp
	return nil
}
