package store

import (
	"context"
	"slices"
	"sync"

	"trustid/internal/onboarding/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	requests []*models.Request
}

func New() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Create(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.Email == req.Email {
			return sentinel.ErrConflict
		}
	}
	s.requests = append(s.requests, clone(req))
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, reqID id.OrgRequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r := s.find(reqID); r != nil {
		return clone(r), nil
	}
	return nil, sentinel.ErrNotFound
}

// ListByStatus returns newest first.
func (s *InMemoryStore) ListByStatus(_ context.Context, status models.Status) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Request
	for i := len(s.requests) - 1; i >= 0; i-- {
		if r := s.requests[i]; r.Status == status {
			out = append(out, clone(r))
		}
	}
	slices.SortStableFunc(out, func(a, b *models.Request) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Transition(_ context.Context, reqID id.OrgRequestID, from, to models.Status, d Decision) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.find(reqID)
	if r == nil {
		return nil, sentinel.ErrNotFound
	}
	if r.Status != from {
		return nil, sentinel.ErrInvalidState
	}
	r.Status = to
	r.DecidedBy = d.By
	r.DecidedAt = nil
	if !d.At.IsZero() {
		at := d.At
		r.DecidedAt = &at
	}
	return clone(r), nil
}

func (s *InMemoryStore) find(reqID id.OrgRequestID) *models.Request {
	for _, r := range s.requests {
		if r.ID == reqID {
			return r
		}
	}
	return nil
}

func clone(r *models.Request) *models.Request {
	cp := *r
	if r.DecidedAt != nil {
		at := *r.DecidedAt
		cp.DecidedAt = &at
	}
	return &cp
}
