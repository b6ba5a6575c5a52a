package store

import (
	"context"
	"slices"
	"sync"

	"trustid/internal/alert/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
	txcontext "trustid/pkg/platform/tx"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	alerts []*models.Alert
}

func New() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Create(ctx context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *alert
	s.alerts = append(s.alerts, &cp)
	txcontext.Record(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.alerts = slices.DeleteFunc(s.alerts, func(a *models.Alert) bool { return a.ID == alert.ID })
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, alertID id.AlertID) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.alerts {
		if a.ID == alertID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Acknowledge(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.ID == alertID {
			if !a.Acknowledged {
				txcontext.Record(ctx, func() {
					s.mu.Lock()
					defer s.mu.Unlock()
					a.Acknowledged = false
				})
			}
			a.Acknowledged = true
			cp := *a
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Delete(ctx context.Context, alertID id.AlertID) error {
	removed := s.removeWhere(ctx, func(a *models.Alert) bool { return a.ID == alertID })
	if removed == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListForSubject returns newest first; alerts created at the same instant
// keep reverse insertion order.
func (s *InMemoryStore) ListForSubject(_ context.Context, subjectID id.EntityID) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Alert
	for i := len(s.alerts) - 1; i >= 0; i-- {
		if a := s.alerts[i]; a.SubjectID == subjectID {
			cp := *a
			out = append(out, &cp)
		}
	}
	slices.SortStableFunc(out, func(a, b *models.Alert) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) DeleteForSubject(ctx context.Context, subjectID id.EntityID) (int64, error) {
	return s.removeWhere(ctx, func(a *models.Alert) bool { return a.SubjectID == subjectID }), nil
}

func (s *InMemoryStore) removeWhere(ctx context.Context, match func(*models.Alert) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed, kept []*models.Alert
	for _, a := range s.alerts {
		if match(a) {
			removed = append(removed, a)
		} else {
			kept = append(kept, a)
		}
	}
	s.alerts = kept
	if len(removed) > 0 {
		txcontext.Record(ctx, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.alerts = append(s.alerts, removed...)
		})
	}
	return int64(len(removed))
}
