package store

import (
	"context"
	"slices"
	"sync"

	"trustid/internal/accesslog/models"
	id "trustid/pkg/domain"
	txcontext "trustid/pkg/platform/tx"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	entries []*models.Entry
}

func New() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry.Clone())
	txcontext.Record(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.entries = slices.DeleteFunc(s.entries, func(e *models.Entry) bool { return e.ID == entry.ID })
	})
	return nil
}

func (s *InMemoryStore) ListForSubject(_ context.Context, subjectID id.EntityID) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if e := s.entries[i]; e.SubjectID == subjectID {
			out = append(out, e.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b *models.Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out, nil
}

func (s *InMemoryStore) EraseForSubject(ctx context.Context, subjectID id.EntityID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var erased, kept []*models.Entry
	for _, e := range s.entries {
		if e.SubjectID == subjectID {
			erased = append(erased, e)
		} else {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	if len(erased) > 0 {
		txcontext.Record(ctx, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.entries = append(s.entries, erased...)
		})
	}
	return int64(len(erased)), nil
}
