package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"trustid/internal/consent/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
	txcontext "trustid/pkg/platform/tx"
)

type record struct {
	consent *models.Consent
	seq     uint64
}

// InMemoryStore keeps consents in memory for tests and local runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	consents map[id.ConsentID]record
	nextSeq  uint64
}

func New() *InMemoryStore {
	return &InMemoryStore{consents: make(map[id.ConsentID]record)}
}

func (s *InMemoryStore) Create(ctx context.Context, consent *models.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.consents[consent.ID]; exists {
		return sentinel.ErrConflict
	}
	s.nextSeq++
	s.consents[consent.ID] = record{consent: consent.Clone(), seq: s.nextSeq}
	txcontext.Record(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.consents, consent.ID)
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, consentID id.ConsentID) (*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.consents[consentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.consent.Clone(), nil
}

func (s *InMemoryStore) Execute(ctx context.Context, consentID id.ConsentID, mutate func(*models.Consent) error) (*models.Consent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.consents[consentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := rec.consent.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	prev := rec
	rec.consent = working.Clone()
	s.consents[consentID] = rec
	txcontext.Record(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.consents[consentID]; ok {
			s.consents[consentID] = prev
		}
	})
	return working, nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID id.EntityID) ([]*models.Consent, error) {
	recs := s.collect(func(c *models.Consent) bool { return c.SubjectID == subjectID })
	slices.SortFunc(recs, func(a, b record) int {
		if c := b.consent.CreatedAt.Compare(a.consent.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})
	return unwrap(recs), nil
}

func (s *InMemoryStore) ListByRequester(_ context.Context, requesterID id.EntityID) ([]*models.Consent, error) {
	recs := s.collect(func(c *models.Consent) bool { return c.RequesterID == requesterID })
	slices.SortFunc(recs, func(a, b record) int {
		if c := compareTimePtrDesc(a.consent.GrantedOn, b.consent.GrantedOn); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})
	return unwrap(recs), nil
}

func (s *InMemoryStore) ListOpenByEntity(_ context.Context, entityID id.EntityID) ([]*models.Consent, error) {
	recs := s.collect(func(c *models.Consent) bool {
		open := c.Status == models.StatusPending || c.Status == models.StatusActive
		return open && (c.SubjectID == entityID || c.RequesterID == entityID)
	})
	slices.SortFunc(recs, func(a, b record) int { return cmp.Compare(a.seq, b.seq) })
	return unwrap(recs), nil
}

func (s *InMemoryStore) collect(match func(*models.Consent) bool) []record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []record
	for _, rec := range s.consents {
		if match(rec.consent) {
			out = append(out, record{consent: rec.consent.Clone(), seq: rec.seq})
		}
	}
	return out
}

func unwrap(recs []record) []*models.Consent {
	out := make([]*models.Consent, len(recs))
	for i, rec := range recs {
		out[i] = rec.consent
	}
	return out
}

// compareTimePtrDesc orders later times first and nil last.
func compareTimePtrDesc(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return b.Compare(*a)
	}
}
