package user

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"trustid/internal/auth/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
	pkgstring "trustid/pkg/string"
)

// Error Contract:
// - Find methods return sentinel.ErrNotFound when no user matches
// - Create returns sentinel.ErrConflict when the phone, e-mail or service ID is taken
// - infrastructure failures are wrapped with context

// InMemoryUserStore keeps accounts in memory for tests and local runs.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[id.UserID]*models.User)}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.users {
		if sameKey(existing.Phone, user.Phone) || sameKey(existing.Email, user.Email) || sameKey(existing.ServiceID, user.ServiceID) {
			return sentinel.ErrConflict
		}
	}
	s.users[user.ID] = user.Clone()
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		return user.Clone(), nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	return s.findBy(func(u *models.User) bool { return sameKey(u.Phone, &phone) })
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findBy(func(u *models.User) bool { return sameKey(u.Email, &email) })
}

func (s *InMemoryUserStore) FindByServiceID(_ context.Context, serviceID string) (*models.User, error) {
	return s.findBy(func(u *models.User) bool { return sameKey(u.ServiceID, &serviceID) })
}

// ResolveOwner maps a normalized phone number or e-mail to its account.
func (s *InMemoryUserStore) ResolveOwner(ctx context.Context, ownerKey string) (id.UserID, error) {
	user, err := resolve(ctx, s, ownerKey)
	if err != nil {
		return id.UserID{}, err
	}
	return user.ID, nil
}

func (s *InMemoryUserStore) UpdatePassword(_ context.Context, userID id.UserID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	user.PasswordHash = passwordHash
	return nil
}

func (s *InMemoryUserStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	delete(s.users, userID)
	return nil
}

func (s *InMemoryUserStore) findBy(match func(*models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if match(user) {
			return user.Clone(), nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

type keyFinder interface {
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

func resolve(ctx context.Context, finder keyFinder, ownerKey string) (*models.User, error) {
	key := pkgstring.NormalizeOwnerKey(ownerKey)
	if key == "" {
		return nil, fmt.Errorf("empty owner key: %w", sentinel.ErrNotFound)
	}
	if strings.Contains(key, "@") {
		return finder.FindByEmail(ctx, key)
	}
	return finder.FindByPhone(ctx, key)
}

func sameKey(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}
