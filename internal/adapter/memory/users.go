package memory

import (
	"context"
	"sync"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
)

// UserStore keeps users keyed by normalized e-mail.
type UserStore struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
}

// NewUserStore creates an empty in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{byEmail: make(map[string]domain.User)}
}

func (s *UserStore) Create(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.NormalizeEmail(u.Email)
	if _, exists := s.byEmail[key]; exists {
		return domain.ErrConflict
	}
	u.Email = key
	s.byEmail[key] = u
	return nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}
