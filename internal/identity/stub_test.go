package identity

import (
	"context"
	"sync"

	"github.com/mmeshcher/foodshare/internal/model"
	"github.com/mmeshcher/foodshare/internal/repository"
)

type memoryStore struct {
	mu      sync.Mutex
	byEmail map[string]*model.User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byEmail: make(map[string]*model.User)}
}

func (s *memoryStore) CreateUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return repository.ErrUserExists
	}
	cp := *u
	s.byEmail[u.Email] = &cp
	return nil
}

func (s *memoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}
