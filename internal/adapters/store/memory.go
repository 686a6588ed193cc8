// Package store holds the account persistence backends.
package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/SkyMonder/SkyCalling/internal/domain"
)

type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[domain.Identity]*domain.User
	byUsername map[string]domain.Identity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[domain.Identity]*domain.User),
		byUsername: make(map[string]domain.Identity),
	}
}

func (s *MemoryStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Username)
	if _, ok := s.byUsername[key]; ok {
		return domain.ErrUserExists
	}
	cp := *u
	s.byID[u.ID] = &cp
	s.byUsername[key] = u.ID
	return nil
}

func (s *MemoryStore) ByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) ByID(_ context.Context, id domain.Identity) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) Search(_ context.Context, q string, limit int) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q = strings.ToLower(q)
	out := make([]domain.User, 0)
	for key, id := range s.byUsername {
		if strings.Contains(key, q) {
			u := *s.byID[id]
			u.PasswordHash = nil
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b domain.User) int {
		return cmp.Compare(strings.ToLower(a.Username), strings.ToLower(b.Username))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
