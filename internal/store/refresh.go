// Package store holds the refresh token stores.
//
// Every implementation keeps at most one refresh token per user: Put always
// overwrites, so issuing a new token implicitly supersedes the previous one.
// Concurrent writers for the same user race to last-write-wins.
package store

import (
	"context"
	"sync"
)

// RefreshTokenStore maps a user's email to the refresh token most recently issued to them.
type RefreshTokenStore interface {
	Put(ctx context.Context, email, token string) error
	// Get returns the current token and whether one exists.
	Get(ctx context.Context, email string) (string, bool, error)
}

// MemoryRefreshStore is an in-process store. Entries are never evicted and are
// lost on restart; expired tokens simply fail validation.
type MemoryRefreshStore struct {
	tokens sync.Map
}

func NewMemoryRefreshStore() *MemoryRefreshStore {
	return &MemoryRefreshStore{}
}

func (s *MemoryRefreshStore) Put(_ context.Context, email, token string) error {
	s.tokens.Store(email, token)
	return nil
}

func (s *MemoryRefreshStore) Get(_ context.Context, email string) (string, bool, error) {
	value, ok := s.tokens.Load(email)
	if !ok {
		return "", false, nil
	}
	return value.(string), true, nil
}
