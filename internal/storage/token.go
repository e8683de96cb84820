package storage

import (
	"errors"
	"sync"
)

var ErrNotFound = errors.New("storage: not found")

// TokenStore keeps the most recent push token so it can be replayed to
// a host that attaches after the refresh happened.
type TokenStore interface {
	LoadToken() (string, error)
	StoreToken(token string) error
}

type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) LoadToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return "", ErrNotFound
	}
	return s.token, nil
}

func (s *MemoryTokenStore) StoreToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	return nil
}
