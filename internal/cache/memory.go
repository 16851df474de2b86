package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps entries for the lifetime of the process. It backs
// tests and serves as the failover target when redis is unavailable.
type MemoryStore struct {
	entries sync.Map
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := s.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	return val.([]byte), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, data []byte) error {
	copied := make([]byte, len(data))
	copy(copied, data)
	s.entries.Store(key, copied)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}
