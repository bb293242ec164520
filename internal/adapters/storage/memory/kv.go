package memory

import (
	"context"
	"sync"

	"medication-tracker/internal/ports/kv"
)

// Store es el backend in-memory del puerto de persistencia; se usa en
// dev y en tests.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailWrites simula un backend que rechaza writes (tests del
	// camino optimista).
	FailWrites bool
}

func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return kv.ErrWriteFailed
	}

	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

func (s *Store) RemoveMany(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return kv.ErrWriteFailed
	}
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}
