package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"medication-tracker/internal/ports/kv"
)

// Store persiste todas las claves en un único archivo JSON. Cada Set
// reescribe el archivo entero; con decenas de entidades alcanza y el
// write es reemplazo completo, igual que exige el puerto.
type Store struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

func NewStore(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: map[string]json.RawMessage{},
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		// archivo presente pero ilegible: se arranca vacío, el valor
		// durable anterior se pisa recién en el próximo Set
		s.data = map[string]json.RawMessage{}
	}
	return s, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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

	s.data[key] = json.RawMessage(value)
	if err := s.flush(); err != nil {
		return fmt.Errorf("%w: %v", kv.ErrWriteFailed, err)
	}
	return nil
}

func (s *Store) RemoveMany(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.data, k)
	}
	if err := s.flush(); err != nil {
		return fmt.Errorf("%w: %v", kv.ErrWriteFailed, err)
	}
	return nil
}

func (s *Store) flush() error {
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o644)
}
