// Package memory provides an in-memory KVStore, used by tests and by
// callers with no durable backend available.
package memory

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/nseba/gitcore/storage"
)

// Store is a process-local KVStore. It is safe for concurrent use; callers
// still must serialize index-mutating operations themselves per §5.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var (
	_ storage.KVStore = (*Store)(nil)
	_ storage.CAS     = (*Store)(nil)
)

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]byte)
	return nil
}

func (s *Store) CompareAndSwap(_ context.Context, key string, expected, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[key]
	switch {
	case expected == nil && ok:
		return storage.ErrCASMismatch
	case expected != nil && !ok:
		return storage.ErrCASMismatch
	case expected != nil && ok && !bytes.Equal(cur, expected):
		return storage.ErrCASMismatch
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}
