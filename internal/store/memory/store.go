package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/contentops/pdfmoderation/internal/store"
)

type objectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewObjectStore returns an in-memory store. It is the default backend and
// the one used by tests.
func NewObjectStore() store.ObjectStore {
	return &objectStore{objects: make(map[string][]byte)}
}

func (s *objectStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = buf
	return nil
}

func (s *objectStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (s *objectStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
