package mem

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/warriorguo/taskpipe/store"
)

var (
	_ store.Store = &memStore{}
)

// NewMemStore returns a store that keeps everything in process memory.
// Nothing survives a restart, so it only suits tests and throwaway runs.
func NewMemStore() store.Store {
	return &memStore{
		entries: make(map[string][]byte),
	}
}

type memStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func (m *memStore) Get(ctx context.Context, prefix, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, exists := m.entries[prefix+"|"+key]
	if !exists {
		return nil, nil
	}
	return append([]byte{}, value...), nil
}

func (m *memStore) Set(ctx context.Context, prefix, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[prefix+"|"+key] = append([]byte{}, value...)
	return nil
}

func (m *memStore) Remove(ctx context.Context, prefix, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, prefix+"|"+key)
	return nil
}

func (m *memStore) List(ctx context.Context, prefix string, iterator func(key string) bool) error {
	m.mu.Lock()

	prefix += "|"
	keys := make([]string, 0)
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, strings.TrimPrefix(key, prefix))
		}
	}
	m.mu.Unlock()

	// map order is not stable, callers expect a deterministic walk
	sort.Strings(keys)

	for _, key := range keys {
		if !iterator(key) {
			break
		}
	}
	return nil
}
