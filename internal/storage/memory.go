package storage

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store used in development and tests.
type MemoryStore struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{BaseURL: strings.TrimRight(baseURL, "/"), objects: make(map[string][]byte)}
}

func (m *MemoryStore) Exists(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[path]
	return ok, nil
}

func (m *MemoryStore) Put(ctx context.Context, path string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	if _, ok := m.objects[path]; ok {
		m.mu.Unlock()
		return "", ErrAlreadyExists
	}
	m.objects[path] = append([]byte(nil), data...)
	m.puts++
	m.mu.Unlock()
	return m.URL(ctx, path)
}

func (m *MemoryStore) URL(_ context.Context, path string) (string, error) {
	return m.BaseURL + "/" + strings.TrimLeft(path, "/"), nil
}

// Puts returns how many objects were created.
func (m *MemoryStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}
