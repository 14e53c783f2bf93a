package storage

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
)

var errClosed = errors.New("store closed")

// Memory is an in-process Store
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemory creates an empty store
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Save(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return &StorageError{Op: "save", Key: key, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return &StorageError{Op: "save", Key: key, Err: errClosed}
	}
	m.data[key] = slices.Clone(value)
	return nil
}

func (m *Memory) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, &StorageError{Op: "load", Key: key, Err: err}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, &StorageError{Op: "load", Key: key, Err: errClosed}
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return &StorageError{Op: "delete", Key: key, Err: errClosed}
	}
	delete(m.data, key)
	return nil
}

// Keys returns the stored keys, sorted
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
