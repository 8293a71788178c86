package seqtable

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryBackend implements StorageBackend in memory. It is used in tests and
// counts opens per key so partition-pruning behavior is observable.
type MemoryBackend struct {
	mu    sync.RWMutex
	data  map[string][]byte
	opens map[string]int
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data:  make(map[string][]byte),
		opens: make(map[string]int),
	}
}

// OpenCount returns how many times the key was opened for reading.
func (m *MemoryBackend) OpenCount(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opens[key]
}

func (m *MemoryBackend) get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrMissingLocation)
	}
	m.opens[key]++
	return data, nil
}

func (m *MemoryBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := m.get(key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryBackend) OpenRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	data, err := m.get(key)
	if err != nil {
		return nil, err
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	rest := data[offset:]
	if length >= 0 && length < int64(len(rest)) {
		rest = rest[:length]
	}
	return io.NopCloser(bytes.NewReader(rest)), nil
}

func (m *MemoryBackend) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	if !ok {
		return ObjectInfo{}, fmt.Errorf("%s: %w", key, ErrMissingLocation)
	}
	return ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *MemoryBackend) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ObjectInfo
	for key, data := range m.data {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryBackend) Write(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
