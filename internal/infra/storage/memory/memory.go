package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/vietddude/blockprice/internal/infra/storage"
)

// MemoryStorage is a process-local SnapshotStore. Used in tests and for
// one-off queries that should not touch disk.
type MemoryStorage struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
	writes    map[string]int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		snapshots: make(map[string][]byte),
		writes:    make(map[string]int),
	}
}

func (m *MemoryStorage) Read(ctx context.Context, partition string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.snapshots[partition]
	if !ok {
		return nil, storage.ErrSnapshotNotFound
	}
	return slices.Clone(data), nil
}

func (m *MemoryStorage) Write(ctx context.Context, partition string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[partition] = slices.Clone(data)
	m.writes[partition]++
	return nil
}

func (m *MemoryStorage) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.snapshots))
	for name := range m.snapshots {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

// Writes returns how many times a partition has been written.
func (m *MemoryStorage) Writes(partition string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes[partition]
}
