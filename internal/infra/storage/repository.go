package storage

import (
	"context"
	"errors"
)

var (
	// ErrSnapshotNotFound is returned when a partition has never been saved
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// SnapshotStore persists whole-partition snapshots as opaque bytes.
// Partition names are domain.PartitionKey strings ("ethereum/blocks").
type SnapshotStore interface {
	// Read returns the last written snapshot or ErrSnapshotNotFound
	Read(ctx context.Context, partition string) ([]byte, error)

	// Write replaces the snapshot for a partition, creating it if absent.
	// Implementations must never leave a partially written snapshot behind.
	Write(ctx context.Context, partition string, data []byte) error

	// List returns the names of all stored partitions
	List(ctx context.Context) ([]string, error)

	// Close releases backend resources
	Close() error
}
