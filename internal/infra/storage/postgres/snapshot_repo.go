package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vietddude/blockprice/internal/infra/storage"
)

// SnapshotRepo implements storage.SnapshotStore on the series_snapshots table.
type SnapshotRepo struct {
	db *DB
}

// NewSnapshotRepo creates a snapshot repository. The schema must be migrated.
func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Read returns the snapshot for a partition.
func (r *SnapshotRepo) Read(ctx context.Context, partition string) ([]byte, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload,
		`SELECT payload FROM series_snapshots WHERE partition = $1`, partition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot %s: %w", partition, err)
	}
	return payload, nil
}

// Write upserts a partition snapshot in a single statement.
func (r *SnapshotRepo) Write(ctx context.Context, partition string, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO series_snapshots (partition, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (partition) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		partition, data)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", partition, err)
	}
	return nil
}

// List returns every stored partition, sorted.
func (r *SnapshotRepo) List(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.SelectContext(ctx, &names,
		`SELECT partition FROM series_snapshots ORDER BY partition`); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return names, nil
}

// Close closes the underlying database.
func (r *SnapshotRepo) Close() error {
	return r.db.Close()
}
