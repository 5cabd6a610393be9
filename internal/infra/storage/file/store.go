// Package file stores partition snapshots as JSON files laid out as
// <root>/<network>/<name>.json.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vietddude/blockprice/internal/infra/storage"
)

const snapshotExt = ".json"

// Store implements storage.SnapshotStore on the local filesystem.
type Store struct {
	root string
}

// NewStore creates a file store rooted at root. The directory is created
// lazily on first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) path(partition string) string {
	return filepath.Join(s.root, filepath.FromSlash(partition)+snapshotExt)
}

// Read returns the snapshot bytes for a partition.
func (s *Store) Read(ctx context.Context, partition string) ([]byte, error) {
	data, err := os.ReadFile(s.path(partition))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", partition, err)
	}
	return data, nil
}

// Write atomically replaces the snapshot: data goes to a temp file in the
// same directory which is then renamed over the target.
func (s *Store) Write(ctx context.Context, partition string, data []byte) error {
	target := s.path(partition)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("rename snapshot %s: %w", partition, err)
	}
	return nil
}

// List walks the root and returns every snapshot as "<network>/<name>".
func (s *Store) List(ctx context.Context) ([]string, error) {
	var partitions []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), snapshotExt) {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		partitions = append(partitions, strings.TrimSuffix(filepath.ToSlash(rel), snapshotExt))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	slices.Sort(partitions)
	return partitions, nil
}

// Close is a no-op for the file store.
func (s *Store) Close() error {
	return nil
}
