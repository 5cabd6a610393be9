package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vietddude/blockprice/internal/infra/storage"
)

func TestStore_ReadMissing(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.Read(context.Background(), "ethereum/blocks")
	if !errors.Is(err, storage.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestStore_WriteCreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")
	s := NewStore(root)
	ctx := context.Background()

	if err := s.Write(ctx, "fantom/blocks", []byte(`{"1":"100"}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "fantom", "blocks.json"))
	if err != nil {
		t.Fatalf("expected snapshot on disk: %v", err)
	}
	if string(data) != `{"1":"100"}` {
		t.Errorf("unexpected contents: %s", data)
	}

	// overwrite replaces the whole snapshot
	if err := s.Write(ctx, "fantom/blocks", []byte(`{"2":"200"}`)); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	got, err := s.Read(ctx, "fantom/blocks")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != `{"2":"200"}` {
		t.Errorf("unexpected contents after overwrite: %s", got)
	}

	entries, err := os.ReadDir(filepath.Join(root, "fantom"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, found %d entries", len(entries))
	}
}

func TestStore_List(t *testing.T) {
	s := NewStore(t.TempDir())
	ctx := context.Background()

	for _, p := range []string{"polygon/blocks", "ethereum/0xabc", "ethereum/blocks"} {
		if err := s.Write(ctx, p, []byte("{}")); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{"ethereum/0xabc", "ethereum/blocks", "polygon/blocks"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestStore_ListEmptyRoot(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing"))

	got, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no partitions, got %v", got)
	}
}
