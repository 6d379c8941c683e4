package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zyncapp/zyncd/internal/domain"
)

func newTestStore(t *testing.T) (*BlobStore, string) {
	t.Helper()
	dir := t.TempDir()
	b, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b, dir
}

func TestNewRejectsMissingRoot(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestNewRejectsFileRoot(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "file")
	if err := os.WriteFile(f, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(f); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestPutGetDelete(t *testing.T) {
	b, _ := newTestStore(t)
	ctx := context.Background()
	path := domain.BlobPath(1, 1700000000)
	data := []byte("encrypted-payload")

	if err := b.Put(ctx, path, data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := b.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("payload mismatch: %q", got)
	}
	if err := b.Delete(ctx, path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := b.Get(ctx, path); err == nil {
		t.Fatal("blob should be gone")
	}
}

func TestPutCreatesShardDirectories(t *testing.T) {
	b, dir := newTestStore(t)
	ctx := context.Background()
	path := domain.BlobPath(256, 42)
	if err := b.Put(ctx, path, []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	onDisk := filepath.Join(dir, "data", "clipboards", "00", "00", "00", "00", "00", "01", "00", "42")
	if _, err := os.Stat(onDisk); err != nil {
		t.Fatalf("expected sharded layout at %s: %v", onDisk, err)
	}
}

func TestDeleteMissingBlobErrors(t *testing.T) {
	b, _ := newTestStore(t)
	if err := b.Delete(context.Background(), domain.BlobPath(9, 9)); err == nil {
		t.Fatal("expected error deleting absent blob")
	}
}

func TestTraversalRejected(t *testing.T) {
	b, _ := newTestStore(t)
	ctx := context.Background()
	for _, path := range []string{"../etc/passwd", "/data/../../../etc", "/data//x", "relative/path"} {
		if err := b.Put(ctx, path, []byte("x")); err == nil {
			t.Fatalf("path %q should be rejected", path)
		}
		if _, err := b.Get(ctx, path); err == nil {
			t.Fatalf("get %q should be rejected", path)
		}
	}
}

func TestListSkipsFreshFiles(t *testing.T) {
	b, dir := newTestStore(t)
	ctx := context.Background()
	oldPath := domain.BlobPath(1, 111)
	freshPath := domain.BlobPath(1, 222)
	if err := b.Put(ctx, oldPath, []byte("old")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// Age the first blob past the freshness guard.
	onDisk := filepath.Join(dir, filepath.FromSlash(oldPath[1:]))
	past := time.Now().Add(-time.Minute)
	if err := os.Chtimes(onDisk, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := b.Put(ctx, freshPath, []byte("fresh")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	paths, err := b.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 1 || paths[0] != oldPath {
		t.Fatalf("paths: %v", paths)
	}
}
