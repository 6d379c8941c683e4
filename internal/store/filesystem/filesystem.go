// Package filesystem provides an app.BlobStore implementation backed by the
// local filesystem. Derived blob paths map directly onto a directory tree
// under a fixed root; the hex shard groups become directories.
package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zyncapp/zyncd/internal/app"
)

// Ensure BlobStore implements app.BlobStore
var _ app.BlobStore = (*BlobStore)(nil)

// BlobStore implements app.BlobStore using the local filesystem.
type BlobStore struct {
	root string
}

// New returns a filesystem-backed blob store rooted at dir. The directory
// must already exist with secure permissions (0700 recommended).
func New(root string) (*BlobStore, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errors.New("blob root is not a directory")
	}
	return &BlobStore{root: root}, nil
}

// fullPath maps a derived blob path onto the rooted tree after validation.
func (b *BlobStore) fullPath(path string) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}
	return filepath.Join(b.root, filepath.FromSlash(strings.TrimPrefix(path, "/"))), nil
}

// Put writes data to the file for path, creating shard directories as
// needed. Partial files are removed on write failure; the file is fsynced
// before Put returns.
func (b *BlobStore) Put(_ context.Context, path string, data []byte) error {
	p, err := b.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	// #nosec G304: path is constructed from a fixed root plus a validated derived path; no traversal possible.
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err = f.Write(data); err != nil {
		_ = os.Remove(p)
		return err
	}
	return f.Sync()
}

// Get reads the blob bytes for path.
func (b *BlobStore) Get(_ context.Context, path string) ([]byte, error) {
	p, err := b.fullPath(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p) // #nosec G304 path constructed internally
}

// Delete removes the blob file for path.
func (b *BlobStore) Delete(_ context.Context, path string) error {
	p, err := b.fullPath(path)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// List returns the derived paths of all blobs currently present. Higher
// layers derive orphans by diffing against record-referenced paths. Files
// modified less than a second ago are skipped so in-flight uploads are not
// reported as orphans.
func (b *BlobStore) List(_ context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(b.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil && time.Since(info.ModTime()) < time.Second {
			return nil
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, "/"+filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// validatePath enforces that a blob path is an absolute, slash-separated key
// with no empty or dot segments. This prevents traversal out of the root and
// guarantees uniform on-disk layout.
func validatePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return errors.New("invalid blob path: must be absolute")
	}
	for _, seg := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		if seg == "" || seg == "." || seg == ".." {
			return errors.New("invalid blob path: empty or dot segment")
		}
	}
	return nil
}
