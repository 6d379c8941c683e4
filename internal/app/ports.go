// Package app defines the application layer "ports" (interfaces) that the
// clipboard history core depends upon. It follows a hexagonal (ports &
// adapters) design: this package declares what the core needs, while adapter
// packages (SQLite record store, filesystem/S3 blob stores, HTTP layer,
// reconciler) provide concrete implementations. No I/O, logging, SQL, or
// network concerns belong here.
package app

import (
	"context"

	"github.com/zyncapp/zyncd/internal/domain"
)

// RecordStore is the persistence port for per-user clipboard records. The
// whole record is the unit of consistency: Upsert writes it back in full
// within a single transaction. No concurrency token is carried, so two
// writers racing on the same user resolve last-write-wins.
type RecordStore interface {
	// FindByUser returns the record owned by userID, or domain.ErrNotFound.
	// It never creates as a side effect.
	FindByUser(ctx context.Context, userID string) (*domain.Clipboard, error)

	// Insert persists a freshly built record and assigns its RecordID in
	// place. It must fail if a record already exists for the same user.
	Insert(ctx context.Context, cb *domain.Clipboard) error

	// Upsert writes the full record transactionally, replacing any prior
	// state for the same RecordID.
	Upsert(ctx context.Context, cb *domain.Clipboard) error

	// All returns every record, used by the reconciliation pass to compute
	// the set of referenced blob paths.
	All(ctx context.Context) ([]domain.Clipboard, error)
}

// BlobStore is the payload persistence port. Paths are derived via
// domain.BlobPath; implementations treat them as opaque hierarchical keys.
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	// Delete removes a blob. Callers may ignore the error during eviction;
	// implementations should make deletion of an absent blob cheap.
	Delete(ctx context.Context, path string) error
	// List returns the paths of all blobs under the clipboard namespace,
	// excluding very recent writes so in-flight uploads are not reported.
	List(ctx context.Context) ([]string, error)
}

// Recorder counts notable service events. A nil Recorder disables counting;
// the metrics manager satisfies this in production.
type Recorder interface {
	Inc(name string, delta int64)
}
