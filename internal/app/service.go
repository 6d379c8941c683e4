// Package app contains the application orchestration layer: the clipboard
// history manager that coordinates the record store and the blob store.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/zyncapp/zyncd/internal/domain"
)

// Counter names reported through the Recorder.
const (
	CounterClipsAdmitted      = "clips_admitted_total"
	CounterClipsDeduplicated  = "clips_deduplicated_total"
	CounterClipsEvicted       = "clips_evicted_total"
	CounterBlobDeleteFailures = "blob_delete_failures_total"
)

// Entry is a clip hydrated with its payload bytes.
type Entry struct {
	domain.ClipMeta
	Payload []byte
}

// Service coordinates clip admission, eviction, deduplication, and lookup
// across the injected record and blob stores. It holds no state between
// calls and performs no internal locking: callers embedding it in a
// concurrent server must serialize the find-admit-save cycle per user, since
// saves carry no concurrency token (last write wins).
type Service struct {
	Records RecordStore
	Blobs   BlobStore
	Metrics Recorder // optional; nil disables counters
}

func (s *Service) count(name string, delta int64) {
	if s.Metrics != nil {
		s.Metrics.Inc(name, delta)
	}
}

// FindByUser returns the existing record for userID, or domain.ErrNotFound.
func (s *Service) FindByUser(ctx context.Context, userID string) (*domain.Clipboard, error) {
	return s.Records.FindByUser(ctx, userID)
}

// Create builds and persists a new record holding first as its only clip.
// The insert fails if the user already owns a record; the returned record
// carries the store-assigned RecordID.
func (s *Service) Create(ctx context.Context, userID string, first domain.ClipMeta) (*domain.Clipboard, error) {
	cb := domain.NewClipboard(userID, first)
	if err := s.Records.Insert(ctx, cb); err != nil {
		return nil, err
	}
	return cb, nil
}

// Admit applies the capacity/eviction rule to cb and, if a clip was evicted,
// deletes its blob best-effort. Blob deletion failures are swallowed: the
// blob may already be gone or the store transiently unavailable, and the
// metadata eviction must proceed regardless. The record mutation is in
// memory only; callers persist via Save.
func (s *Service) Admit(ctx context.Context, cb *domain.Clipboard, meta domain.ClipMeta) {
	evicted := cb.Admit(meta)
	s.count(CounterClipsAdmitted, 1)
	if evicted == nil {
		return
	}
	s.count(CounterClipsEvicted, 1)
	if err := s.Blobs.Delete(ctx, domain.BlobPath(cb.RecordID, evicted.Timestamp)); err != nil {
		s.count(CounterBlobDeleteFailures, 1)
		slog.Debug("evicted blob delete failed", "user", cb.UserID, "timestamp", evicted.Timestamp, "err", err)
	}
}

// Save writes the full record back as a single transactional upsert.
func (s *Service) Save(ctx context.Context, cb *domain.Clipboard) error {
	return s.Records.Upsert(ctx, cb)
}

// StorePayload writes data to the blob store at the path derived for
// (cb.RecordID, timestamp). Callers invoke it after a successful admission
// and save for the same clip; the two writes are not atomic with each other.
func (s *Service) StorePayload(ctx context.Context, cb *domain.Clipboard, data []byte, timestamp int64) error {
	return s.Blobs.Put(ctx, domain.BlobPath(cb.RecordID, timestamp), data)
}

// Submit runs the full admission flow for one clip: find or create the
// user's record, skip on duplicate content, otherwise admit, save, and store
// the payload. It reports whether the clip was dropped as a duplicate.
func (s *Service) Submit(ctx context.Context, userID string, meta domain.ClipMeta, payload []byte) (cb *domain.Clipboard, duplicate bool, err error) {
	cb, err = s.Records.FindByUser(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if cb, err = s.Create(ctx, userID, meta); err != nil {
			return nil, false, err
		}
		s.count(CounterClipsAdmitted, 1)
	case err != nil:
		return nil, false, err
	default:
		if cb.Exists(meta.Hash.CRC32) {
			s.count(CounterClipsDeduplicated, 1)
			return cb, true, nil
		}
		s.Admit(ctx, cb, meta)
		if err = s.Save(ctx, cb); err != nil {
			return nil, false, err
		}
	}
	if err = s.StorePayload(ctx, cb, payload, meta.Timestamp); err != nil {
		return nil, false, err
	}
	return cb, false, nil
}

// History returns metadata-only entries in stored order, recomputed fresh on
// each call.
func (s *Service) History(cb *domain.Clipboard) []domain.ClipMeta {
	return cb.History()
}

// Latest returns the clip matching the record's latest pointer, hydrated
// with its payload. domain.ErrNotFound if the history is empty or the
// pointer matches nothing (should not occur under the invariant, but is
// handled).
func (s *Service) Latest(ctx context.Context, cb *domain.Clipboard) (*Entry, error) {
	if len(cb.Clips) == 0 {
		return nil, domain.ErrNotFound
	}
	return s.ByTimestamp(ctx, cb, cb.Latest)
}

// ByTimestamp returns the clip with the given timestamp hydrated with its
// payload, or domain.ErrNotFound. Payload fetch failures propagate verbatim.
func (s *Service) ByTimestamp(ctx context.Context, cb *domain.Clipboard, timestamp int64) (*Entry, error) {
	meta := cb.Find(timestamp)
	if meta == nil {
		return nil, domain.ErrNotFound
	}
	payload, err := s.Blobs.Get(ctx, domain.BlobPath(cb.RecordID, timestamp))
	if err != nil {
		return nil, err
	}
	return &Entry{ClipMeta: *meta, Payload: payload}, nil
}

// ByTimestamps hydrates every retained clip whose timestamp is in the
// requested set, in stored order. The batch is all-or-nothing: if any
// requested timestamp is absent the whole call fails with
// domain.ErrBatchIncomplete rather than returning a short list.
func (s *Service) ByTimestamps(ctx context.Context, cb *domain.Clipboard, timestamps []int64) ([]Entry, error) {
	want := make(map[int64]struct{}, len(timestamps))
	for _, ts := range timestamps {
		want[ts] = struct{}{}
	}
	var entries []Entry
	for _, meta := range cb.Clips {
		if _, ok := want[meta.Timestamp]; !ok {
			continue
		}
		payload, err := s.Blobs.Get(ctx, domain.BlobPath(cb.RecordID, meta.Timestamp))
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{ClipMeta: meta, Payload: payload})
	}
	if len(entries) != len(timestamps) {
		return nil, domain.ErrBatchIncomplete
	}
	return entries, nil
}

// Reconcile deletes blobs no longer referenced by any record. It is
// idempotent and safe to run periodically; deletion failures are skipped so
// one bad object cannot stall the pass. Returns the number of orphans
// removed.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	paths, err := s.Blobs.List(ctx)
	if err != nil {
		return 0, err
	}
	records, err := s.Records.All(ctx)
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]struct{})
	for _, cb := range records {
		for _, meta := range cb.Clips {
			referenced[domain.BlobPath(cb.RecordID, meta.Timestamp)] = struct{}{}
		}
	}
	removed := 0
	for _, p := range paths {
		if _, ok := referenced[p]; ok {
			continue
		}
		if err := s.Blobs.Delete(ctx, p); err != nil {
			s.count(CounterBlobDeleteFailures, 1)
			continue
		}
		removed++
	}
	return removed, nil
}
