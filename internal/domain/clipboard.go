// Package domain contains the pure clipboard history model: the per-user
// bounded clip record, its capacity/eviction rule, and blob path derivation.
// No I/O, logging, SQL, or network concerns belong here; everything in this
// package is deterministic and cannot fail against a store.
package domain

import "encoding/json"

// ClipCapacity is the maximum number of clips retained per user. Admitting a
// clip beyond this bound evicts one existing clip first.
const ClipCapacity = 10

// ClipHash is the content fingerprint of a clip payload. Only the CRC32 field
// is interpreted (duplicate detection); it is otherwise client-owned.
type ClipHash struct {
	CRC32 uint32 `json:"crc32"`
}

// ClipMeta is the metadata for one clip. The payload itself lives in blob
// storage at the path derived from the owning record and Timestamp.
//
// Timestamp is client-supplied logical time and doubles as the clip's
// identifier within the history; correct clients never submit duplicates.
// Encryption is opaque client metadata passed through unchanged.
type ClipMeta struct {
	Timestamp   int64           `json:"timestamp"`
	Hash        ClipHash        `json:"hash"`
	Encryption  json.RawMessage `json:"encryption,omitempty"`
	PayloadType string          `json:"payload-type"`
}

// Clipboard is the per-user clip history record. Invariants:
//   - 0 <= len(Clips) <= ClipCapacity
//   - whenever Clips is non-empty, Latest equals the Timestamp of exactly
//     one element of Clips
//   - ClipCount counts total admissions ever, not the current length
//
// RecordID is assigned by the record store on first insert and is immutable
// afterwards; it seeds blob path derivation.
type Clipboard struct {
	RecordID  int64
	UserID    string
	Clips     []ClipMeta
	Latest    int64
	ClipCount int64
}

// NewClipboard builds the record created on a user's first clip submission.
// The RecordID is zero until the record store assigns one.
func NewClipboard(userID string, first ClipMeta) *Clipboard {
	return &Clipboard{
		UserID:    userID,
		Clips:     []ClipMeta{first},
		Latest:    first.Timestamp,
		ClipCount: 1,
	}
}

// Admit appends meta to the history, evicting one clip first if the record is
// at capacity. The eviction target is the clip whose timestamp matches the
// current Latest pointer, matching the deployed contract (not the
// chronologically oldest clip; see DESIGN.md). The evicted metadata is
// returned so the caller can delete its blob; nil means nothing was evicted.
//
// Admit mutates in memory only. Callers persist separately.
func (c *Clipboard) Admit(meta ClipMeta) (evicted *ClipMeta) {
	if len(c.Clips)+1 > ClipCapacity {
		for i, clip := range c.Clips {
			if clip.Timestamp == c.Latest {
				ev := clip
				evicted = &ev
				c.Clips = append(c.Clips[:i], c.Clips[i+1:]...)
				break
			}
		}
	}
	c.Clips = append(c.Clips, meta)
	c.ClipCount++
	c.Latest = meta.Timestamp
	return evicted
}

// Exists reports whether any retained clip carries the given CRC32. Callers
// use it to skip re-admitting identical content.
func (c *Clipboard) Exists(crc32 uint32) bool {
	for _, clip := range c.Clips {
		if clip.Hash.CRC32 == crc32 {
			return true
		}
	}
	return false
}

// History returns a fresh copy of the retained clip metadata in stored
// (arrival) order. Payloads are not included.
func (c *Clipboard) History() []ClipMeta {
	out := make([]ClipMeta, len(c.Clips))
	copy(out, c.Clips)
	return out
}

// Find returns the retained clip with the given timestamp, or nil.
func (c *Clipboard) Find(timestamp int64) *ClipMeta {
	for i := range c.Clips {
		if c.Clips[i].Timestamp == timestamp {
			return &c.Clips[i]
		}
	}
	return nil
}
