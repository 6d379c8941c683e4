// Package sqlite provides a SQLite-backed implementation of the app.RecordStore
// port. One row holds one user's full clipboard record; the clip list is
// serialized as JSON in a single column so every write replaces the record as
// a whole, which is the unit of consistency.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zyncapp/zyncd/internal/app"
	"github.com/zyncapp/zyncd/internal/domain"

	// database/sql SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

var _ app.RecordStore = (*Store)(nil)

// Store implements app.RecordStore using SQLite (via database/sql). It is
// safe for concurrent use; database/sql manages connection pooling and
// serialization.
type Store struct{ db *sql.DB }

// New constructs a Store, initializing the required schema if absent.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	schema := `CREATE TABLE IF NOT EXISTS clipboards (
id INTEGER PRIMARY KEY AUTOINCREMENT,
user TEXT NOT NULL UNIQUE,
clip_count INTEGER NOT NULL,
latest INTEGER NOT NULL,
clips TEXT NOT NULL
);`
	_, err := s.db.Exec(schema)
	return err
}

// FindByUser returns the record owned by userID as a filtered single-row
// query, or domain.ErrNotFound.
func (s *Store) FindByUser(ctx context.Context, userID string) (*domain.Clipboard, error) {
	const q = `SELECT id, clip_count, latest, clips FROM clipboards WHERE user=?`
	cb := domain.Clipboard{UserID: userID}
	var clipsJSON []byte
	row := s.db.QueryRowContext(ctx, q, userID)
	if err := row.Scan(&cb.RecordID, &cb.ClipCount, &cb.Latest, &clipsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(clipsJSON, &cb.Clips); err != nil {
		return nil, fmt.Errorf("decode clips for user %q: %w", userID, err)
	}
	return &cb, nil
}

// Insert stores a freshly built record and assigns its RecordID from the
// generated row id. The user uniqueness constraint makes a second insert for
// the same user fail.
func (s *Store) Insert(ctx context.Context, cb *domain.Clipboard) error {
	clipsJSON, err := json.Marshal(cb.Clips)
	if err != nil {
		return err
	}
	const q = `INSERT INTO clipboards (user, clip_count, latest, clips) VALUES (?,?,?,?)`
	res, err := s.db.ExecContext(ctx, q, cb.UserID, cb.ClipCount, cb.Latest, clipsJSON)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	cb.RecordID = id
	return nil
}

// Upsert writes the full record inside one transaction. No partial-field
// updates and no version check: concurrent writers resolve last-write-wins.
func (s *Store) Upsert(ctx context.Context, cb *domain.Clipboard) error {
	clipsJSON, err := json.Marshal(cb.Clips)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	const q = `INSERT INTO clipboards (id, user, clip_count, latest, clips) VALUES (?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET clip_count=excluded.clip_count, latest=excluded.latest, clips=excluded.clips`
	if _, err = tx.ExecContext(ctx, q, cb.RecordID, cb.UserID, cb.ClipCount, cb.Latest, clipsJSON); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// All returns every clipboard record; the reconciliation pass uses it to
// compute the set of referenced blob paths.
func (s *Store) All(ctx context.Context) ([]domain.Clipboard, error) {
	const q = `SELECT id, user, clip_count, latest, clips FROM clipboards`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Clipboard
	for rows.Next() {
		var cb domain.Clipboard
		var clipsJSON []byte
		if err = rows.Scan(&cb.RecordID, &cb.UserID, &cb.ClipCount, &cb.Latest, &clipsJSON); err != nil {
			return nil, err
		}
		if err = json.Unmarshal(clipsJSON, &cb.Clips); err != nil {
			return nil, fmt.Errorf("decode clips for user %q: %w", cb.UserID, err)
		}
		out = append(out, cb)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
