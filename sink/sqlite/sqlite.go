// Package sqlite journals committed records to a SQLite database so a
// store can be restored after a restart.
package sqlite

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/w0rng/tablefeat"
)

const schema = `
CREATE TABLE IF NOT EXISTS tablefeat_records (
	store_id   TEXT    NOT NULL,
	seq        INTEGER NOT NULL,
	data       BLOB    NOT NULL,
	created_at TEXT    NOT NULL,
	PRIMARY KEY (store_id, seq)
)`

var _ tablefeat.Sink = (*Sink)(nil)

type Sink struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite journal at path. Use ":memory:" for an
// in-memory database.
func Open(path string) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %q", path)
	}
	// A single connection keeps ":memory:" databases shared and matches the
	// single-writer store.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "set WAL mode")
		}
	}

	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New uses an already opened database and creates the journal table.
func New(db *sql.DB) (*Sink, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "create schema")
	}
	return &Sink{db: db}, nil
}

// Write inserts one journal entry.
func (s *Sink) Write(storeID string, seq int64, record []byte) error {
	const query = `
		INSERT INTO tablefeat_records (store_id, seq, data, created_at)
		VALUES (?, ?, ?, ?)
	`
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.Exec(query, storeID, seq, record, now); err != nil {
		return errors.Wrapf(err, "insert record %d", seq)
	}
	return nil
}

// Load returns the journal of storeID in seq order.
func (s *Sink) Load(storeID string) ([][]byte, error) {
	const query = `
		SELECT data
		FROM tablefeat_records
		WHERE store_id = ?
		ORDER BY seq ASC
	`
	rows, err := s.db.Query(query, storeID)
	if err != nil {
		return nil, errors.Wrap(err, "query records")
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, errors.Wrap(err, "scan record")
		}
		out = append(out, data)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate records")
	}
	return out, nil
}

// Count returns the number of journal entries for storeID.
func (s *Sink) Count(storeID string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM tablefeat_records WHERE store_id = ?`, storeID).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count records")
	}
	return n, nil
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}
