// Package sqlite implements types.RecordStore on a SQLite database. Each
// record is stored as its JSON body alongside its collection, position and
// Id.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// DBFile is the database file name inside the data directory.
const DBFile = "shelf.db"

//go:embed schema.sql
var schemaSQL string

// Store keeps every collection in one SQLite database.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

var _ types.RecordStore = (*Store)(nil)

// Open opens or creates the database in dataDir and applies the schema.
func Open(dataDir string) (*Store, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dataDir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serializes writers inside the process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Load returns the collection ordered by position.
func (s *Store) Load(ctx context.Context, kind types.RecordKind) ([]types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, types.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, body FROM records WHERE collection = ? ORDER BY position`, kind.Collection())
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", kind.Collection(), err)
	}
	defer rows.Close()

	records := []types.Record{}
	for rows.Next() {
		var (
			pos  int64
			body string
		)
		if err := rows.Scan(&pos, &body); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", kind.Collection(), err)
		}
		var r types.Record
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("%w: %s position %d: %v", types.ErrCorruptCollection, kind.Collection(), pos, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", kind.Collection(), err)
	}
	return records, nil
}

// Persist replaces the collection's rows in one transaction.
func (s *Store) Persist(ctx context.Context, kind types.RecordKind, records []types.Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return types.ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, kind.Collection()); err != nil {
		return fmt.Errorf("clearing %s: %w", kind.Collection(), err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (collection, position, id, body) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		body, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", r.ID(), err)
		}
		if _, err := stmt.ExecContext(ctx, kind.Collection(), i, r.ID(), string(body)); err != nil {
			return fmt.Errorf("inserting record %d: %w", r.ID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", kind.Collection(), err)
	}
	return nil
}

// Close closes the database. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
