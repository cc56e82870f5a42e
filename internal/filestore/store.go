// Package filestore implements types.RecordStore on JSONL files, one file
// per collection under a data directory.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Extension is the file suffix of a collection file.
const Extension = ".jsonl"

// maxLineSize bounds a single encoded record.
const maxLineSize = 4 << 20

// Store keeps each collection in <dir>/<Collection>.jsonl.
type Store struct {
	dir string

	mu     sync.Mutex
	closed bool
}

var _ types.RecordStore = (*Store)(nil)

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the file backing kind's collection.
func (s *Store) Path(kind types.RecordKind) string {
	return filepath.Join(s.dir, kind.Collection()+Extension)
}

// Load reads the collection file. A missing file is an empty collection; a
// line that does not decode to a record fails the whole load.
func (s *Store) Load(ctx context.Context, kind types.RecordKind) ([]types.Record, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	path := s.Path(kind)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("collection file absent, treating as empty", "collection", kind.Collection(), "path", path)
		return []types.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records := []types.Record{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var r types.Record
		if err := json.Unmarshal(b, &r); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", types.ErrCorruptCollection, path, line, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanning %s: %v", types.ErrCorruptCollection, path, err)
	}
	return records, nil
}

// Persist atomically replaces the collection file.
func (s *Store) Persist(ctx context.Context, kind types.RecordKind, records []types.Record) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	lines := make([][]byte, len(records))
	for i, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", r.ID(), err)
		}
		lines[i] = b
	}
	return writeJSONL(s.Path(kind), lines)
}

// Close marks the store closed. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.ErrStoreClosed
	}
	return nil
}

// writeJSONL writes lines to path using the temp-file, fsync, rename
// pattern.
func writeJSONL(path string, lines [][]byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(step string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", step, err)
	}

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			return fail("writing record", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
