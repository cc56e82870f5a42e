// Package sqlite provides the public factory for the SQLite record store.
// The implementation stays internal; callers see only types.RecordStore.
package sqlite

import (
	"github.com/mesh-intelligence/shelf/internal/sqlite"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// DBFile is the database file created inside the data directory.
const DBFile = sqlite.DBFile

// NewStore opens or creates the SQLite database in dataDir.
//
// Example:
//
//	store, err := sqlite.NewStore(".shelf-data")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	records, err := store.Load(ctx, kind)
func NewStore(dataDir string) (types.RecordStore, error) {
	s, err := sqlite.Open(dataDir)
	if err != nil {
		return nil, err
	}
	return s, nil
}
