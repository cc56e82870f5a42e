// Package types defines records, record kinds, raw queries, the error
// taxonomy, and the RecordStore and Schema collaborator interfaces shared
// by every Shelf package.
package types
