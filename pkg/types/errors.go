package types

import (
	"errors"
	"fmt"
)

// ErrorKind names one class of request failure.
type ErrorKind string

// Query validation kinds, in the order the validator checks them.
const (
	MissingValue                ErrorKind = "MissingValue"
	UnknownParameter            ErrorKind = "UnknownParameter"
	MutuallyExclusiveParameters ErrorKind = "MutuallyExclusiveParameters"
	MissingPairedParameter      ErrorKind = "MissingPairedParameter"
	InvalidWildcardSyntax       ErrorKind = "InvalidWildcardSyntax"
	InvalidSortField            ErrorKind = "InvalidSortField"
	UnknownFieldProjection      ErrorKind = "UnknownFieldProjection"
	NonIntegerPaginationValue   ErrorKind = "NonIntegerPaginationValue"
	InvalidPaginationRange      ErrorKind = "InvalidPaginationRange"
)

// Mutation kinds.
const (
	ConflictOnUniqueKey ErrorKind = "ConflictOnUniqueKey"
	RecordNotFound      ErrorKind = "RecordNotFound"
	InvalidRecord       ErrorKind = "InvalidRecord"
)

// ValidationError is the structured failure surfaced to callers.
// One instance is produced per request; the first detected problem wins.
type ValidationError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Newf builds a ValidationError of the given kind.
func Newf(kind ErrorKind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Is matches any ValidationError of the same kind, so the sentinels below
// work with errors.Is regardless of message.
func (e *ValidationError) Is(target error) bool {
	var t *ValidationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of a ValidationError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	return "", false
}

// Sentinels for errors.Is, one per kind.
var (
	ErrMissingValue                = &ValidationError{Kind: MissingValue}
	ErrUnknownParameter            = &ValidationError{Kind: UnknownParameter}
	ErrMutuallyExclusiveParameters = &ValidationError{Kind: MutuallyExclusiveParameters}
	ErrMissingPairedParameter      = &ValidationError{Kind: MissingPairedParameter}
	ErrInvalidWildcardSyntax       = &ValidationError{Kind: InvalidWildcardSyntax}
	ErrInvalidSortField            = &ValidationError{Kind: InvalidSortField}
	ErrUnknownFieldProjection      = &ValidationError{Kind: UnknownFieldProjection}
	ErrNonIntegerPaginationValue   = &ValidationError{Kind: NonIntegerPaginationValue}
	ErrInvalidPaginationRange      = &ValidationError{Kind: InvalidPaginationRange}
	ErrConflictOnUniqueKey         = &ValidationError{Kind: ConflictOnUniqueKey}
	ErrRecordNotFound              = &ValidationError{Kind: RecordNotFound}
	ErrInvalidRecord               = &ValidationError{Kind: InvalidRecord}
)

// Storage and lookup errors.
var (
	ErrInvalidData       = errors.New("invalid record data")
	ErrCorruptCollection = errors.New("collection storage is corrupt")
	ErrKindNotFound      = errors.New("record kind not found")
	ErrShelfDetached     = errors.New("shelf is detached")
	ErrAlreadyAttached   = errors.New("shelf is already attached")
	ErrInvalidKindsFile  = errors.New("invalid kinds file")
	ErrDuplicateKind     = errors.New("duplicate record kind")
	ErrStoreClosed       = errors.New("record store is closed")
)
