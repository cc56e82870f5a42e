package metrics

import "github.com/mesh-intelligence/shelf/pkg/types"

// Outcome classifies err: nil is ok, a ValidationError is invalid, and
// anything else is an error.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if _, ok := types.KindOf(err); ok {
		return OutcomeInvalid
	}
	return OutcomeError
}
