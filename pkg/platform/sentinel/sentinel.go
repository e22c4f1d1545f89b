// Package sentinel holds the infrastructure facts stores report. Services
// translate them into coded domain errors; handlers never see them directly.
package sentinel

import "errors"

var (
	// ErrNotFound means the record does not exist, or is no longer visible
	// (soft-deleted tokens, revoked processes).
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness rule rejected the write, e.g. a second
	// pending challenge for a device or a duplicate process id.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable means a backing service could not be reached.
	ErrUnavailable = errors.New("unavailable")
)
