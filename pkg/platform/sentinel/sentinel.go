// Package sentinel holds the storage-level facts that stores return, wrapped
// or bare, for services to translate into coded domain errors. Input
// validation does not belong here; use pkg/domain-errors.
package sentinel

import "errors"

var (
	// ErrNotFound means no record matched the key.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness rule failed, such as a reused display id
	// or a duplicate (pair, version).
	ErrConflict = errors.New("conflict")
	// ErrUnavailable means the backend could not be reached.
	ErrUnavailable = errors.New("unavailable")
)
