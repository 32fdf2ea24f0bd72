// Package sentinel holds the errors event stores return. Services translate
// them into domain errors.
package sentinel

import "errors"

var (
	// ErrConflict means an event with the same id is already stored.
	ErrConflict = errors.New("event already exists")
	// ErrInvalidInput means the event is missing a field the store keys on.
	ErrInvalidInput = errors.New("invalid event")
)
