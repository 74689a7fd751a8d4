package shared

import "errors"

// Error kinds shared by every domain package. Package sentinels wrap one of
// these so the HTTP layer can map them to a status code.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates input that failed validation.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidInput indicates a request the server cannot interpret.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates a request that collides with existing state.
	ErrConflict = errors.New("conflict")
)
