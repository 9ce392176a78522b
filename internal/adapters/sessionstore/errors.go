package sessionstore

import "errors"

// Sentinel kinds for session registry errors.
var (
	ErrNotFound  = errors.New("session not found")
	ErrInvalidID = errors.New("invalid session id")
)
