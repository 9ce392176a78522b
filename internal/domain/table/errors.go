package table

import "errors"

// Sentinel kinds for table errors.
var (
	ErrPageOutOfRange = errors.New("page out of range")
	ErrInvalidOrder   = errors.New("invalid sort order")
)
