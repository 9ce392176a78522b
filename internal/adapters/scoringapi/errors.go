package scoringapi

import "errors"

// Sentinel kinds for scoring API errors. The front ends treat them alike;
// they exist so logs and metrics can tell them apart.
var (
	ErrTransport        = errors.New("scoring api transport failed")
	ErrUnexpectedStatus = errors.New("scoring api unexpected status")
	ErrDecode           = errors.New("scoring api response decode failed")
	ErrEmptyPath        = errors.New("scoring api file path is empty")
)
