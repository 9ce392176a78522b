package app

import "errors"

// Sentinel kinds for upload widget errors.
var (
	ErrUnsupportedFile  = errors.New("unsupported file type")
	ErrUploadInProgress = errors.New("upload already in progress")
	ErrClosed           = errors.New("session closed")
)
