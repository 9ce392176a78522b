package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUploadFailed = errors.New("upload failed")
	ErrTemplate     = errors.New("template render failed")
)
