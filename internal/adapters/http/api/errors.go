package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrMissingParameter = errors.New("missing query parameter")
	ErrMethodNotAllowed = errors.New("method not allowed")
)
