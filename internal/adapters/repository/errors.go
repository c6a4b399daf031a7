package repository

import "errors"

// Sentinel errors for observation storage.
var (
	ErrClosed        = errors.New("store closed")
	ErrUnknownDriver = errors.New("unknown store driver")
)
