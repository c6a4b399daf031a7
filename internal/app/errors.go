package service

import "errors"

// Sentinel errors surfaced to the HTTP layer.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("ingest queue is full")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrInvalidRange = errors.New("invalid date range")
)
