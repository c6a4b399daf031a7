package seed

import "errors"

// Sentinel errors for the seed run.
var (
	ErrUnhealthy      = errors.New("service is not healthy")
	ErrRejected       = errors.New("observation rejected")
	ErrNotSettled     = errors.New("observations were not stored in time")
	ErrRankInvariant  = errors.New("leaderboard violates min-rank ordering")
	ErrNotIdempotent  = errors.New("resubmitted observation was not reported as duplicate")
	ErrInvalidOptions = errors.New("invalid seed options")
)
