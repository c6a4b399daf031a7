package stats

import "errors"

// Sentinel errors returned by the engine.
var (
	ErrUnknownAthlete = errors.New("unknown athlete")
	ErrNoScore        = errors.New("athleticism score undefined: no metric values")
)
