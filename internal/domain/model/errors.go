package model

import "errors"

// Sentinel errors for observation parsing and validation.
var (
	ErrInvalidMetricValue = errors.New("invalid metric value")
	ErrUnknownMetric      = errors.New("unknown metric")
	ErrMissingAthlete     = errors.New("athlete id is required")
	ErrInvalidDate        = errors.New("invalid observation date")
)
