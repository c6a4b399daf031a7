// Package seed generates synthetic observations, submits them to a running
// service and checks the leaderboards that come back.
package seed

import (
	"fmt"
	"time"
)

// Config holds the seed run settings.
type Config struct {
	BaseURL     string        // service base URL
	Athletes    int           // distinct athletes to generate
	Sessions    int           // testing sessions per athlete
	Workers     int           // concurrent submitters
	Timeout     time.Duration // per-request timeout
	Settle      time.Duration // how long to wait for async storage
	MissingRate float64       // probability a metric cell is left empty
	Resubmit    int           // observations posted twice to check dedupe
	Seed        uint64        // generator seed
	Start       time.Time     // date of the first session
}

// Validate checks the settings a run cannot work without.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidOptions)
	case c.Athletes <= 0 || c.Sessions <= 0:
		return fmt.Errorf("%w: athletes and sessions must be positive", ErrInvalidOptions)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidOptions)
	case c.MissingRate < 0 || c.MissingRate >= 1:
		return fmt.Errorf("%w: missing rate must be in [0,1)", ErrInvalidOptions)
	}
	return nil
}

// Observation is the POST /observations body.
type Observation struct {
	ObservationID string              `json:"observation_id"`
	AthleteID     string              `json:"athlete_id"`
	Position      string              `json:"position"`
	Date          string              `json:"date"`
	Metrics       map[string]*float64 `json:"metrics"`
	Height        *float64            `json:"height,omitempty"`
	Weight        *float64            `json:"weight,omitempty"`
}

// Entry is one leaderboard row as served.
type Entry struct {
	Rank      int     `json:"rank"`
	AthleteID string  `json:"athlete_id"`
	Value     float64 `json:"value"`
}

// Leaderboard is the GET /leaderboard body.
type Leaderboard struct {
	Metric  string  `json:"metric"`
	Empty   bool    `json:"empty"`
	Entries []Entry `json:"entries"`
}

type ackResponse struct {
	Status        string `json:"status"`
	Duplicate     bool   `json:"duplicate"`
	ObservationID string `json:"observation_id"`
}

// Stats summarizes a run.
type Stats struct {
	Generated  int
	Accepted   int
	Duplicates int
	Failed     int
	Verified   int
	Duration   time.Duration
}
