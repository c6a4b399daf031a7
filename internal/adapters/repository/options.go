package repository

import "time"

// Store drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

const defaultBusyTimeout = 5 * time.Second

type settings struct {
	driver      string
	sqlitePath  string
	busyTimeout time.Duration
}

// Option configures Open.
type Option func(*settings)

// WithDriver picks the backing store, "memory" or "sqlite".
func WithDriver(driver string) Option {
	return func(s *settings) {
		if driver != "" {
			s.driver = driver
		}
	}
}

// WithSQLitePath sets the database file used by the sqlite driver.
func WithSQLitePath(path string) Option {
	return func(s *settings) {
		if path != "" {
			s.sqlitePath = path
		}
	}
}

// WithBusyTimeout sets how long sqlite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}
