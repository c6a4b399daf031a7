package repository

import (
	"context"
	"fmt"
)

// Open builds the configured store. The memory driver is the default.
func Open(ctx context.Context, opts ...Option) (Store, error) {
	st := settings{
		driver:      DriverMemory,
		sqlitePath:  "perfconsole.db",
		busyTimeout: defaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(&st)
	}

	switch st.driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, st.sqlitePath, st.busyTimeout)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, st.driver)
	}
}
