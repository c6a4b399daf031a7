package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/perfconsole/pkg/logger"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{ //nolint:gochecknoglobals // ordered schema history
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
			CREATE TABLE observations (
				seq            INTEGER PRIMARY KEY AUTOINCREMENT,
				observation_id TEXT NOT NULL UNIQUE,
				athlete_id     TEXT NOT NULL,
				position       TEXT NOT NULL DEFAULT '',
				observed_on    TEXT NOT NULL,
				max_speed      REAL,
				vertical       REAL,
				bench          REAL,
				squat          REAL,
				height         REAL,
				weight         REAL,
				body_fat       REAL,
				wingspan       REAL,
				image_url      TEXT,
				ingested_at    DATETIME NOT NULL
			);
			CREATE INDEX idx_observations_athlete ON observations(athlete_id);
		`,
	},
	{
		Version:     2,
		Description: "Order snapshots by date",
		SQL:         `CREATE INDEX idx_observations_observed_on ON observations(observed_on, seq);`,
	},
}

// Migrate applies every migration not yet recorded in schema_migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	log := logger.Get().Named("migrations")
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		log.Info(ctx, "applying migration", logger.Int("version", m.Version), logger.String("description", m.Description))

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func (s *SQLiteStore) ensureMigrationsTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *SQLiteStore) getAppliedMigrations(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// SchemaVersion returns the highest applied migration, 0 if none.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var version *int
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		return 0, err
	}
	if version == nil {
		return 0, nil
	}
	return *version, nil
}
