package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/perfconsole/internal/domain/model"
	"github.com/okian/perfconsole/pkg/metrics"
)

// observedOnLayout keeps lexical order equal to time order.
const observedOnLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore persists observations in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database. Call Migrate before use.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string, busyTimeout time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer at a time; readers go through WAL.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	s := NewSQLiteStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Append(ctx context.Context, o model.Observation) (bool, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreAppendLatency(metrics.Since(start)) }()

	o, err := prepare(o)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO observations (observation_id, athlete_id, position, observed_on,
			max_speed, vertical, bench, squat, height, weight, body_fat, wingspan, image_url, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(observation_id) DO NOTHING
	`, o.ID, o.AthleteID, o.Position, o.Date.UTC().Format(observedOnLayout),
		nullFloat(o.Value(model.MaxSpeed)), nullFloat(o.Value(model.Vertical)),
		nullFloat(o.Value(model.Bench)), nullFloat(o.Value(model.Squat)),
		nullFloat(o.Height), nullFloat(o.Weight), nullFloat(o.BodyFat), nullFloat(o.Wingspan),
		nullString(o.ImageURL), time.Now().UTC())
	if err != nil {
		metrics.RecordStoreError("append")
		return false, fmt.Errorf("insert observation %s: %w", o.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) Snapshot(ctx context.Context) (model.Snapshot, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreSnapshotLatency(metrics.Since(start)) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT observation_id, athlete_id, position, observed_on,
			max_speed, vertical, bench, squat, height, weight, body_fat, wingspan, image_url
		FROM observations
		ORDER BY observed_on, seq
	`)
	if err != nil {
		metrics.RecordStoreError("snapshot")
		return model.Snapshot{}, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []model.Observation
	for rows.Next() {
		var (
			o                                 model.Observation
			observedOn                        string
			speed, vert, bench, squat         sql.NullFloat64
			height, weight, bodyFat, wingspan sql.NullFloat64
			imageURL                          sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.AthleteID, &o.Position, &observedOn,
			&speed, &vert, &bench, &squat, &height, &weight, &bodyFat, &wingspan, &imageURL); err != nil {
			metrics.RecordStoreError("snapshot")
			return model.Snapshot{}, fmt.Errorf("scan observation: %w", err)
		}
		if o.Date, err = time.Parse(observedOnLayout, observedOn); err != nil {
			return model.Snapshot{}, fmt.Errorf("observation %s: %w", o.ID, err)
		}
		o.Values = map[model.Metric]model.Optional[float64]{
			model.MaxSpeed: fromNullFloat(speed),
			model.Vertical: fromNullFloat(vert),
			model.Bench:    fromNullFloat(bench),
			model.Squat:    fromNullFloat(squat),
		}
		o.Height = fromNullFloat(height)
		o.Weight = fromNullFloat(weight)
		o.BodyFat = fromNullFloat(bodyFat)
		o.Wingspan = fromNullFloat(wingspan)
		if imageURL.Valid {
			o.ImageURL = model.Some(imageURL.String)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return model.Snapshot{}, fmt.Errorf("iterate observations: %w", err)
	}
	return model.NewSnapshot(out), nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM observations").Scan(&n); err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

func nullFloat(v model.Optional[float64]) sql.NullFloat64 {
	f, ok := v.Get()
	return sql.NullFloat64{Float64: f, Valid: ok}
}

func fromNullFloat(v sql.NullFloat64) model.Optional[float64] {
	if !v.Valid {
		return model.None[float64]()
	}
	return model.Measure(v.Float64)
}

func nullString(v model.Optional[string]) sql.NullString {
	s, ok := v.Get()
	return sql.NullString{String: s, Valid: ok}
}
