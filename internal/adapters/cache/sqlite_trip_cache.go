package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"access-matrix-service/internal/ports"
)

// SQLite backed cache for terminal trip planner results.
type SqliteTripCache struct {
	DB *sql.DB
}

func NewSqliteTripCache(db *sql.DB) *SqliteTripCache {
	return &SqliteTripCache{DB: db}
}

// EnsureSchema creates the cache table when missing.
func (s *SqliteTripCache) EnsureSchema(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("trip cache: db is nil")
	}

	_, err := s.DB.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS trip_cache (
		from_id       TEXT NOT NULL,
		to_id         TEXT NOT NULL,
		period        TEXT NOT NULL,
		mode          TEXT NOT NULL,
		status        INTEGER NOT NULL,
		duration      INTEGER,
		transfers     INTEGER,
		walk_distance REAL,
		legs          TEXT,
		PRIMARY KEY (from_id, to_id, period, mode)
	);
	`)
	if err != nil {
		return fmt.Errorf("trip cache: ensure schema: %w", err)
	}
	return nil
}

func (s *SqliteTripCache) Get(ctx context.Context, q ports.TripQuery) (ports.RouteResult, bool, error) {
	if s.DB == nil {
		return ports.RouteResult{}, false, errors.New("trip cache: db is nil")
	}

	var row cacheRow
	err := s.DB.QueryRowContext(ctx, `
	SELECT status, duration, transfers, walk_distance, legs
	FROM trip_cache
	WHERE from_id = ? AND to_id = ? AND period = ? AND mode = ?;
	`, q.FromZoneID, q.ToZoneID, string(q.Period), string(q.Mode)).
		Scan(&row.status, &row.duration, &row.transfers, &row.walkDistance, &row.legsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.RouteResult{}, false, nil
	}
	if err != nil {
		return ports.RouteResult{}, false, fmt.Errorf("get trip cache: query trip_cache table: %w", err)
	}

	result, err := row.result()
	if err != nil {
		return ports.RouteResult{}, false, fmt.Errorf("get trip cache: %w", err)
	}
	return result, true, nil
}

func (s *SqliteTripCache) Put(ctx context.Context, q ports.TripQuery, result ports.RouteResult) error {
	if s.DB == nil {
		return errors.New("trip cache: db is nil")
	}

	if !cacheable(result) {
		return nil
	}

	args, err := rowArgs(q, result)
	if err != nil {
		return fmt.Errorf("insert trip cache: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT OR REPLACE INTO trip_cache (
		from_id, to_id, period, mode, status, duration, transfers, walk_distance, legs
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, args...)
	if err != nil {
		return fmt.Errorf("insert trip cache %q -> %q: %w", q.FromZoneID, q.ToZoneID, err)
	}

	return nil
}
