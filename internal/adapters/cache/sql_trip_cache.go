package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"access-matrix-service/internal/platform/obs"
	"access-matrix-service/internal/ports"
)

// SQLTripCache is the Postgres variant of the trip result cache.
type SQLTripCache struct {
	DB *sql.DB
}

func NewSQLTripCache(db *sql.DB) *SQLTripCache {
	return &SQLTripCache{DB: db}
}

// EnsureSchema creates the cache table when missing.
func (s *SQLTripCache) EnsureSchema(ctx context.Context) error {
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
		walk_distance DOUBLE PRECISION,
		legs          TEXT,
		PRIMARY KEY (from_id, to_id, period, mode)
	);
	`)
	if err != nil {
		return fmt.Errorf("trip cache: ensure schema: %w", err)
	}
	return nil
}

func (s *SQLTripCache) Get(ctx context.Context, q ports.TripQuery) (_ ports.RouteResult, _ bool, err error) {
	defer obs.Time(ctx, "trip.cache.Get")(&err)

	if s.DB == nil {
		return ports.RouteResult{}, false, errors.New("trip cache: db is nil")
	}

	var row cacheRow
	err = s.DB.QueryRowContext(ctx, `
	SELECT status, duration, transfers, walk_distance, legs
	FROM trip_cache
	WHERE from_id = $1 AND to_id = $2 AND period = $3 AND mode = $4;
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

func (s *SQLTripCache) Put(ctx context.Context, q ports.TripQuery, result ports.RouteResult) error {
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
	INSERT INTO trip_cache (
		from_id, to_id, period, mode, status, duration, transfers, walk_distance, legs
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (from_id, to_id, period, mode) DO UPDATE
	SET status = EXCLUDED.status,
		duration = EXCLUDED.duration,
		transfers = EXCLUDED.transfers,
		walk_distance = EXCLUDED.walk_distance,
		legs = EXCLUDED.legs;
	`, args...)
	if err != nil {
		return fmt.Errorf("insert trip cache %q -> %q: %w", q.FromZoneID, q.ToZoneID, err)
	}

	return nil
}
