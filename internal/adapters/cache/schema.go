package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"access-matrix-service/internal/domain"
	"access-matrix-service/internal/ports"
)

// Trip caches store terminal planner outcomes keyed by
// (from_id, to_id, period, mode). ERROR outcomes are never cached: they may
// be transient and must stay retryable.

type cacheRow struct {
	status       int
	duration     sql.NullInt64
	transfers    sql.NullInt64
	walkDistance sql.NullFloat64
	legsJSON     sql.NullString
}

func (r cacheRow) result() (ports.RouteResult, error) {
	out := ports.RouteResult{Status: domain.CellStatus(r.status)}
	if out.Status != domain.StatusOK {
		return out, nil
	}

	if r.duration.Valid {
		d := int(r.duration.Int64)
		out.DurationSeconds = &d
	}
	if r.transfers.Valid {
		t := int(r.transfers.Int64)
		out.TransferCount = &t
	}
	if r.walkDistance.Valid {
		w := r.walkDistance.Float64
		out.WalkDistanceMeters = &w
	}
	if r.legsJSON.Valid && r.legsJSON.String != "" {
		if err := json.Unmarshal([]byte(r.legsJSON.String), &out.Legs); err != nil {
			return ports.RouteResult{}, fmt.Errorf("trip cache: unmarshal legs: %w", err)
		}
	}
	return out, nil
}

func rowArgs(q ports.TripQuery, result ports.RouteResult) ([]any, error) {
	var duration, transfers any
	var walkDistance any
	var legsJSON any

	if result.DurationSeconds != nil {
		duration = *result.DurationSeconds
	}
	if result.TransferCount != nil {
		transfers = *result.TransferCount
	}
	if result.WalkDistanceMeters != nil {
		walkDistance = *result.WalkDistanceMeters
	}
	if len(result.Legs) > 0 {
		data, err := json.Marshal(result.Legs)
		if err != nil {
			return nil, fmt.Errorf("trip cache: marshal legs: %w", err)
		}
		legsJSON = string(data)
	}

	return []any{
		q.FromZoneID, q.ToZoneID, string(q.Period), string(q.Mode),
		int(result.Status), duration, transfers, walkDistance, legsJSON,
	}, nil
}

// cacheable reports whether an outcome may be persisted.
func cacheable(result ports.RouteResult) bool {
	return result.Status == domain.StatusOK || result.Status == domain.StatusNoRoute
}
