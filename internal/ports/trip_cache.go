package ports

import "context"

// Optional persistent cache of terminal trip planner results, keyed by
// (fromZoneId, toZoneId, period, mode). Lets a re-initialized matrix be
// repopulated without re-querying the external service.
type TripCache interface {
	Get(ctx context.Context, q TripQuery) (result RouteResult, ok bool, err error)
	Put(ctx context.Context, q TripQuery, result RouteResult) error
}
