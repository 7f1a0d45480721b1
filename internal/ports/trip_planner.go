package ports

import (
	"context"

	"access-matrix-service/internal/domain"
)

// TripQuery is one origin->destination->period->mode question for the trip
// planner. Zone IDs ride along for cache keying; the planner itself only
// consumes the coordinates.
type TripQuery struct {
	FromZoneID string
	ToZoneID   string
	From       domain.Coordinates
	To         domain.Coordinates
	Period     domain.TimePeriod
	Mode       domain.TransportMode
}

// RouteResult is the outcome of one trip planner query, already mapped onto
// the cell state machine. Duration, transfers, walk distance and legs are set
// iff Status == StatusOK.
type RouteResult struct {
	Status             domain.CellStatus
	DurationSeconds    *int
	TransferCount      *int
	WalkDistanceMeters *float64
	Legs               []domain.Leg
	ErrorMessage       string
}

// Cell materializes the result as a matrix cell for a destination.
func (r RouteResult) Cell(destinationID string) domain.Cell {
	return domain.Cell{
		DestinationID:      destinationID,
		Status:             r.Status,
		DurationSeconds:    r.DurationSeconds,
		TransferCount:      r.TransferCount,
		WalkDistanceMeters: r.WalkDistanceMeters,
		Legs:               r.Legs,
		ErrorMessage:       r.ErrorMessage,
	}
}

// Contract for querying the external trip planning service.
//
// Remote outcomes (application errors, empty itineraries, transport failures)
// are reported through RouteResult.Status, never as a non-nil error; the
// error return is reserved for context cancellation.
type TripPlanner interface {
	PlanTrip(ctx context.Context, q TripQuery) (RouteResult, error)
}
