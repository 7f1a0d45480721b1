package domain

import "strconv"

// CellStatus is the lifecycle state of one matrix cell. The integer values
// are the wire encoding used in zone route files.
type CellStatus int

const (
	StatusOK      CellStatus = 0
	StatusNoRoute CellStatus = 1
	StatusError   CellStatus = 2
	StatusPending CellStatus = 3
)

func (s CellStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNoRoute:
		return "NO_ROUTE"
	case StatusError:
		return "ERROR"
	case StatusPending:
		return "PENDING"
	}
	return "UNKNOWN(" + strconv.Itoa(int(s)) + ")"
}

// Leg is one mode-homogeneous segment of an OK itinerary. Field names are
// abbreviated on the wire to keep per-origin files small.
type Leg struct {
	Mode            string       `json:"m"`
	DurationSeconds int          `json:"d"`
	DistanceMeters  *float64     `json:"dist,omitempty"`
	FromName        string       `json:"fn,omitempty"`
	From            *Coordinates `json:"f,omitempty"`
	ToName          string       `json:"tn,omitempty"`
	To              *Coordinates `json:"t,omitempty"`
	Polyline        string       `json:"p,omitempty"`
	RouteShortName  string       `json:"rs,omitempty"`
	RouteLongName   string       `json:"rl,omitempty"`
}

// Cell is one (origin, destination, period, mode) entry of the matrix.
//
// Invariant: DurationSeconds, TransferCount, WalkDistanceMeters and Legs are
// set iff Status == StatusOK; all are nil/absent otherwise. A cell is created
// PENDING and transitions exactly once to a terminal state; only an explicit
// reset returns it to PENDING.
type Cell struct {
	DestinationID      string     `json:"destinationId"`
	Status             CellStatus `json:"status"`
	DurationSeconds    *int       `json:"duration,omitempty"`
	TransferCount      *int       `json:"transfers,omitempty"`
	WalkDistanceMeters *float64   `json:"walkDistance,omitempty"`
	Legs               []Leg      `json:"legs,omitempty"`
	ErrorMessage       string     `json:"error,omitempty"`
}

// Terminal reports whether the cell has left the PENDING state.
func (c Cell) Terminal() bool { return c.Status != StatusPending }

// ZoneRouteFile is the persisted unit of the matrix: every cell sharing one
// (origin zone, period, mode) key, written together so a whole origin flushes
// in a single atomic file replacement.
type ZoneRouteFile struct {
	FromZoneID   string        `json:"fromId"`
	Period       TimePeriod    `json:"period"`
	Mode         TransportMode `json:"mode"`
	Destinations []Cell        `json:"destinations"`
}

// Find returns the cell for a destination, or nil if the destination is not
// part of this file.
func (f *ZoneRouteFile) Find(destinationID string) *Cell {
	for i := range f.Destinations {
		if f.Destinations[i].DestinationID == destinationID {
			return &f.Destinations[i]
		}
	}
	return nil
}
