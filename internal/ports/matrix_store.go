package ports

import "access-matrix-service/internal/domain"

// Port: crash-safe persistence of the zone x zone x period x mode matrix,
// one file per (origin zone, period, mode).
type MatrixStore interface {
	// Create one all-PENDING route file per (zone, period, mode) key,
	// overwriting any existing file for that key.
	Initialize(zoneIDs []string, periods []domain.TimePeriod, modes []domain.TransportMode) error

	// Read returns (nil, nil) when the key has not been initialized.
	Read(zoneID string, period domain.TimePeriod, mode domain.TransportMode) (*domain.ZoneRouteFile, error)

	// Write replaces the file for the key atomically; on failure the prior
	// content is untouched.
	Write(file *domain.ZoneRouteFile) error

	// UpdateCell read-modify-writes one destination entry within its file.
	UpdateCell(fromID, toID string, period domain.TimePeriod, mode domain.TransportMode, cell domain.Cell) error

	// ApplyUpdates read-modify-writes a batch of destination entries for one
	// origin in a single file replacement.
	ApplyUpdates(fromID string, period domain.TimePeriod, mode domain.TransportMode, updates map[string]domain.Cell) error

	// ResetCells returns the named destinations to PENDING.
	ResetCells(fromID string, period domain.TimePeriod, mode domain.TransportMode, destinationIDs []string) error

	CountByStatus(zoneIDs []string, period domain.TimePeriod, mode domain.TransportMode) (map[domain.CellStatus]int, error)
	AllDurations(zoneIDs []string, period domain.TimePeriod, mode domain.TransportMode) ([]int, error)
	PendingDestinations(fromID string, period domain.TimePeriod, mode domain.TransportMode) ([]string, error)
}
