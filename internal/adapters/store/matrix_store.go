package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"access-matrix-service/internal/domain"
)

// FileMatrixStore persists the travel-time matrix as one JSON file per
// (origin zone, period, mode) under a data directory.
//
// The store assumes a single writer process; concurrent processes writing the
// same origin file are unsupported.
type FileMatrixStore struct {
	dir string
}

func NewFileMatrixStore(dir string) *FileMatrixStore {
	return &FileMatrixStore{dir: dir}
}

func (s *FileMatrixStore) path(zoneID string, period domain.TimePeriod, mode domain.TransportMode) string {
	name := fmt.Sprintf("routes_%s_%s_%s.json", zoneID, period, mode)
	return filepath.Join(s.dir, name)
}

// Initialize creates one route file per (zone, period, mode) with every
// destination PENDING. Existing files for a key are overwritten, not merged.
func (s *FileMatrixStore) Initialize(zoneIDs []string, periods []domain.TimePeriod, modes []domain.TransportMode) error {
	if len(zoneIDs) == 0 {
		return errors.New("initialize matrix: zone list must not be empty")
	}

	for _, period := range periods {
		for _, mode := range modes {
			for _, from := range zoneIDs {
				file := &domain.ZoneRouteFile{
					FromZoneID:   from,
					Period:       period,
					Mode:         mode,
					Destinations: make([]domain.Cell, 0, len(zoneIDs)-1),
				}
				for _, to := range zoneIDs {
					if to == from {
						continue
					}
					file.Destinations = append(file.Destinations, domain.Cell{
						DestinationID: to,
						Status:        domain.StatusPending,
					})
				}

				if err := s.Write(file); err != nil {
					return fmt.Errorf("initialize matrix: %w", err)
				}
			}
		}
	}

	return nil
}

// Read returns (nil, nil) when the key has not been initialized.
func (s *FileMatrixStore) Read(zoneID string, period domain.TimePeriod, mode domain.TransportMode) (*domain.ZoneRouteFile, error) {
	var file domain.ZoneRouteFile
	err := readJSON(s.path(zoneID, period, mode), &file)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read route file: %w", err)
	}
	return &file, nil
}

func (s *FileMatrixStore) Write(file *domain.ZoneRouteFile) error {
	if file.FromZoneID == "" {
		return errors.New("write route file: origin zone id must not be empty")
	}
	if err := writeJSONAtomic(s.path(file.FromZoneID, file.Period, file.Mode), file); err != nil {
		return fmt.Errorf("write route file: %w", err)
	}
	return nil
}

// UpdateCell read-modify-writes one destination entry within its file.
func (s *FileMatrixStore) UpdateCell(fromID, toID string, period domain.TimePeriod, mode domain.TransportMode, cell domain.Cell) error {
	return s.ApplyUpdates(fromID, period, mode, map[string]domain.Cell{toID: cell})
}

// ApplyUpdates read-modify-writes a batch of destination entries for one
// origin, replacing the file once.
func (s *FileMatrixStore) ApplyUpdates(fromID string, period domain.TimePeriod, mode domain.TransportMode, updates map[string]domain.Cell) error {
	if len(updates) == 0 {
		return nil
	}

	file, err := s.Read(fromID, period, mode)
	if err != nil {
		return fmt.Errorf("apply updates: %w", err)
	}
	if file == nil {
		return fmt.Errorf("apply updates: route file for zone %q period %s mode %s not initialized", fromID, period, mode)
	}

	for toID, cell := range updates {
		entry := file.Find(toID)
		if entry == nil {
			return fmt.Errorf("apply updates: destination %q not present in route file for zone %q", toID, fromID)
		}
		cell.DestinationID = toID
		*entry = cell
	}

	return s.Write(file)
}

// ResetCells returns the named destinations to PENDING, clearing any result
// fields. This is the only transition out of a terminal state.
func (s *FileMatrixStore) ResetCells(fromID string, period domain.TimePeriod, mode domain.TransportMode, destinationIDs []string) error {
	updates := make(map[string]domain.Cell, len(destinationIDs))
	for _, toID := range destinationIDs {
		updates[toID] = domain.Cell{DestinationID: toID, Status: domain.StatusPending}
	}
	return s.ApplyUpdates(fromID, period, mode, updates)
}

// CountByStatus tallies cell statuses over the given origin zones.
// Uninitialized origins are skipped.
func (s *FileMatrixStore) CountByStatus(zoneIDs []string, period domain.TimePeriod, mode domain.TransportMode) (map[domain.CellStatus]int, error) {
	counts := map[domain.CellStatus]int{
		domain.StatusOK:      0,
		domain.StatusNoRoute: 0,
		domain.StatusError:   0,
		domain.StatusPending: 0,
	}

	for _, zoneID := range zoneIDs {
		file, err := s.Read(zoneID, period, mode)
		if err != nil {
			return nil, fmt.Errorf("count by status: %w", err)
		}
		if file == nil {
			continue
		}
		for _, cell := range file.Destinations {
			counts[cell.Status]++
		}
	}

	return counts, nil
}

// AllDurations collects every OK cell duration over the given origin zones,
// sorted ascending.
func (s *FileMatrixStore) AllDurations(zoneIDs []string, period domain.TimePeriod, mode domain.TransportMode) ([]int, error) {
	var durations []int

	for _, zoneID := range zoneIDs {
		file, err := s.Read(zoneID, period, mode)
		if err != nil {
			return nil, fmt.Errorf("all durations: %w", err)
		}
		if file == nil {
			continue
		}
		for _, cell := range file.Destinations {
			if cell.Status == domain.StatusOK && cell.DurationSeconds != nil {
				durations = append(durations, *cell.DurationSeconds)
			}
		}
	}

	sort.Ints(durations)
	return durations, nil
}

// PendingDestinations lists destinations still awaiting computation for one
// origin. A missing file yields an empty list.
func (s *FileMatrixStore) PendingDestinations(fromID string, period domain.TimePeriod, mode domain.TransportMode) ([]string, error) {
	file, err := s.Read(fromID, period, mode)
	if err != nil {
		return nil, fmt.Errorf("pending destinations: %w", err)
	}
	if file == nil {
		return nil, nil
	}

	var pending []string
	for _, cell := range file.Destinations {
		if cell.Status == domain.StatusPending {
			pending = append(pending, cell.DestinationID)
		}
	}
	return pending, nil
}
