package services

import (
	"access-matrix-service/internal/domain"
	"access-matrix-service/internal/ports"
)

// cellBuffer accumulates computed cells for one (origin, period) and flushes
// them to the store as a single file replacement. Staging many cells per
// write bounds I/O amplification; an abrupt termination loses at most one
// unflushed batch, which the PENDING state machine recomputes on the next
// run.
//
// The buffer is not goroutine safe; the scheduler stages and flushes under
// its own lock.
type cellBuffer struct {
	fromID string
	period domain.TimePeriod
	mode   domain.TransportMode
	staged map[string]domain.Cell
}

func newCellBuffer(fromID string, period domain.TimePeriod, mode domain.TransportMode) *cellBuffer {
	return &cellBuffer{
		fromID: fromID,
		period: period,
		mode:   mode,
		staged: make(map[string]domain.Cell),
	}
}

func (b *cellBuffer) Stage(cell domain.Cell) {
	b.staged[cell.DestinationID] = cell
}

func (b *cellBuffer) Len() int { return len(b.staged) }

// Flush writes staged cells through the store and clears the buffer. On
// failure the staged cells are kept so a retry (or the resumable state
// machine) can recover them.
func (b *cellBuffer) Flush(store ports.MatrixStore) error {
	if len(b.staged) == 0 {
		return nil
	}

	if err := store.ApplyUpdates(b.fromID, b.period, b.mode, b.staged); err != nil {
		return err
	}

	b.staged = make(map[string]domain.Cell)
	return nil
}
