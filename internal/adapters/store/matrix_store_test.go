package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"access-matrix-service/internal/domain"
)

var testZones = []string{"A", "B", "C"}

func newTestStore(t *testing.T) *FileMatrixStore {
	t.Helper()
	return NewFileMatrixStore(t.TempDir())
}

func initTestMatrix(t *testing.T, s *FileMatrixStore) {
	t.Helper()
	err := s.Initialize(testZones, []domain.TimePeriod{domain.PeriodMorning}, []domain.TransportMode{domain.ModeWalk})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	initTestMatrix(t, s)

	// Mark one cell so the second initialization provably overwrites it.
	d := 600
	cell := domain.Cell{
		Status:          domain.StatusOK,
		DurationSeconds: &d,
		TransferCount:   new(int),
		Legs:            []domain.Leg{{Mode: "WALK", DurationSeconds: 600}},
	}
	if err := s.UpdateCell("A", "B", domain.PeriodMorning, domain.ModeWalk, cell); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	initTestMatrix(t, s)

	counts, err := s.CountByStatus(testZones, domain.PeriodMorning, domain.ModeWalk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if counts[domain.StatusPending] != 6 {
		t.Errorf("pending = %d, want 6", counts[domain.StatusPending])
	}
	for _, status := range []domain.CellStatus{domain.StatusOK, domain.StatusNoRoute, domain.StatusError} {
		if counts[status] != 0 {
			t.Errorf("%s = %d, want 0", status, counts[status])
		}
	}
}

func TestReadMissingFileReturnsNil(t *testing.T) {
	s := newTestStore(t)

	file, err := s.Read("nope", domain.PeriodMorning, domain.ModeWalk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file != nil {
		t.Fatalf("expected nil file for uninitialized key, got %+v", file)
	}
}

func TestUpdateCellPreservesInvariant(t *testing.T) {
	s := newTestStore(t)
	initTestMatrix(t, s)

	d := 1500
	tr := 1
	w := 350.0
	cell := domain.Cell{
		Status:             domain.StatusOK,
		DurationSeconds:    &d,
		TransferCount:      &tr,
		WalkDistanceMeters: &w,
		Legs:               []domain.Leg{{Mode: "WALK", DurationSeconds: 1500}},
	}
	if err := s.UpdateCell("A", "C", domain.PeriodMorning, domain.ModeWalk, cell); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	file, err := s.Read("A", domain.PeriodMorning, domain.ModeWalk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, got := range file.Destinations {
		isOK := got.Status == domain.StatusOK
		if (got.DurationSeconds != nil) != isOK {
			t.Errorf("dest %s: duration set = %v, status = %s", got.DestinationID, got.DurationSeconds != nil, got.Status)
		}
		if (len(got.Legs) > 0) != isOK {
			t.Errorf("dest %s: legs present = %v, status = %s", got.DestinationID, len(got.Legs) > 0, got.Status)
		}
	}

	got := file.Find("C")
	if got == nil || got.DurationSeconds == nil || *got.DurationSeconds != 1500 {
		t.Fatalf("C duration = %+v, want 1500", got)
	}
}

func TestResetCellsReturnsToPending(t *testing.T) {
	s := newTestStore(t)
	initTestMatrix(t, s)

	d := 900
	cell := domain.Cell{
		Status:          domain.StatusOK,
		DurationSeconds: &d,
		TransferCount:   new(int),
		Legs:            []domain.Leg{{Mode: "WALK", DurationSeconds: 900}},
	}
	if err := s.UpdateCell("A", "B", domain.PeriodMorning, domain.ModeWalk, cell); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.ResetCells("A", domain.PeriodMorning, domain.ModeWalk, []string{"B"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	file, err := s.Read("A", domain.PeriodMorning, domain.ModeWalk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := file.Find("B")
	if got.Status != domain.StatusPending {
		t.Errorf("status = %s, want PENDING", got.Status)
	}
	if got.DurationSeconds != nil || got.Legs != nil {
		t.Errorf("reset cell kept result fields: %+v", got)
	}
}

func TestWriteFailureLeavesOriginalUntouched(t *testing.T) {
	dir := t.TempDir()
	s := NewFileMatrixStore(dir)

	err := s.Initialize([]string{"A", "B"}, []domain.TimePeriod{domain.PeriodMorning}, []domain.TransportMode{domain.ModeWalk})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(dir, "routes_A_MORNING_WALK.json")
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	renameFile = func(oldpath, newpath string) error {
		return errors.New("simulated rename failure")
	}
	defer func() { renameFile = os.Rename }()

	d := 600
	cell := domain.Cell{
		Status:          domain.StatusOK,
		DurationSeconds: &d,
		TransferCount:   new(int),
		Legs:            []domain.Leg{{Mode: "WALK", DurationSeconds: 600}},
	}
	if err := s.UpdateCell("A", "B", domain.PeriodMorning, domain.ModeWalk, cell); err == nil {
		t.Fatal("expected write failure, got nil error")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(before) != string(after) {
		t.Error("original file changed after failed write")
	}

	temps, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(temps) != 0 {
		t.Errorf("temp files left behind: %v", temps)
	}
}

func TestAllDurationsSortedOKOnly(t *testing.T) {
	s := newTestStore(t)
	initTestMatrix(t, s)

	durations := map[string]int{"B": 1800, "C": 600}
	for toID, d := range durations {
		dd := d
		cell := domain.Cell{
			Status:          domain.StatusOK,
			DurationSeconds: &dd,
			TransferCount:   new(int),
			Legs:            []domain.Leg{{Mode: "WALK", DurationSeconds: dd}},
		}
		if err := s.UpdateCell("A", toID, domain.PeriodMorning, domain.ModeWalk, cell); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := s.UpdateCell("B", "A", domain.PeriodMorning, domain.ModeWalk, domain.Cell{Status: domain.StatusNoRoute}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.AllDurations(testZones, domain.PeriodMorning, domain.ModeWalk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{600, 1800}
	if len(got) != len(want) {
		t.Fatalf("durations = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("durations = %v, want %v", got, want)
		}
	}
}
