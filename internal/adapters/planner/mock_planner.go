package planner

import (
	"context"
	"sync"

	"access-matrix-service/internal/domain"
	"access-matrix-service/internal/ports"
)

// MockPlanner is an in-memory TripPlanner for tests: a default outcome plus
// per-pair overrides, with a call counter.
type MockPlanner struct {
	mu        sync.Mutex
	calls     int
	def       ports.RouteResult
	overrides map[string]ports.RouteResult
}

func NewMockPlanner(defaultResult ports.RouteResult) *MockPlanner {
	return &MockPlanner{
		def:       defaultResult,
		overrides: make(map[string]ports.RouteResult),
	}
}

// Override scripts the outcome for one origin->destination pair.
func (m *MockPlanner) Override(fromID, toID string, result ports.RouteResult) {
	m.overrides[fromID+"|"+toID] = result
}

func (m *MockPlanner) PlanTrip(_ context.Context, q ports.TripQuery) (ports.RouteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if r, ok := m.overrides[q.FromZoneID+"|"+q.ToZoneID]; ok {
		return r, nil
	}
	return m.def, nil
}

// Calls returns how many queries the mock has served.
func (m *MockPlanner) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// OKResult builds an OK outcome with the given duration and a single walking
// leg, satisfying the duration/legs/status invariant.
func OKResult(durationSeconds int) ports.RouteResult {
	duration := durationSeconds
	transfers := 0
	walk := float64(durationSeconds) * 1.4

	return ports.RouteResult{
		Status:             domain.StatusOK,
		DurationSeconds:    &duration,
		TransferCount:      &transfers,
		WalkDistanceMeters: &walk,
		Legs: []domain.Leg{
			{Mode: string(domain.ModeWalk), DurationSeconds: durationSeconds},
		},
	}
}

// NoRouteResult builds an empty-itinerary outcome.
func NoRouteResult() ports.RouteResult {
	return ports.RouteResult{Status: domain.StatusNoRoute}
}
