package planner

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"access-matrix-service/internal/config"
	"access-matrix-service/internal/domain"
	"access-matrix-service/internal/ports"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		PlannerBaseURL:        baseURL,
		NumItineraries:        3,
		MaxWalkDistanceMeters: 2000,
		BikeSpeedMPS:          4.5,
		RetryAttempts:         3,
		RetryBackoff:          time.Millisecond,
	}
}

func testQuery() ports.TripQuery {
	return ports.TripQuery{
		FromZoneID: "A",
		ToZoneID:   "B",
		From:       domain.Coordinates{Lat: 65.01, Lon: 25.47},
		To:         domain.Coordinates{Lat: 65.05, Lon: 25.52},
		Period:     domain.PeriodMorning,
		Mode:       domain.ModeWalk,
	}
}

func newTestPlanner(t *testing.T, baseURL string) *OTPPlanner {
	t.Helper()
	p, err := NewOTPPlanner(testConfig(baseURL), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func itineraryBody(durations ...int) string {
	body := `{"plan":{"itineraries":[`
	for i, d := range durations {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(
			`{"duration":%d,"transfers":0,"walkDistance":120.5,"legs":[{"mode":"WALK","duration":%d,"distance":120.5}]}`,
			d, d,
		)
	}
	return body + `]}}`
}

func TestNewOTPPlannerRequiresKeyForRemoteEndpoint(t *testing.T) {
	cfg := testConfig("https://planner.example.com")
	if _, err := NewOTPPlanner(cfg, nil); err == nil {
		t.Fatal("expected error for remote endpoint without credential")
	}

	cfg.PlannerAPIKey = "subscription-key"
	if _, err := NewOTPPlanner(cfg, nil); err != nil {
		t.Fatalf("unexpected error with credential: %v", err)
	}

	if _, err := NewOTPPlanner(testConfig("http://localhost:8080"), nil); err != nil {
		t.Fatalf("unexpected error for local endpoint: %v", err)
	}

	if _, err := NewOTPPlanner(testConfig(""), nil); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestPlanTripPicksMinimumDuration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, itineraryBody(2000, 1500, 1800))
	}))
	defer srv.Close()

	p := newTestPlanner(t, srv.URL)
	result, err := p.PlanTrip(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.StatusOK {
		t.Fatalf("status = %s, want OK", result.Status)
	}
	if result.DurationSeconds == nil || *result.DurationSeconds != 1500 {
		t.Fatalf("duration = %v, want 1500", result.DurationSeconds)
	}
	if len(result.Legs) == 0 {
		t.Fatal("OK result has no legs")
	}
}

func TestPlanTripEmptyItinerariesIsNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"plan":{"itineraries":[]}}`)
	}))
	defer srv.Close()

	p := newTestPlanner(t, srv.URL)
	result, err := p.PlanTrip(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.StatusNoRoute {
		t.Fatalf("status = %s, want NO_ROUTE", result.Status)
	}
	if result.DurationSeconds != nil || result.Legs != nil {
		t.Fatalf("NO_ROUTE result carries OK fields: %+v", result)
	}
}

func TestPlanTripLeglessItineraryIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"plan":{"itineraries":[{"duration":600,"transfers":0,"legs":[]}]}}`)
	}))
	defer srv.Close()

	p := newTestPlanner(t, srv.URL)
	result, err := p.PlanTrip(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.StatusError {
		t.Fatalf("status = %s, want ERROR", result.Status)
	}
	if result.DurationSeconds != nil || result.Legs != nil {
		t.Fatalf("ERROR result carries OK fields: %+v", result)
	}
}

func TestPlanTripApplicationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"id":400,"msg":"origin is outside the routing graph"}}`)
	}))
	defer srv.Close()

	p := newTestPlanner(t, srv.URL)
	result, err := p.PlanTrip(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.StatusError {
		t.Fatalf("status = %s, want ERROR", result.Status)
	}
	if result.ErrorMessage != "origin is outside the routing graph" {
		t.Fatalf("message = %q", result.ErrorMessage)
	}
}

func TestPlanTripRetriesRateLimit(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, itineraryBody(600))
	}))
	defer srv.Close()

	p := newTestPlanner(t, srv.URL)
	result, err := p.PlanTrip(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.StatusOK {
		t.Fatalf("status = %s, want OK after retry", result.Status)
	}
	if got := requests.Load(); got != 2 {
		t.Fatalf("requests = %d, want 2", got)
	}
}

func TestPlanTripRetryBudgetExhausted(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := newTestPlanner(t, srv.URL)
	result, err := p.PlanTrip(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.StatusError {
		t.Fatalf("status = %s, want ERROR once retries are exhausted", result.Status)
	}
	if got := requests.Load(); got != 3 {
		t.Fatalf("requests = %d, want 3 (retry budget)", got)
	}
}

func TestQueryDateResolvesToNextWednesday(t *testing.T) {
	cases := []struct {
		now  time.Time
		want string
	}{
		// Monday -> same week's Wednesday
		{time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), "2026-01-07"},
		// Wednesday counts as the next occurrence
		{time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC), "2026-01-07"},
		// Thursday -> next week's Wednesday
		{time.Date(2026, 1, 8, 10, 0, 0, 0, time.UTC), "2026-01-14"},
	}

	p := newTestPlanner(t, "http://localhost:9999")
	for _, tc := range cases {
		p.Now = func() time.Time { return tc.now }

		got := p.queryDate()
		if got.Weekday() != time.Wednesday {
			t.Errorf("queryDate(%v) = %v, not a Wednesday", tc.now, got)
		}
		if got.Format("2006-01-02") != tc.want {
			t.Errorf("queryDate(%v) = %s, want %s", tc.now, got.Format("2006-01-02"), tc.want)
		}
	}
}

func TestPlanTripSendsModeParameters(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		fmt.Fprint(w, itineraryBody(600))
	}))
	defer srv.Close()

	p := newTestPlanner(t, srv.URL)
	p.Now = func() time.Time { return time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC) }

	q := testQuery()
	if _, err := p.PlanTrip(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"mode=WALK", "maxWalkDistance=2000", "date=01-07-2026", "time=08%3A00am"} {
		if !strings.Contains(query, want) {
			t.Errorf("query %q missing %q", query, want)
		}
	}
}
