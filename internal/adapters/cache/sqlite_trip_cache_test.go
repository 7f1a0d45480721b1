package cache

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"access-matrix-service/internal/domain"
	"access-matrix-service/internal/ports"
)

func newTestCache(t *testing.T) *SqliteTripCache {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	c := NewSqliteTripCache(conn)
	if err := c.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func testTripQuery() ports.TripQuery {
	return ports.TripQuery{
		FromZoneID: "A",
		ToZoneID:   "B",
		Period:     domain.PeriodMorning,
		Mode:       domain.ModeWalk,
	}
}

func TestTripCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	q := testTripQuery()

	if _, ok, err := c.Get(ctx, q); err != nil || ok {
		t.Fatalf("cold cache: ok=%v err=%v, want miss", ok, err)
	}

	d := 1500
	tr := 1
	w := 420.5
	put := ports.RouteResult{
		Status:             domain.StatusOK,
		DurationSeconds:    &d,
		TransferCount:      &tr,
		WalkDistanceMeters: &w,
		Legs: []domain.Leg{
			{Mode: "WALK", DurationSeconds: 300},
			{Mode: "BUS", DurationSeconds: 1200, RouteShortName: "4"},
		},
	}
	if err := c.Put(ctx, q, put); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := c.Get(ctx, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Status != domain.StatusOK || *got.DurationSeconds != 1500 || *got.TransferCount != 1 {
		t.Fatalf("got = %+v", got)
	}
	if *got.WalkDistanceMeters != 420.5 {
		t.Errorf("walk distance = %f, want 420.5", *got.WalkDistanceMeters)
	}
	if len(got.Legs) != 2 || got.Legs[1].RouteShortName != "4" {
		t.Fatalf("legs = %+v", got.Legs)
	}
}

func TestTripCacheStoresNoRouteWithoutOKFields(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	q := testTripQuery()

	if err := c.Put(ctx, q, ports.RouteResult{Status: domain.StatusNoRoute}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := c.Get(ctx, q)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v, want hit", ok, err)
	}
	if got.Status != domain.StatusNoRoute {
		t.Fatalf("status = %s, want NO_ROUTE", got.Status)
	}
	if got.DurationSeconds != nil || got.Legs != nil {
		t.Fatalf("NO_ROUTE result carries OK fields: %+v", got)
	}
}

func TestTripCacheSkipsErrorOutcomes(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	q := testTripQuery()

	err := c.Put(ctx, q, ports.RouteResult{Status: domain.StatusError, ErrorMessage: "transient"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok, err := c.Get(ctx, q); err != nil || ok {
		t.Fatalf("ok=%v err=%v, want miss (errors stay retryable)", ok, err)
	}
}
