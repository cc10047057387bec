package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skypath/gis/internal/apierr"
	"github.com/skypath/gis/internal/store"
	"github.com/skypath/gis/pkg/geo"
)

func squarePolygon(lat, lon float64) geo.Polygon {
	return geo.Polygon{Vertices: []geo.Point{
		{Lat: lat, Lon: lon},
		{Lat: lat + 0.01, Lon: lon},
		{Lat: lat + 0.01, Lon: lon + 0.01},
		{Lat: lat, Lon: lon + 0.01},
		{Lat: lat, Lon: lon},
	}}
}

func TestFakeUpsertVertiportThenGet(t *testing.T) {
	f := New()
	ctx := context.Background()

	_, err := f.ApplyBatch(ctx, []store.Op{
		store.UpsertVertiportOp{UUID: "vp-1", Polygon: squarePolygon(40, -105), Label: "Downtown"},
	})
	if err != nil {
		t.Fatalf("ApplyBatch() error = %v", err)
	}

	v, err := f.GetVertiport(ctx, "vp-1")
	if err != nil {
		t.Fatalf("GetVertiport() error = %v", err)
	}
	if v.Label != "Downtown" {
		t.Errorf("Label = %q, want Downtown", v.Label)
	}
}

func TestFakeApplyBatchRollsBackOnFailure(t *testing.T) {
	f := New()
	ctx := context.Background()

	_, err := f.ApplyBatch(ctx, []store.Op{
		store.UpsertVertiportOp{UUID: "vp-1", Polygon: squarePolygon(40, -105), Label: "Downtown"},
		store.UpsertWaypointOp{Label: "WP1", Point: geo.Point{Lat: 999, Lon: 0}}, // invalid latitude
	})
	if err == nil {
		t.Fatal("expected error from invalid waypoint in batch")
	}

	if _, err := f.GetVertiport(ctx, "vp-1"); !errors.Is(err, apierr.UnknownEndpoint) {
		t.Errorf("expected vertiport to be rolled back, got err = %v", err)
	}
}

func TestFakeAircraftMonotonicity(t *testing.T) {
	f := New()
	ctx := context.Background()
	now := time.Now().UTC()

	apply := func(tSample time.Time) []store.OpResult {
		results, err := f.ApplyBatch(ctx, []store.Op{
			store.UpsertAircraftOp{Callsign: "N1", Point: geo.Point{Lat: 40, Lon: -105}, AltM: 100, TSample: tSample},
		})
		if err != nil {
			t.Fatalf("ApplyBatch() error = %v", err)
		}
		return results
	}

	res := apply(now)
	if !res[0].Applied {
		t.Error("expected first sample to apply")
	}

	res = apply(now.Add(-time.Minute))
	if res[0].Applied {
		t.Error("expected stale sample to be rejected")
	}

	res = apply(now)
	if res[0].Applied {
		t.Error("expected a sample with t == last_updated to be rejected (strict < for acceptance)")
	}

	a, err := f.GetAircraft(ctx, "N1")
	if err != nil {
		t.Fatalf("GetAircraft() error = %v", err)
	}
	if !a.LastUpdated.Equal(now) {
		t.Errorf("LastUpdated = %v, want unchanged at %v", a.LastUpdated, now)
	}
}

func TestFakeCandidateEdgesExcludesAircraftDestination(t *testing.T) {
	f := New()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := f.ApplyBatch(ctx, []store.Op{
		store.UpsertWaypointOp{Label: "WP1", Point: geo.Point{Lat: 40, Lon: -105}},
		store.UpsertWaypointOp{Label: "WP2", Point: geo.Point{Lat: 40.01, Lon: -105.01}},
		store.UpsertAircraftOp{Callsign: "N1", Point: geo.Point{Lat: 40.005, Lon: -105.005}, AltM: 100, TSample: now},
	}); err != nil {
		t.Fatalf("ApplyBatch() error = %v", err)
	}

	edges, err := f.CandidateEdges(ctx, now, time.Minute, nil)
	if err != nil {
		t.Fatalf("CandidateEdges() error = %v", err)
	}
	for _, e := range edges {
		if e.To.Kind == store.KindAircraft {
			t.Errorf("edge %+v targets an aircraft node, which must never be a destination", e)
		}
	}
}

func TestFakeCandidateEdgesBlockedByActiveZone(t *testing.T) {
	f := New()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := f.ApplyBatch(ctx, []store.Op{
		store.UpsertWaypointOp{Label: "WP1", Point: geo.Point{Lat: 40.0, Lon: -105.0}},
		store.UpsertWaypointOp{Label: "WP2", Point: geo.Point{Lat: 40.02, Lon: -105.0}},
		store.UpsertZoneOp{Label: "NOFLY1", Polygon: squarePolygon(40.005, -105.005)},
	}); err != nil {
		t.Fatalf("ApplyBatch() error = %v", err)
	}

	edges, err := f.CandidateEdges(ctx, now, time.Minute, nil)
	if err != nil {
		t.Fatalf("CandidateEdges() error = %v", err)
	}
	for _, e := range edges {
		if e.From.Kind == store.KindWaypoint && e.To.Kind == store.KindWaypoint {
			t.Error("expected WP1->WP2 edge to be blocked by the intersecting no-fly zone")
		}
	}
}
