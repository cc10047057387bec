package conflict

import (
	"context"
	"testing"
	"time"

	"github.com/skypath/gis/internal/ingest"
	"github.com/skypath/gis/internal/store/storetest"
	"github.com/skypath/gis/pkg/geo"
)

func squarePolygon(lat, lon, size float64) geo.Polygon {
	return geo.Polygon{Vertices: []geo.Point{
		{Lat: lat, Lon: lon},
		{Lat: lat + size, Lon: lon},
		{Lat: lat + size, Lon: lon + size},
		{Lat: lat, Lon: lon + size},
		{Lat: lat, Lon: lon},
	}}
}

// TestCheckIntersectionSpatialOnly matches spec §8 scenario 4: two
// paths in the same time window whose geometries cross are reported
// as a conflict.
func TestCheckIntersectionSpatialOnly(t *testing.T) {
	fake := storetest.New()
	svc := ingest.NewService(fake)
	ctx := context.Background()
	now := time.Now().UTC()

	q := []geo.Point3{{Lat: 40.05, Lon: -74.001, Alt: 100}, {Lat: 40.05, Lon: -74.0, Alt: 100}}
	if err := svc.UpdateFlightPath(ctx, ingest.FlightPathRecord{
		ID: "Q", Points: q, TStart: now, TEnd: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("UpdateFlightPath() error = %v", err)
	}

	engine := New(fake, DefaultConfig())
	p := geo.Line{Points: []geo.Point3{{Lat: 40, Lon: -74, Alt: 100}, {Lat: 40.1, Lon: -74, Alt: 100}}}

	hit, err := engine.CheckIntersection(ctx, p, now, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("CheckIntersection() error = %v", err)
	}
	if !hit {
		t.Error("expected intersection = true for spatially crossing, temporally overlapping paths")
	}
}

// TestCheckIntersectionTemporallyDisjoint matches spec §8 scenario 5:
// the same crossing geometries, but Q's window starts 24h after P's
// ends — no conflict.
func TestCheckIntersectionTemporallyDisjoint(t *testing.T) {
	fake := storetest.New()
	svc := ingest.NewService(fake)
	ctx := context.Background()
	now := time.Now().UTC()
	pEnd := now.Add(time.Hour)
	qStart := pEnd.Add(24 * time.Hour)

	q := []geo.Point3{{Lat: 40.05, Lon: -74.001, Alt: 100}, {Lat: 40.05, Lon: -74.0, Alt: 100}}
	if err := svc.UpdateFlightPath(ctx, ingest.FlightPathRecord{
		ID: "Q", Points: q, TStart: qStart, TEnd: qStart.Add(time.Hour),
	}); err != nil {
		t.Fatalf("UpdateFlightPath() error = %v", err)
	}

	engine := New(fake, DefaultConfig())
	p := geo.Line{Points: []geo.Point3{{Lat: 40, Lon: -74, Alt: 100}, {Lat: 40.1, Lon: -74, Alt: 100}}}

	hit, err := engine.CheckIntersection(ctx, p, now, pEnd)
	if err != nil {
		t.Fatalf("CheckIntersection() error = %v", err)
	}
	if hit {
		t.Error("expected intersection = false for temporally disjoint paths")
	}
}

// TestCheckIntersectionZoneActivationWindow matches spec §8 scenario 6:
// a path crossing a zone active [10:00,11:00] is a conflict when
// queried at 10:30 but not when queried at 12:00.
func TestCheckIntersectionZoneActivationWindow(t *testing.T) {
	fake := storetest.New()
	svc := ingest.NewService(fake)
	ctx := context.Background()

	day := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	zStart := day.Add(10 * time.Hour)
	zEnd := day.Add(11 * time.Hour)

	if err := svc.UpdateZones(ctx, []ingest.ZoneRecord{
		{Label: "window-zone", Polygon: squarePolygon(40.0, -74.01, 0.02), TStart: &zStart, TEnd: &zEnd},
	}); err != nil {
		t.Fatalf("UpdateZones() error = %v", err)
	}

	engine := New(fake, DefaultConfig())
	p := geo.Line{Points: []geo.Point3{{Lat: 39.95, Lon: -74.0, Alt: 100}, {Lat: 40.05, Lon: -74.0, Alt: 100}}}

	hit, err := engine.CheckIntersection(ctx, p, day.Add(12*time.Hour), day.Add(12*time.Hour+time.Minute))
	if err != nil {
		t.Fatalf("CheckIntersection() at 12:00 error = %v", err)
	}
	if hit {
		t.Error("expected no conflict querying outside the zone's active window")
	}

	hit, err = engine.CheckIntersection(ctx, p, day.Add(10*time.Hour+30*time.Minute), day.Add(10*time.Hour+31*time.Minute))
	if err != nil {
		t.Fatalf("CheckIntersection() at 10:30 error = %v", err)
	}
	if !hit {
		t.Error("expected conflict querying inside the zone's active window")
	}
}

// TestCheckIntersectionRejectsMalformedPath confirms the only failure
// mode is malformed input (spec §7: "Intersection check never fails for
// 'no conflict found'; only for malformed input").
func TestCheckIntersectionRejectsMalformedPath(t *testing.T) {
	fake := storetest.New()
	engine := New(fake, DefaultConfig())
	now := time.Now().UTC()

	_, err := engine.CheckIntersection(context.Background(), geo.Line{Points: []geo.Point3{{Lat: 40, Lon: -74}}}, now, now.Add(time.Hour))
	if err == nil {
		t.Error("expected error for a single-point line")
	}
}
