package store

import (
	"context"
	"testing"
	"time"

	"github.com/skypath/gis/pkg/geo"
)

func samplePolygon() geo.Polygon {
	return geo.Polygon{Vertices: []geo.Point{
		{Lat: 40.0, Lon: -105.0},
		{Lat: 40.001, Lon: -105.0},
		{Lat: 40.001, Lon: -104.999},
		{Lat: 40.0, Lon: -104.999},
		{Lat: 40.0, Lon: -105.0},
	}}
}

// TestUpsertAircraftOpRejectsMissingCallsign exercises the same guard
// as AircraftRepository.UpsertAircraft, but through the batch op path:
// a sample without a callsign is rejected with an error.
func TestUpsertAircraftOpRejectsMissingCallsign(t *testing.T) {
	// Without a live DB this only validates the op's pre-transaction
	// guard clauses, matching the best-effort style of this package's
	// other backend-dependent tests.
	op := UpsertAircraftOp{
		Callsign: "",
		Point:    geo.Point{Lat: 40, Lon: -105},
		AltM:     100,
		TSample:  time.Now().UTC(),
	}
	if _, err := op.apply(context.Background(), nil); err == nil {
		t.Error("expected error for missing callsign before any tx access")
	}
}

func TestUpsertVertiportOpValidatesPolygon(t *testing.T) {
	op := UpsertVertiportOp{UUID: "vp-1", Polygon: geo.Polygon{}, Label: "test"}
	if _, err := op.apply(context.Background(), nil); err == nil {
		t.Error("expected error for empty polygon")
	}
}

func TestUpsertZoneOpRejectsInvertedWindow(t *testing.T) {
	start := time.Now().UTC()
	end := start.Add(-time.Hour)
	op := UpsertZoneOp{Label: "z1", Polygon: samplePolygon(), TStart: &start, TEnd: &end}
	if _, err := op.apply(context.Background(), nil); err == nil {
		t.Error("expected error for t_start after t_end")
	}
}

func TestUpsertFlightPathOpRequiresTwoPoints(t *testing.T) {
	op := UpsertFlightPathOp{
		ID:     "fp-1",
		Points: []geo.Point3{{Lat: 40, Lon: -105, Alt: 100}},
		TStart: time.Now().UTC(),
		TEnd:   time.Now().UTC().Add(time.Minute),
	}
	if _, err := op.apply(context.Background(), nil); err == nil {
		t.Error("expected error for single-point flight path")
	}
}
