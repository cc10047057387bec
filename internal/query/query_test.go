package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skypath/gis/internal/apierr"
	"github.com/skypath/gis/internal/conflict"
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

func newTestService() (*Service, *ingest.Service) {
	fake := storetest.New()
	ingestSvc := ingest.NewService(fake)
	return New(fake, ingestSvc, conflict.New(fake, conflict.DefaultConfig()), time.Hour), ingestSvc
}

func TestServiceBestPathResolvesVertiportEndpoints(t *testing.T) {
	svc, ingestSvc := newTestService()
	ctx := context.Background()

	if err := ingestSvc.UpdateVertiports(ctx, []ingest.VertiportRecord{
		{UUID: "00000000-0000-4000-8000-00000000000a", Polygon: squarePolygon(40.0, -74.0, 0.001), Label: "A"},
		{UUID: "00000000-0000-4000-8000-00000000000b", Polygon: squarePolygon(40.1, -74.0, 0.001), Label: "B"},
	}); err != nil {
		t.Fatalf("UpdateVertiports() error = %v", err)
	}

	now := time.Now().UTC()
	resp, err := svc.BestPath(ctx, BestPathRequest{
		OriginID: "00000000-0000-4000-8000-00000000000a", OriginType: NodeVertiport,
		TargetID: "00000000-0000-4000-8000-00000000000b", TargetType: NodeVertiport,
		TStart: now, TEnd: now.Add(2 * time.Hour), Limit: 5,
	})
	if err != nil {
		t.Fatalf("BestPath() error = %v", err)
	}
	if len(resp.Paths) != 1 {
		t.Fatalf("len(resp.Paths) = %d, want 1", len(resp.Paths))
	}
	if len(resp.Paths[0].Legs) != 1 {
		t.Errorf("len(legs) = %d, want 1", len(resp.Paths[0].Legs))
	}
}

func TestServiceBestPathUnknownEndpoint(t *testing.T) {
	svc, _ := newTestService()
	now := time.Now().UTC()

	_, err := svc.BestPath(context.Background(), BestPathRequest{
		OriginID: "does-not-exist", OriginType: NodeVertiport,
		TargetID: "also-missing", TargetType: NodeVertiport,
		TStart: now, TEnd: now.Add(time.Hour),
	})
	if !errors.Is(err, apierr.UnknownEndpoint) {
		t.Errorf("err = %v, want wrapping apierr.UnknownEndpoint", err)
	}
}

func TestServiceBestPathRejectsInvertedWindow(t *testing.T) {
	svc, _ := newTestService()
	now := time.Now().UTC()

	_, err := svc.BestPath(context.Background(), BestPathRequest{
		OriginID: "a", OriginType: NodeVertiport,
		TargetID: "b", TargetType: NodeVertiport,
		TStart: now, TEnd: now.Add(-time.Hour),
	})
	if !errors.Is(err, apierr.BadGeometry) {
		t.Errorf("err = %v, want wrapping apierr.BadGeometry", err)
	}
}

func TestServiceCheckIntersectionDelegatesToEngine(t *testing.T) {
	svc, ingestSvc := newTestService()
	ctx := context.Background()
	now := time.Now().UTC()

	q := []geo.Point3{{Lat: 40.05, Lon: -74.001, Alt: 100}, {Lat: 40.05, Lon: -74.0, Alt: 100}}
	if err := ingestSvc.UpdateFlightPath(ctx, ingest.FlightPathRecord{
		ID: "Q", Points: q, TStart: now, TEnd: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("UpdateFlightPath() error = %v", err)
	}

	hit, err := svc.CheckIntersection(ctx, CheckIntersectionRequest{
		Path:   []geo.Point3{{Lat: 40, Lon: -74, Alt: 100}, {Lat: 40.1, Lon: -74, Alt: 100}},
		TStart: now, TEnd: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CheckIntersection() error = %v", err)
	}
	if !hit {
		t.Error("expected intersection = true")
	}
}

func TestServiceGetFlightsFiltersByRectangleAndWindow(t *testing.T) {
	svc, ingestSvc := newTestService()
	ctx := context.Background()
	now := time.Now().UTC()

	inside := []geo.Point3{{Lat: 40.0, Lon: -74.0, Alt: 100}, {Lat: 40.01, Lon: -74.0, Alt: 100}}
	outside := []geo.Point3{{Lat: 50.0, Lon: -74.0, Alt: 100}, {Lat: 50.01, Lon: -74.0, Alt: 100}}

	if err := ingestSvc.UpdateFlightPath(ctx, ingest.FlightPathRecord{
		ID: "in-window-in-rect", Points: inside, TStart: now, TEnd: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("UpdateFlightPath(inside) error = %v", err)
	}
	if err := ingestSvc.UpdateFlightPath(ctx, ingest.FlightPathRecord{
		ID: "in-window-out-rect", Points: outside, TStart: now, TEnd: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("UpdateFlightPath(outside) error = %v", err)
	}

	flights, err := svc.GetFlights(ctx, GetFlightsRequest{
		MinLat: 39.0, MaxLat: 41.0, MinLon: -75.0, MaxLon: -73.0,
		TStart: now, TEnd: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("GetFlights() error = %v", err)
	}
	if len(flights) != 1 {
		t.Fatalf("len(flights) = %d, want 1", len(flights))
	}
	if flights[0].ID != "in-window-in-rect" {
		t.Errorf("flights[0].ID = %q, want %q", flights[0].ID, "in-window-in-rect")
	}
}

func TestServiceIsReady(t *testing.T) {
	svc, _ := newTestService()
	if !svc.IsReady(context.Background()) {
		t.Error("expected a freshly constructed service backed by the fake store to report ready")
	}
}
