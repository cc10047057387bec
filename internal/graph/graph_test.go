package graph

import (
	"context"
	"testing"
	"time"

	"github.com/skypath/gis/internal/ingest"
	"github.com/skypath/gis/internal/store"
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

func TestBuildProducesSymmetricEdgesBetweenVertiports(t *testing.T) {
	fake := storetest.New()
	svc := ingest.NewService(fake)
	ctx := context.Background()

	if err := svc.UpdateVertiports(ctx, []ingest.VertiportRecord{
		{UUID: "00000000-0000-4000-8000-00000000000a", Polygon: squarePolygon(40.0, -74.0, 0.001), Label: "A"},
		{UUID: "00000000-0000-4000-8000-00000000000b", Polygon: squarePolygon(40.1, -74.0, 0.001), Label: "B"},
	}); err != nil {
		t.Fatalf("UpdateVertiports() error = %v", err)
	}

	a, _ := fake.GetVertiport(ctx, "00000000-0000-4000-8000-00000000000a")
	b, _ := fake.GetVertiport(ctx, "00000000-0000-4000-8000-00000000000b")

	now := time.Now().UTC()
	g, err := Build(ctx, fake, now, time.Hour, []int64{a.ZoneID, b.ZoneID})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !g.HasVertex(a.NodeID) || !g.HasVertex(b.NodeID) {
		t.Fatalf("expected both vertiport nodes present as vertices")
	}
	if got := len(g.OutEdges(VertexID(a.NodeID))); got != 1 {
		t.Errorf("out-edges from a = %d, want 1", got)
	}
	if got := len(g.OutEdges(VertexID(b.NodeID))); got != 1 {
		t.Errorf("out-edges from b = %d, want 1", got)
	}

	id := g.OutEdges(VertexID(a.NodeID))[0]
	meta, ok := g.Edge(id)
	if !ok {
		t.Fatalf("Edge(%s) not found", id)
	}
	if meta.FromNode != a.NodeID || meta.ToNode != b.NodeID {
		t.Errorf("edge endpoints = %d->%d, want %d->%d", meta.FromNode, meta.ToNode, a.NodeID, b.NodeID)
	}
	if meta.CostM <= 0 {
		t.Errorf("edge cost = %.1f, want > 0", meta.CostM)
	}
}

func TestBuildExcludesAircraftAsDestination(t *testing.T) {
	fake := storetest.New()
	svc := ingest.NewService(fake)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := svc.UpdateVertiports(ctx, []ingest.VertiportRecord{
		{UUID: "00000000-0000-4000-8000-00000000000a", Polygon: squarePolygon(40.0, -74.0, 0.001), Label: "A"},
	}); err != nil {
		t.Fatalf("UpdateVertiports() error = %v", err)
	}
	if _, err := svc.UpdateAircraftPosition(ctx, ingest.AircraftRecord{
		Callsign: "N1", Point: geo.Point{Lat: 40.05, Lon: -74.0}, AltM: 300, TSample: now,
	}); err != nil {
		t.Fatalf("UpdateAircraftPosition() error = %v", err)
	}

	a, _ := fake.GetVertiport(ctx, "00000000-0000-4000-8000-00000000000a")
	ac, _ := fake.GetAircraft(ctx, "N1")

	g, err := Build(ctx, fake, now, time.Hour, []int64{a.ZoneID})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for _, id := range g.OutEdges(VertexID(a.NodeID)) {
		meta, _ := g.Edge(id)
		if meta.ToNode == ac.NodeID {
			t.Errorf("found edge into aircraft node %d, aircraft must never be a destination", ac.NodeID)
		}
	}
	if kind, ok := g.Kind(VertexID(ac.NodeID)); ok && kind == store.KindAircraft && len(g.OutEdges(VertexID(ac.NodeID))) == 0 {
		t.Errorf("expected aircraft node to have outgoing edges as a source")
	}
}

func TestBuildBlocksEdgeCrossingActiveZone(t *testing.T) {
	fake := storetest.New()
	svc := ingest.NewService(fake)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := svc.UpdateVertiports(ctx, []ingest.VertiportRecord{
		{UUID: "00000000-0000-4000-8000-00000000000a", Polygon: squarePolygon(40.0, -74.0, 0.001), Label: "A"},
		{UUID: "00000000-0000-4000-8000-00000000000b", Polygon: squarePolygon(40.1, -74.0, 0.001), Label: "B"},
	}); err != nil {
		t.Fatalf("UpdateVertiports() error = %v", err)
	}
	if err := svc.UpdateZones(ctx, []ingest.ZoneRecord{
		{Label: "blocker", Polygon: squarePolygon(40.04, -74.01, 0.02)},
	}); err != nil {
		t.Fatalf("UpdateZones() error = %v", err)
	}

	a, _ := fake.GetVertiport(ctx, "00000000-0000-4000-8000-00000000000a")
	b, _ := fake.GetVertiport(ctx, "00000000-0000-4000-8000-00000000000b")

	g, err := Build(ctx, fake, now, time.Hour, []int64{a.ZoneID, b.ZoneID})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, id := range g.OutEdges(VertexID(a.NodeID)) {
		meta, _ := g.Edge(id)
		if meta.ToNode == b.NodeID {
			t.Errorf("expected direct a->b edge to be blocked by the restricted zone")
		}
	}
}

func TestBuildExemptsOwnVertiportZones(t *testing.T) {
	fake := storetest.New()
	svc := ingest.NewService(fake)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := svc.UpdateVertiports(ctx, []ingest.VertiportRecord{
		{UUID: "00000000-0000-4000-8000-00000000000a", Polygon: squarePolygon(40.0, -74.0, 0.01), Label: "A"},
		{UUID: "00000000-0000-4000-8000-00000000000b", Polygon: squarePolygon(40.1, -74.0, 0.001), Label: "B"},
	}); err != nil {
		t.Fatalf("UpdateVertiports() error = %v", err)
	}

	a, _ := fake.GetVertiport(ctx, "00000000-0000-4000-8000-00000000000a")
	b, _ := fake.GetVertiport(ctx, "00000000-0000-4000-8000-00000000000b")

	g, err := Build(ctx, fake, now, time.Hour, []int64{a.ZoneID, b.ZoneID})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !g.HasVertex(a.NodeID) {
		t.Fatalf("expected vertiport a to remain a candidate vertex despite its own zone")
	}
	found := false
	for _, id := range g.OutEdges(VertexID(a.NodeID)) {
		meta, _ := g.Edge(id)
		if meta.ToNode == b.NodeID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a->b edge to survive once a's own zone is exempted")
	}
}
