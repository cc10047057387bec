// Package storetest provides an in-memory stand-in for store.Backend so
// the ingestion, graph, routing, conflict, and query packages can be
// exercised without a live PostgreSQL instance.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/skypath/gis/internal/apierr"
	"github.com/skypath/gis/internal/store"
	"github.com/skypath/gis/pkg/geo"
)

// Fake is a single-process, mutex-guarded implementation of
// store.Backend backed by plain Go maps. It reproduces the same
// upsert, monotonicity, and candidate-edge filtering semantics as the
// PostgreSQL-backed Store, minus durability.
type Fake struct {
	mu sync.Mutex

	nextNodeID int64
	nextZoneID int64

	nodes     map[int64]store.Node
	locations map[int64][]store.Location // append-only history, oldest first

	vertiports  map[string]store.Vertiport // by uuid
	waypoints   map[string]store.Waypoint  // by label
	aircraft    map[string]store.Aircraft  // by callsign
	zones       map[string]store.Zone      // by label
	flightPaths map[string]store.FlightPath
}

// New returns an empty Fake ready for use.
func New() *Fake {
	return &Fake{
		nodes:       make(map[int64]store.Node),
		locations:   make(map[int64][]store.Location),
		vertiports:  make(map[string]store.Vertiport),
		waypoints:   make(map[string]store.Waypoint),
		aircraft:    make(map[string]store.Aircraft),
		zones:       make(map[string]store.Zone),
		flightPaths: make(map[string]store.FlightPath),
	}
}

var _ store.Backend = (*Fake)(nil)

func (f *Fake) allocNode(kind store.NodeKind) store.Node {
	f.nextNodeID++
	n := store.Node{ID: f.nextNodeID, Kind: kind}
	f.nodes[n.ID] = n
	return n
}

func (f *Fake) recordLocation(nodeID int64, t time.Time, p geo.Point3) {
	hist := f.locations[nodeID]
	for i, loc := range hist {
		if loc.SampleT.Equal(t) {
			hist[i].Point = p
			return
		}
	}
	f.locations[nodeID] = append(hist, store.Location{NodeID: nodeID, SampleT: t, Point: p})
}

func (f *Fake) closestLocation(nodeID int64, t time.Time) (store.Location, bool) {
	hist := f.locations[nodeID]
	if len(hist) == 0 {
		return store.Location{}, false
	}
	best := hist[0]
	bestDiff := absDuration(best.SampleT.Sub(t))
	for _, loc := range hist[1:] {
		d := absDuration(loc.SampleT.Sub(t))
		if d < bestDiff {
			best, bestDiff = loc, d
		}
	}
	return best, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// ApplyBatch applies every op atomically: a copy-on-write snapshot is
// taken first so that any per-item failure leaves the Fake unchanged,
// matching the single-transaction semantics of the real backend.
func (f *Fake) ApplyBatch(ctx context.Context, ops []store.Op) ([]store.OpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := f.snapshot()
	results := make([]store.OpResult, len(ops))
	for i, op := range ops {
		res, err := f.applyOp(op)
		if err != nil {
			f.restore(snapshot)
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

type fakeSnapshot struct {
	nextNodeID  int64
	nextZoneID  int64
	nodes       map[int64]store.Node
	locations   map[int64][]store.Location
	vertiports  map[string]store.Vertiport
	waypoints   map[string]store.Waypoint
	aircraft    map[string]store.Aircraft
	zones       map[string]store.Zone
	flightPaths map[string]store.FlightPath
}

func (f *Fake) snapshot() fakeSnapshot {
	s := fakeSnapshot{
		nextNodeID:  f.nextNodeID,
		nextZoneID:  f.nextZoneID,
		nodes:       make(map[int64]store.Node, len(f.nodes)),
		locations:   make(map[int64][]store.Location, len(f.locations)),
		vertiports:  make(map[string]store.Vertiport, len(f.vertiports)),
		waypoints:   make(map[string]store.Waypoint, len(f.waypoints)),
		aircraft:    make(map[string]store.Aircraft, len(f.aircraft)),
		zones:       make(map[string]store.Zone, len(f.zones)),
		flightPaths: make(map[string]store.FlightPath, len(f.flightPaths)),
	}
	for k, v := range f.nodes {
		s.nodes[k] = v
	}
	for k, v := range f.locations {
		cp := make([]store.Location, len(v))
		copy(cp, v)
		s.locations[k] = cp
	}
	for k, v := range f.vertiports {
		s.vertiports[k] = v
	}
	for k, v := range f.waypoints {
		s.waypoints[k] = v
	}
	for k, v := range f.aircraft {
		s.aircraft[k] = v
	}
	for k, v := range f.zones {
		s.zones[k] = v
	}
	for k, v := range f.flightPaths {
		s.flightPaths[k] = v
	}
	return s
}

func (f *Fake) restore(s fakeSnapshot) {
	f.nextNodeID = s.nextNodeID
	f.nextZoneID = s.nextZoneID
	f.nodes = s.nodes
	f.locations = s.locations
	f.vertiports = s.vertiports
	f.waypoints = s.waypoints
	f.aircraft = s.aircraft
	f.zones = s.zones
	f.flightPaths = s.flightPaths
}

func (f *Fake) applyOp(op store.Op) (store.OpResult, error) {
	switch o := op.(type) {
	case store.UpsertVertiportOp:
		return f.upsertVertiport(o)
	case store.UpsertWaypointOp:
		return f.upsertWaypoint(o)
	case store.UpsertZoneOp:
		return f.upsertZone(o)
	case store.UpsertAircraftOp:
		return f.upsertAircraft(o)
	case store.UpsertFlightPathOp:
		return f.upsertFlightPath(o)
	default:
		return store.OpResult{}, fmt.Errorf("%w: storetest: unsupported op %T", apierr.Internal, op)
	}
}

func (f *Fake) upsertVertiport(o store.UpsertVertiportOp) (store.OpResult, error) {
	if err := o.Polygon.Validate(); err != nil {
		return store.OpResult{}, err
	}
	now := time.Now().UTC()
	v, exists := f.vertiports[o.UUID]
	if !exists {
		node := f.allocNode(store.KindVertiport)
		f.nextZoneID++
		v = store.Vertiport{UUID: o.UUID, NodeID: node.ID, ZoneID: f.nextZoneID, Label: o.Label, Zone: o.Polygon}
		f.zones[fmt.Sprintf("vertiport:%s", o.UUID)] = store.Zone{ID: v.ZoneID, Label: fmt.Sprintf("vertiport:%s", o.UUID), Kind: store.ZoneVertiport, Polygon: o.Polygon}
	} else {
		v.Zone = o.Polygon
		if o.Label != "" {
			v.Label = o.Label
		}
		z := f.zones[fmt.Sprintf("vertiport:%s", o.UUID)]
		z.Polygon = o.Polygon
		f.zones[fmt.Sprintf("vertiport:%s", o.UUID)] = z
	}
	f.vertiports[o.UUID] = v
	f.recordLocation(v.NodeID, now, geo.Point3{Lat: o.Polygon.Centroid().Lat, Lon: o.Polygon.Centroid().Lon})
	return store.OpResult{Applied: true}, nil
}

func (f *Fake) upsertWaypoint(o store.UpsertWaypointOp) (store.OpResult, error) {
	if err := geo.ValidatePoint(o.Point); err != nil {
		return store.OpResult{}, err
	}
	w, exists := f.waypoints[o.Label]
	if !exists {
		node := f.allocNode(store.KindWaypoint)
		w = store.Waypoint{Label: o.Label, NodeID: node.ID}
	}
	w.MinAltM = o.MinAltM
	w.Location = o.Point
	f.waypoints[o.Label] = w
	f.recordLocation(w.NodeID, time.Now().UTC(), geo.Point3{Lat: o.Point.Lat, Lon: o.Point.Lon})
	return store.OpResult{Applied: true}, nil
}

func (f *Fake) upsertZone(o store.UpsertZoneOp) (store.OpResult, error) {
	if err := o.Polygon.Validate(); err != nil {
		return store.OpResult{}, err
	}
	if o.TStart != nil && o.TEnd != nil && !o.TStart.Before(*o.TEnd) {
		return store.OpResult{}, fmt.Errorf("%w: zone t_start must precede t_end", apierr.BadGeometry)
	}
	z, exists := f.zones[o.Label]
	if !exists {
		f.nextZoneID++
		z.ID = f.nextZoneID
	}
	z.Label = o.Label
	z.Kind = store.ZoneNofly
	z.Polygon = o.Polygon
	z.TStart = o.TStart
	z.TEnd = o.TEnd
	f.zones[o.Label] = z
	return store.OpResult{Applied: true}, nil
}

func (f *Fake) upsertAircraft(o store.UpsertAircraftOp) (store.OpResult, error) {
	if o.Callsign == "" {
		return store.OpResult{}, fmt.Errorf("%w: missing callsign", apierr.BadTelemetry)
	}
	if !geo.IsFiniteFloat(o.AltM) {
		return store.OpResult{}, fmt.Errorf("%w: non-finite altitude", apierr.BadTelemetry)
	}
	if err := geo.ValidatePoint(o.Point); err != nil {
		return store.OpResult{}, fmt.Errorf("%w: %v", apierr.BadTelemetry, err)
	}
	if o.TSample.After(time.Now().UTC().Add(24 * time.Hour)) {
		return store.OpResult{}, fmt.Errorf("%w: timestamp far in future", apierr.BadTelemetry)
	}

	a, exists := f.aircraft[o.Callsign]
	if !exists {
		node := f.allocNode(store.KindAircraft)
		a = store.Aircraft{Callsign: o.Callsign, UUID: o.UUID, NodeID: node.ID}
	} else if !o.TSample.After(a.LastUpdated) {
		return store.OpResult{Applied: false}, nil
	} else {
		hist := f.locations[a.NodeID]
		kept := hist[:0:0]
		for _, loc := range hist {
			if !loc.SampleT.After(o.TSample) {
				kept = append(kept, loc)
			}
		}
		f.locations[a.NodeID] = kept
	}

	a.AltitudeM = o.AltM
	a.LastUpdated = o.TSample
	a.Location = o.Point
	if o.UUID != "" {
		a.UUID = o.UUID
	}
	f.aircraft[o.Callsign] = a
	f.recordLocation(a.NodeID, o.TSample, geo.Point3{Lat: o.Point.Lat, Lon: o.Point.Lon, Alt: o.AltM})
	return store.OpResult{Applied: true}, nil
}

func (f *Fake) upsertFlightPath(o store.UpsertFlightPathOp) (store.OpResult, error) {
	if len(o.Points) < 2 {
		return store.OpResult{}, fmt.Errorf("%w: flight path needs at least 2 points", apierr.BadGeometry)
	}
	for _, p := range o.Points {
		if !p.IsFinite() {
			return store.OpResult{}, fmt.Errorf("%w: non-finite flight path point", apierr.BadGeometry)
		}
	}
	if !o.TStart.Before(o.TEnd) {
		return store.OpResult{}, fmt.Errorf("%w: t_start must precede t_end", apierr.BadGeometry)
	}
	f.flightPaths[o.ID] = store.FlightPath{
		ID: o.ID, Aircraft: o.Aircraft, Points: o.Points, TStart: o.TStart, TEnd: o.TEnd, Simulated: o.Simulated,
	}
	return store.OpResult{Applied: true}, nil
}

func (f *Fake) GetVertiport(_ context.Context, uuid string) (store.Vertiport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vertiports[uuid]
	if !ok {
		return store.Vertiport{}, fmt.Errorf("%w: vertiport %s", apierr.UnknownEndpoint, uuid)
	}
	return v, nil
}

func (f *Fake) GetWaypoint(_ context.Context, label string) (store.Waypoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.waypoints[label]
	if !ok {
		return store.Waypoint{}, fmt.Errorf("%w: waypoint %s", apierr.UnknownEndpoint, label)
	}
	return w, nil
}

func (f *Fake) GetAircraft(_ context.Context, callsign string) (store.Aircraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.aircraft[callsign]
	if !ok {
		return store.Aircraft{}, fmt.Errorf("%w: aircraft %s", apierr.UnknownEndpoint, callsign)
	}
	return a, nil
}

func (f *Fake) ActiveZones(_ context.Context, tStart, tEnd time.Time) ([]store.Zone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Zone
	for _, z := range f.zones {
		if z.Active(tStart, tEnd) {
			out = append(out, z)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) DeleteVertiport(_ context.Context, uuid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vertiports[uuid]
	if !ok {
		return fmt.Errorf("%w: vertiport %s", apierr.UnknownEndpoint, uuid)
	}
	delete(f.vertiports, uuid)
	delete(f.zones, fmt.Sprintf("vertiport:%s", uuid))
	delete(f.nodes, v.NodeID)
	delete(f.locations, v.NodeID)
	return nil
}

func (f *Fake) DeleteWaypoint(_ context.Context, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.waypoints[label]
	if !ok {
		return fmt.Errorf("%w: waypoint %s", apierr.UnknownEndpoint, label)
	}
	delete(f.waypoints, label)
	delete(f.nodes, w.NodeID)
	delete(f.locations, w.NodeID)
	return nil
}

func (f *Fake) DeleteZone(_ context.Context, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	z, ok := f.zones[label]
	if !ok || z.Kind != store.ZoneNofly {
		return fmt.Errorf("%w: zone %s", apierr.UnknownEndpoint, label)
	}
	delete(f.zones, label)
	return nil
}

func (f *Fake) DeleteAircraft(_ context.Context, callsign string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.aircraft[callsign]
	if !ok {
		return fmt.Errorf("%w: aircraft %s", apierr.UnknownEndpoint, callsign)
	}
	delete(f.aircraft, callsign)
	delete(f.nodes, a.NodeID)
	delete(f.locations, a.NodeID)
	return nil
}

func (f *Fake) DeleteFlightPath(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.flightPaths[id]; !ok {
		return fmt.Errorf("%w: flight path %s", apierr.UnknownEndpoint, id)
	}
	delete(f.flightPaths, id)
	return nil
}

func (f *Fake) CandidateNodesAt(_ context.Context, t time.Time, tolerance time.Duration) ([]store.CandidateNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.candidateNodesLocked(t, tolerance), nil
}

func (f *Fake) candidateNodesLocked(t time.Time, tolerance time.Duration) []store.CandidateNode {
	var out []store.CandidateNode
	for id, n := range f.nodes {
		loc, ok := f.closestLocation(id, t)
		if !ok {
			continue
		}
		if n.Kind == store.KindAircraft && absDuration(loc.SampleT.Sub(t)) >= tolerance {
			continue
		}
		out = append(out, store.CandidateNode{Node: n, Location: loc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Node.ID < out[j].Node.ID })
	return out
}

func (f *Fake) CandidateEdges(_ context.Context, t time.Time, tolerance time.Duration, allowedZoneIDs []int64) ([]store.Edge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	nodes := f.candidateNodesLocked(t, tolerance)

	exempt := make(map[int64]bool, len(allowedZoneIDs))
	for _, id := range allowedZoneIDs {
		exempt[id] = true
	}
	var restricting []store.Zone
	for _, z := range f.zones {
		if z.Active(t, t.Add(time.Nanosecond)) && !exempt[z.ID] {
			restricting = append(restricting, z)
		}
	}

	var edges []store.Edge
	for _, u := range nodes {
		for _, v := range nodes {
			if u.Node.ID == v.Node.ID || v.Node.Kind == store.KindAircraft {
				continue
			}
			line := geo.MakeLine(u.Location.Point, v.Location.Point)
			blocked := false
			for _, z := range restricting {
				if geo.IntersectsLine3D(line, z.Polygon) {
					blocked = true
					break
				}
			}
			if blocked {
				continue
			}
			edges = append(edges, store.Edge{
				From: u.Node, To: v.Node,
				FromLoc: u.Location.Point, ToLoc: v.Location.Point,
				CostM: geo.DistanceM(u.Location.Point.To2D(), v.Location.Point.To2D()),
			})
		}
	}
	return edges, nil
}

func (f *Fake) ZoneIDForVertiportNode(_ context.Context, nodeID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vertiports {
		if v.NodeID == nodeID {
			return v.ZoneID, nil
		}
	}
	return 0, fmt.Errorf("node %d is not a vertiport", nodeID)
}

func (f *Fake) InWindow(_ context.Context, tStart, tEnd time.Time) ([]store.FlightPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.FlightPath
	for _, fp := range f.flightPaths {
		if fp.TStart.Before(tEnd) && fp.TEnd.After(tStart) {
			out = append(out, fp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) PathsOverlappingInTime(ctx context.Context, tStart, tEnd time.Time, path geo.Line, thresholdM float64) ([]store.FlightPath, error) {
	candidates, err := f.InWindow(ctx, tStart, tEnd)
	if err != nil {
		return nil, err
	}
	var out []store.FlightPath
	for _, fp := range candidates {
		if geo.Distance3DLines(path, fp.Line()) <= thresholdM {
			out = append(out, fp)
		}
	}
	return out, nil
}
