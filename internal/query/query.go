// Package query is the query surface (C7): it validates and routes the
// nine operations of spec §4.7 to state ingestion, the graph/routing
// engine, the conflict engine, and the backend's flight-window query,
// shaping their results into the wire-facing response types cmd/server
// binds to HTTP. Grounded on the teacher's cmd/web-server/main.go
// Server struct, which plays the same "thin router over domain
// services" role for the telescope/ADS-B console.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/skypath/gis/internal/apierr"
	"github.com/skypath/gis/internal/conflict"
	"github.com/skypath/gis/internal/ingest"
	"github.com/skypath/gis/internal/routing"
	"github.com/skypath/gis/internal/store"
	"github.com/skypath/gis/pkg/geo"
)

// NodeType mirrors the wire enum on BestPathRequest/CheckIntersectionRequest
// (spec §6): which domain table owns the named endpoint.
type NodeType string

const (
	NodeVertiport NodeType = "VERTIPORT"
	NodeWaypoint  NodeType = "WAYPOINT"
	NodeAircraft  NodeType = "AIRCRAFT"
)

// Service is the query surface: it owns no state of its own beyond the
// backend/ingest/conflict collaborators it was constructed with.
type Service struct {
	backend   store.Backend
	ingest    *ingest.Service
	conflict  *conflict.Engine
	tolerance time.Duration
}

// New wires a Service. tolerance is the candidate-node staleness window
// used by best_path (spec §4.4's "tolerance=1h").
func New(backend store.Backend, ingestSvc *ingest.Service, conflictEngine *conflict.Engine, tolerance time.Duration) *Service {
	return &Service{backend: backend, ingest: ingestSvc, conflict: conflictEngine, tolerance: tolerance}
}

// IsReady reports whether the backend is reachable, by running a cheap
// ActiveZones query that works against any Backend, including
// storetest.Fake. cmd/server's /readyz uses it as is; there is no
// separate PingContext or pool-saturation check.
func (s *Service) IsReady(ctx context.Context) bool {
	_, err := s.backend.ActiveZones(ctx, time.Now().UTC(), time.Now().UTC())
	return err == nil
}

// UpdateVertiports, UpdateWaypoints, UpdateZones, UpdateFlightPath, and
// UpdateAircraftPosition are thin pass-throughs to internal/ingest; the
// query surface adds no validation of its own on the write path (C3
// already owns it), matching spec §4.7's table shape.

func (s *Service) UpdateVertiports(ctx context.Context, records []ingest.VertiportRecord) error {
	return s.ingest.UpdateVertiports(ctx, records)
}

func (s *Service) UpdateWaypoints(ctx context.Context, records []ingest.WaypointRecord) error {
	return s.ingest.UpdateWaypoints(ctx, records)
}

func (s *Service) UpdateZones(ctx context.Context, records []ingest.ZoneRecord) error {
	return s.ingest.UpdateZones(ctx, records)
}

func (s *Service) UpdateFlightPath(ctx context.Context, record ingest.FlightPathRecord) error {
	return s.ingest.UpdateFlightPath(ctx, record)
}

func (s *Service) UpdateAircraftPosition(ctx context.Context, record ingest.AircraftRecord) (applied bool, err error) {
	return s.ingest.UpdateAircraftPosition(ctx, record)
}

// endpoint is a resolved best_path/check_intersection endpoint: its
// routable node id, and (for a vertiport) the zone id owned by it, which
// must be exempted from the candidate graph's zone filter per spec
// §4.4's "the source and destination vertiport's own zones must be
// crossable for departure/arrival".
type endpoint struct {
	nodeID    int64
	zoneID    int64
	hasZone   bool
	nodeExist bool
}

func (s *Service) resolveEndpoint(ctx context.Context, id string, kind NodeType) (endpoint, error) {
	switch kind {
	case NodeVertiport:
		v, err := s.backend.GetVertiport(ctx, id)
		if err != nil {
			return endpoint{}, err
		}
		return endpoint{nodeID: v.NodeID, zoneID: v.ZoneID, hasZone: true, nodeExist: true}, nil
	case NodeWaypoint:
		w, err := s.backend.GetWaypoint(ctx, id)
		if err != nil {
			return endpoint{}, err
		}
		return endpoint{nodeID: w.NodeID, nodeExist: true}, nil
	case NodeAircraft:
		a, err := s.backend.GetAircraft(ctx, id)
		if err != nil {
			return endpoint{}, err
		}
		return endpoint{nodeID: a.NodeID, nodeExist: true}, nil
	default:
		return endpoint{}, fmt.Errorf("%w: unknown endpoint type %q", apierr.UnknownEndpoint, kind)
	}
}

// BestPathRequest mirrors the wire BestPathRequest message (spec §6).
type BestPathRequest struct {
	OriginID   string
	TargetID   string
	OriginType NodeType
	TargetType NodeType
	TStart     time.Time
	TEnd       time.Time
	Limit      int32
}

// BestPathResponse mirrors the wire BestPathResponse message: up to
// Limit candidate routes, each an ordered leg sequence and its total
// distance.
type BestPathResponse struct {
	Paths []Path
}

// Path is one candidate route.
type Path struct {
	Legs        []routing.PathLeg
	DistanceM   float64
}

// BestPath implements spec §4.5/§4.7's best_path operation, including
// the aircraft->vertiport special case (§4.5: "pass only the
// destination's zone id as exempt; the aircraft position is a
// legitimate node location at time t_s").
//
// The underlying A* search produces a single optimal route rather than
// a k-shortest-paths family, so at most one Path is ever returned
// regardless of req.Limit — Limit is honored as a cap, not a target
// (see DESIGN.md's Open Question on alternate-route generation).
func (s *Service) BestPath(ctx context.Context, req BestPathRequest) (BestPathResponse, error) {
	if req.TStart.IsZero() || req.TEnd.IsZero() || !req.TStart.Before(req.TEnd) {
		return BestPathResponse{}, fmt.Errorf("%w: t_start must precede t_end", apierr.BadGeometry)
	}

	origin, err := s.resolveEndpoint(ctx, req.OriginID, req.OriginType)
	if err != nil {
		return BestPathResponse{}, err
	}
	target, err := s.resolveEndpoint(ctx, req.TargetID, req.TargetType)
	if err != nil {
		return BestPathResponse{}, err
	}

	var exempt []int64
	if origin.hasZone {
		exempt = append(exempt, origin.zoneID)
	}
	if target.hasZone {
		exempt = append(exempt, target.zoneID)
	}

	legs, err := routing.BestPath(ctx, s.backend, origin.nodeID, target.nodeID, exempt, req.TStart, s.tolerance)
	if err != nil {
		return BestPathResponse{}, err
	}
	if legs == nil {
		return BestPathResponse{}, nil
	}

	resp := BestPathResponse{Paths: []Path{{Legs: legs, DistanceM: routing.TotalDistanceM(legs)}}}
	if req.Limit > 0 && int32(len(resp.Paths)) > req.Limit {
		resp.Paths = resp.Paths[:req.Limit]
	}
	return resp, nil
}

// CheckIntersectionRequest mirrors the wire CheckIntersectionRequest
// message (spec §6). OriginID/TargetID are carried through for logging
// and audit purposes only — the intersection test itself (spec §4.6)
// operates purely on Path/TStart/TEnd.
type CheckIntersectionRequest struct {
	OriginID string
	TargetID string
	Path     []geo.Point3
	TStart   time.Time
	TEnd     time.Time
}

// CheckIntersection implements spec §4.6/§4.7's check_intersection
// operation.
func (s *Service) CheckIntersection(ctx context.Context, req CheckIntersectionRequest) (bool, error) {
	if !req.TStart.Before(req.TEnd) {
		return false, fmt.Errorf("%w: t_start must precede t_end", apierr.BadGeometry)
	}
	return s.conflict.CheckIntersection(ctx, geo.Line{Points: req.Path}, req.TStart, req.TEnd)
}

// GetFlightsRequest mirrors the wire GetFlightsRequest message (spec §6):
// a rectangular geographic window and a time range.
type GetFlightsRequest struct {
	MinLat, MinLon, MaxLat, MaxLon float64
	TStart, TEnd                   time.Time
}

// FlightRecord mirrors one entry of the wire GetFlightsResponse's
// repeated Flight field: a scheduled path plus its window. Points is the
// full stored polyline; it is not clipped to the requested rectangle.
type FlightRecord struct {
	ID        string
	Aircraft  string
	Points    []geo.Point3
	TStart    time.Time
	TEnd      time.Time
	Simulated bool
}

// GetFlights implements spec §4.7's get_flights operation: flight
// records whose time window overlaps [TStart,TEnd) and that have at
// least one polyline vertex inside the requested rectangle; a path that
// crosses the rectangle only between vertices is not returned.
func (s *Service) GetFlights(ctx context.Context, req GetFlightsRequest) ([]FlightRecord, error) {
	if !req.TStart.Before(req.TEnd) {
		return nil, fmt.Errorf("%w: t_start must precede t_end", apierr.BadGeometry)
	}

	paths, err := s.backend.InWindow(ctx, req.TStart, req.TEnd)
	if err != nil {
		return nil, err
	}

	var out []FlightRecord
	for _, fp := range paths {
		if !polylineInRect(fp.Points, req.MinLat, req.MinLon, req.MaxLat, req.MaxLon) {
			continue
		}
		out = append(out, FlightRecord{
			ID: fp.ID, Aircraft: fp.Aircraft, Points: fp.Points,
			TStart: fp.TStart, TEnd: fp.TEnd, Simulated: fp.Simulated,
		})
	}
	return out, nil
}

// polylineInRect reports whether any vertex of points falls within the
// closed rectangle [minLat,maxLat] x [minLon,maxLon].
func polylineInRect(points []geo.Point3, minLat, minLon, maxLat, maxLon float64) bool {
	for _, p := range points {
		if p.Lat >= minLat && p.Lat <= maxLat && p.Lon >= minLon && p.Lon <= maxLon {
			return true
		}
	}
	return false
}
