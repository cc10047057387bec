package store

import (
	"context"
	"time"

	"github.com/skypath/gis/pkg/geo"
)

// Backend is the surface the ingestion, graph, routing, and conflict
// packages consume. *Store implements it against PostgreSQL;
// storetest.Fake implements it in memory so those packages can be
// tested without a live database.
type Backend interface {
	ApplyBatch(ctx context.Context, ops []Op) ([]OpResult, error)

	GetVertiport(ctx context.Context, uuid string) (Vertiport, error)
	GetWaypoint(ctx context.Context, label string) (Waypoint, error)
	GetAircraft(ctx context.Context, callsign string) (Aircraft, error)
	ActiveZones(ctx context.Context, tStart, tEnd time.Time) ([]Zone, error)

	DeleteVertiport(ctx context.Context, uuid string) error
	DeleteWaypoint(ctx context.Context, label string) error
	DeleteZone(ctx context.Context, label string) error
	DeleteAircraft(ctx context.Context, callsign string) error
	DeleteFlightPath(ctx context.Context, id string) error

	CandidateNodesAt(ctx context.Context, t time.Time, tolerance time.Duration) ([]CandidateNode, error)
	CandidateEdges(ctx context.Context, t time.Time, tolerance time.Duration, allowedZoneIDs []int64) ([]Edge, error)
	ZoneIDForVertiportNode(ctx context.Context, nodeID int64) (int64, error)

	InWindow(ctx context.Context, tStart, tEnd time.Time) ([]FlightPath, error)
	PathsOverlappingInTime(ctx context.Context, tStart, tEnd time.Time, path geo.Line, thresholdM float64) ([]FlightPath, error)
}

var _ Backend = (*Store)(nil)

func (s *Store) GetVertiport(ctx context.Context, uuid string) (Vertiport, error) {
	return s.Vertiports.Get(ctx, uuid)
}

func (s *Store) GetWaypoint(ctx context.Context, label string) (Waypoint, error) {
	return s.Waypoints.Get(ctx, label)
}

func (s *Store) GetAircraft(ctx context.Context, callsign string) (Aircraft, error) {
	return s.Aircraft.Get(ctx, callsign)
}

func (s *Store) DeleteVertiport(ctx context.Context, uuid string) error {
	return s.Vertiports.DeleteVertiport(ctx, uuid)
}

func (s *Store) DeleteWaypoint(ctx context.Context, label string) error {
	return s.Waypoints.DeleteWaypoint(ctx, label)
}

func (s *Store) DeleteZone(ctx context.Context, label string) error {
	return s.Zones.DeleteZone(ctx, label)
}

func (s *Store) DeleteAircraft(ctx context.Context, callsign string) error {
	return s.Aircraft.DeleteAircraft(ctx, callsign)
}

func (s *Store) DeleteFlightPath(ctx context.Context, id string) error {
	return s.FlightPaths.DeleteFlightPath(ctx, id)
}

func (s *Store) ActiveZones(ctx context.Context, tStart, tEnd time.Time) ([]Zone, error) {
	return s.Zones.ActiveZones(ctx, tStart, tEnd)
}

func (s *Store) InWindow(ctx context.Context, tStart, tEnd time.Time) ([]FlightPath, error) {
	return s.FlightPaths.InWindow(ctx, tStart, tEnd)
}

func (s *Store) PathsOverlappingInTime(ctx context.Context, tStart, tEnd time.Time, path geo.Line, thresholdM float64) ([]FlightPath, error) {
	return s.FlightPaths.PathsOverlappingInTime(ctx, tStart, tEnd, path, thresholdM)
}
