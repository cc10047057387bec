package store

import (
	"time"

	"github.com/skypath/gis/pkg/geo"
)

// NodeKind discriminates which domain table owns a node row.
type NodeKind string

const (
	KindVertiport NodeKind = "vertiport"
	KindWaypoint  NodeKind = "waypoint"
	KindAircraft  NodeKind = "aircraft"
)

// Node is the minimal routable-point identity shared by vertiports,
// waypoints, and aircraft.
type Node struct {
	ID   int64
	Kind NodeKind
}

// Location is one timestamped sample of a node's position.
type Location struct {
	NodeID int64
	SampleT time.Time
	Point  geo.Point3
}

// Vertiport is a ground site that is both a routable node and a
// restricted zone.
type Vertiport struct {
	UUID   string
	NodeID int64
	ZoneID int64
	Label  string
	Zone   geo.Polygon
}

// Waypoint is a fixed aerial crossing point.
type Waypoint struct {
	Label     string
	NodeID    int64
	MinAltM   float64
	Location  geo.Point
}

// Aircraft is identified by callsign; its current location is its most
// recent location sample.
type Aircraft struct {
	Callsign    string
	UUID        string
	NodeID      int64
	AltitudeM   float64
	LastUpdated time.Time
	Location    geo.Point
}

// ZoneKind distinguishes a vertiport's own backing zone from a
// caller-declared no-fly zone.
type ZoneKind string

const (
	ZoneVertiport ZoneKind = "vertiport"
	ZoneNofly     ZoneKind = "nofly"
)

// Zone is a dynamically-restricted airspace region, or a vertiport's
// owned footprint.
type Zone struct {
	ID      int64
	Label   string
	Kind    ZoneKind
	Polygon geo.Polygon
	TStart  *time.Time
	TEnd    *time.Time
}

// Active reports whether the zone restricts airspace at any point in
// [tStart, tEnd): permanent zones (both timestamps nil) are always
// active; otherwise the zone's own window must overlap.
func (z Zone) Active(tStart, tEnd time.Time) bool {
	if z.TStart == nil && z.TEnd == nil {
		return true
	}
	if z.TStart != nil && !z.TStart.Before(tEnd) {
		return false
	}
	if z.TEnd != nil && !z.TEnd.After(tStart) {
		return false
	}
	return true
}

// FlightPath is a planned, time-bounded 3D polyline for one aircraft.
type FlightPath struct {
	ID        string
	Aircraft  string // empty if unassigned
	Points    []geo.Point3
	TStart    time.Time
	TEnd      time.Time
	Simulated bool
}

func (p FlightPath) Line() geo.Line {
	return geo.Line{Points: p.Points}
}

// CandidateNode is one row returned by CandidateNodesAt: a node and the
// location sample selected as its position at query time.
type CandidateNode struct {
	Node     Node
	Location Location
}

// Edge is a directed candidate edge between two nodes, as produced by
// CandidateEdges for consumption by the graph builder.
type Edge struct {
	From Node
	To   Node
	FromLoc geo.Point3
	ToLoc   geo.Point3
	CostM   float64
}
