// Package conflict implements the intersection engine (spec §4.6): a
// zone hard-reject short-circuit followed by recursive-bisection
// temporal-spatial proximity testing against other scheduled flight
// paths. Grounded on the teacher's pkg/tracking great-circle segment
// math (interpolation, point-to-segment distance) generalized from a
// single-point "is the aircraft near this waypoint" test into a
// whole-polyline pairwise conflict predicate.
package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/skypath/gis/internal/apierr"
	"github.com/skypath/gis/internal/store"
	"github.com/skypath/gis/pkg/geo"
)

// Config tunes the engine per spec §4.6: ThresholdM is the THRESHOLD
// meter distance (default 300), MinLenM is the MIN_LEN bisection floor
// (default 10).
type Config struct {
	ThresholdM float64
	MinLenM    float64
}

// DefaultConfig returns the spec's stated defaults.
func DefaultConfig() Config {
	return Config{ThresholdM: 300, MinLenM: 10}
}

// Engine checks a proposed flight path against active restricted zones
// and other scheduled flight paths.
type Engine struct {
	backend store.Backend
	cfg     Config
}

// New wires an Engine to a backend with the given tuning.
func New(backend store.Backend, cfg Config) *Engine {
	return &Engine{backend: backend, cfg: cfg}
}

// CheckIntersection implements spec §4.6 in full: a zone hard-reject
// (phase 1) followed by recursive-bisection proximity testing against
// every scheduled path the backend reports as a coarse candidate
// (phase 2). It returns true as soon as any conflict is found; it never
// fails for "no conflict found", only for malformed input (spec §7).
func (e *Engine) CheckIntersection(ctx context.Context, path geo.Line, tStart, tEnd time.Time) (bool, error) {
	if err := path.Validate(); err != nil {
		return false, err
	}
	if !tStart.Before(tEnd) {
		return false, fmt.Errorf("%w: t_start must precede t_end", apierr.BadGeometry)
	}

	zones, err := e.backend.ActiveZones(ctx, tStart, tEnd)
	if err != nil {
		return false, err
	}
	for _, z := range zones {
		if geo.IntersectsLine3D(path, z.Polygon) {
			return true, nil
		}
	}

	candidates, err := e.backend.PathsOverlappingInTime(ctx, tStart, tEnd, path, e.cfg.ThresholdM)
	if err != nil {
		return false, err
	}
	for _, q := range candidates {
		if e.bisect(path, q.Line(), tStart, tEnd, q.TStart, q.TEnd) {
			return true, nil
		}
	}
	return false, nil
}

// bisect is the recursive-bisection predicate from spec §4.6: time
// disjointness or spatial separation beyond ThresholdM proves no
// conflict; both polylines shrinking below MinLenM while still close
// proves one. Otherwise both P and Q are split at their arc-length
// midpoint, their time windows split at the same proportion (the
// design's "two paths sharing a corridor hours apart" trick — see spec
// §4.6 notes), and the two resulting half-pairs are checked recursively.
func (e *Engine) bisect(p, q geo.Line, tpStart, tpEnd, tqStart, tqEnd time.Time) bool {
	if !timeOverlaps(tpStart, tpEnd, tqStart, tqEnd) {
		return false
	}
	if geo.Distance3DLines(p, q) > e.cfg.ThresholdM {
		return false
	}
	if p.Length() < e.cfg.MinLenM && q.Length() < e.cfg.MinLenM {
		return true
	}

	p1, p2 := p.Midpoint()
	q1, q2 := q.Midpoint()
	tpMid := midTime(tpStart, tpEnd)
	tqMid := midTime(tqStart, tqEnd)

	return e.bisect(p1, q1, tpStart, tpMid, tqStart, tqMid) ||
		e.bisect(p2, q2, tpMid, tpEnd, tqMid, tqEnd)
}

// timeOverlaps reports whether [aStart,aEnd) and [bStart,bEnd) overlap.
func timeOverlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// midTime returns the time exactly halfway between start and end,
// matching the "proportionally split" arc-length midpoint used on the
// spatial side.
func midTime(start, end time.Time) time.Time {
	return start.Add(end.Sub(start) / 2)
}
