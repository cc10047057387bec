package geo

import (
	"fmt"
	"math"

	"github.com/skypath/gis/internal/apierr"
)

// Line is an ordered 3D polyline. A two-point line is the common case
// (a single routing edge); a flight path or a segmentized edge may carry
// more vertices.
type Line struct {
	Points []Point3
}

// MakeLine builds a two-point line between p1 and p2.
func MakeLine(p1, p2 Point3) Line {
	return Line{Points: []Point3{p1, p2}}
}

// Validate rejects a line with fewer than two vertices or any non-finite
// coordinate.
func (l Line) Validate() error {
	if len(l.Points) < 2 {
		return fmt.Errorf("%w: line has %d vertices, need at least 2", apierr.BadGeometry, len(l.Points))
	}
	for _, p := range l.Points {
		if !p.IsFinite() {
			return fmt.Errorf("%w: non-finite line vertex %+v", apierr.BadGeometry, p)
		}
	}
	return nil
}

// StartPoint returns the line's first vertex.
func (l Line) StartPoint() Point3 { return l.Points[0] }

// EndPoint returns the line's last vertex.
func (l Line) EndPoint() Point3 { return l.Points[len(l.Points)-1] }

// Length returns the line's total length in meters, summed great-circle
// distance segment by segment (altitude is folded in via local-tangent
// 3D distance, consistent with Distance3DM).
func (l Line) Length() float64 {
	var total float64
	for i := 1; i < len(l.Points); i++ {
		total += Distance3DM(l.Points[i-1], l.Points[i])
	}
	return total
}

// Segmentize splits a line into sub-segments each no longer than maxLenM,
// by inserting great-circle-interpolated vertices. Neither the
// recursive-bisection intersection check (C6), which splits with
// Line.Midpoint, nor the graph builder calls it.
func Segmentize(l Line, maxLenM float64) Line {
	if maxLenM <= 0 || len(l.Points) < 2 {
		return l
	}

	out := []Point3{l.Points[0]}
	for i := 1; i < len(l.Points); i++ {
		a, b := l.Points[i-1], l.Points[i]
		segLen := Distance3DM(a, b)
		if segLen <= maxLenM {
			out = append(out, b)
			continue
		}
		n := int(math.Ceil(segLen / maxLenM))
		for step := 1; step <= n; step++ {
			f := float64(step) / float64(n)
			out = append(out, Interpolate3D(a, b, f))
		}
	}

	return Line{Points: out}
}

// Midpoint splits a line into two sub-lines at its arc-length midpoint,
// inserting an interpolated vertex there; when the midpoint coincides
// with an existing vertex, that vertex appears twice in one of the
// halves. Used by the recursive-bisection intersection test,
// which must split proportionally by arc length, not by vertex count.
func (l Line) Midpoint() (Line, Line) {
	total := l.Length()
	if total == 0 || len(l.Points) < 2 {
		mid := l.Points[0]
		return Line{Points: []Point3{mid, mid}}, Line{Points: []Point3{mid, mid}}
	}

	half := total / 2
	var acc float64
	for i := 1; i < len(l.Points); i++ {
		a, b := l.Points[i-1], l.Points[i]
		segLen := Distance3DM(a, b)
		if acc+segLen < half {
			acc += segLen
			continue
		}

		// The midpoint falls within [a,b]; interpolate it.
		var f float64
		if segLen > 0 {
			f = (half - acc) / segLen
		}
		mid := Interpolate3D(a, b, f)

		left := append([]Point3{}, l.Points[:i]...)
		left = append(left, mid)

		right := append([]Point3{mid}, l.Points[i:]...)

		return Line{Points: left}, Line{Points: right}
	}

	// Degenerate: total length is effectively zero across every segment.
	last := l.Points[len(l.Points)-1]
	return Line{Points: append(append([]Point3{}, l.Points...), last)}, Line{Points: []Point3{last, last}}
}

// distanceToSegment3D returns the minimum 3D distance from point p to the
// segment [a,b], using a local equirectangular tangent-plane projection
// centered on the segment — adequate for the sub-kilometer proximity
// testing the conflict engine needs (spec §4.1).
func distanceToSegment3D(p, a, b Point3) float64 {
	ax, ay := tangentPlaneXY(a, a)
	bx, by := tangentPlaneXY(b, a)
	px, py := tangentPlaneXY(p, a)

	dx, dy := bx-ax, by-ay
	segLenSq := dx*dx + dy*dy

	var t float64
	if segLenSq > 0 {
		t = ((px-ax)*dx + (py-ay)*dy) / segLenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}

	closestX := ax + t*dx
	closestY := ay + t*dy
	closestAlt := a.Alt + t*(b.Alt-a.Alt)

	horizDx := px - closestX
	horizDy := py - closestY
	vertDz := p.Alt - closestAlt

	return math.Sqrt(horizDx*horizDx + horizDy*horizDy + vertDz*vertDz)
}

// tangentPlaneXY projects p onto a local equirectangular tangent plane
// centered at origin, returning (x, y) in meters.
func tangentPlaneXY(p, origin Point3) (float64, float64) {
	latOriginRad := origin.Lat * DegreesToRadians
	x := (p.Lon - origin.Lon) * DegreesToRadians * EarthRadiusM * math.Cos(latOriginRad)
	y := (p.Lat - origin.Lat) * DegreesToRadians * EarthRadiusM
	return x, y
}
