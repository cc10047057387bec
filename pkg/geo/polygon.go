package geo

import (
	"fmt"
	"math"

	"github.com/skypath/gis/internal/apierr"
)

// Polygon is a single-ring 2D footprint. The first and last vertex must
// be identical (a closed ring); Validate enforces this.
type Polygon struct {
	Vertices []Point

	// AltMin/AltMax optionally extrude the 2D footprint into a 3D prism
	// (spec §3 "polygonal (optionally extruded with min/max altitude)").
	// Both zero means the zone has no altitude envelope and is treated
	// as spanning all altitudes.
	AltMin float64
	AltMax float64
}

// Validate enforces the closed-ring and minimum-vertex-count invariants
// required by spec §4.1: "All polygon inputs must be closed (first
// vertex equals last); violations fail validation with a BadGeometry
// error."
func (poly Polygon) Validate() error {
	if len(poly.Vertices) < 4 {
		return fmt.Errorf("%w: polygon has %d vertices, need at least 4 (closed triangle)", apierr.BadGeometry, len(poly.Vertices))
	}
	first, last := poly.Vertices[0], poly.Vertices[len(poly.Vertices)-1]
	if first.Lat != last.Lat || first.Lon != last.Lon {
		return fmt.Errorf("%w: polygon ring is not closed (first %+v != last %+v)", apierr.BadGeometry, first, last)
	}
	for _, v := range poly.Vertices {
		if err := ValidatePoint(v); err != nil {
			return err
		}
	}
	if poly.AltMax != 0 && poly.AltMin > poly.AltMax {
		return fmt.Errorf("%w: alt_min %f exceeds alt_max %f", apierr.BadGeometry, poly.AltMin, poly.AltMax)
	}
	return nil
}

// Centroid returns the polygon's vertex-averaged centroid. This matches
// the teacher's "centroid as routing location" treatment: for the
// regularly-shaped, small-footprint vertiport pads this spec targets, the
// vertex average is within millimeters of the signed-area centroid and
// avoids degenerate division-by-zero on near-zero-area rings.
func (poly Polygon) Centroid() Point {
	var sumLat, sumLon float64
	// The ring repeats its first vertex as its last; average over the
	// distinct vertices only.
	n := len(poly.Vertices) - 1
	if n <= 0 {
		return Point{}
	}
	for _, v := range poly.Vertices[:n] {
		sumLat += v.Lat
		sumLon += v.Lon
	}
	return Point{Lat: sumLat / float64(n), Lon: sumLon / float64(n)}
}

// HasAltitudeEnvelope reports whether the polygon has a meaningful
// [AltMin, AltMax] extrusion rather than spanning all altitudes.
func (poly Polygon) HasAltitudeEnvelope() bool {
	return poly.AltMin != 0 || poly.AltMax != 0
}

// ContainsPoint reports whether pt lies within the polygon footprint,
// using the standard ray-casting (even-odd rule) point-in-polygon test.
func (poly Polygon) ContainsPoint(pt Point) bool {
	inside := false
	n := len(poly.Vertices) - 1 // ring is closed; iterate distinct edges
	if n < 3 {
		return false
	}
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := poly.Vertices[i], poly.Vertices[j]
		if ((vi.Lat > pt.Lat) != (vj.Lat > pt.Lat)) &&
			(pt.Lon < (vj.Lon-vi.Lon)*(pt.Lat-vi.Lat)/(vj.Lat-vi.Lat)+vi.Lon) {
			inside = !inside
		}
	}
	return inside
}

// edges returns the polygon's distinct boundary segments.
func (poly Polygon) edges() [][2]Point {
	n := len(poly.Vertices) - 1
	out := make([][2]Point, 0, n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		out = append(out, [2]Point{poly.Vertices[i], poly.Vertices[j]})
	}
	return out
}

// segmentsIntersect reports whether segments p1p2 and p3p4 cross, using
// the standard orientation-test method.
func segmentsIntersect(p1, p2, p3, p4 Point) bool {
	o1 := orientation(p1, p2, p3)
	o2 := orientation(p1, p2, p4)
	o3 := orientation(p3, p4, p1)
	o4 := orientation(p3, p4, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}

	if o1 == 0 && onSegment(p1, p3, p2) {
		return true
	}
	if o2 == 0 && onSegment(p1, p4, p2) {
		return true
	}
	if o3 == 0 && onSegment(p3, p1, p4) {
		return true
	}
	if o4 == 0 && onSegment(p3, p2, p4) {
		return true
	}
	return false
}

// orientation returns 0 if p,q,r are colinear, 1 if clockwise, 2 if
// counter-clockwise (treating Lon as x, Lat as y — adequate for the
// small, sub-kilometer footprints this engine reasons about).
func orientation(p, q, r Point) int {
	val := (q.Lat-p.Lat)*(r.Lon-q.Lon) - (q.Lon-p.Lon)*(r.Lat-q.Lat)
	const eps = 1e-12
	if math.Abs(val) < eps {
		return 0
	}
	if val > 0 {
		return 1
	}
	return 2
}

// onSegment assumes p, q, r are colinear and reports whether q lies on
// segment pr.
func onSegment(p, q, r Point) bool {
	return q.Lon <= math.Max(p.Lon, r.Lon) && q.Lon >= math.Min(p.Lon, r.Lon) &&
		q.Lat <= math.Max(p.Lat, r.Lat) && q.Lat >= math.Min(p.Lat, r.Lat)
}
