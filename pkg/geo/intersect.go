package geo

// IntersectsLine reports whether a line's 2D footprint overlaps a
// polygon's footprint: true if any line segment crosses the polygon
// boundary, or if either of the line's endpoints lies inside the
// polygon. This is the non-empty-area/line-overlap test spec §4.1 calls
// `intersects(geomA, geomB)`, specialized to the line/zone pairing the
// graph builder (C4) and ingestion validators actually need.
func IntersectsLine(l Line, poly Polygon) bool {
	if len(l.Points) == 0 || len(poly.Vertices) < 4 {
		return false
	}

	edges := poly.edges()

	for i := 1; i < len(l.Points); i++ {
		a := l.Points[i-1].To2D()
		b := l.Points[i].To2D()

		if poly.ContainsPoint(a) || poly.ContainsPoint(b) {
			return true
		}
		for _, e := range edges {
			if segmentsIntersect(a, b, e[0], e[1]) {
				return true
			}
		}
	}

	return false
}

// IntersectsPolygon reports whether two polygon footprints overlap:
// either polygon contains a vertex of the other, or any pair of boundary
// edges crosses.
func IntersectsPolygon(a, b Polygon) bool {
	if len(a.Vertices) < 4 || len(b.Vertices) < 4 {
		return false
	}

	for _, v := range a.Vertices {
		if b.ContainsPoint(v) {
			return true
		}
	}
	for _, v := range b.Vertices {
		if a.ContainsPoint(v) {
			return true
		}
	}

	aEdges := a.edges()
	bEdges := b.edges()
	for _, ea := range aEdges {
		for _, eb := range bEdges {
			if segmentsIntersect(ea[0], ea[1], eb[0], eb[1]) {
				return true
			}
		}
	}

	return false
}

// IntersectsLine3D reports whether a 3D line intersects a polygon's
// footprint AND altitude envelope: the 2D footprints must overlap (per
// IntersectsLine) for at least one sub-segment whose altitude range
// overlaps the polygon's [AltMin, AltMax] extrusion. A polygon with no
// altitude envelope (HasAltitudeEnvelope == false) is treated as
// unbounded in altitude, matching a flat no-fly footprint that restricts
// every altitude.
func IntersectsLine3D(l Line, poly Polygon) bool {
	if len(l.Points) == 0 {
		return false
	}
	if !poly.HasAltitudeEnvelope() {
		return IntersectsLine(l, poly)
	}

	for i := 1; i < len(l.Points); i++ {
		a, b := l.Points[i-1], l.Points[i]
		segMinAlt, segMaxAlt := a.Alt, b.Alt
		if segMinAlt > segMaxAlt {
			segMinAlt, segMaxAlt = segMaxAlt, segMinAlt
		}
		if segMaxAlt < poly.AltMin || segMinAlt > poly.AltMax {
			continue // altitude envelopes don't overlap on this sub-segment
		}
		seg := Line{Points: []Point3{a, b}}
		if IntersectsLine(seg, poly) {
			return true
		}
	}

	return false
}
