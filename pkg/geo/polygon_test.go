package geo

import "testing"

func square(lat0, lon0, lat1, lon1 float64) Polygon {
	return Polygon{Vertices: []Point{
		{Lat: lat0, Lon: lon0},
		{Lat: lat0, Lon: lon1},
		{Lat: lat1, Lon: lon1},
		{Lat: lat1, Lon: lon0},
		{Lat: lat0, Lon: lon0},
	}}
}

func TestPolygonValidate(t *testing.T) {
	t.Run("closed ring is valid", func(t *testing.T) {
		if err := square(40.04, -74.01, 40.06, -73.99).Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("unclosed ring is rejected", func(t *testing.T) {
		poly := Polygon{Vertices: []Point{
			{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}, {Lat: 1, Lon: 0},
		}}
		if err := poly.Validate(); err == nil {
			t.Error("expected BadGeometry for unclosed ring, got nil")
		}
	})

	t.Run("too few vertices is rejected", func(t *testing.T) {
		poly := Polygon{Vertices: []Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0}}}
		if err := poly.Validate(); err == nil {
			t.Error("expected BadGeometry, got nil")
		}
	})
}

func TestPolygonCentroid(t *testing.T) {
	poly := square(40.0, -74.0, 40.1, -73.9)
	c := poly.Centroid()
	if c.Lat < 40.0 || c.Lat > 40.1 || c.Lon < -74.0 || c.Lon > -73.9 {
		t.Errorf("centroid %+v outside square bounds", c)
	}
}

func TestPolygonContainsPoint(t *testing.T) {
	poly := square(40.0, -74.0, 40.1, -73.9)

	t.Run("point inside", func(t *testing.T) {
		if !poly.ContainsPoint(Point{Lat: 40.05, Lon: -73.95}) {
			t.Error("expected point inside polygon")
		}
	})

	t.Run("point outside", func(t *testing.T) {
		if poly.ContainsPoint(Point{Lat: 41.0, Lon: -73.95}) {
			t.Error("expected point outside polygon")
		}
	})
}

func TestIntersectsLine(t *testing.T) {
	// Scenario (2) from the spec: a square zone over 40.04-40.06 / -74.01--73.99.
	zone := square(40.04, -74.01, 40.06, -73.99)

	t.Run("line crossing the zone intersects", func(t *testing.T) {
		l := MakeLine(Point3{Lat: 40.0, Lon: -74.0, Alt: 100}, Point3{Lat: 40.1, Lon: -74.0, Alt: 100})
		if !IntersectsLine(l, zone) {
			t.Error("expected line through zone to intersect")
		}
	})

	t.Run("line avoiding the zone does not intersect", func(t *testing.T) {
		l := MakeLine(Point3{Lat: 40.0, Lon: -74.02, Alt: 100}, Point3{Lat: 40.1, Lon: -74.02, Alt: 100})
		if IntersectsLine(l, zone) {
			t.Error("expected line avoiding zone to not intersect")
		}
	})
}

func TestIntersectsLine3D(t *testing.T) {
	zone := square(40.04, -74.01, 40.06, -73.99)
	zone.AltMin, zone.AltMax = 0, 500

	t.Run("within altitude envelope intersects", func(t *testing.T) {
		l := MakeLine(Point3{Lat: 40.0, Lon: -74.0, Alt: 200}, Point3{Lat: 40.1, Lon: -74.0, Alt: 200})
		if !IntersectsLine3D(l, zone) {
			t.Error("expected intersection within altitude envelope")
		}
	})

	t.Run("above altitude envelope does not intersect", func(t *testing.T) {
		l := MakeLine(Point3{Lat: 40.0, Lon: -74.0, Alt: 900}, Point3{Lat: 40.1, Lon: -74.0, Alt: 900})
		if IntersectsLine3D(l, zone) {
			t.Error("expected no intersection above altitude envelope")
		}
	})
}
