package geo

import (
	"math"
	"testing"
)

func TestSegmentize(t *testing.T) {
	l := MakeLine(Point3{Lat: 40.0, Lon: -74.0, Alt: 100}, Point3{Lat: 40.1, Lon: -74.0, Alt: 100})

	t.Run("splits into sub-segments under threshold", func(t *testing.T) {
		segmented := Segmentize(l, 1000)
		if len(segmented.Points) < 3 {
			t.Fatalf("expected multiple sub-segments, got %d points", len(segmented.Points))
		}
		for i := 1; i < len(segmented.Points); i++ {
			d := Distance3DM(segmented.Points[i-1], segmented.Points[i])
			if d > 1000+1e-6 {
				t.Errorf("sub-segment %d length %f exceeds threshold", i, d)
			}
		}
	})

	t.Run("endpoints preserved", func(t *testing.T) {
		segmented := Segmentize(l, 1000)
		if segmented.StartPoint() != l.StartPoint() {
			t.Error("start point changed")
		}
		if segmented.EndPoint() != l.EndPoint() {
			t.Error("end point changed")
		}
	})

	t.Run("threshold larger than length is a no-op", func(t *testing.T) {
		segmented := Segmentize(l, 1_000_000)
		if len(segmented.Points) != 2 {
			t.Errorf("expected 2 points, got %d", len(segmented.Points))
		}
	})
}

func TestLineMidpoint(t *testing.T) {
	l := MakeLine(Point3{Lat: 40.0, Lon: -74.0, Alt: 0}, Point3{Lat: 40.2, Lon: -74.0, Alt: 200})

	left, right := l.Midpoint()

	leftLen := left.Length()
	rightLen := right.Length()
	total := l.Length()

	if math.Abs(leftLen+rightLen-total) > 1 {
		t.Errorf("left+right length %f != total %f", leftLen+rightLen, total)
	}
	if math.Abs(leftLen-rightLen) > 1 {
		t.Errorf("expected roughly equal halves, got %f and %f", leftLen, rightLen)
	}
}

func TestLineLength(t *testing.T) {
	l := MakeLine(Point3{Lat: 40.0, Lon: -74.0, Alt: 0}, Point3{Lat: 40.1, Lon: -74.0, Alt: 0})
	got := l.Length()
	if math.Abs(got-11119) > 50 {
		t.Errorf("Length() = %f, want ~11119", got)
	}
}
