package geo

import (
	"math"
	"testing"
)

// TestDistanceM mirrors scenario (1) from the spec's end-to-end test
// suite: two points 0.1 degrees of latitude apart should be roughly
// 11,119 meters apart.
func TestDistanceM(t *testing.T) {
	t.Run("0.1 degree latitude separation", func(t *testing.T) {
		a := Point{Lat: 40.0, Lon: -74.0}
		b := Point{Lat: 40.1, Lon: -74.0}

		got := DistanceM(a, b)
		want := 11119.0
		if math.Abs(got-want) > 50 {
			t.Errorf("DistanceM() = %f, want ~%f", got, want)
		}
	})

	t.Run("identical points", func(t *testing.T) {
		a := Point{Lat: 40.0, Lon: -74.0}
		if got := DistanceM(a, a); got != 0 {
			t.Errorf("DistanceM(a, a) = %f, want 0", got)
		}
	})
}

func TestBearing(t *testing.T) {
	t.Run("due north", func(t *testing.T) {
		a := Point{Lat: 40.0, Lon: -74.0}
		b := Point{Lat: 41.0, Lon: -74.0}
		got := Bearing(a, b)
		if math.Abs(got-0) > 0.5 {
			t.Errorf("Bearing() = %f, want ~0", got)
		}
	})

	t.Run("due east", func(t *testing.T) {
		a := Point{Lat: 0.0, Lon: -74.0}
		b := Point{Lat: 0.0, Lon: -73.0}
		got := Bearing(a, b)
		if math.Abs(got-90) > 0.5 {
			t.Errorf("Bearing() = %f, want ~90", got)
		}
	})
}

func TestInterpolateGreatCircle(t *testing.T) {
	a := Point{Lat: 40.0, Lon: -74.0}
	b := Point{Lat: 40.1, Lon: -74.0}

	t.Run("f=0 returns a", func(t *testing.T) {
		got := InterpolateGreatCircle(a, b, 0)
		if math.Abs(got.Lat-a.Lat) > 1e-9 {
			t.Errorf("got %+v, want %+v", got, a)
		}
	})

	t.Run("f=1 returns b", func(t *testing.T) {
		got := InterpolateGreatCircle(a, b, 1)
		if math.Abs(got.Lat-b.Lat) > 1e-9 {
			t.Errorf("got %+v, want %+v", got, b)
		}
	})

	t.Run("f=0.5 is between a and b", func(t *testing.T) {
		got := InterpolateGreatCircle(a, b, 0.5)
		if got.Lat <= a.Lat || got.Lat >= b.Lat {
			t.Errorf("midpoint %+v not between %+v and %+v", got, a, b)
		}
	})
}

func TestValidatePoint(t *testing.T) {
	tests := []struct {
		name    string
		p       Point
		wantErr bool
	}{
		{"valid", Point{Lat: 40.0, Lon: -74.0}, false},
		{"lat out of range", Point{Lat: 91.0, Lon: 0}, true},
		{"lon out of range", Point{Lat: 0, Lon: 181.0}, true},
		{"non-finite", Point{Lat: math.NaN(), Lon: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePoint(tt.p)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePoint(%+v) error = %v, wantErr %v", tt.p, err, tt.wantErr)
			}
		})
	}
}
