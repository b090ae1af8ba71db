package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{"same point", Point{28.6139, 77.2090}, Point{28.6139, 77.2090}, 0, 1e-9},
		// Connaught Place to Rohini, roughly 14.5 km
		{"delhi", Point{28.6139, 77.2090}, Point{28.7041, 77.1025}, 14.5, 0.2},
		// One degree of latitude is about 111.19 km
		{"one degree", Point{0, 0}, Point{1, 0}, 111.19, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Haversine() = %v, want %v ± %v", got, tt.want, tt.tol)
			}
			if back := Haversine(tt.b, tt.a); math.Abs(back-got) > 1e-9 {
				t.Errorf("Haversine not symmetric: %v vs %v", got, back)
			}
		})
	}
}

func TestBoundsOf(t *testing.T) {
	if _, ok := BoundsOf(nil); ok {
		t.Error("expected ok=false for empty input")
	}

	b, ok := BoundsOf([]Point{{1, 5}, {-2, 7}, {3, 6}})
	if !ok {
		t.Fatal("expected ok")
	}
	want := Bounds{MinLat: -2, MinLon: 5, MaxLat: 3, MaxLon: 7}
	if b != want {
		t.Errorf("BoundsOf() = %+v, want %+v", b, want)
	}
}

func TestProjection(t *testing.T) {
	points := []Point{
		{Lat: 10, Lon: 100}, // north west
		{Lat: 0, Lon: 110},  // south east
		{Lat: 5, Lon: 105},  // centre
	}
	pr := NewProjection(points, 800, 600, DefaultPadding)
	got := pr.ProjectAll(points)

	want := []XY{
		{X: 40, Y: 40},
		{X: 760, Y: 560},
		{X: 400, Y: 300},
	}
	for i := range want {
		if math.Abs(got[i].X-want[i].X) > 1e-9 || math.Abs(got[i].Y-want[i].Y) > 1e-9 {
			t.Errorf("point %d projected to %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestProjectionDegenerateSpan(t *testing.T) {
	// All nodes on one parallel: latitude span is zero
	points := []Point{{Lat: 5, Lon: 0}, {Lat: 5, Lon: 10}}
	pr := NewProjection(points, 200, 100, 10)
	got := pr.ProjectAll(points)

	for i, p := range got {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			t.Fatalf("point %d projected to %+v", i, p)
		}
		if p.Y != 50 {
			t.Errorf("point %d y = %v, want centred 50", i, p.Y)
		}
	}
	if got[0].X != 10 || got[1].X != 190 {
		t.Errorf("x = %v, %v; want 10, 190", got[0].X, got[1].X)
	}

	single := NewProjection([]Point{{1, 1}}, 200, 100, 10).Project(Point{1, 1})
	if single != (XY{X: 100, Y: 50}) {
		t.Errorf("single node projected to %+v, want centre", single)
	}
}
