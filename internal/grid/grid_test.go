package grid

import (
	"math"
	"testing"

	"github.com/yourusername/sunviewfinder/internal/geo"
)

func TestGenerateAllPointsWithinRadius(t *testing.T) {
	center := geo.Coordinate{Lat: 45.5231, Lng: -122.6765}
	radius := 5000.0

	points := Generate(center, radius, DefaultSpacingMeters)
	if len(points) == 0 {
		t.Fatal("expected non-empty grid")
	}

	for _, p := range points {
		d := geo.Haversine(center, p)
		if d > radius+1e-6 {
			t.Errorf("point %+v is %.2fm from center, exceeds radius %.2f", p, d, radius)
		}
	}
}

func TestGenerateZeroRadius(t *testing.T) {
	center := geo.Coordinate{Lat: 0, Lng: 0}
	points := Generate(center, 0, DefaultSpacingMeters)
	if len(points) > 1 {
		t.Errorf("expected at most 1 point for radius=0, got %d", len(points))
	}
}

func TestGenerateNegativeRadiusEmpty(t *testing.T) {
	points := Generate(geo.Coordinate{}, -100, DefaultSpacingMeters)
	if points != nil {
		t.Errorf("expected nil for negative radius, got %d points", len(points))
	}
}

func TestGeneratePointCountScalesWithArea(t *testing.T) {
	center := geo.Coordinate{Lat: 10, Lng: 10}
	radius := 10000.0
	spacing := DefaultSpacingMeters

	points := Generate(center, radius, spacing)

	cellArea := spacing * spacing * math.Sqrt(3) / 2
	expected := math.Pi * radius * radius / cellArea

	got := float64(len(points))
	ratio := got / expected
	if ratio < 0.85 || ratio > 1.15 {
		t.Errorf("point count %d deviates >15%% from expected %.0f (ratio %.2f)", len(points), expected, ratio)
	}
}
