package gps_test

import (
	"math"
	"testing"

	"securyflex/verification-service/internal/gps"
)

func TestDistanceMeters(t *testing.T) {
	damrak := gps.Coordinate{Latitude: 52.3745, Longitude: 4.8970}
	dam := gps.Coordinate{Latitude: 52.3731, Longitude: 4.8926}
	rotterdam := gps.Coordinate{Latitude: 51.9244, Longitude: 4.4777}

	if got := gps.DistanceMeters(damrak, damrak); got != 0 {
		t.Errorf("distance to self = %f, want 0", got)
	}

	// Damrak to Dam square is roughly 330 m.
	if got := gps.DistanceMeters(damrak, dam); got < 300 || got > 360 {
		t.Errorf("Damrak -> Dam = %f m, want ~330", got)
	}

	// Amsterdam to Rotterdam is roughly 57 km.
	got := gps.DistanceMeters(damrak, rotterdam)
	if got < 55000 || got > 60000 {
		t.Errorf("Amsterdam -> Rotterdam = %f m, want ~57 km", got)
	}
	if back := gps.DistanceMeters(rotterdam, damrak); math.Abs(back-got) > 1e-6 {
		t.Errorf("distance not symmetric: %f vs %f", got, back)
	}
}
