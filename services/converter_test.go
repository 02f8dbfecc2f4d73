package services

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
)

func TestWaypointToCommand(t *testing.T) {
	tests := []struct {
		name     string
		robot    r2.Point
		angle    float64
		waypoint r2.Point
		turn     float64
		distance float64
	}{
		{"straight ahead", r2.Point{}, 0, r2.Point{X: 0, Y: 1}, 0, 1},
		{"left is anticlockwise", r2.Point{}, 0, r2.Point{X: -1, Y: 0}, 90, 1},
		{"right is clockwise", r2.Point{}, 0, r2.Point{X: 1, Y: 0}, -90, 1},
		{"behind", r2.Point{}, 0, r2.Point{X: 0, Y: -2}, 180, 2},
		{"already turned", r2.Point{X: 1, Y: 1}, 90, r2.Point{X: -2, Y: 1}, 0, 3},
		{"wrapped heading", r2.Point{}, 350, r2.Point{X: 1, Y: 1}, -35, math.Sqrt2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WaypointToCommand(tt.robot, tt.angle, tt.waypoint)
			if math.Abs(got.TurnDegrees-tt.turn) > 1e-9 {
				t.Errorf("Expected turn %v, got %v", tt.turn, got.TurnDegrees)
			}
			if math.Abs(got.Distance-tt.distance) > 1e-9 {
				t.Errorf("Expected distance %v, got %v", tt.distance, got.Distance)
			}
		})
	}
}

func TestWaypointToCommandSamePoint(t *testing.T) {
	got := WaypointToCommand(r2.Point{X: 1, Y: 2}, 45, r2.Point{X: 1, Y: 2})
	if got != (MoveParameters{}) {
		t.Errorf("Expected zero move, got %+v", got)
	}
}

func TestNormalizeDegrees(t *testing.T) {
	tests := map[float64]float64{
		0:    0,
		190:  -170,
		-190: 170,
		180:  180,
		-180: 180,
		540:  180,
		360:  0,
		-720: 0,
	}
	for in, want := range tests {
		if got := NormalizeDegrees(in); got != want {
			t.Errorf("NormalizeDegrees(%v): expected %v, got %v", in, want, got)
		}
	}
}
