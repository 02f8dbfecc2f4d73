package services

import (
	"errors"
	"math"
	"testing"

	"rover-core/models"

	"github.com/golang/geo/r2"
)

func newTestWorld(t *testing.T, rows, cols int) *WorldMap {
	t.Helper()
	world, err := NewWorldMap(rows, cols, 0.25)
	if err != nil {
		t.Fatalf("Expected map to be created, got %v", err)
	}
	return world
}

func TestNewWorldMapRejectsBadSize(t *testing.T) {
	if _, err := NewWorldMap(0, 10, 0.25); err == nil {
		t.Errorf("Expected error for zero rows")
	}
	if _, err := NewWorldMap(10, 10, 0); err == nil {
		t.Errorf("Expected error for zero grid size")
	}
}

func TestWorldMapOriginIsCentreCell(t *testing.T) {
	world := newTestWorld(t, 10, 10)

	if got := world.Origin(); got != (models.GridLocation{Row: 5, Col: 5}) {
		t.Errorf("Expected origin (5, 5), got %v", got)
	}
	if got := world.MetricToGrid(r2.Point{}); got != world.Origin() {
		t.Errorf("Expected (0,0) to be in origin cell, got %v", got)
	}

	centre, err := world.GridToMetricCentre(world.Origin())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if centre != (r2.Point{X: 0.125, Y: 0.125}) {
		t.Errorf("Expected origin centre (0.125, 0.125), got %v", centre)
	}
}

func TestWorldMapNonSquareFrame(t *testing.T) {
	world, err := NewWorldMap(4, 6, 0.5)
	if err != nil {
		t.Fatalf("Expected map to be created, got %v", err)
	}

	if got := world.MetricToGrid(r2.Point{X: -1.4, Y: -0.9}); got != (models.GridLocation{Row: 0, Col: 0}) {
		t.Errorf("Expected top-left cell, got %v", got)
	}
	if got := world.MetricToGrid(r2.Point{X: 1.49, Y: 0.99}); got != (models.GridLocation{Row: 3, Col: 5}) {
		t.Errorf("Expected bottom-right cell, got %v", got)
	}
	if got := world.MetricToGrid(r2.Point{X: 1.5, Y: 0}); got != models.OutOfBoundsLocation {
		t.Errorf("Expected out of bounds, got %v", got)
	}
}

func TestWorldMapGridRoundTrip(t *testing.T) {
	world := newTestWorld(t, 7, 9)
	for row := 0; row < world.Rows(); row++ {
		for col := 0; col < world.Cols(); col++ {
			loc := models.GridLocation{Row: row, Col: col}
			p, err := world.GridToMetricCentre(loc)
			if err != nil {
				t.Fatalf("Expected no error for %v, got %v", loc, err)
			}
			if got := world.MetricToGrid(p); got != loc {
				t.Errorf("Expected %v, got %v", loc, got)
			}
		}
	}
}

func TestWorldMapGetSetOutOfBounds(t *testing.T) {
	world := newTestWorld(t, 10, 10)
	loc := models.GridLocation{Row: 10, Col: 0}

	if err := world.Set(models.PropertyObstacle, loc, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got %v", err)
	}
	if _, err := world.Get(models.PropertyObstacle, loc); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got %v", err)
	}
	if _, err := world.GridToMetricCentre(loc); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got %v", err)
	}
}

func TestWorldMapSetDoesNotClamp(t *testing.T) {
	world := newTestWorld(t, 10, 10)
	loc := models.GridLocation{Row: 2, Col: 3}

	if err := world.Set(models.PropertyCrater, loc, 2.5); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	v, _ := world.Get(models.PropertyCrater, loc)
	if v != 2.5 {
		t.Errorf("Expected 2.5, got %v", v)
	}
}

func TestWorldMapGetPanicsOnNone(t *testing.T) {
	world := newTestWorld(t, 10, 10)
	defer func() {
		if recover() == nil {
			t.Errorf("Expected panic for PropertyNone")
		}
	}()
	_, _ = world.Get(models.PropertyNone, models.GridLocation{})
}

func TestWorldMapMaxLikelihood(t *testing.T) {
	world := newTestWorld(t, 10, 10)
	loc := models.GridLocation{Row: 1, Col: 1}

	p, _ := world.MaxLikelihoodProperty(loc)
	if p != models.PropertyNone {
		t.Errorf("Expected none for empty cell, got %s", p)
	}

	// 0.5는 넘지 않음
	_ = world.Set(models.PropertyObstacle, loc, 0.5)
	if p, _ := world.MaxLikelihoodProperty(loc); p != models.PropertyNone {
		t.Errorf("Expected none at threshold, got %s", p)
	}

	_ = world.Set(models.PropertyObstacle, loc, 0.8)
	_ = world.Set(models.PropertyCrater, loc, 0.9)
	if p, _ := world.MaxLikelihoodProperty(loc); p != models.PropertyCrater {
		t.Errorf("Expected crater, got %s", p)
	}

	// 동점이면 앞 순서 속성
	_ = world.Set(models.PropertyTracks, loc, 0.9)
	if p, _ := world.MaxLikelihoodProperty(loc); p != models.PropertyTracks {
		t.Errorf("Expected tracks on tie, got %s", p)
	}

	if _, err := world.MaxLikelihoodProperty(models.GridLocation{Row: -1}); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got %v", err)
	}
}

func TestWorldMapIsTraversable(t *testing.T) {
	world := newTestWorld(t, 10, 10)
	loc := models.GridLocation{Row: 4, Col: 4}

	if !world.IsTraversable(loc) {
		t.Errorf("Expected empty cell to be traversable")
	}

	_ = world.Set(models.PropertyRadiation, loc, 1)
	_ = world.Set(models.PropertyTracks, loc, 1)
	if !world.IsTraversable(loc) {
		t.Errorf("Expected radiation and tracks to be traversable")
	}

	for _, p := range models.ImpassableProperties {
		other := newTestWorld(t, 10, 10)
		_ = other.Set(p, loc, 0.51)
		if other.IsTraversable(loc) {
			t.Errorf("Expected %s to block traversal", p)
		}
	}

	if world.IsTraversable(models.GridLocation{Row: 10, Col: 0}) {
		t.Errorf("Expected out of bounds cell to be untraversable")
	}
}

func TestWorldMapColorAt(t *testing.T) {
	world := newTestWorld(t, 10, 10)
	loc := models.GridLocation{Row: 3, Col: 3}

	if got := world.ColorAt(loc); got != defaultPropertyColors[models.PropertyNone] {
		t.Errorf("Expected none color, got %v", got)
	}
	_ = world.Set(models.PropertyCrater, loc, 1)
	if got := world.ColorAt(loc); got != defaultPropertyColors[models.PropertyCrater] {
		t.Errorf("Expected crater color, got %v", got)
	}
	if got := world.ColorAt(models.GridLocation{Row: 99, Col: 0}); got != outOfBoundsColor {
		t.Errorf("Expected out of bounds color, got %v", got)
	}

	custom := models.RGB{R: 0.2, G: 0.4, B: 0.6}
	if err := world.SetPropertyColor(models.PropertyCrater, custom); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := world.ColorAt(loc); got != custom {
		t.Errorf("Expected custom color, got %v", got)
	}
	if err := world.SetPropertyColor(models.PropertyNone, custom); err == nil {
		t.Errorf("Expected error for PropertyNone color")
	}
}

func TestWorldMapDistanceToNearestObstacle(t *testing.T) {
	world := newTestWorld(t, 10, 10)

	if d := world.DistanceToNearestObstacle(r2.Point{}, 0); !math.IsInf(d, 1) {
		t.Errorf("Expected +Inf on empty map, got %v", d)
	}

	// 원점 셀에서 오른쪽 2칸
	_ = world.Set(models.PropertyObstacle, models.GridLocation{Row: 5, Col: 7}, 1)
	centre, _ := world.GridToMetricCentre(world.Origin())
	d := world.DistanceToNearestObstacle(centre, 0)
	if math.Abs(d-0.5) > 1e-9 {
		t.Errorf("Expected 0.5, got %v", d)
	}
}

func TestWorldMapCellsAndReset(t *testing.T) {
	world := newTestWorld(t, 10, 10)
	_ = world.Set(models.PropertyObstacle, models.GridLocation{Row: 1, Col: 2}, 1)
	_ = world.Set(models.PropertyObstacle, models.GridLocation{Row: 0, Col: 5}, 1)
	world.SetLandingSite(r2.Point{X: 0.3, Y: -0.2})

	cells := world.Cells(models.PropertyObstacle)
	if len(cells) != 2 || cells[0] != (models.GridLocation{Row: 0, Col: 5}) {
		t.Errorf("Expected 2 obstacle cells in row-major order, got %v", cells)
	}

	snap := world.Snapshot()
	if snap.Rows != 10 || len(snap.Regions) != 1 || snap.Regions[0].Property != models.PropertyObstacle {
		t.Errorf("Expected one obstacle region, got %+v", snap.Regions)
	}
	if snap.LandingSite != (r2.Point{X: 0.3, Y: -0.2}) {
		t.Errorf("Expected landing site in snapshot, got %v", snap.LandingSite)
	}

	world.Reset()
	if len(world.Cells(models.PropertyObstacle)) != 0 {
		t.Errorf("Expected no obstacles after reset")
	}
	if world.LandingSite() != (r2.Point{}) {
		t.Errorf("Expected landing site cleared after reset")
	}
}

func TestWorldMapReplaceFrom(t *testing.T) {
	live := newTestWorld(t, 10, 10)
	_ = live.Set(models.PropertyObstacle, models.GridLocation{Row: 1, Col: 1}, 1)

	loaded := newTestWorld(t, 10, 10)
	_ = loaded.Set(models.PropertyCrater, models.GridLocation{Row: 4, Col: 4}, 1)
	loaded.SetLandingSite(r2.Point{X: 0.25, Y: 0.5})

	if err := live.ReplaceFrom(loaded); err != nil {
		t.Fatalf("Expected replace to succeed, got %v", err)
	}
	if v, _ := live.Get(models.PropertyObstacle, models.GridLocation{Row: 1, Col: 1}); v != 0 {
		t.Errorf("Expected old obstacle gone, got %v", v)
	}
	if v, _ := live.Get(models.PropertyCrater, models.GridLocation{Row: 4, Col: 4}); v != 1 {
		t.Errorf("Expected loaded crater, got %v", v)
	}
	if live.LandingSite() != (r2.Point{X: 0.25, Y: 0.5}) {
		t.Errorf("Expected loaded landing site, got %v", live.LandingSite())
	}

	// 이후 변경은 서로 영향 없음
	_ = loaded.Set(models.PropertyCrater, models.GridLocation{Row: 4, Col: 4}, 0)
	if v, _ := live.Get(models.PropertyCrater, models.GridLocation{Row: 4, Col: 4}); v != 1 {
		t.Errorf("Expected live map independent of source, got %v", v)
	}
}

func TestWorldMapReplaceFromRejectsOtherSize(t *testing.T) {
	live := newTestWorld(t, 10, 10)
	_ = live.Set(models.PropertyObstacle, models.GridLocation{Row: 1, Col: 1}, 1)

	if err := live.ReplaceFrom(newTestWorld(t, 12, 10)); err == nil {
		t.Fatalf("Expected error for different size")
	}
	if v, _ := live.Get(models.PropertyObstacle, models.GridLocation{Row: 1, Col: 1}); v != 1 {
		t.Errorf("Expected live map untouched, got %v", v)
	}
}
