package services

import (
	"rover-core/algorithms"
	"rover-core/models"

	"github.com/golang/geo/r2"
)

var (
	axisNeighbours = [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	allNeighbours  = [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}, {-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
)

// DetectFootsteps - 색상 센서가 남긴 TRACKS 셀 중 발자국을 골라
// TRACKS_FOOTSTEPS로 옮기고 그 셀 목록을 반환한다.
//
// 상하좌우로 이웃한 흔적이 2개 미만인 셀을 발자국으로 보고,
// 거기서 8방향으로 이어진 흔적도 모두 발자국으로 본다.
// 발자국과 차량 바퀴 자국은 서로 붙어 있지 않다고 가정한다.
func DetectFootsteps(world *WorldMap) []models.GridLocation {
	isTrack := func(loc models.GridLocation) bool {
		v, err := world.Get(models.PropertyTracks, loc)
		return err == nil && v > traversableThreshold
	}

	visited := algorithms.NewMatrix(world.Rows(), world.Cols(), false)
	var queue []models.GridLocation
	for row := 0; row < world.Rows(); row++ {
		for col := 0; col < world.Cols(); col++ {
			loc := models.GridLocation{Row: row, Col: col}
			if !isTrack(loc) {
				continue
			}
			adjacent := 0
			for _, d := range axisNeighbours {
				if isTrack(loc.Offset(d[0], d[1])) {
					adjacent++
				}
			}
			if adjacent < 2 {
				visited.Set(row, col, true)
				queue = append(queue, loc)
			}
		}
	}

	var footsteps []models.GridLocation
	for len(queue) > 0 {
		loc := queue[0]
		queue = queue[1:]
		footsteps = append(footsteps, loc)

		for _, d := range allNeighbours {
			next := loc.Offset(d[0], d[1])
			if !visited.Contains(next.Row, next.Col) || visited.At(next.Row, next.Col) || !isTrack(next) {
				continue
			}
			visited.Set(next.Row, next.Col, true)
			queue = append(queue, next)
		}
	}

	for _, loc := range footsteps {
		_ = world.Set(models.PropertyTracks, loc, 0)
		_ = world.Set(models.PropertyTracksFootsteps, loc, 1)
	}
	return footsteps
}

// CellCentres - 셀 목록을 셀 중심 미터 좌표로. 맵 밖 셀은 건너뛴다.
func CellCentres(world *WorldMap, cells []models.GridLocation) []r2.Point {
	var points []r2.Point
	for _, loc := range cells {
		p, err := world.GridToMetricCentre(loc)
		if err != nil {
			continue
		}
		points = append(points, p)
	}
	return points
}
