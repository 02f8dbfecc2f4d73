package algorithms

import (
	"math"

	"rover-core/models"

	"github.com/golang/geo/r2"
)

// Frame - 미터 좌표 → 격자 좌표 변환 기준 (맵 좌상단 꼭짓점, 셀 크기)
type Frame struct {
	TopLeft  r2.Point
	GridSize float64
}

// Cell - 점이 속한 셀. 범위 검사를 하지 않으므로 맵 밖 셀이 나올 수 있다.
func (f Frame) Cell(p r2.Point) models.GridLocation {
	return models.GridLocation{
		Row: int(math.Floor((p.Y - f.TopLeft.Y) / f.GridSize)),
		Col: int(math.Floor((p.X - f.TopLeft.X) / f.GridSize)),
	}
}

// RasterizeLine - 선분 a→b를 지나는 셀 목록 (a 쪽부터 순서대로)
func RasterizeLine(f Frame, a, b r2.Point) []models.GridLocation {
	return LineCells(f.Cell(a), f.Cell(b))
}

// RasterizeCircle - 중심과 반지름(m)으로 그린 원 둘레의 셀 집합
func RasterizeCircle(f Frame, center r2.Point, radius float64) []models.GridLocation {
	return CircleCells(f.Cell(center), int(math.Round(radius/f.GridSize)))
}

// RasterizePolyline - 꼭짓점을 차례로 잇는 선분들. closed면 마지막 점과 첫 점도 잇는다.
func RasterizePolyline(f Frame, points []r2.Point, closed bool) []models.GridLocation {
	if len(points) == 0 {
		return nil
	}
	if len(points) == 1 {
		return []models.GridLocation{f.Cell(points[0])}
	}

	var cells []models.GridLocation
	appendSegment := func(a, b r2.Point) {
		seg := RasterizeLine(f, a, b)
		// 앞 선분의 끝 셀과 겹치는 시작 셀은 건너뜀
		if len(cells) > 0 && len(seg) > 0 && cells[len(cells)-1] == seg[0] {
			seg = seg[1:]
		}
		cells = append(cells, seg...)
	}
	for i := 0; i+1 < len(points); i++ {
		appendSegment(points[i], points[i+1])
	}
	if closed {
		appendSegment(points[len(points)-1], points[0])
		if len(cells) > 1 && cells[len(cells)-1] == cells[0] {
			cells = cells[:len(cells)-1]
		}
	}
	return cells
}

// LineCells - 격자 좌표 사이의 Bresenham 직선.
// x = 열, y = 행으로 보고 0번 팔분면으로 회전한 뒤 계산하고 결과를 되돌린다.
func LineCells(from, to models.GridLocation) []models.GridLocation {
	dx := to.Col - from.Col
	dy := to.Row - from.Row
	oct := octantOf(dx, dy)
	odx, ody := toOctantZero(oct, dx, dy)

	cells := make([]models.GridLocation, 0, odx+1)
	d := 2*ody - odx
	y := 0
	for x := 0; x <= odx; x++ {
		cx, cy := fromOctantZero(oct, x, y)
		cells = append(cells, models.GridLocation{Row: from.Row + cy, Col: from.Col + cx})
		if d > 0 {
			y++
			d -= 2 * odx
		}
		d += 2 * ody
	}
	return cells
}

// octantOf - (dx, dy) 방향의 팔분면 번호 (0~7, 반시계)
func octantOf(dx, dy int) int {
	switch {
	case dx >= 0 && dy >= 0:
		if dx >= dy {
			return 0
		}
		return 1
	case dx < 0 && dy >= 0:
		if -dx <= dy {
			return 2
		}
		return 3
	case dx < 0 && dy < 0:
		if -dx >= -dy {
			return 4
		}
		return 5
	default:
		if dx < -dy {
			return 6
		}
		return 7
	}
}

func toOctantZero(oct, x, y int) (int, int) {
	switch oct {
	case 1:
		return y, x
	case 2:
		return y, -x
	case 3:
		return -x, y
	case 4:
		return -x, -y
	case 5:
		return -y, -x
	case 6:
		return -y, x
	case 7:
		return x, -y
	}
	return x, y
}

func fromOctantZero(oct, x, y int) (int, int) {
	switch oct {
	case 1:
		return y, x
	case 2:
		return -y, x
	case 3:
		return -x, y
	case 4:
		return -x, -y
	case 5:
		return -y, -x
	case 6:
		return y, -x
	case 7:
		return x, -y
	}
	return x, y
}

// CircleCells - 중점 원 알고리즘. 한 단계마다 8개 대칭점을 만들고 중복은 제거한다.
// radius가 0 이하이면 중심 셀만 반환한다.
func CircleCells(center models.GridLocation, radius int) []models.GridLocation {
	if radius <= 0 {
		return []models.GridLocation{center}
	}

	seen := make(map[models.GridLocation]bool)
	var cells []models.GridLocation
	add := func(dc, dr int) {
		loc := center.Offset(dr, dc)
		if !seen[loc] {
			seen[loc] = true
			cells = append(cells, loc)
		}
	}

	x, y := radius-1, 0
	dx, dy := 1, 1
	err := dx - (radius << 1)
	for x >= y {
		add(x, y)
		add(y, x)
		add(-y, x)
		add(-x, y)
		add(-x, -y)
		add(-y, -x)
		add(y, -x)
		add(x, -y)

		if err <= 0 {
			y++
			err += dy
			dy += 2
		}
		if err > 0 {
			x--
			dx += 2
			err += dx - (radius << 1)
		}
	}
	return cells
}
