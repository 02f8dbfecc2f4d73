package services

import (
	"log"

	"rover-core/models"
)

// NormalizeRect - 임의의 두 꼭짓점을 (좌상단, 우하단)으로 정리
func NormalizeRect(a, b models.GridLocation) (models.GridLocation, models.GridLocation) {
	top, bottom := a.Row, b.Row
	if top > bottom {
		top, bottom = bottom, top
	}
	left, right := a.Col, b.Col
	if left > right {
		left, right = right, left
	}
	return models.GridLocation{Row: top, Col: left}, models.GridLocation{Row: bottom, Col: right}
}

// MarkNoGoZone - 두 꼭짓점이 이루는 사각형 안 모든 셀을 금지구역으로 표시.
// 맵 밖 셀은 건너뛰고 그 개수를 반환한다.
func MarkNoGoZone(world *WorldMap, a, b models.GridLocation) (marked, skipped int) {
	topLeft, bottomRight := NormalizeRect(a, b)
	for row := topLeft.Row; row <= bottomRight.Row; row++ {
		for col := topLeft.Col; col <= bottomRight.Col; col++ {
			loc := models.GridLocation{Row: row, Col: col}
			if err := world.Set(models.PropertyNoGoZone, loc, 1.0); err != nil {
				skipped++
				continue
			}
			marked++
		}
	}
	if skipped > 0 {
		log.Printf("⚠️ 금지구역 %v-%v: 맵 밖 %d칸 제외", topLeft, bottomRight, skipped)
	}
	return marked, skipped
}
