package models

import "github.com/golang/geo/r2"

// MapRegion - 한 속성이 최대 가능도인 셀 목록
type MapRegion struct {
	Property Property       `json:"property"`
	Cells    []GridLocation `json:"cells"`
}

// MapSnapshot - 맵 전체 요약 (UI 렌더링, 내보내기용)
type MapSnapshot struct {
	Rows        int          `json:"rows"`
	Cols        int          `json:"cols"`
	GridSize    float64      `json:"grid_size"`
	Origin      GridLocation `json:"origin"`
	Regions     []MapRegion  `json:"regions"`
	LandingSite r2.Point     `json:"landing_site"`
}

// VehiclePose - 차량 위치와 방향
type VehiclePose struct {
	Position     r2.Point `json:"position"`
	AngleDegrees float64  `json:"angle_degrees"`
}
