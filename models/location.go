package models

import "fmt"

// GridLocation - 맵 격자 좌표 (행, 열)
type GridLocation struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// OutOfBoundsLocation - 맵 밖 좌표를 나타내는 예약값
var OutOfBoundsLocation = GridLocation{Row: -1, Col: -1}

func (l GridLocation) String() string {
	return fmt.Sprintf("(%d, %d)", l.Row, l.Col)
}

// Offset - (dr, dc) 만큼 이동한 좌표
func (l GridLocation) Offset(dr, dc int) GridLocation {
	return GridLocation{Row: l.Row + dr, Col: l.Col + dc}
}
