package services

import (
	"math"

	"github.com/golang/geo/r2"
)

// MoveParameters - 웨이포인트까지 회전각(반시계 양수)과 직진 거리
type MoveParameters struct {
	TurnDegrees float64
	Distance    float64
}

// WaypointToCommand - 로버 위치와 방향각(+y 기준 반시계)에서 웨이포인트로 가기 위한 회전/이동량.
// 회전각은 (-180, 180] 범위로 정규화한다.
func WaypointToCommand(robot r2.Point, angleDegrees float64, waypoint r2.Point) MoveParameters {
	delta := waypoint.Sub(robot)
	distance := delta.Norm()
	if distance == 0 {
		return MoveParameters{}
	}

	heading := HeadingVector(angleDegrees)
	// 부호 있는 각도: atan2(외적, 내적)
	turn := math.Atan2(heading.Cross(delta), heading.Dot(delta)) * 180 / math.Pi
	return MoveParameters{TurnDegrees: NormalizeDegrees(turn), Distance: distance}
}

// NormalizeDegrees - 각도를 (-180, 180] 범위로
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg <= -180 {
		deg += 360
	} else if deg > 180 {
		deg -= 360
	}
	return deg
}
