package models

import "github.com/golang/geo/r2"

// RoverMode - 제어 모드
type RoverMode string

const (
	ModeManual RoverMode = "manual" // UI 입력을 그대로 구동부로 전달
	ModeAuto   RoverMode = "auto"   // 경로를 따라 자율 주행
)

// NavigationState - 경로 추종 상태
type NavigationState string

const (
	NavIdle      NavigationState = "idle"      // 경로 없음
	NavFollowing NavigationState = "following" // 남은 웨이포인트 있음
	NavReached   NavigationState = "reached"   // 경로 소진
)

// RoverStatus - 웹 클라이언트로 보내는 상태 요약
type RoverStatus struct {
	MissionID    string          `json:"mission_id,omitempty"`
	Mode         RoverMode       `json:"mode"`
	Navigation   NavigationState `json:"navigation"`
	Position     r2.Point        `json:"position"`
	AngleDegrees float64         `json:"angle_degrees"`
	Destination  *GridLocation   `json:"destination,omitempty"`
	PendingJobs  []int32         `json:"pending_jobs"`
	Blocked      bool            `json:"blocked"`
	Exiting      bool            `json:"exiting"`
}
