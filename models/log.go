package models

import (
	"time"
)

// 로그 이벤트 종류
const (
	EventTypeCommand       = "command"
	EventTypeTelemetry     = "telemetry"
	EventTypePathPlanned   = "path_planned"
	EventTypePathFailed    = "path_failed"
	EventTypeReplan        = "replan"
	EventTypeEmergencyStop = "emergency_stop"
	EventTypeModeChange    = "mode_change"
	EventTypeNoGoZone      = "no_go_zone"
)

// RoverLog - 로버 행동 로그
type RoverLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	SessionID   string    `gorm:"index;size:36" json:"session_id"`
	MissionID   string    `gorm:"size:36" json:"mission_id"`
	EventType   string    `gorm:"index;size:32" json:"event_type"`
	MessageType string    `gorm:"size:32" json:"message_type"`

	// 로버 상태
	PositionX    float64 `json:"position_x"`
	PositionY    float64 `json:"position_y"`
	AngleDegrees float64 `json:"angle_degrees"`
	Mode         string  `json:"mode"`

	// 명령 정보
	CommandID    int32   `json:"command_id"`
	CommandKind  string  `json:"command_kind"`
	CommandValue float64 `json:"command_value"`

	// 작업 정보
	CurrentJob  int32 `json:"current_job"`
	Interrupted bool  `json:"interrupted"`

	// 목적지
	TargetRow int `json:"target_row"`
	TargetCol int `json:"target_col"`

	Detail string `json:"detail"`
}

// LogStats - 기간별 로그 통계
type LogStats struct {
	TotalLogs       int64            `json:"total_logs"`
	EventTypeCounts map[string]int64 `json:"event_type_counts"`
	TimeRangeHours  int              `json:"time_range_hours"`
	SessionID       string           `json:"session_id"`
}
