package models

// ========================================
// 메시지 타입 상수
// ========================================
const (
	// 구동부 → 서버
	MessageTypeTelemetry = "telemetry" // 상태 + 센서 + 작업 진행

	// 서버 → 구동부
	MessageTypeCommand = "command" // 구동 명령

	// 서버 → Web
	MessageTypeStatus     = "status"      // 로버 상태 요약
	MessageTypePathUpdate = "path_update" // 새 경로
	MessageTypeMapUpdate  = "map_update"  // 맵 스냅샷
	MessageTypeNavWarning = "nav_warning" // 목적지 차단 등
	MessageTypeSystemInfo = "system_info" // 접속 안내

	// Web → 서버
	MessageTypeUIEvent = "ui_event" // 버튼/목적지/금지구역
)

// ========================================
// 공통 WebSocket 메시지 형식
// ========================================
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"` // Unix timestamp (ms)
}

// ========================================
// 경로 데이터
// ========================================
type PathData struct {
	MissionID   string         `json:"mission_id"`
	Cells       []GridLocation `json:"cells"`
	Destination GridLocation   `json:"destination"`
	Adjusted    bool           `json:"adjusted"` // 목적지 보정 여부
}

// NavWarning - 판단부 경고
type NavWarning struct {
	MissionID string `json:"mission_id,omitempty"`
	Reason    string `json:"reason"`
}
