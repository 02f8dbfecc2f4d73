package services

import (
	"time"

	"rover-core/models"
)

// TelemetryRelay - 구동부 텔레메트리를 기록하고 웹 클라이언트에 알린 뒤 판단부 큐로 넘긴다.
// 프로세스 내 시뮬레이터와 WebSocket 구동부가 같은 경로를 쓴다.
type TelemetryRelay struct {
	next      TelemetrySink
	logs      *LogBuffer // nil이면 기록하지 않음
	broadcast func(models.WebSocketMessage)
}

func NewTelemetryRelay(next TelemetrySink, logs *LogBuffer, broadcast func(models.WebSocketMessage)) *TelemetryRelay {
	return &TelemetryRelay{next: next, logs: logs, broadcast: broadcast}
}

func (r *TelemetryRelay) Send(t models.Telemetry) {
	if r.logs != nil {
		r.logs.LogTelemetry(t)
	}
	if r.broadcast != nil {
		r.broadcast(models.WebSocketMessage{
			Type:      models.MessageTypeTelemetry,
			Data:      t,
			Timestamp: time.Now().UnixMilli(),
		})
	}
	r.next.Send(t)
}
