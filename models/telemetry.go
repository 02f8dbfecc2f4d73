package models

import (
	"encoding/json"
	"math"

	"github.com/golang/geo/r2"
)

// Distance - 거리 센서 값 (m). 측정 불가(무한대)는 JSON에서 null로 표현한다.
type Distance float64

// NoReading - 측정 범위 밖
var NoReading = Distance(math.Inf(1))

func (d Distance) IsInf() bool {
	return math.IsInf(float64(d), 0)
}

func (d Distance) MarshalJSON() ([]byte, error) {
	if d.IsInf() || math.IsNaN(float64(d)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(d))
}

func (d *Distance) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = NoReading
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = Distance(v)
	return nil
}

// Telemetry - 구동부 → 판단부 상태 메시지
type Telemetry struct {
	Position            r2.Point `json:"position"`
	AngleDegrees        float64  `json:"angle_degrees"` // +y 기준 반시계 방향
	ColorSensorPosition r2.Point `json:"color_sensor_position"`
	SensorRGB           RGB      `json:"sensor_rgb"`
	SensorDistance      Distance `json:"sensor_distance_metres"`

	// 작업 진행 정보
	CurrentJob       int32 `json:"current_job"`
	LastJobCompleted int32 `json:"last_job_completed"`
	LastJobReceived  int32 `json:"last_job_received"`
	Interrupted      bool  `json:"interrupted"`
	InterruptedJob   int32 `json:"interrupted_job"`
}

// IsIdle - 구동부가 작업 없이 대기 중인지
func (t Telemetry) IsIdle() bool {
	return t.CurrentJob == IdleJobID
}
