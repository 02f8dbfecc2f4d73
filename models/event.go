package models

// UIEventType - 사용자 인터페이스 이벤트 종류
type UIEventType string

const (
	EventForwardPressed            UIEventType = "forward_pressed"
	EventForwardReleased           UIEventType = "forward_released"
	EventBackwardPressed           UIEventType = "backward_pressed"
	EventBackwardReleased          UIEventType = "backward_released"
	EventTurnClockwisePressed      UIEventType = "turn_clockwise_pressed"
	EventTurnClockwiseReleased     UIEventType = "turn_clockwise_released"
	EventTurnAntiClockwisePressed  UIEventType = "turn_anticlockwise_pressed"
	EventTurnAntiClockwiseReleased UIEventType = "turn_anticlockwise_released"
	EventStopPressed               UIEventType = "stop_pressed"
	EventEmergencyStopPressed      UIEventType = "emergency_stop_pressed"
	EventSensorLeftPressed         UIEventType = "sensor_left_pressed"
	EventSensorLeftReleased        UIEventType = "sensor_left_released"
	EventSensorRightPressed        UIEventType = "sensor_right_pressed"
	EventSensorRightReleased       UIEventType = "sensor_right_released"
	EventDestinationCreated        UIEventType = "destination_created"
	EventManual                    UIEventType = "manual"
	EventAuto                      UIEventType = "auto"
	EventClose                     UIEventType = "close"
	EventAddNoGoZone               UIEventType = "add_no_go_zone"
)

// UIEvent - UI 이벤트. 격자 좌표만 사용한다.
type UIEvent struct {
	Type        UIEventType  `json:"type"`
	Destination GridLocation `json:"destination"`
	NoGoStart   GridLocation `json:"no_go_start"`
	NoGoEnd     GridLocation `json:"no_go_end"`
}

// UIEventTypes - 모든 UI 이벤트 종류
var UIEventTypes = []UIEventType{
	EventForwardPressed,
	EventForwardReleased,
	EventBackwardPressed,
	EventBackwardReleased,
	EventTurnClockwisePressed,
	EventTurnClockwiseReleased,
	EventTurnAntiClockwisePressed,
	EventTurnAntiClockwiseReleased,
	EventStopPressed,
	EventEmergencyStopPressed,
	EventSensorLeftPressed,
	EventSensorLeftReleased,
	EventSensorRightPressed,
	EventSensorRightReleased,
	EventDestinationCreated,
	EventManual,
	EventAuto,
	EventClose,
	EventAddNoGoZone,
}

// Valid - 알려진 이벤트 종류인지
func (t UIEventType) Valid() bool {
	for _, known := range UIEventTypes {
		if t == known {
			return true
		}
	}
	return false
}
