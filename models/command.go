package models

import "fmt"

// CommandKind - 구동부로 보내는 명령 종류 (닫힌 집합)
type CommandKind string

const (
	CommandSetDefaultSpeed    CommandKind = "set_default_speed"     // m/s
	CommandSetDefaultTurnRate CommandKind = "set_default_turn_rate" // deg/s
	CommandSetAutoMode        CommandKind = "set_auto_mode"         // 1 = 자동, 0 = 수동
	CommandManualMove         CommandKind = "manual_move"           // +1 전진, -1 후진
	CommandManualTurn         CommandKind = "manual_turn"           // +1 반시계, -1 시계
	CommandManualArmTurn      CommandKind = "manual_arm_turn"       // +1 시계, -1 반시계
	CommandManualStop         CommandKind = "manual_stop"
	CommandAutoMoveMetres     CommandKind = "auto_move_metres"  // 부호 있는 거리 (m)
	CommandAutoTurnDegrees    CommandKind = "auto_turn_degrees" // 양수 = 반시계
	CommandEmergencyStop      CommandKind = "emergency_stop"
)

// CommandKinds - 모든 명령 종류
var CommandKinds = []CommandKind{
	CommandSetDefaultSpeed,
	CommandSetDefaultTurnRate,
	CommandSetAutoMode,
	CommandManualMove,
	CommandManualTurn,
	CommandManualArmTurn,
	CommandManualStop,
	CommandAutoMoveMetres,
	CommandAutoTurnDegrees,
	CommandEmergencyStop,
}

// TakesValue - 값이 의미 있는 명령인지. 정지 명령의 값은 무시된다.
func (k CommandKind) TakesValue() bool {
	switch k {
	case CommandManualStop, CommandEmergencyStop:
		return false
	}
	return true
}

// IsAutoJob - 구동부 작업 큐에 들어가는 자동 명령인지
func (k CommandKind) IsAutoJob() bool {
	return k == CommandAutoMoveMetres || k == CommandAutoTurnDegrees
}

// Valid - 알려진 명령 종류인지
func (k CommandKind) Valid() bool {
	for _, known := range CommandKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Command - 불변 명령 (종류, 값, 고유 ID)
type Command struct {
	ID    int32       `json:"id"`
	Kind  CommandKind `json:"kind"`
	Value float64     `json:"value"`
}

// Validate - 종류별 값 규칙 확인
func (c Command) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("알 수 없는 명령: %q", c.Kind)
	}
	if c.ID <= 0 {
		return fmt.Errorf("잘못된 명령 ID: %d", c.ID)
	}
	switch c.Kind {
	case CommandSetAutoMode:
		if c.Value != 0 && c.Value != 1 {
			return fmt.Errorf("%s 값은 0 또는 1이어야 합니다: %v", c.Kind, c.Value)
		}
	case CommandManualMove, CommandManualTurn, CommandManualArmTurn:
		if c.Value != 1 && c.Value != -1 {
			return fmt.Errorf("%s 값은 ±1이어야 합니다: %v", c.Kind, c.Value)
		}
	}
	return nil
}

func (c Command) String() string {
	if !c.Kind.TakesValue() {
		return fmt.Sprintf("%s [%d]", c.Kind, c.ID)
	}
	return fmt.Sprintf("%s %.3f [%d]", c.Kind, c.Value, c.ID)
}

// IdleJobID - 실행 중인 작업이 없음을 나타내는 ID
const IdleJobID int32 = -1

// Job - 구동부가 추적하는 작업
type Job struct {
	ID      int32    `json:"id"`
	Command *Command `json:"command,omitempty"`
}

// IdleJob - 대기 작업 (명령 없음)
var IdleJob = Job{ID: IdleJobID}

// NewJob - 명령을 감싸는 작업 생성
func NewJob(cmd Command) Job {
	return Job{ID: cmd.ID, Command: &cmd}
}

// IsIdle - 대기 작업 여부
func (j Job) IsIdle() bool {
	return j.ID == IdleJobID
}
