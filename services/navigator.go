package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"rover-core/config"
	"rover-core/models"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"
)

// EventRecorder - 주행 이벤트 기록 (LogBuffer가 구현)
type EventRecorder interface {
	AddLog(entry models.RoverLog)
}

// Navigator - 판단부 제어 루프.
// 텔레메트리로 맵을 갱신하고, UI 이벤트를 명령으로 바꾸고, 자동 모드에서는 경로를 따라 명령을 보낸다.
type Navigator struct {
	settings  config.Settings
	world     *WorldMap
	decision  *DecisionMaker
	commands  *CommandQueue
	telemetry *TelemetryQueue
	events    *UIEventQueue
	tracker   *JobTracker
	detector  *ColorDetector
	colorKey  map[SurfaceColor]models.Property

	recorder      EventRecorder
	broadcastFunc func(models.WebSocketMessage)

	mode        models.RoverMode
	position    r2.Point
	colorSensor r2.Point
	angle       float64
	missionID   string
	destination *models.GridLocation
	blocked     bool
	announced   bool // 도착 알림을 보냈는지
	replans     int  // 마지막으로 기록한 재계획 횟수
	exit        bool

	mu sync.Mutex
}

// NewNavigator - 수동 모드로 시작한다
func NewNavigator(world *WorldMap, commands *CommandQueue, telemetry *TelemetryQueue, events *UIEventQueue, s config.Settings) *Navigator {
	return &Navigator{
		settings:  s,
		world:     world,
		decision:  NewDecisionMaker(world, s),
		commands:  commands,
		telemetry: telemetry,
		events:    events,
		tracker:   NewJobTracker(),
		detector:  NewDefaultColorDetector(),
		colorKey:  ColorKey,
		mode:      models.ModeManual,
		position:  world.LandingSite(),
	}
}

// SetRecorder - 이벤트 로그 저장소 연결
func (n *Navigator) SetRecorder(r EventRecorder) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recorder = r
}

// SetBroadcast - 웹 클라이언트 브로드캐스트 함수 연결
func (n *Navigator) SetBroadcast(fn func(models.WebSocketMessage)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcastFunc = fn
}

// Run - 기본 속도/회전 속도를 보내고 tick마다 Step. 종료 이벤트나 ctx 종료 시 반환.
func (n *Navigator) Run(ctx context.Context) error {
	n.commands.SetDefaultSpeed(n.settings.DefaultSpeed)
	n.commands.SetDefaultTurnRate(n.settings.DefaultTurnRate)

	tick := n.settings.TickInterval
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	log.Println("🧭 판단부 루프 시작")
	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 판단부 루프 중지")
			return nil
		case <-ticker.C:
			n.Step()
			if n.Exiting() {
				log.Println("👋 종료 요청 처리 완료")
				return nil
			}
		}
	}
}

// Step - 현재 모드에 맞는 한 단계 실행
func (n *Navigator) Step() {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.mode {
	case models.ModeAuto:
		n.autonomousStep()
	default:
		n.manualStep()
	}
}

func (n *Navigator) autonomousStep() {
	stopped := false
	if n.events.CheckEvent(models.EventEmergencyStopPressed) || n.events.CheckEvent(models.EventManual) {
		n.commands.EmergencyStop()
		// 다시 자동 모드를 누르기 전까지 명령을 보내지 않는다
		n.setMode(models.ModeManual)
		n.commands.SetAutoMode(false)
		// 자동 모드 중 눌린 수동 버튼은 버린다
		n.events.Clear()
		n.tracker.Clear()
		n.record(models.RoverLog{EventType: models.EventTypeEmergencyStop})
		stopped = true
	}

	n.processTelemetry()
	n.processUIEvent()

	if !stopped && n.tracker.Empty() {
		n.moveToNextPosition()
	}
}

func (n *Navigator) manualStep() {
	if n.events.CheckEvent(models.EventEmergencyStopPressed) {
		log.Println("🛑 긴급 정지")
		n.commands.EmergencyStop()
		n.events.Clear()
		n.tracker.Clear()
		n.record(models.RoverLog{EventType: models.EventTypeEmergencyStop})
	}

	n.processTelemetry()
	n.processUIEvent()
}

func (n *Navigator) setMode(mode models.RoverMode) {
	if n.mode == mode {
		return
	}
	n.mode = mode
	log.Printf("🎮 모드 변경: %s", mode)
	n.record(models.RoverLog{EventType: models.EventTypeModeChange})
	n.broadcastStatus()
}

// ========================================
// UI 이벤트 처리
// ========================================

func (n *Navigator) processUIEvent() {
	event, ok := n.events.Receive()
	if !ok {
		return
	}

	switch event.Type {
	case models.EventManual:
		n.setMode(models.ModeManual)
		n.commands.SetAutoMode(false)
	case models.EventAuto:
		n.setMode(models.ModeAuto)
		n.commands.EmergencyStop()
		n.commands.SetAutoMode(true)
		n.tracker.Clear()
	case models.EventClose:
		n.exit = true
		n.commands.EmergencyStop()
		log.Println("🚪 종료 요청")
	case models.EventAddNoGoZone:
		marked, _ := MarkNoGoZone(n.world, event.NoGoStart, event.NoGoEnd)
		log.Printf("🚧 금지구역 추가: %v-%v (%d칸)", event.NoGoStart, event.NoGoEnd, marked)
		n.record(models.RoverLog{
			EventType: models.EventTypeNoGoZone,
			TargetRow: event.NoGoEnd.Row,
			TargetCol: event.NoGoEnd.Col,
			Detail:    fmt.Sprintf("%v-%v", event.NoGoStart, event.NoGoEnd),
		})
		n.broadcast(models.MessageTypeMapUpdate, n.world.Snapshot())
	default:
		if n.mode == models.ModeAuto {
			n.processAutoEvent(event)
		} else {
			n.processManualEvent(event)
		}
	}
}

func (n *Navigator) processAutoEvent(event models.UIEvent) {
	if event.Type != models.EventDestinationCreated {
		log.Printf("⚠️ 자동 모드에서 지원하지 않는 이벤트: %s", event.Type)
		return
	}

	// 출발 전에 센서로 주변을 한 바퀴 훑는다
	scan := n.settings.ScanTurnDegrees
	if scan != 0 {
		n.tracker.Track(n.commands.TurnDegrees(scan))
		n.tracker.Track(n.commands.TurnDegrees(-scan))
	}

	dest := event.Destination
	n.destination = &dest
	n.missionID = uuid.NewString()
	n.blocked = false
	n.announced = false
	n.replans = 0

	if err := n.decision.FindPath(n.position, dest); err != nil {
		log.Printf("❌ 경로 계획 실패 %v: %v", dest, err)
		n.blocked = true
		n.record(models.RoverLog{
			EventType: models.EventTypePathFailed,
			TargetRow: dest.Row,
			TargetCol: dest.Col,
			Detail:    err.Error(),
		})
		n.broadcast(models.MessageTypeNavWarning, models.NavWarning{MissionID: n.missionID, Reason: err.Error()})
		return
	}

	log.Printf("📍 목적지 설정: %v (경로 %d칸)", dest, len(n.decision.Path()))
	n.record(models.RoverLog{
		EventType: models.EventTypePathPlanned,
		TargetRow: dest.Row,
		TargetCol: dest.Col,
		Detail:    fmt.Sprintf("goal=%v cells=%d", n.decision.Goal(), len(n.decision.Path())),
	})
	n.broadcastPath()
}

func (n *Navigator) processManualEvent(event models.UIEvent) {
	var id int32
	switch event.Type {
	case models.EventForwardPressed:
		id = n.commands.ManualMoveForward()
	case models.EventBackwardPressed:
		id = n.commands.ManualMoveBackward()
	case models.EventTurnClockwisePressed:
		id = n.commands.ManualTurnClockwise()
	case models.EventTurnAntiClockwisePressed:
		id = n.commands.ManualTurnAntiClockwise()
	case models.EventSensorLeftPressed:
		id = n.commands.ManualArmTurnAntiClockwise()
	case models.EventSensorRightPressed:
		id = n.commands.ManualArmTurnClockwise()
	case models.EventForwardReleased, models.EventBackwardReleased,
		models.EventTurnClockwiseReleased, models.EventTurnAntiClockwiseReleased,
		models.EventSensorLeftReleased, models.EventSensorRightReleased,
		models.EventStopPressed:
		id = n.commands.ManualStop()
	default:
		log.Printf("⚠️ 수동 모드에서 지원하지 않는 이벤트: %s", event.Type)
		return
	}
	if n.settings.Debug.ShowManualCommands {
		log.Printf("🕹️ %s [%d]", event.Type, id)
	}
}

// ========================================
// 경로 추종
// ========================================

func (n *Navigator) moveToNextPosition() {
	if n.decision.HasReached() {
		if n.destination != nil && !n.blocked && !n.announced && n.decision.State() == models.NavReached {
			n.announced = true
			log.Printf("✅ 목적지 도착: %v", *n.destination)
			n.broadcastStatus()
		}
		return
	}

	next, ok := n.decision.NextPosition()
	if !ok {
		log.Println("⚠️ 목적지가 막혀 있습니다")
		n.blocked = true
		n.record(models.RoverLog{EventType: models.EventTypePathFailed, Detail: "destination blocked"})
		n.broadcast(models.MessageTypeNavWarning, models.NavWarning{MissionID: n.missionID, Reason: "destination blocked"})
		return
	}
	if replans := n.decision.Replans(); replans > n.replans {
		n.replans = replans
		n.record(models.RoverLog{EventType: models.EventTypeReplan, Detail: fmt.Sprintf("replans=%d", replans)})
		n.broadcastPath()
	}
	n.sendMoveCommand(next)
}

// sendMoveCommand - 회전 후 직진 두 개의 자동 명령으로 나눠 보낸다
func (n *Navigator) sendMoveCommand(waypoint r2.Point) {
	params := WaypointToCommand(n.position, n.angle, waypoint)
	turnID := n.commands.TurnDegrees(params.TurnDegrees)
	n.tracker.Track(turnID)
	moveID := n.commands.MoveForwardMetres(params.Distance)
	n.tracker.Track(moveID)

	if n.settings.Debug.ShowCommands {
		log.Printf("➡️ 웨이포인트 (%.3f, %.3f): 회전 %.1f° [%d], 직진 %.3fm [%d]",
			waypoint.X, waypoint.Y, params.TurnDegrees, turnID, params.Distance, moveID)
	}
}

// ========================================
// 텔레메트리 처리
// ========================================

func (n *Navigator) processTelemetry() {
	msg, ok := n.telemetry.Receive()
	if !ok {
		return
	}
	n.updateMap(msg)
	if id, retired := n.tracker.Observe(msg); retired && n.settings.Debug.ShowCommands {
		log.Printf("✔️ 작업 완료 [%d]", id)
	}
	if msg.Interrupted && msg.InterruptedJob != models.IdleJobID && n.settings.Debug.ShowCommands {
		log.Printf("⚠️ 작업 중단됨 [%d]", msg.InterruptedJob)
	}
}

// updateMap - 로버 위치 갱신 후 거리/색상 센서 값을 맵에 반영
func (n *Navigator) updateMap(msg models.Telemetry) {
	if n.settings.Debug.ShowTelemetry {
		log.Printf("📡 위치 (%.3f, %.3f, %.1f°) RGB (%.3f, %.3f, %.3f)",
			msg.Position.X, msg.Position.Y, msg.AngleDegrees,
			msg.SensorRGB.R, msg.SensorRGB.G, msg.SensorRGB.B)
	}

	n.position = msg.Position
	n.colorSensor = msg.ColorSensorPosition
	n.angle = msg.AngleDegrees

	InterpretDistance(n.world, msg.SensorDistance, n.position, n.angle)

	color := n.detector.Detect(msg.SensorRGB)
	if err := InterpretColor(n.world, n.colorKey, color, n.colorSensor); err != nil && !errors.Is(err, ErrOutOfBounds) {
		log.Printf("⚠️ 색상 해석 실패: %v", err)
	}
}

// ========================================
// 조회 (핸들러용)
// ========================================

// Status - 현재 상태 요약
func (n *Navigator) Status() models.RoverStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status()
}

func (n *Navigator) status() models.RoverStatus {
	var dest *models.GridLocation
	if n.destination != nil {
		d := *n.destination
		dest = &d
	}
	return models.RoverStatus{
		MissionID:    n.missionID,
		Mode:         n.mode,
		Navigation:   n.decision.State(),
		Position:     n.position,
		AngleDegrees: n.angle,
		Destination:  dest,
		PendingJobs:  n.tracker.Pending(),
		Blocked:      n.blocked,
		Exiting:      n.exit,
	}
}

func (n *Navigator) Mode() models.RoverMode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mode
}

func (n *Navigator) Exiting() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.exit
}

// Path - 현재 경로와 보정된 목적지
func (n *Navigator) Path() models.PathData {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pathData()
}

func (n *Navigator) pathData() models.PathData {
	var dest models.GridLocation
	if n.destination != nil {
		dest = *n.destination
	}
	goal := n.decision.Goal()
	return models.PathData{
		MissionID:   n.missionID,
		Cells:       n.decision.Path(),
		Destination: goal,
		Adjusted:    n.destination != nil && goal != dest,
	}
}

// Preview - 로버 상태를 바꾸지 않고 경로만 계산
func (n *Navigator) Preview(start, destination models.GridLocation) ([]models.GridLocation, models.GridLocation, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.decision.Preview(start, destination)
}

// ReplaceMap - 불러온 맵으로 교체. 제어 루프 한 단계와 겹치지 않는다.
// 남은 웨이포인트는 다음 단계에서 새 맵 기준으로 다시 검사된다.
func (n *Navigator) ReplaceMap(loaded *WorldMap) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.world.ReplaceFrom(loaded); err != nil {
		return err
	}
	log.Println("🗺️ 맵 교체 완료")
	n.broadcastStatus()
	return nil
}

// Footprints - 흔적 셀 중 발자국을 분리해 맵에 반영하고 내보내기용 좌표로 반환
func (n *Navigator) Footprints() MapTracks {
	n.mu.Lock()
	defer n.mu.Unlock()
	if found := DetectFootsteps(n.world); len(found) > 0 && n.settings.Debug.ShowPath {
		log.Printf("👣 발자국 %d칸 분리", len(found))
	}
	return MapTracks{Footprints: CellCentres(n.world, n.world.Cells(models.PropertyTracksFootsteps))}
}

// ========================================
// 기록 / 브로드캐스트
// ========================================

func (n *Navigator) record(entry models.RoverLog) {
	if n.recorder == nil {
		return
	}
	entry.CreatedAt = time.Now()
	entry.MissionID = n.missionID
	if entry.MessageType == "" {
		entry.MessageType = models.MessageTypeStatus
	}
	entry.PositionX = n.position.X
	entry.PositionY = n.position.Y
	entry.AngleDegrees = n.angle
	entry.Mode = string(n.mode)
	n.recorder.AddLog(entry)
}

func (n *Navigator) broadcast(msgType string, data interface{}) {
	if n.broadcastFunc == nil {
		return
	}
	n.broadcastFunc(models.WebSocketMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (n *Navigator) broadcastStatus() {
	n.broadcast(models.MessageTypeStatus, n.status())
}

func (n *Navigator) broadcastPath() {
	n.broadcast(models.MessageTypePathUpdate, n.pathData())
}
