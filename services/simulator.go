package services

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"rover-core/config"
	"rover-core/models"

	"github.com/golang/geo/r2"
)

// CommandSource - 구동부가 명령을 꺼내 오는 곳 (CommandQueue 또는 원격 연결)
type CommandSource interface {
	Receive() (models.Command, bool)
}

// TelemetrySink - 구동부가 상태를 보내는 곳
type TelemetrySink interface {
	Send(models.Telemetry)
}

const (
	armTurnRate      = 45.0 // deg/s
	maxArmAngle      = 90.0
	armLength        = 0.1 // m, 로버 중심 → 색상 센서
	distanceRange    = 0.5 // m, 거리 센서 최대 측정 거리
	jobDoneTolerance = 1e-9
)

// Simulator - 명령을 받아 로버 움직임을 흉내 내는 구동부.
// groundTruth가 있으면 그 맵에서 거리/색상 센서 값을 만든다.
type Simulator struct {
	commands    CommandSource
	telemetry   TelemetrySink
	groundTruth *WorldMap
	jobs        *JobQueue

	// 구동 상태
	autoMode  bool
	speed     float64 // m/s
	turnRate  float64 // deg/s
	position  r2.Point
	angle     float64
	armAngle  float64 // 양수 = 시계 방향
	move      float64 // 수동 이동 방향 (+1/-1/0)
	turn      float64 // 수동 회전 방향
	arm       float64 // 수동 팔 회전 방향
	current   models.Job
	remaining float64 // 현재 작업의 남은 거리(m) 또는 각도(도)

	interrupted    bool
	interruptedJob int32

	tick            time.Duration
	messageInterval time.Duration
	nextMessage     time.Time
	now             func() time.Time

	mu sync.Mutex
}

// NewSimulator - 시뮬레이터 생성. groundTruth는 nil이어도 된다.
func NewSimulator(commands CommandSource, telemetry TelemetrySink, groundTruth *WorldMap, s config.Settings) *Simulator {
	sim := &Simulator{
		commands:        commands,
		telemetry:       telemetry,
		groundTruth:     groundTruth,
		jobs:            NewJobQueue(),
		speed:           s.DefaultSpeed,
		turnRate:        s.DefaultTurnRate,
		current:         models.IdleJob,
		interruptedJob:  models.IdleJobID,
		tick:            s.TickInterval,
		messageInterval: s.TelemetryInterval,
		now:             time.Now,
	}
	if groundTruth != nil {
		sim.position = groundTruth.LandingSite()
	}
	return sim
}

// Run - ctx가 끝날 때까지 tick마다 Step 호출
func (s *Simulator) Run(ctx context.Context) error {
	tick := s.tick
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	log.Println("🚀 로버 시뮬레이터 시작")
	last := s.now()
	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 로버 시뮬레이터 중지")
			return nil
		case <-ticker.C:
			now := s.now()
			s.Step(now.Sub(last))
			last = now
		}
	}
}

// Step - 받은 명령 처리 → 위치 갱신 → 자동 작업 진행 → 상태 전송
func (s *Simulator) Step(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		cmd, ok := s.commands.Receive()
		if !ok {
			break
		}
		s.apply(cmd)
	}

	sec := dt.Seconds()
	s.updateManual(sec)
	if s.autoMode {
		s.advanceJob(sec)
	}
	s.sendMessage(false)
}

func (s *Simulator) apply(cmd models.Command) {
	if err := cmd.Validate(); err != nil {
		log.Printf("⚠️ 잘못된 명령 무시: %v", err)
		return
	}

	switch cmd.Kind {
	case models.CommandSetAutoMode:
		s.autoMode = cmd.Value == 1
		log.Printf("🎮 구동부 모드: auto=%v", s.autoMode)
	case models.CommandSetDefaultSpeed:
		if cmd.Value > 0 {
			s.speed = cmd.Value
		}
	case models.CommandSetDefaultTurnRate:
		if cmd.Value > 0 {
			s.turnRate = cmd.Value
		}
	case models.CommandManualMove:
		s.move = cmd.Value
	case models.CommandManualTurn:
		s.turn = cmd.Value
	case models.CommandManualArmTurn:
		s.arm = cmd.Value
	case models.CommandManualStop:
		s.stopMotors()
	case models.CommandAutoMoveMetres, models.CommandAutoTurnDegrees:
		s.jobs.Add(cmd)
	case models.CommandEmergencyStop:
		s.autoMode = false
		s.stopMotors()
		s.jobs.Clear()
		s.interrupt()
		log.Printf("🛑 긴급 정지 [%d]", cmd.ID)
	}
}

func (s *Simulator) stopMotors() {
	s.move, s.turn, s.arm = 0, 0, 0
}

// interrupt - 현재 작업을 중단하고 즉시 상태 전송
func (s *Simulator) interrupt() {
	s.interrupted = true
	s.interruptedJob = s.current.ID
	s.current = models.IdleJob
	s.remaining = 0
	s.sendMessage(true)
}

func (s *Simulator) updateManual(sec float64) {
	if s.move != 0 {
		s.drive(s.move * s.speed * sec)
	}
	if s.turn != 0 {
		s.angle = NormalizeDegrees(s.angle + s.turn*s.turnRate*sec)
	}
	if s.arm != 0 {
		s.armAngle = math.Max(-maxArmAngle, math.Min(maxArmAngle, s.armAngle+s.arm*armTurnRate*sec))
	}
}

func (s *Simulator) advanceJob(sec float64) {
	if s.current.IsIdle() {
		job, ok := s.jobs.Receive()
		if !ok {
			return
		}
		s.current = job
		s.remaining = math.Abs(job.Command.Value)
		s.interrupted = false
		return
	}

	cmd := s.current.Command
	sign := 1.0
	if cmd.Value < 0 {
		sign = -1
	}

	switch cmd.Kind {
	case models.CommandAutoMoveMetres:
		step := math.Min(s.speed*sec, s.remaining)
		if !s.drive(sign * step) {
			log.Printf("⚠️ 장애물에 막혀 작업 중단 [%d]", s.current.ID)
			s.interrupt()
			return
		}
		s.remaining -= step
	case models.CommandAutoTurnDegrees:
		step := math.Min(s.turnRate*sec, s.remaining)
		s.angle = NormalizeDegrees(s.angle + sign*step)
		s.remaining -= step
	}

	if s.remaining <= jobDoneTolerance {
		s.jobs.SetLastFinished(s.current.ID)
		s.current = models.IdleJob
		s.remaining = 0
		s.sendMessage(true)
	}
}

// drive - 방향각으로 d(m)만큼 이동. 실제 맵의 장애물 셀로는 들어가지 않는다.
func (s *Simulator) drive(d float64) bool {
	next := s.position.Add(HeadingVector(s.angle).Mul(d))
	if s.blocked(next) {
		return false
	}
	s.position = next
	return true
}

func (s *Simulator) blocked(p r2.Point) bool {
	if s.groundTruth == nil || s.groundTruth.IsPointOutOfBounds(p) {
		return false
	}
	v, err := s.groundTruth.Get(models.PropertyObstacle, s.groundTruth.MetricToGrid(p))
	return err == nil && v > traversableThreshold
}

// sendMessage - priority가 아니면 messageInterval 간격으로만 보낸다
func (s *Simulator) sendMessage(priority bool) {
	now := s.now()
	if !priority && now.Before(s.nextMessage) {
		return
	}
	s.nextMessage = now.Add(s.messageInterval)
	s.telemetry.Send(s.snapshot())
}

func (s *Simulator) snapshot() models.Telemetry {
	sensor := s.colorSensorPosition()
	return models.Telemetry{
		Position:            s.position,
		AngleDegrees:        s.angle,
		ColorSensorPosition: sensor,
		SensorRGB:           s.readColor(sensor),
		SensorDistance:      s.readDistance(),
		CurrentJob:          s.current.ID,
		LastJobCompleted:    s.jobs.LastFinished(),
		LastJobReceived:     s.jobs.LastJob(),
		Interrupted:         s.interrupted,
		InterruptedJob:      s.interruptedJob,
	}
}

func (s *Simulator) colorSensorPosition() r2.Point {
	return s.position.Add(HeadingVector(s.angle - s.armAngle).Mul(armLength))
}

// readDistance - 방향각을 따라 반 셀씩 나아가며 첫 장애물까지 거리
func (s *Simulator) readDistance() models.Distance {
	if s.groundTruth == nil {
		return models.NoReading
	}
	heading := HeadingVector(s.angle)
	step := s.groundTruth.GridSize() / 2
	for t := step; t <= distanceRange; t += step {
		p := s.position.Add(heading.Mul(t))
		if s.groundTruth.IsPointOutOfBounds(p) {
			return models.NoReading
		}
		if s.blocked(p) {
			return models.Distance(t)
		}
	}
	return models.NoReading
}

// readColor - 센서 아래 셀의 속성에 해당하는 기준 색
func (s *Simulator) readColor(sensor r2.Point) models.RGB {
	white := ReferenceColors[ColorWhite]
	if s.groundTruth == nil {
		return white
	}
	p, err := s.groundTruth.MaxLikelihoodProperty(s.groundTruth.MetricToGrid(sensor))
	if err != nil {
		return white
	}
	switch p {
	case models.PropertyTracksFootsteps, models.PropertyTracksVehicle, models.PropertyTracksLanding:
		p = models.PropertyTracks
	}
	for _, c := range colorOrder {
		if ColorKey[c] == p && p != models.PropertyNone {
			return ReferenceColors[c]
		}
	}
	return white
}

// ========================================
// 조회
// ========================================

// Pose - 현재 위치와 방향각
func (s *Simulator) Pose() models.VehiclePose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.VehiclePose{Position: s.position, AngleDegrees: s.angle}
}

// SetPose - 위치와 방향각 지정 (시작 위치 설정용)
func (s *Simulator) SetPose(p r2.Point, angleDegrees float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = p
	s.angle = NormalizeDegrees(angleDegrees)
}

func (s *Simulator) AutoMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoMode
}

func (s *Simulator) CurrentJob() models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Telemetry - 지금 보낼 상태 메시지 (전송하지 않음)
func (s *Simulator) Telemetry() models.Telemetry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}
