package services

import (
	"sync"
	"testing"
	"time"

	"rover-core/config"
	"rover-core/models"
)

// memoryRecorder - 기록된 로그를 메모리에 보관
type memoryRecorder struct {
	mu      sync.Mutex
	entries []models.RoverLog
}

func (r *memoryRecorder) AddLog(entry models.RoverLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *memoryRecorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

type navHarness struct {
	world     *WorldMap
	nav       *Navigator
	commands  *CommandQueue
	telemetry *TelemetryQueue
	events    *UIEventQueue
	recorder  *memoryRecorder
	messages  []models.WebSocketMessage
}

func newNavHarness(t *testing.T, s config.Settings) *navHarness {
	t.Helper()
	h := &navHarness{
		world:     newTestWorld(t, 20, 20),
		commands:  NewCommandQueue(),
		telemetry: NewTelemetryQueue(),
		events:    NewUIEventQueue(),
		recorder:  &memoryRecorder{},
	}
	h.nav = NewNavigator(h.world, h.commands, h.telemetry, h.events, s)
	h.nav.SetRecorder(h.recorder)
	h.nav.SetBroadcast(func(msg models.WebSocketMessage) {
		h.messages = append(h.messages, msg)
	})
	return h
}

func (h *navHarness) kinds() []models.CommandKind {
	var out []models.CommandKind
	for _, c := range h.commands.Pending() {
		out = append(out, c.Kind)
	}
	return out
}

func (h *navHarness) sawMessage(msgType string) bool {
	for _, m := range h.messages {
		if m.Type == msgType {
			return true
		}
	}
	return false
}

func TestNavigatorManualEvents(t *testing.T) {
	h := newNavHarness(t, testSettings(0, 5))

	tests := []struct {
		event models.UIEventType
		kind  models.CommandKind
		value float64
	}{
		{models.EventForwardPressed, models.CommandManualMove, 1},
		{models.EventBackwardPressed, models.CommandManualMove, -1},
		{models.EventTurnClockwisePressed, models.CommandManualTurn, -1},
		{models.EventTurnAntiClockwisePressed, models.CommandManualTurn, 1},
		{models.EventSensorLeftPressed, models.CommandManualArmTurn, -1},
		{models.EventSensorRightPressed, models.CommandManualArmTurn, 1},
		{models.EventForwardReleased, models.CommandManualStop, 0},
		{models.EventStopPressed, models.CommandManualStop, 0},
	}
	for _, tt := range tests {
		h.events.AddType(tt.event)
		h.nav.Step()
		cmd, ok := h.commands.Receive()
		if !ok || cmd.Kind != tt.kind || cmd.Value != tt.value {
			t.Errorf("%s: expected %s %v, got %v", tt.event, tt.kind, tt.value, cmd)
		}
	}

	// 수동 모드에서 목적지는 무시
	h.events.Add(models.UIEvent{Type: models.EventDestinationCreated, Destination: models.GridLocation{Row: 1, Col: 1}})
	h.nav.Step()
	if h.commands.Len() != 0 {
		t.Errorf("Expected no commands for destination in manual mode, got %v", h.kinds())
	}
}

func TestNavigatorSwitchToAuto(t *testing.T) {
	h := newNavHarness(t, testSettings(0, 5))

	h.events.AddType(models.EventAuto)
	h.nav.Step()

	if h.nav.Mode() != models.ModeAuto {
		t.Fatalf("Expected auto mode, got %s", h.nav.Mode())
	}
	pending := h.commands.Pending()
	if len(pending) != 2 || pending[0].Kind != models.CommandEmergencyStop ||
		pending[1].Kind != models.CommandSetAutoMode || pending[1].Value != 1 {
		t.Errorf("Expected emergency stop then auto mode, got %v", pending)
	}
	if h.recorder.count(models.EventTypeModeChange) != 1 {
		t.Errorf("Expected mode change to be recorded")
	}
	if !h.sawMessage(models.MessageTypeStatus) {
		t.Errorf("Expected status broadcast")
	}
}

func TestNavigatorDestinationScansFirst(t *testing.T) {
	h := newNavHarness(t, testSettings(0, 5))
	h.events.AddType(models.EventAuto)
	h.nav.Step()
	h.commands.Clear()

	dest := models.GridLocation{Row: 10, Col: 14}
	h.events.Add(models.UIEvent{Type: models.EventDestinationCreated, Destination: dest})
	h.nav.Step()

	pending := h.commands.Pending()
	if len(pending) != 2 || pending[0].Value != 360 || pending[1].Value != -360 {
		t.Fatalf("Expected two scan turns, got %v", pending)
	}

	status := h.nav.Status()
	if status.Navigation != models.NavFollowing {
		t.Errorf("Expected following, got %s", status.Navigation)
	}
	if status.Destination == nil || *status.Destination != dest {
		t.Errorf("Expected destination %v, got %v", dest, status.Destination)
	}
	if status.MissionID == "" {
		t.Errorf("Expected mission ID")
	}
	if len(status.PendingJobs) != 2 {
		t.Errorf("Expected 2 pending jobs, got %v", status.PendingJobs)
	}
	if h.recorder.count(models.EventTypePathPlanned) != 1 || !h.sawMessage(models.MessageTypePathUpdate) {
		t.Errorf("Expected path to be recorded and broadcast")
	}

	// 스캔이 끝나기 전에는 이동 명령을 보내지 않는다
	h.commands.Clear()
	h.nav.Step()
	if h.commands.Len() != 0 {
		t.Errorf("Expected no move while scan is pending, got %v", h.kinds())
	}
}

func TestNavigatorBlockedDestination(t *testing.T) {
	h := newNavHarness(t, testSettings(0, 5))
	dest := models.GridLocation{Row: 3, Col: 3}
	_ = h.world.Set(models.PropertyCrater, dest, 1)

	h.events.AddType(models.EventAuto)
	h.nav.Step()
	h.events.Add(models.UIEvent{Type: models.EventDestinationCreated, Destination: dest})
	h.nav.Step()

	if !h.nav.Status().Blocked {
		t.Errorf("Expected blocked status")
	}
	if h.recorder.count(models.EventTypePathFailed) != 1 {
		t.Errorf("Expected path failure to be recorded")
	}
	if !h.sawMessage(models.MessageTypeNavWarning) {
		t.Errorf("Expected nav warning broadcast")
	}
}

func TestNavigatorEmergencyStopInAuto(t *testing.T) {
	h := newNavHarness(t, testSettings(0, 5))
	h.events.AddType(models.EventAuto)
	h.nav.Step()
	h.events.Add(models.UIEvent{Type: models.EventDestinationCreated, Destination: models.GridLocation{Row: 10, Col: 14}})
	h.nav.Step()
	h.commands.Clear()

	h.events.AddType(models.EventForwardPressed)
	h.events.AddType(models.EventEmergencyStopPressed)
	h.nav.Step()

	if h.nav.Mode() != models.ModeManual {
		t.Errorf("Expected manual mode after emergency stop, got %s", h.nav.Mode())
	}
	pending := h.commands.Pending()
	if len(pending) != 2 || pending[0].Kind != models.CommandEmergencyStop ||
		pending[1].Kind != models.CommandSetAutoMode || pending[1].Value != 0 {
		t.Errorf("Expected emergency stop then manual mode, got %v", pending)
	}
	if h.events.HasNewEvents() {
		t.Errorf("Expected queued events to be discarded")
	}
	if len(h.nav.Status().PendingJobs) != 0 {
		t.Errorf("Expected tracked jobs to be cleared")
	}
	if h.recorder.count(models.EventTypeEmergencyStop) != 1 {
		t.Errorf("Expected emergency stop to be recorded")
	}
}

func TestNavigatorEmergencyStopInManual(t *testing.T) {
	h := newNavHarness(t, testSettings(0, 5))
	h.events.AddType(models.EventEmergencyStopPressed)
	h.nav.Step()

	cmd, ok := h.commands.Receive()
	if !ok || cmd.Kind != models.CommandEmergencyStop {
		t.Errorf("Expected emergency stop, got %v", cmd)
	}
	if h.nav.Mode() != models.ModeManual {
		t.Errorf("Expected to stay in manual mode")
	}
}

func TestNavigatorNoGoZoneAndClose(t *testing.T) {
	h := newNavHarness(t, testSettings(0, 5))

	h.events.Add(models.UIEvent{
		Type:      models.EventAddNoGoZone,
		NoGoStart: models.GridLocation{Row: 2, Col: 2},
		NoGoEnd:   models.GridLocation{Row: 1, Col: 1},
	})
	h.nav.Step()
	if h.world.IsTraversable(models.GridLocation{Row: 1, Col: 2}) {
		t.Errorf("Expected no-go zone to be marked")
	}
	if !h.sawMessage(models.MessageTypeMapUpdate) {
		t.Errorf("Expected map update broadcast")
	}

	h.events.AddType(models.EventClose)
	h.nav.Step()
	if !h.nav.Exiting() {
		t.Errorf("Expected exiting after close")
	}
	cmd, _ := h.commands.Receive()
	if cmd.Kind != models.CommandEmergencyStop {
		t.Errorf("Expected emergency stop on close, got %v", cmd)
	}
}

func TestNavigatorUpdatesMapFromTelemetry(t *testing.T) {
	h := newNavHarness(t, testSettings(0, 5))

	h.telemetry.Send(models.Telemetry{
		Position:            h.world.LandingSite(),
		AngleDegrees:        0,
		ColorSensorPosition: cellCentre(t, h.world, models.GridLocation{Row: 10, Col: 10}),
		SensorRGB:           ReferenceColors[ColorGreen],
		SensorDistance:      0.5,
		CurrentJob:          models.IdleJobID,
	})
	h.nav.Step()

	if v, _ := h.world.Get(models.PropertyObstacle, models.GridLocation{Row: 12, Col: 10}); v != 1 {
		t.Errorf("Expected obstacle 0.5m ahead, got %v", v)
	}
	if v, _ := h.world.Get(models.PropertyRadiation, models.GridLocation{Row: 10, Col: 10}); v != 1 {
		t.Errorf("Expected radiation under the sensor, got %v", v)
	}
}

// runMission - 판단부와 시뮬레이터를 번갈아 돌려 도착할 때까지 진행
func runMission(t *testing.T, h *navHarness, sim *Simulator, dest models.GridLocation) {
	t.Helper()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sim.now = func() time.Time { return clock }
	const dt = 100 * time.Millisecond

	step := func() {
		h.nav.Step()
		clock = clock.Add(dt)
		sim.Step(dt)
	}

	h.events.AddType(models.EventAuto)
	step()
	h.events.Add(models.UIEvent{Type: models.EventDestinationCreated, Destination: dest})

	for i := 0; i < 2000; i++ {
		step()
		status := h.nav.Status()
		if status.Blocked {
			t.Fatalf("Expected destination to stay reachable")
		}
		if status.Navigation == models.NavReached && len(status.PendingJobs) == 0 {
			return
		}
	}
	t.Fatalf("Expected to reach %v, still at %v", dest, sim.Pose().Position)
}

func TestNavigatorDrivesSimulatorToDestination(t *testing.T) {
	s := testSettings(0, 1)
	s.ScanTurnDegrees = 0
	s.DefaultSpeed = 1
	s.DefaultTurnRate = 90

	h := newNavHarness(t, s)
	truth := newTestWorld(t, 20, 20)
	sim := NewSimulator(h.commands, h.telemetry, truth, s)

	dest := models.GridLocation{Row: 10, Col: 14}
	runMission(t, h, sim, dest)

	if got := h.world.MetricToGrid(sim.Pose().Position); got != dest {
		t.Errorf("Expected rover in %v, got %v", dest, got)
	}
}

func TestNavigatorReplansAroundDiscoveredObstacle(t *testing.T) {
	s := testSettings(1, 1)
	s.ScanTurnDegrees = 0
	s.DefaultSpeed = 1
	s.DefaultTurnRate = 90

	h := newNavHarness(t, s)
	truth := newTestWorld(t, 20, 20)
	obstacle := models.GridLocation{Row: 10, Col: 12}
	_ = truth.Set(models.PropertyObstacle, obstacle, 1)
	sim := NewSimulator(h.commands, h.telemetry, truth, s)

	dest := models.GridLocation{Row: 10, Col: 14}
	runMission(t, h, sim, dest)

	if v, _ := h.world.Get(models.PropertyObstacle, obstacle); v != 1 {
		t.Errorf("Expected distance sensor to discover %v", obstacle)
	}
	if h.recorder.count(models.EventTypeReplan) == 0 {
		t.Errorf("Expected a replan to be recorded")
	}
	if got := h.world.MetricToGrid(sim.Pose().Position); got != dest {
		t.Errorf("Expected rover in %v, got %v", dest, got)
	}
}
