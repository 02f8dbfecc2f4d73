package services

import (
	"math"
	"sync"
	"testing"

	"rover-core/models"
)

func TestCommandQueueIDsIncrease(t *testing.T) {
	q := NewCommandQueue()

	a := q.SetDefaultSpeed(0.1)
	b := q.TurnDegrees(90)
	c := q.MoveForwardMetres(-0.5)
	if a != 1 || b != 2 || c != 3 {
		t.Errorf("Expected IDs 1, 2, 3, got %d, %d, %d", a, b, c)
	}

	for _, want := range []int32{1, 2, 3} {
		cmd, ok := q.Receive()
		if !ok || cmd.ID != want {
			t.Errorf("Expected command %d, got %v (%v)", want, cmd, ok)
		}
	}
	if _, ok := q.Receive(); ok {
		t.Errorf("Expected empty queue")
	}
}

func TestCommandQueueIDWraps(t *testing.T) {
	q := NewCommandQueue()
	q.lastID = math.MaxInt32 - 1

	if id := q.ManualStop(); id != math.MaxInt32 {
		t.Errorf("Expected MaxInt32, got %d", id)
	}
	if id := q.ManualStop(); id != 1 {
		t.Errorf("Expected wrap to 1, got %d", id)
	}
}

func TestCommandQueueStopIgnoresValue(t *testing.T) {
	q := NewCommandQueue()
	q.Send(models.CommandManualStop, 7)

	cmd, _ := q.Receive()
	if cmd.Value != 0 {
		t.Errorf("Expected stop value 0, got %v", cmd.Value)
	}
}

func TestCommandQueueManualValues(t *testing.T) {
	q := NewCommandQueue()
	q.ManualMoveForward()
	q.ManualMoveBackward()
	q.ManualTurnClockwise()
	q.ManualTurnAntiClockwise()
	q.ManualArmTurnClockwise()
	q.ManualArmTurnAntiClockwise()
	q.SetAutoMode(true)

	want := []models.Command{
		{Kind: models.CommandManualMove, Value: 1},
		{Kind: models.CommandManualMove, Value: -1},
		{Kind: models.CommandManualTurn, Value: -1},
		{Kind: models.CommandManualTurn, Value: 1},
		{Kind: models.CommandManualArmTurn, Value: 1},
		{Kind: models.CommandManualArmTurn, Value: -1},
		{Kind: models.CommandSetAutoMode, Value: 1},
	}
	for i, w := range want {
		cmd, ok := q.Receive()
		if !ok || cmd.Kind != w.Kind || cmd.Value != w.Value {
			t.Errorf("Command %d: expected %s %v, got %v", i, w.Kind, w.Value, cmd)
		}
		if err := cmd.Validate(); err != nil {
			t.Errorf("Command %d: expected valid, got %v", i, err)
		}
	}
}

func TestCommandQueueEmergencyStopClears(t *testing.T) {
	q := NewCommandQueue()
	q.TurnDegrees(10)
	q.MoveForwardMetres(1)

	id := q.EmergencyStop()
	if id != 3 {
		t.Errorf("Expected ID 3, got %d", id)
	}
	pending := q.Pending()
	if len(pending) != 1 || pending[0].Kind != models.CommandEmergencyStop {
		t.Errorf("Expected only emergency stop pending, got %v", pending)
	}

	next := q.TurnDegrees(5)
	if next != 4 {
		t.Errorf("Expected IDs to keep increasing, got %d", next)
	}
}

func TestCommandQueueObserve(t *testing.T) {
	q := NewCommandQueue()
	var seen []models.CommandKind
	q.Observe(func(cmd models.Command) { seen = append(seen, cmd.Kind) })

	q.TurnDegrees(1)
	q.EmergencyStop()

	if len(seen) != 2 || seen[1] != models.CommandEmergencyStop {
		t.Errorf("Expected observer to see both commands, got %v", seen)
	}
}

func TestCommandQueueForward(t *testing.T) {
	q := NewCommandQueue()
	q.Forward(models.Command{ID: 7, Kind: models.CommandAutoTurnDegrees, Value: 30})
	q.Forward(models.Command{ID: 8, Kind: models.CommandAutoMoveMetres, Value: 1})

	if q.Len() != 2 {
		t.Fatalf("Expected 2 pending, got %d", q.Len())
	}
	cmd, _ := q.Receive()
	if cmd.ID != 7 {
		t.Errorf("Expected forwarded ID 7, got %d", cmd.ID)
	}

	q.Forward(models.Command{ID: 9, Kind: models.CommandEmergencyStop})
	pending := q.Pending()
	if len(pending) != 1 || pending[0].ID != 9 {
		t.Errorf("Expected emergency stop to clear forwarded commands, got %v", pending)
	}

	// 로컬 ID는 전달받은 ID 이후부터
	if id := q.ManualStop(); id != 10 {
		t.Errorf("Expected next local ID 10, got %d", id)
	}
}

func TestCommandQueueReadySignal(t *testing.T) {
	q := NewCommandQueue()
	q.ManualStop()
	q.ManualStop()

	select {
	case <-q.Ready():
	default:
		t.Fatalf("Expected ready signal")
	}
	select {
	case <-q.Ready():
		t.Errorf("Expected signals to coalesce")
	default:
	}
}

func TestCommandQueueConcurrentSend(t *testing.T) {
	q := NewCommandQueue()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.ManualStop()
			}
		}()
	}
	wg.Wait()

	var last int32
	for {
		cmd, ok := q.Receive()
		if !ok {
			break
		}
		if cmd.ID <= last {
			t.Fatalf("Expected increasing IDs in queue order, got %d after %d", cmd.ID, last)
		}
		last = cmd.ID
	}
	if last != 1000 {
		t.Errorf("Expected last ID 1000, got %d", last)
	}
}

func TestUIEventQueueCheckEvent(t *testing.T) {
	q := NewUIEventQueue()
	q.AddType(models.EventForwardPressed)
	q.Add(models.UIEvent{Type: models.EventEmergencyStopPressed})

	if !q.CheckEvent(models.EventEmergencyStopPressed) {
		t.Errorf("Expected emergency stop to be queued")
	}
	if q.CheckEvent(models.EventAuto) {
		t.Errorf("Expected no auto event")
	}

	e, _ := q.Receive()
	if e.Type != models.EventForwardPressed {
		t.Errorf("Expected FIFO order, got %s", e.Type)
	}

	q.Clear()
	if q.HasNewEvents() {
		t.Errorf("Expected empty queue after clear")
	}
}

func TestJobQueueTracksIDs(t *testing.T) {
	q := NewJobQueue()
	if q.LastJob() != models.IdleJobID || q.LastFinished() != models.IdleJobID {
		t.Errorf("Expected idle IDs on a new queue")
	}

	q.Add(models.Command{ID: 4, Kind: models.CommandAutoTurnDegrees, Value: 90})
	q.Add(models.Command{ID: 5, Kind: models.CommandAutoMoveMetres, Value: 1})
	if q.LastJob() != 5 {
		t.Errorf("Expected last job 5, got %d", q.LastJob())
	}

	job, ok := q.Receive()
	if !ok || job.ID != 4 || job.Command == nil || job.Command.Value != 90 {
		t.Errorf("Expected job 4, got %+v", job)
	}
	q.SetLastFinished(job.ID)
	if q.LastFinished() != 4 {
		t.Errorf("Expected last finished 4, got %d", q.LastFinished())
	}
}

func TestJobTrackerRetiresOldestOnIdle(t *testing.T) {
	tr := NewJobTracker()
	tr.Track(3)
	tr.Track(4)

	busy := models.Telemetry{CurrentJob: 3, LastJobReceived: 4}
	if _, ok := tr.Observe(busy); ok {
		t.Errorf("Expected busy telemetry to keep jobs")
	}

	idle := models.Telemetry{CurrentJob: models.IdleJobID, LastJobReceived: 4}
	if id, ok := tr.Observe(idle); !ok || id != 3 {
		t.Errorf("Expected job 3 retired, got %d (%v)", id, ok)
	}
	if id, ok := tr.Observe(idle); !ok || id != 4 {
		t.Errorf("Expected job 4 retired, got %d (%v)", id, ok)
	}
	if !tr.Empty() {
		t.Errorf("Expected empty tracker")
	}
	if _, ok := tr.Observe(idle); ok {
		t.Errorf("Expected nothing to retire")
	}
}

func TestJobTrackerWaitsForReceipt(t *testing.T) {
	tr := NewJobTracker()
	tr.Track(10)

	// 아직 아무 작업도 받지 못한 구동부
	if _, ok := tr.Observe(models.Telemetry{CurrentJob: models.IdleJobID, LastJobReceived: models.IdleJobID}); ok {
		t.Errorf("Expected job kept before it is received")
	}
	if _, ok := tr.Observe(models.Telemetry{CurrentJob: models.IdleJobID, LastJobReceived: 9}); ok {
		t.Errorf("Expected job kept while actuator is behind")
	}
	// 0은 정보 없음
	if id, ok := tr.Observe(models.Telemetry{CurrentJob: models.IdleJobID}); !ok || id != 10 {
		t.Errorf("Expected retire without receipt info, got %d (%v)", id, ok)
	}
}

func TestJobReceivedAcrossWrap(t *testing.T) {
	if !jobReceived(math.MaxInt32, 2) {
		t.Errorf("Expected wrapped ID 2 to be after MaxInt32")
	}
	if jobReceived(2, math.MaxInt32) {
		t.Errorf("Expected MaxInt32 to be before wrapped ID 2")
	}
	if !jobReceived(5, 5) {
		t.Errorf("Expected equal IDs to count as received")
	}
}

func TestJobTrackerPendingAndClear(t *testing.T) {
	tr := NewJobTracker()
	tr.Track(1)
	tr.Track(2)

	p := tr.Pending()
	if len(p) != 2 || p[0] != 1 || p[1] != 2 {
		t.Errorf("Expected [1 2], got %v", p)
	}
	tr.Clear()
	if !tr.Empty() {
		t.Errorf("Expected empty after clear")
	}
}

func TestCommandQueuePeekAndAck(t *testing.T) {
	q := NewCommandQueue()
	first := q.TurnDegrees(10)
	q.MoveForwardMetres(1)

	cmd, ok := q.Peek()
	if !ok || cmd.ID != first {
		t.Fatalf("Expected to peek command %d, got %v (%v)", first, cmd, ok)
	}
	if q.Len() != 2 {
		t.Errorf("Expected peek to keep the command, got %d pending", q.Len())
	}
	if !q.Ack(first) || q.Len() != 1 {
		t.Errorf("Expected ack to remove command %d", first)
	}
	if q.Ack(first) {
		t.Errorf("Expected second ack of %d to do nothing", first)
	}
}

func TestCommandQueueAckAfterEmergencyStop(t *testing.T) {
	q := NewCommandQueue()
	sent := q.MoveForwardMetres(1)
	cmd, _ := q.Peek()

	stop := q.EmergencyStop()
	if q.Ack(cmd.ID) {
		t.Errorf("Expected ack of %d to fail once the stop replaced the queue", sent)
	}
	next, ok := q.Peek()
	if !ok || next.ID != stop {
		t.Errorf("Expected emergency stop still queued, got %v", next)
	}
}

func TestCommandQueueObserverSeesIDsInOrder(t *testing.T) {
	q := NewCommandQueue()
	var seen []int32
	q.Observe(func(cmd models.Command) { seen = append(seen, cmd.ID) })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				q.ManualStop()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 400 {
		t.Fatalf("Expected 400 observed commands, got %d", len(seen))
	}
	for i, id := range seen {
		if id != int32(i+1) {
			t.Fatalf("Expected ID %d at position %d, got %d", i+1, i, id)
		}
	}
}
