package services

import (
	"math"
	"sync"

	"rover-core/models"
)

// fifo - 뮤텍스로 보호되는 선입선출 큐. 읽기는 막히지 않는다.
type fifo[T any] struct {
	mu    sync.Mutex
	items []T
	ready chan struct{}
}

func (q *fifo[T]) init() {
	q.ready = make(chan struct{}, 1)
}

func (q *fifo[T]) push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.signal()
}

func (q *fifo[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *fifo[T]) pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// peek - 꺼내지 않고 가장 오래된 항목
func (q *fifo[T]) peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	return q.items[0], true
}

// popIf - 가장 오래된 항목이 match를 만족할 때만 꺼낸다
func (q *fifo[T]) popIf(match func(T) bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 || !match(q.items[0]) {
		return false
	}
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return true
}

func (q *fifo[T]) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *fifo[T]) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

func (q *fifo[T]) snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}

func (q *fifo[T]) contains(match func(T) bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, v := range q.items {
		if match(v) {
			return true
		}
	}
	return false
}

// ========================================
// 판단부 → 구동부 명령 큐
// ========================================

// CommandQueue - 명령마다 증가하는 ID를 붙여 순서대로 전달한다
type CommandQueue struct {
	fifo[models.Command]
	idMu     sync.Mutex
	lastID   int32
	observer func(models.Command)
}

func NewCommandQueue() *CommandQueue {
	q := &CommandQueue{}
	q.init()
	return q
}

// nextID - 오버플로 시 1로 돌아간다. 0과 음수는 쓰지 않는다.
func (q *CommandQueue) nextID() int32 {
	if q.lastID >= math.MaxInt32 || q.lastID < 0 {
		q.lastID = 1
	} else {
		q.lastID++
	}
	return q.lastID
}

// Send - 명령 추가 후 ID 반환
func (q *CommandQueue) Send(kind models.CommandKind, value float64) int32 {
	if !kind.TakesValue() {
		value = 0
	}
	q.idMu.Lock()
	cmd := models.Command{ID: q.nextID(), Kind: kind, Value: value}
	q.fifo.mu.Lock()
	q.items = append(q.items, cmd)
	q.fifo.mu.Unlock()
	q.notify(cmd)
	q.idMu.Unlock()
	q.signal()
	return cmd.ID
}

// Observe - 명령이 추가될 때마다 호출할 함수 (로그 기록용). 큐를 쓰기 전에 설정한다.
// ID 잠금 안에서 호출되므로 ID 순서대로 보이며, fn에서 큐에 다시 명령을 넣으면 안 된다.
func (q *CommandQueue) Observe(fn func(models.Command)) {
	q.observer = fn
}

func (q *CommandQueue) notify(cmd models.Command) {
	if q.observer != nil {
		q.observer(cmd)
	}
}

func (q *CommandQueue) SetDefaultSpeed(metresPerSecond float64) int32 {
	return q.Send(models.CommandSetDefaultSpeed, metresPerSecond)
}

func (q *CommandQueue) SetDefaultTurnRate(degreesPerSecond float64) int32 {
	return q.Send(models.CommandSetDefaultTurnRate, degreesPerSecond)
}

// SetAutoMode - true = 자동, false = 수동
func (q *CommandQueue) SetAutoMode(auto bool) int32 {
	v := 0.0
	if auto {
		v = 1
	}
	return q.Send(models.CommandSetAutoMode, v)
}

// MoveForwardMetres - 음수면 후진
func (q *CommandQueue) MoveForwardMetres(metres float64) int32 {
	return q.Send(models.CommandAutoMoveMetres, metres)
}

// TurnDegrees - 양수 = 반시계
func (q *CommandQueue) TurnDegrees(degrees float64) int32 {
	return q.Send(models.CommandAutoTurnDegrees, degrees)
}

func (q *CommandQueue) ManualMoveForward() int32 {
	return q.Send(models.CommandManualMove, 1)
}

func (q *CommandQueue) ManualMoveBackward() int32 {
	return q.Send(models.CommandManualMove, -1)
}

func (q *CommandQueue) ManualTurnClockwise() int32 {
	return q.Send(models.CommandManualTurn, -1)
}

func (q *CommandQueue) ManualTurnAntiClockwise() int32 {
	return q.Send(models.CommandManualTurn, 1)
}

func (q *CommandQueue) ManualArmTurnClockwise() int32 {
	return q.Send(models.CommandManualArmTurn, 1)
}

func (q *CommandQueue) ManualArmTurnAntiClockwise() int32 {
	return q.Send(models.CommandManualArmTurn, -1)
}

// ManualStop - 진행 중인 수동 동작만 취소
func (q *CommandQueue) ManualStop() int32 {
	return q.Send(models.CommandManualStop, 0)
}

// EmergencyStop - 대기 중인 명령을 모두 비우고 긴급 정지 하나만 남긴다.
// 비우기와 추가가 같은 잠금 안에서 일어나므로 사이에 다른 명령이 끼지 않는다.
func (q *CommandQueue) EmergencyStop() int32 {
	q.idMu.Lock()
	cmd := models.Command{ID: q.nextID(), Kind: models.CommandEmergencyStop}
	q.fifo.mu.Lock()
	q.items = []models.Command{cmd}
	q.fifo.mu.Unlock()
	q.notify(cmd)
	q.idMu.Unlock()
	q.signal()
	return cmd.ID
}

// Forward - 이미 ID가 붙은 명령을 그대로 추가 (원격 구동부 쪽 수신용).
// 긴급 정지는 EmergencyStop과 같이 대기 중인 명령을 먼저 비운다.
func (q *CommandQueue) Forward(cmd models.Command) {
	q.idMu.Lock()
	q.fifo.mu.Lock()
	if cmd.Kind == models.CommandEmergencyStop {
		q.items = nil
	}
	q.items = append(q.items, cmd)
	if cmd.ID > q.lastID {
		q.lastID = cmd.ID
	}
	q.fifo.mu.Unlock()
	q.idMu.Unlock()
	q.signal()
}

// Receive - 가장 오래된 명령. 비어 있으면 false.
func (q *CommandQueue) Receive() (models.Command, bool) { return q.pop() }

// Peek - 가장 오래된 명령을 꺼내지 않고 본다. 전송에 성공한 뒤 Ack로 꺼낸다.
func (q *CommandQueue) Peek() (models.Command, bool) { return q.peek() }

// Ack - 맨 앞 명령의 ID가 id일 때만 꺼낸다.
// 그사이 긴급 정지로 큐가 바뀌었으면 false.
func (q *CommandQueue) Ack(id int32) bool {
	return q.popIf(func(cmd models.Command) bool { return cmd.ID == id })
}

func (q *CommandQueue) HasNewMessages() bool { return q.size() > 0 }
func (q *CommandQueue) Len() int             { return q.size() }
func (q *CommandQueue) Clear()               { q.reset() }

func (q *CommandQueue) Pending() []models.Command {
	return q.snapshot()
}

// Ready - 새 명령이 들어오면 신호 (버퍼 1)
func (q *CommandQueue) Ready() <-chan struct{} { return q.ready }

// ========================================
// 구동부 → 판단부 텔레메트리 큐
// ========================================

type TelemetryQueue struct {
	fifo[models.Telemetry]
}

func NewTelemetryQueue() *TelemetryQueue {
	q := &TelemetryQueue{}
	q.init()
	return q
}

func (q *TelemetryQueue) Send(t models.Telemetry)           { q.push(t) }
func (q *TelemetryQueue) Receive() (models.Telemetry, bool) { return q.pop() }
func (q *TelemetryQueue) HasNewMessages() bool              { return q.size() > 0 }
func (q *TelemetryQueue) Len() int                          { return q.size() }
func (q *TelemetryQueue) Clear()                            { q.reset() }
func (q *TelemetryQueue) Ready() <-chan struct{}            { return q.ready }

// ========================================
// UI 이벤트 큐
// ========================================

type UIEventQueue struct {
	fifo[models.UIEvent]
}

func NewUIEventQueue() *UIEventQueue {
	q := &UIEventQueue{}
	q.init()
	return q
}

func (q *UIEventQueue) Add(e models.UIEvent)            { q.push(e) }
func (q *UIEventQueue) AddType(t models.UIEventType)    { q.push(models.UIEvent{Type: t}) }
func (q *UIEventQueue) Receive() (models.UIEvent, bool) { return q.pop() }
func (q *UIEventQueue) HasNewEvents() bool              { return q.size() > 0 }
func (q *UIEventQueue) Clear()                          { q.reset() }

// CheckEvent - 큐 안에 해당 종류의 이벤트가 있는지 (꺼내지 않음)
func (q *UIEventQueue) CheckEvent(t models.UIEventType) bool {
	return q.contains(func(e models.UIEvent) bool { return e.Type == t })
}

// ========================================
// 구동부 작업 큐
// ========================================

// JobQueue - 구동부가 실행할 자동 작업. 마지막으로 받은/끝낸 작업 ID를 기록한다.
type JobQueue struct {
	fifo[models.Job]
	idMu         sync.Mutex
	lastJob      int32
	lastFinished int32
}

func NewJobQueue() *JobQueue {
	q := &JobQueue{
		lastJob:      models.IdleJobID,
		lastFinished: models.IdleJobID,
	}
	q.init()
	return q
}

// Add - 명령을 작업으로 감싸 추가
func (q *JobQueue) Add(cmd models.Command) {
	q.idMu.Lock()
	q.lastJob = cmd.ID
	q.idMu.Unlock()
	q.push(models.NewJob(cmd))
}

func (q *JobQueue) Receive() (models.Job, bool) { return q.pop() }
func (q *JobQueue) HasNewJob() bool             { return q.size() > 0 }
func (q *JobQueue) Clear()                      { q.reset() }

func (q *JobQueue) LastJob() int32 {
	q.idMu.Lock()
	defer q.idMu.Unlock()
	return q.lastJob
}

func (q *JobQueue) LastFinished() int32 {
	q.idMu.Lock()
	defer q.idMu.Unlock()
	return q.lastFinished
}

func (q *JobQueue) SetLastFinished(id int32) {
	q.idMu.Lock()
	defer q.idMu.Unlock()
	q.lastFinished = id
}

// ========================================
// 판단부 진행 중 작업 추적
// ========================================

// JobTracker - 보낸 자동 명령 ID를 순서대로 보관한다.
// 구동부가 대기 상태를 알리면 가장 오래된 ID를 완료로 처리한다.
type JobTracker struct {
	mu  sync.Mutex
	ids []int32
}

func NewJobTracker() *JobTracker {
	return &JobTracker{}
}

func (t *JobTracker) Track(id int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids = append(t.ids, id)
}

// Observe - 대기 상태 텔레메트리면 가장 오래된 ID를 꺼내 반환.
// 구동부가 마지막으로 받은 작업 ID를 알려 주면 아직 받지 못한 작업은 꺼내지 않는다.
func (t *JobTracker) Observe(msg models.Telemetry) (int32, bool) {
	if !msg.IsIdle() {
		return 0, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.ids) == 0 {
		return 0, false
	}
	id := t.ids[0]
	if msg.LastJobReceived != 0 && !jobReceived(id, msg.LastJobReceived) {
		return 0, false
	}
	t.ids = t.ids[1:]
	return id, true
}

func (t *JobTracker) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids) == 0
}

func (t *JobTracker) Pending() []int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]int32, len(t.ids))
	copy(out, t.ids)
	return out
}

func (t *JobTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids = nil
}

// jobReceived - ID가 1로 돌아가는 경우를 고려한 비교
func jobReceived(id, lastReceived int32) bool {
	if lastReceived == models.IdleJobID {
		return false
	}
	d := int64(lastReceived) - int64(id)
	return (d >= 0 && d < math.MaxInt32/2) || d < -math.MaxInt32/2
}
