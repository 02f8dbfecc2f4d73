package handlers

import (
	"fmt"
	"log"
	"sync"
	"time"

	"rover-core/models"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"
)

// ActuatorManager - 연결된 구동부 상태 관리
type ActuatorManager struct {
	mu        sync.RWMutex
	actuators map[string]*ActuatorInfo // 연결 ID -> ActuatorInfo
	lastPing  map[string]time.Time     // 연결 ID -> 마지막 텔레메트리 시간
}

// ActuatorInfo - 구동부 연결 정보와 마지막 보고 상태
type ActuatorInfo struct {
	ID               string    `json:"id"`
	RemoteAddr       string    `json:"remote_addr"`
	RegisteredAt     time.Time `json:"registered_at"`
	LastUpdate       time.Time `json:"last_update"`
	Position         r2.Point  `json:"position"`
	AngleDegrees     float64   `json:"angle_degrees"`
	CurrentJob       int32     `json:"current_job"`
	LastJobCompleted int32     `json:"last_job_completed"`
	Interrupted      bool      `json:"interrupted"`
	Messages         int       `json:"messages"`
}

func NewActuatorManager() *ActuatorManager {
	return &ActuatorManager{
		actuators: make(map[string]*ActuatorInfo),
		lastPing:  make(map[string]time.Time),
	}
}

// Register - 새 연결 등록. 연결마다 새 ID를 붙인다.
func (m *ActuatorManager) Register(remoteAddr string) ActuatorInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	info := &ActuatorInfo{
		ID:               uuid.NewString(),
		RemoteAddr:       remoteAddr,
		RegisteredAt:     now,
		LastUpdate:       now,
		CurrentJob:       models.IdleJobID,
		LastJobCompleted: models.IdleJobID,
	}
	m.actuators[info.ID] = info
	m.lastPing[info.ID] = now
	log.Printf("[Manager] 구동부 등록: %s (%s)", info.ID, remoteAddr)
	return *info
}

// Observe - 텔레메트리로 상태 갱신
func (m *ActuatorManager) Observe(id string, t models.Telemetry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, exists := m.actuators[id]
	if !exists {
		return fmt.Errorf("구동부를 찾을 수 없음: %s", id)
	}

	now := time.Now()
	info.Position = t.Position
	info.AngleDegrees = t.AngleDegrees
	info.CurrentJob = t.CurrentJob
	info.LastJobCompleted = t.LastJobCompleted
	info.Interrupted = t.Interrupted
	info.Messages++
	info.LastUpdate = now
	m.lastPing[id] = now
	return nil
}

// GetStatus - 구동부 상태 조회
func (m *ActuatorManager) GetStatus(id string) (ActuatorInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, exists := m.actuators[id]
	if !exists {
		return ActuatorInfo{}, fmt.Errorf("구동부를 찾을 수 없음: %s", id)
	}
	return *info, nil
}

// GetAllStatuses - 모든 구동부 상태 (복사본)
func (m *ActuatorManager) GetAllStatuses() []ActuatorInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ActuatorInfo, 0, len(m.actuators))
	for _, info := range m.actuators {
		result = append(result, *info)
	}
	return result
}

// Remove - 연결 해제
func (m *ActuatorManager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.actuators[id]; !exists {
		return fmt.Errorf("구동부를 찾을 수 없음: %s", id)
	}
	delete(m.actuators, id)
	delete(m.lastPing, id)
	log.Printf("[Manager] 구동부 해제: %s", id)
	return nil
}

func (m *ActuatorManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.actuators)
}

// IsAlive - 마지막 텔레메트리가 timeout 안에 왔는지
func (m *ActuatorManager) IsAlive(id string, timeout time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lastPing, exists := m.lastPing[id]
	if !exists {
		return false
	}
	return time.Since(lastPing) < timeout
}
