package services

import (
	"context"
	"log"
	"sync"
	"time"

	"rover-core/models"

	"gorm.io/gorm"
)

// LogBuffer - 로버 로그를 모아 두었다가 DB에 일괄 저장 (비동기)
type LogBuffer struct {
	db        *gorm.DB
	sessionID string
	logs      []models.RoverLog
	mu        sync.Mutex
	flushSize int           // 일괄 저장 크기
	flushTime time.Duration // 자동 플러시 간격
}

// NewLogBuffer - db가 nil이면 로그는 버려진다
func NewLogBuffer(db *gorm.DB, sessionID string, flushSize int, flushInterval time.Duration) *LogBuffer {
	if flushSize < 1 {
		flushSize = 1
	}
	log.Printf("✅ 로깅 시스템 초기화 완료 (session: %s, flushSize: %d, flushInterval: %v)", sessionID, flushSize, flushInterval)
	return &LogBuffer{
		db:        db,
		sessionID: sessionID,
		logs:      make([]models.RoverLog, 0, flushSize*2),
		flushSize: flushSize,
		flushTime: flushInterval,
	}
}

func (lb *LogBuffer) SessionID() string { return lb.sessionID }

// Run - 주기적으로 플러시. ctx가 끝나면 남은 로그를 저장하고 반환.
func (lb *LogBuffer) Run(ctx context.Context) error {
	interval := lb.flushTime
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lb.Flush()
		case <-ctx.Done():
			lb.Flush()
			log.Println("🛑 로깅 시스템 종료")
			return nil
		}
	}
}

// AddLog - 버퍼에 추가. 크기가 차면 백그라운드에서 바로 플러시.
func (lb *LogBuffer) AddLog(entry models.RoverLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.SessionID = lb.sessionID

	lb.mu.Lock()
	lb.logs = append(lb.logs, entry)
	size := len(lb.logs)
	lb.mu.Unlock()

	if size >= lb.flushSize {
		go lb.Flush()
	}
}

// Pending - 아직 저장되지 않은 로그 수
func (lb *LogBuffer) Pending() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return len(lb.logs)
}

// Flush - 버퍼의 모든 로그를 DB에 저장
func (lb *LogBuffer) Flush() {
	lb.mu.Lock()
	if len(lb.logs) == 0 {
		lb.mu.Unlock()
		return
	}

	// 로그 복사 및 버퍼 초기화
	logsToSave := make([]models.RoverLog, len(lb.logs))
	copy(logsToSave, lb.logs)
	lb.logs = lb.logs[:0]
	lb.mu.Unlock()

	if lb.db == nil {
		return
	}
	if err := lb.db.CreateInBatches(logsToSave, 100).Error; err != nil {
		log.Printf("❌ 로그 저장 실패: %v", err)
		return
	}
	log.Printf("💾 로그 %d개 저장 완료", len(logsToSave))
}

// LogCommand - 판단부가 보낸 명령 기록
func (lb *LogBuffer) LogCommand(cmd models.Command) {
	lb.AddLog(models.RoverLog{
		EventType:    models.EventTypeCommand,
		MessageType:  models.MessageTypeCommand,
		CommandID:    cmd.ID,
		CommandKind:  string(cmd.Kind),
		CommandValue: cmd.Value,
	})
}

// LogTelemetry - 구동부 상태 메시지 기록
func (lb *LogBuffer) LogTelemetry(t models.Telemetry) {
	lb.AddLog(models.RoverLog{
		EventType:    models.EventTypeTelemetry,
		MessageType:  models.MessageTypeTelemetry,
		PositionX:    t.Position.X,
		PositionY:    t.Position.Y,
		AngleDegrees: t.AngleDegrees,
		CurrentJob:   t.CurrentJob,
		Interrupted:  t.Interrupted,
	})
}

// ========================================
// 로그 조회
// ========================================

// LogStore - 저장된 로그 조회
type LogStore struct {
	db *gorm.DB
}

func NewLogStore(db *gorm.DB) *LogStore {
	return &LogStore{db: db}
}

// Available - DB가 연결되어 있는지
func (s *LogStore) Available() bool {
	return s != nil && s.db != nil
}

// session - sessionID가 비어 있으면 전체 세션
func (s *LogStore) session(sessionID string) *gorm.DB {
	q := s.db.Model(&models.RoverLog{})
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	return q
}

// GetRecentLogs - 최근 로그
func (s *LogStore) GetRecentLogs(sessionID string, limit int) ([]models.RoverLog, error) {
	var logs []models.RoverLog
	err := s.session(sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// GetLogsByTimeRange - 시간 범위로 로그 조회
func (s *LogStore) GetLogsByTimeRange(sessionID string, start, end time.Time, limit int) ([]models.RoverLog, error) {
	var logs []models.RoverLog
	query := s.session(sessionID).Where("created_at BETWEEN ? AND ?", start, end)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Order("created_at DESC").Find(&logs).Error
	return logs, err
}

// GetLogsByEventType - 이벤트 타입별 로그 조회
func (s *LogStore) GetLogsByEventType(sessionID, eventType string, limit int) ([]models.RoverLog, error) {
	var logs []models.RoverLog
	err := s.session(sessionID).
		Where("event_type = ?", eventType).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// GetLogStats - 최근 hours시간 로그 통계
func (s *LogStore) GetLogStats(sessionID string, hours int) (*models.LogStats, error) {
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	var total int64
	if err := s.session(sessionID).Where("created_at >= ?", since).Count(&total).Error; err != nil {
		return nil, err
	}

	// 이벤트 타입별 카운트
	var eventCounts []struct {
		EventType string
		Count     int64
	}
	err := s.session(sessionID).
		Select("event_type, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("event_type").
		Scan(&eventCounts).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(eventCounts))
	for _, ec := range eventCounts {
		counts[ec.EventType] = ec.Count
	}
	return &models.LogStats{
		TotalLogs:       total,
		EventTypeCounts: counts,
		TimeRangeHours:  hours,
		SessionID:       sessionID,
	}, nil
}
