package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings - 실행 설정. 생성자에 명시적으로 전달한다.
type Settings struct {
	// 맵
	Rows     int
	Cols     int
	GridSize float64 // 셀 한 변 (m)
	MapFile  string  // 시작 시 불러올 XML 맵 (선택)

	// 판단부
	Clearance       int     // 셀 주변 확보 거리 (셀 수)
	WaypointStride  int     // 웨이포인트 건너뛰기 간격
	ScanTurnDegrees float64 // 목적지 설정 시 센서 스캔 회전각

	// 구동부
	DefaultSpeed      float64 // m/s
	DefaultTurnRate   float64 // deg/s
	TickInterval      time.Duration
	TelemetryInterval time.Duration
	Simulate          bool // 프로세스 내 시뮬레이터 사용

	// 서버
	HTTPAddr    string
	CORSOrigins string

	// DB
	DBDriver      string // "mysql" | "sqlite" | "none"
	MySQLHost     string
	MySQLPort     int
	MySQLUser     string
	MySQLPassword string
	MySQLDatabase string
	SQLitePath    string

	// 로그 버퍼
	LogFlushSize     int
	LogFlushInterval time.Duration

	Debug Debug
}

// Debug - 상세 로그 토글
type Debug struct {
	ShowPath           bool
	ShowCommands       bool
	ShowTelemetry      bool
	ShowManualCommands bool
}

// Default - 기본 설정 (A0 용지 크기 맵, 2cm 격자)
func Default() Settings {
	return Settings{
		Rows:              120,
		Cols:              120,
		GridSize:          0.02,
		Clearance:         10,
		WaypointStride:    5,
		ScanTurnDegrees:   360,
		DefaultSpeed:      0.03,
		DefaultTurnRate:   2.0,
		TickInterval:      50 * time.Millisecond,
		TelemetryInterval: 200 * time.Millisecond,
		HTTPAddr:          ":3000",
		CORSOrigins:       "http://localhost:5173, http://localhost:3000",
		DBDriver:          "none",
		MySQLPort:         3306,
		SQLitePath:        "rover.db",
		LogFlushSize:      50,
		LogFlushInterval:  10 * time.Second,
	}
}

// Load - .env 파일과 환경 변수에서 설정 읽기
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env 파일을 찾을 수 없습니다.")
	}
	return FromEnv(os.Getenv)
}

// FromEnv - getenv 함수로 설정 구성 (테스트에서 대체 가능)
func FromEnv(getenv func(string) string) (Settings, error) {
	s := Default()
	r := envReader{getenv: getenv}

	s.Rows = r.getInt("MAP_ROWS", s.Rows)
	s.Cols = r.getInt("MAP_COLS", s.Cols)
	s.GridSize = r.getFloat("MAP_GRID_SIZE", s.GridSize)
	s.MapFile = r.getString("MAP_FILE", s.MapFile)
	s.Clearance = r.getInt("CLEARANCE_CELLS", s.Clearance)
	s.WaypointStride = r.getInt("WAYPOINT_STRIDE", s.WaypointStride)
	s.ScanTurnDegrees = r.getFloat("SCAN_TURN_DEGREES", s.ScanTurnDegrees)
	s.DefaultSpeed = r.getFloat("DEFAULT_SPEED", s.DefaultSpeed)
	s.DefaultTurnRate = r.getFloat("DEFAULT_TURN_RATE", s.DefaultTurnRate)
	s.TickInterval = r.getDuration("TICK_INTERVAL", s.TickInterval)
	s.TelemetryInterval = r.getDuration("TELEMETRY_INTERVAL", s.TelemetryInterval)
	s.Simulate = r.getBool("SIMULATE", s.Simulate)
	s.HTTPAddr = r.getString("HTTP_ADDR", s.HTTPAddr)
	s.CORSOrigins = r.getString("CORS_ORIGINS", s.CORSOrigins)
	s.DBDriver = strings.ToLower(r.getString("DB_DRIVER", s.DBDriver))
	s.MySQLHost = r.getString("MYSQL_HOST", s.MySQLHost)
	s.MySQLPort = r.getInt("MYSQL_PORT", s.MySQLPort)
	s.MySQLUser = r.getString("MYSQL_USER", s.MySQLUser)
	s.MySQLPassword = r.getString("MYSQL_PASSWORD", s.MySQLPassword)
	s.MySQLDatabase = r.getString("MYSQL_DATABASE", s.MySQLDatabase)
	s.SQLitePath = r.getString("SQLITE_PATH", s.SQLitePath)
	s.LogFlushSize = r.getInt("LOG_FLUSH_SIZE", s.LogFlushSize)
	s.LogFlushInterval = r.getDuration("LOG_FLUSH_INTERVAL", s.LogFlushInterval)
	s.Debug.ShowPath = r.getBool("DEBUG_SHOW_PATH", false)
	s.Debug.ShowCommands = r.getBool("DEBUG_SHOW_COMMANDS", false)
	s.Debug.ShowTelemetry = r.getBool("DEBUG_SHOW_TELEMETRY", false)
	s.Debug.ShowManualCommands = r.getBool("DEBUG_SHOW_MANUAL_COMMANDS", false)

	if r.err != nil {
		return s, r.err
	}
	return s, s.Validate()
}

// Validate - 설정값 범위 확인
func (s Settings) Validate() error {
	switch {
	case s.Rows < 1 || s.Cols < 1:
		return fmt.Errorf("맵 크기가 잘못되었습니다: %dx%d", s.Rows, s.Cols)
	case s.GridSize <= 0:
		return fmt.Errorf("격자 크기는 0보다 커야 합니다: %v", s.GridSize)
	case s.Clearance < 0:
		return fmt.Errorf("확보 거리는 음수일 수 없습니다: %d", s.Clearance)
	case s.WaypointStride < 1:
		return fmt.Errorf("웨이포인트 간격은 1 이상이어야 합니다: %d", s.WaypointStride)
	case s.TickInterval <= 0 || s.TelemetryInterval <= 0:
		return fmt.Errorf("주기는 0보다 커야 합니다")
	case s.LogFlushSize < 1 || s.LogFlushInterval <= 0:
		return fmt.Errorf("로그 버퍼 설정이 잘못되었습니다")
	}
	switch s.DBDriver {
	case "mysql":
		if s.MySQLHost == "" || s.MySQLUser == "" || s.MySQLPassword == "" || s.MySQLDatabase == "" {
			return fmt.Errorf("MySQL 환경 변수가 모두 설정되지 않았습니다: MYSQL_HOST, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE")
		}
	case "sqlite", "none":
	default:
		return fmt.Errorf("알 수 없는 DB_DRIVER: %q", s.DBDriver)
	}
	return nil
}

// envReader - 첫 번째 파싱 오류를 기억하는 환경 변수 reader
type envReader struct {
	getenv func(string) string
	err    error
}

func (r *envReader) getString(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *envReader) getInt(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return n
}

func (r *envReader) getFloat(key string, def float64) float64 {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return f
}

func (r *envReader) getBool(key string, def bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return b
}

func (r *envReader) getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return d
}

func (r *envReader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s=%q 파싱 실패: %w", key, value, err)
	}
}
