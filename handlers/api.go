package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"rover-core/config"
	"rover-core/models"
	"rover-core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// actuatorTimeout - 이 시간 동안 텔레메트리가 없으면 구동부를 응답 없음으로 표시
const actuatorTimeout = 5 * time.Second

// Deps - 핸들러가 쓰는 서비스들
type Deps struct {
	Settings  config.Settings
	World     *services.WorldMap
	Navigator *services.Navigator
	Commands  *services.CommandQueue
	Telemetry *services.TelemetryQueue
	Events    *services.UIEventQueue
	Logs      *services.LogBuffer // nil이면 기록하지 않음
	Store     *services.LogStore  // nil이면 로그 조회 불가
}

// Handlers - HTTP/WebSocket 핸들러 모음
type Handlers struct {
	settings  config.Settings
	world     *services.WorldMap
	nav       *services.Navigator
	commands  *services.CommandQueue
	events    *services.UIEventQueue
	logs      *services.LogBuffer
	store     *services.LogStore

	clients      *ClientManager
	actuators    *ActuatorManager
	actuatorBusy atomic.Bool
	relay        *services.TelemetryRelay
}

func New(d Deps) *Handlers {
	h := &Handlers{
		settings:  d.Settings,
		world:     d.World,
		nav:       d.Navigator,
		commands:  d.Commands,
		events:    d.Events,
		logs:      d.Logs,
		store:     d.Store,
		clients:   NewClientManager(),
		actuators: NewActuatorManager(),
	}
	h.relay = services.NewTelemetryRelay(d.Telemetry, d.Logs, h.clients.BroadcastMessage)
	return h
}

// Clients - 브로드캐스트용 클라이언트 관리자
func (h *Handlers) Clients() *ClientManager { return h.clients }

// TelemetrySink - 구동부 텔레메트리 입구 (기록, 브로드캐스트 후 판단부 큐로)
func (h *Handlers) TelemetrySink() services.TelemetrySink { return h.relay }

// Register - 라우트 등록
func (h *Handlers) Register(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Rover 판단부 서버가 실행 중입니다.")
	})

	api := app.Group("/api")
	api.Get("/health", h.HandleHealth)
	api.Get("/status", h.HandleStatus)
	api.Get("/actuators", h.HandleActuators)

	// UI 이벤트
	api.Post("/mode", h.HandleMode)
	api.Post("/destination", h.HandleDestination)
	api.Post("/nogo", h.HandleNoGoZone)
	api.Post("/events", h.HandleEvent)
	api.Post("/emergency-stop", h.HandleEmergencyStop)

	// 맵 / 경로
	api.Get("/map", h.HandleMapSnapshot)
	api.Get("/map/export", h.HandleMapExport)
	api.Post("/map/import", h.HandleMapImport)
	api.Get("/path", h.HandlePath)
	api.Post("/pathfinding", h.HandlePathfinding)
	api.Get("/commands/pending", h.HandlePendingCommands)

	// 로그 조회
	logsAPI := api.Group("/logs")
	logsAPI.Get("/recent", h.HandleGetRecentLogs)
	logsAPI.Get("/range", h.HandleGetLogsByTimeRange)
	logsAPI.Get("/type", h.HandleGetLogsByEventType)
	logsAPI.Get("/stats", h.HandleGetLogStats)

	// WebSocket
	app.Use("/websocket", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/websocket/actuator", websocket.New(h.HandleActuatorWebSocket))
	app.Get("/websocket/web", websocket.New(h.HandleWebClientWebSocket))
}

// ========================================
// 상태
// ========================================

func (h *Handlers) HandleHealth(c *fiber.Ctx) error {
	session := ""
	if h.logs != nil {
		session = h.logs.SessionID()
	}
	return c.JSON(fiber.Map{
		"status":  "OK",
		"clients": h.clients.GetClientCount(),
		"session": session,
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (h *Handlers) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(h.nav.Status())
}

func (h *Handlers) HandleActuators(c *fiber.Ctx) error {
	statuses := h.actuators.GetAllStatuses()
	alive := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		alive[s.ID] = h.actuators.IsAlive(s.ID, actuatorTimeout)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"count":     len(statuses),
		"actuators": statuses,
		"alive":     alive,
	})
}

// ========================================
// UI 이벤트
// ========================================

var errInvalidEvent = errors.New("잘못된 이벤트")

// pushEvent - 검증 후 UI 이벤트 큐에 추가
func (h *Handlers) pushEvent(e models.UIEvent) error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: 알 수 없는 종류 %q", errInvalidEvent, e.Type)
	}
	if e.Type == models.EventDestinationCreated && h.world.IsOutOfBounds(e.Destination) {
		return fmt.Errorf("%w: 목적지 %v가 맵 밖입니다", errInvalidEvent, e.Destination)
	}
	h.events.Add(e)
	return nil
}

func (h *Handlers) accepted(c *fiber.Ctx, e models.UIEvent) error {
	if err := h.pushEvent(e); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"event":   e.Type,
	})
}

type ModeRequest struct {
	Mode models.RoverMode `json:"mode"`
}

func (h *Handlers) HandleMode(c *fiber.Ctx) error {
	var req ModeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "잘못된 요청 형식입니다")
	}
	switch req.Mode {
	case models.ModeAuto:
		return h.accepted(c, models.UIEvent{Type: models.EventAuto})
	case models.ModeManual:
		return h.accepted(c, models.UIEvent{Type: models.EventManual})
	}
	return badRequest(c, fmt.Sprintf("알 수 없는 모드: %q", req.Mode))
}

func (h *Handlers) HandleDestination(c *fiber.Ctx) error {
	var dest models.GridLocation
	if err := c.BodyParser(&dest); err != nil {
		return badRequest(c, "잘못된 요청 형식입니다")
	}
	log.Printf("📍 목적지 요청: %v", dest)
	return h.accepted(c, models.UIEvent{Type: models.EventDestinationCreated, Destination: dest})
}

type NoGoZoneRequest struct {
	Start models.GridLocation `json:"start"`
	End   models.GridLocation `json:"end"`
}

func (h *Handlers) HandleNoGoZone(c *fiber.Ctx) error {
	var req NoGoZoneRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "잘못된 요청 형식입니다")
	}
	return h.accepted(c, models.UIEvent{Type: models.EventAddNoGoZone, NoGoStart: req.Start, NoGoEnd: req.End})
}

// HandleEvent - 임의의 UI 이벤트 (수동 조작 버튼 등)
func (h *Handlers) HandleEvent(c *fiber.Ctx) error {
	var e models.UIEvent
	if err := c.BodyParser(&e); err != nil {
		return badRequest(c, "잘못된 요청 형식입니다")
	}
	return h.accepted(c, e)
}

func (h *Handlers) HandleEmergencyStop(c *fiber.Ctx) error {
	log.Println("🛑 긴급 정지 요청")
	return h.accepted(c, models.UIEvent{Type: models.EventEmergencyStopPressed})
}

// ========================================
// 맵 / 경로
// ========================================

func (h *Handlers) HandleMapSnapshot(c *fiber.Ctx) error {
	return c.JSON(h.world.Snapshot())
}

func (h *Handlers) HandleMapExport(c *fiber.Ctx) error {
	status := h.nav.Status()
	pose := models.VehiclePose{Position: status.Position, AngleDegrees: status.AngleDegrees}

	var buf bytes.Buffer
	if err := services.ExportMap(&buf, h.world, pose, h.nav.Footprints()); err != nil {
		log.Printf("❌ 맵 내보내기 실패: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to export map",
		})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="map.xml"`)
	return c.Send(buf.Bytes())
}

// HandleMapImport - 요청 본문의 XML을 새 맵에 읽은 뒤 성공하면 현재 맵과 교체한다.
// 실패하면 현재 맵은 그대로 남는다.
func (h *Handlers) HandleMapImport(c *fiber.Ctx) error {
	loaded, err := services.NewWorldMap(h.world.Rows(), h.world.Cols(), h.world.GridSize())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to import map",
		})
	}
	imported, err := services.ImportMap(bytes.NewReader(c.Body()), loaded)
	if err != nil {
		log.Printf("❌ 맵 불러오기 실패: %v", err)
		return badRequest(c, err.Error())
	}
	if err := h.nav.ReplaceMap(loaded); err != nil {
		log.Printf("❌ 맵 교체 실패: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to import map",
		})
	}
	h.clients.BroadcastMessage(models.WebSocketMessage{
		Type:      models.MessageTypeMapUpdate,
		Data:      h.world.Snapshot(),
		Timestamp: time.Now().UnixMilli(),
	})
	return c.JSON(fiber.Map{
		"success":      true,
		"units":        imported.Units,
		"vehicle":      imported.Vehicle,
		"landing_site": imported.LandingSite,
	})
}

func (h *Handlers) HandlePath(c *fiber.Ctx) error {
	return c.JSON(h.nav.Path())
}

func (h *Handlers) HandlePendingCommands(c *fiber.Ctx) error {
	pending := h.commands.Pending()
	return c.JSON(fiber.Map{
		"success":  true,
		"count":    len(pending),
		"commands": pending,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
