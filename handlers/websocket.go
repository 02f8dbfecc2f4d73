package handlers

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"rover-core/models"

	"github.com/gofiber/websocket/v2"
)

const (
	ClientTypeActuator = "actuator"
	ClientTypeWeb      = "web"
)

type Client struct {
	Conn       *websocket.Conn
	ClientType string // "actuator" 또는 "web"
}

// inboundMessage - Data를 타입에 맞게 나중에 해석하기 위한 수신 형식
type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// 클라이언트 관리자. 웹 클라이언트 쓰기는 Start 루프에서만 일어난다.
type ClientManager struct {
	clients    map[*websocket.Conn]*Client
	broadcast  chan models.WebSocketMessage
	register   chan *Client
	unregister chan *websocket.Conn
	mutex      sync.RWMutex
}

func NewClientManager() *ClientManager {
	return &ClientManager{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan models.WebSocketMessage, 100),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
	}
}

// Start - ctx가 끝날 때까지 등록/해제/브로드캐스트 처리
func (manager *ClientManager) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			manager.closeAll()
			return nil

		case client := <-manager.register:
			manager.mutex.Lock()
			manager.clients[client.Conn] = client
			manager.mutex.Unlock()
			log.Printf("클라이언트 등록: %s (%s)", client.ClientType, client.Conn.RemoteAddr())

		case conn := <-manager.unregister:
			manager.remove(conn)

		case message := <-manager.broadcast:
			manager.handleBroadcast(message)
		}
	}
}

func (manager *ClientManager) remove(conn *websocket.Conn) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	if client, ok := manager.clients[conn]; ok {
		delete(manager.clients, conn)
		_ = conn.Close()
		log.Printf("클라이언트 해제: %s (%s)", client.ClientType, conn.RemoteAddr())
	}
}

func (manager *ClientManager) closeAll() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	for conn := range manager.clients {
		_ = conn.Close()
		delete(manager.clients, conn)
	}
}

// handleBroadcast - 웹으로 가는 메시지만 보낸다. 구동부 연결은 명령 펌프만 쓴다.
func (manager *ClientManager) handleBroadcast(message models.WebSocketMessage) {
	switch message.Type {
	case models.MessageTypeTelemetry,
		models.MessageTypeStatus,
		models.MessageTypePathUpdate,
		models.MessageTypeMapUpdate,
		models.MessageTypeNavWarning,
		models.MessageTypeSystemInfo:
	default:
		log.Printf("⚠️ 브로드캐스트 대상이 아닌 메시지: %s", message.Type)
		return
	}

	var failed []*websocket.Conn
	manager.mutex.RLock()
	for conn, client := range manager.clients {
		if client.ClientType != ClientTypeWeb {
			continue
		}
		if err := conn.WriteJSON(message); err != nil {
			log.Printf("전송 실패 (%s): %v", client.ClientType, err)
			failed = append(failed, conn)
		}
	}
	manager.mutex.RUnlock()

	for _, conn := range failed {
		manager.remove(conn)
	}
}

// BroadcastMessage - 채널이 가득 차면 버린다 (제어 루프를 막지 않음)
func (manager *ClientManager) BroadcastMessage(msg models.WebSocketMessage) {
	select {
	case manager.broadcast <- msg:
	default:
		log.Println("⚠️ broadcast 채널 가득 참")
	}
}

func (manager *ClientManager) GetClientCount() map[string]int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	count := map[string]int{
		ClientTypeActuator: 0,
		ClientTypeWeb:      0,
	}
	for _, client := range manager.clients {
		count[client.ClientType]++
	}
	return count
}

// ========================================
// 구동부 WebSocket
// ========================================

// HandleActuatorWebSocket - 명령 큐를 구동부로 내려보내고 텔레메트리를 받아 판단부 큐에 넣는다.
// 명령을 나눠 받지 않도록 구동부는 한 번에 하나만 연결할 수 있다.
func (h *Handlers) HandleActuatorWebSocket(c *websocket.Conn) {
	if !h.actuatorBusy.CompareAndSwap(false, true) {
		log.Printf("⚠️ 구동부가 이미 연결되어 있어 거부: %s", c.RemoteAddr())
		_ = c.WriteJSON(systemInfo("이미 다른 구동부가 연결되어 있습니다"))
		_ = c.Close()
		return
	}
	defer h.actuatorBusy.Store(false)

	info := h.actuators.Register(c.RemoteAddr().String())
	h.clients.register <- &Client{Conn: c, ClientType: ClientTypeActuator}
	defer func() {
		h.clients.unregister <- c
		_ = h.actuators.Remove(info.ID)
	}()

	done := make(chan struct{})
	defer close(done)
	go h.pumpCommands(c, done)

	for {
		var msg inboundMessage
		if err := c.ReadJSON(&msg); err != nil {
			log.Printf("구동부 메시지 읽기 오류: %v", err)
			break
		}

		switch msg.Type {
		case models.MessageTypeTelemetry:
			var t models.Telemetry
			if err := json.Unmarshal(msg.Data, &t); err != nil {
				log.Printf("⚠️ 텔레메트리 해석 실패: %v", err)
				continue
			}
			_ = h.actuators.Observe(info.ID, t)
			h.relay.Send(t)
		default:
			log.Printf("알 수 없는 메시지 타입: %s", msg.Type)
		}
	}
}

// pumpCommands - 명령 큐가 빌 때까지 보내고 새 명령 신호를 기다린다.
// 전송에 성공한 명령만 큐에서 빼므로 연결이 끊겨도 다음 구동부가 이어서 받는다.
func (h *Handlers) pumpCommands(c *websocket.Conn, done <-chan struct{}) {
	for {
		for {
			cmd, ok := h.commands.Peek()
			if !ok {
				break
			}
			err := c.WriteJSON(models.WebSocketMessage{
				Type:      models.MessageTypeCommand,
				Data:      cmd,
				Timestamp: time.Now().UnixMilli(),
			})
			if err != nil {
				log.Printf("❌ 명령 전송 실패 %s: %v", cmd, err)
				return
			}
			h.commands.Ack(cmd.ID)
		}

		select {
		case <-done:
			return
		case <-h.commands.Ready():
		}
	}
}

// ========================================
// 웹 클라이언트 WebSocket
// ========================================

// HandleWebClientWebSocket - 상태/경로/맵 브로드캐스트를 받고 UI 이벤트를 보낸다
func (h *Handlers) HandleWebClientWebSocket(c *websocket.Conn) {
	// 등록 전에 보내야 브로드캐스트 쓰기와 겹치지 않는다
	_ = c.WriteJSON(systemInfo("웹 클라이언트 연결됨"))

	h.clients.register <- &Client{Conn: c, ClientType: ClientTypeWeb}
	defer func() {
		h.clients.unregister <- c
	}()

	for {
		var msg inboundMessage
		if err := c.ReadJSON(&msg); err != nil {
			log.Printf("웹 메시지 읽기 오류: %v", err)
			break
		}

		switch msg.Type {
		case models.MessageTypeUIEvent:
			var event models.UIEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				log.Printf("⚠️ UI 이벤트 해석 실패: %v", err)
				continue
			}
			if err := h.pushEvent(event); err != nil {
				log.Printf("⚠️ UI 이벤트 거부: %v", err)
			}
		default:
			log.Printf("알 수 없는 메시지 타입: %s", msg.Type)
		}
	}
}

func systemInfo(message string) models.WebSocketMessage {
	return models.WebSocketMessage{
		Type: models.MessageTypeSystemInfo,
		Data: map[string]interface{}{
			"message":      message,
			"connected_at": time.Now().Format(time.RFC3339),
		},
		Timestamp: time.Now().UnixMilli(),
	}
}
