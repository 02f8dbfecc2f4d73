package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// sessionQuery - 기본은 현재 세션, "all"이면 전체
func (h *Handlers) sessionQuery(c *fiber.Ctx) string {
	current := ""
	if h.logs != nil {
		current = h.logs.SessionID()
	}
	session := c.Query("session_id", current)
	if session == "all" {
		return ""
	}
	return session
}

func (h *Handlers) storeUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": "DB가 비활성화되어 있습니다",
	})
}

// HandleGetRecentLogs - 최근 로그 조회
func (h *Handlers) HandleGetRecentLogs(c *fiber.Ctx) error {
	if !h.store.Available() {
		return h.storeUnavailable(c)
	}

	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	logs, err := h.store.GetRecentLogs(h.sessionQuery(c), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch logs",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(logs),
		"logs":    logs,
	})
}

// HandleGetLogsByTimeRange - 시간 범위로 로그 조회
func (h *Handlers) HandleGetLogsByTimeRange(c *fiber.Ctx) error {
	if !h.store.Available() {
		return h.storeUnavailable(c)
	}

	startStr := c.Query("start") // RFC3339 format
	endStr := c.Query("end")     // RFC3339 format

	// 시작 시간 파싱
	var start time.Time
	if startStr != "" {
		parsed, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid start time format (use RFC3339)",
			})
		}
		start = parsed
	} else {
		// 기본: 24시간 전
		start = time.Now().Add(-24 * time.Hour)
	}

	// 종료 시간 파싱
	var end time.Time
	if endStr != "" {
		parsed, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid end time format (use RFC3339)",
			})
		}
		end = parsed
	} else {
		end = time.Now()
	}

	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	if limit <= 0 {
		limit = 100
	}

	logs, err := h.store.GetLogsByTimeRange(h.sessionQuery(c), start, end, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch logs",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(logs),
		"time_range": fiber.Map{
			"start": start.Format(time.RFC3339),
			"end":   end.Format(time.RFC3339),
		},
		"logs": logs,
	})
}

// HandleGetLogsByEventType - 이벤트 타입별 로그 조회
func (h *Handlers) HandleGetLogsByEventType(c *fiber.Ctx) error {
	if !h.store.Available() {
		return h.storeUnavailable(c)
	}

	eventType := c.Query("event_type")
	if eventType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "event_type parameter is required",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	if limit <= 0 {
		limit = 100
	}

	logs, err := h.store.GetLogsByEventType(h.sessionQuery(c), eventType, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch logs",
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"count":      len(logs),
		"event_type": eventType,
		"logs":       logs,
	})
}

// HandleGetLogStats - 로그 통계 조회
func (h *Handlers) HandleGetLogStats(c *fiber.Ctx) error {
	if !h.store.Available() {
		return h.storeUnavailable(c)
	}

	hours, err := strconv.Atoi(c.Query("hours", "24"))
	if err != nil || hours <= 0 {
		hours = 24
	}

	stats, err := h.store.GetLogStats(h.sessionQuery(c), hours)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch stats",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}
