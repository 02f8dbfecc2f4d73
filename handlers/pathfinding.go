package handlers

import (
	"errors"
	"log"

	"rover-core/models"
	"rover-core/services"

	"github.com/gofiber/fiber/v2"
)

type PathfindingRequest struct {
	Start       models.GridLocation `json:"start"`
	Destination models.GridLocation `json:"destination"`
}

type PathfindingResponse struct {
	Success     bool                  `json:"success"`
	Path        []models.GridLocation `json:"path,omitempty"`
	Destination models.GridLocation   `json:"destination"` // 보정된 목적지
	Adjusted    bool                  `json:"adjusted"`
	Message     string                `json:"message,omitempty"`
}

// HandlePathfinding - 현재 맵에서 경로만 미리 계산 (로버는 움직이지 않음)
func (h *Handlers) HandlePathfinding(c *fiber.Ctx) error {
	var req PathfindingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(PathfindingResponse{
			Success: false,
			Message: "잘못된 요청 형식입니다",
		})
	}

	log.Printf("📍 경로 미리보기 요청: %v → %v", req.Start, req.Destination)

	path, goal, err := h.nav.Preview(req.Start, req.Destination)
	resp := PathfindingResponse{
		Destination: goal,
		Adjusted:    goal != req.Destination,
	}
	if err != nil {
		log.Printf("❌ 경로를 찾을 수 없습니다: %v", err)
		resp.Message = err.Error()
		status := fiber.StatusOK
		if errors.Is(err, services.ErrOutOfBounds) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(resp)
	}

	log.Printf("✅ 경로 탐색 성공: %d칸", len(path))
	resp.Success = true
	resp.Path = path
	resp.Message = "경로 탐색 성공"
	return c.Status(fiber.StatusOK).JSON(resp)
}
