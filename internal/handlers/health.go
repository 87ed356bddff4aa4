package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"snapsolve/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	analysis *services.AnalysisService
	queue    *services.AnalysisQueue
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(analysis *services.AnalysisService, queue *services.AnalysisQueue) *HealthHandler {
	return &HealthHandler{analysis: analysis, queue: queue}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	topics, background, mentions := h.analysis.Memory().Sizes()
	return c.JSON(fiber.Map{
		"status":         "healthy",
		"stage_mode":     h.analysis.StageMode(),
		"runs_in_flight": h.queue.InFlight(),
		"memory": fiber.Map{
			"active_topics":     topics,
			"background_facts":  background,
			"topic_total_count": mentions,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
