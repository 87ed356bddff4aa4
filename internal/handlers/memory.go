package handlers

import (
	"github.com/gofiber/fiber/v2"

	"snapsolve/internal/services"
)

// MemoryHandler exposes the cross-run memory store for inspection
type MemoryHandler struct {
	memory *services.MemoryService
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(memory *services.MemoryService) *MemoryHandler {
	return &MemoryHandler{memory: memory}
}

// Handle returns a point-in-time snapshot of topics and background facts
func (h *MemoryHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(h.memory.Snapshot())
}
