package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"snapsolve/internal/services"
)

// AnalyzeHandler accepts recognized text and runs it through the analysis
// pipeline. Capture and OCR happen upstream; this endpoint is the boundary
// where plain text enters the orchestrator.
type AnalyzeHandler struct {
	analysis *services.AnalysisService
	queue    *services.AnalysisQueue
	metrics  *services.Metrics
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(analysis *services.AnalysisService, queue *services.AnalysisQueue, metrics *services.Metrics) *AnalyzeHandler {
	return &AnalyzeHandler{
		analysis: analysis,
		queue:    queue,
		metrics:  metrics,
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

// Handle runs one pipeline invocation synchronously and returns the
// structured outcome. Requests arriving while all pipeline slots are taken
// are shed with 429 instead of queueing behind a slow LLM call.
func (h *AnalyzeHandler) Handle(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text is required",
		})
	}

	if !h.queue.TryAcquire() {
		log.Printf("🚦 [ANALYZE] Rejecting request: pipeline busy (%d in flight)", h.queue.InFlight())
		h.metrics.RecordQueueRejection()
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "analysis pipeline is busy, try again shortly",
		})
	}
	defer h.queue.Release()

	result := h.analysis.Run(c.Context(), req.Text)
	return c.JSON(result)
}
