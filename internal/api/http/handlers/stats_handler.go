package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-engine/internal/lifecycle"
	"github.com/spec-kit/ticket-engine/internal/observability"
	"github.com/spec-kit/ticket-engine/internal/stats"
)

// StatsHandler serves aggregate ticket metrics.
type StatsHandler struct {
	manager *lifecycle.Manager
	metrics *observability.Metrics
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(manager *lifecycle.Manager, metrics *observability.Metrics) *StatsHandler {
	return &StatsHandler{manager: manager, metrics: metrics}
}

// Overview GET /stats.
func (h *StatsHandler) Overview(c *fiber.Ctx) error {
	tickets, err := h.manager.All()
	if err != nil {
		return err
	}
	snap := stats.Compute(tickets)

	response := fiber.Map{"data": snap}
	if username, count, ok := snap.TopStaff(); ok {
		response["top_staff"] = fiber.Map{"username": username, "count": count}
	}
	if category, count, ok := snap.BusiestCategory(); ok {
		response["busiest_category"] = fiber.Map{"category": category, "count": count}
	}
	sweeps, autoClosed := h.metrics.Sweeps()
	response["automation"] = fiber.Map{"sweeps": sweeps, "auto_closed": autoClosed}
	return c.JSON(response)
}
