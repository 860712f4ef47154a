package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-engine/internal/audit"
	"github.com/spec-kit/ticket-engine/internal/domain"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util"
)

// LogsHandler serves audit trail queries. Available only when the durable
// Postgres trail is configured.
type LogsHandler struct {
	trail *audit.PostgresTrail
}

// NewLogsHandler constructs the handler; trail may be nil.
func NewLogsHandler(trail *audit.PostgresTrail) *LogsHandler {
	return &LogsHandler{trail: trail}
}

// Recent GET /logs.
func (h *LogsHandler) Recent(c *fiber.Ctx) error {
	if h.trail == nil {
		return h.unavailable()
	}
	entries, err := h.trail.Recent(c.UserContext(), parseIntQuery(c.Query("limit"), 20))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries})
}

// ByTicket GET /logs/ticket/:id.
func (h *LogsHandler) ByTicket(c *fiber.Ctx) error {
	if h.trail == nil {
		return h.unavailable()
	}
	entries, err := h.trail.ByTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries})
}

// ByType GET /logs/type/:type.
func (h *LogsHandler) ByType(c *fiber.Ctx) error {
	if h.trail == nil {
		return h.unavailable()
	}
	entries, err := h.trail.ByType(c.UserContext(), domain.AuditType(c.Params("type")), parseIntQuery(c.Query("limit"), 100))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries})
}

func (h *LogsHandler) unavailable() error {
	return apperrors.NewDomainError("AUDIT_UNAVAILABLE", "durable audit trail not configured", fiber.StatusServiceUnavailable, nil)
}
