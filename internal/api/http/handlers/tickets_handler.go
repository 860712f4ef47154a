package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/hours"
	"github.com/spec-kit/ticket-engine/internal/lifecycle"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util"
)

// TicketsHandler exposes lifecycle operations and snapshot queries to the
// platform adapter.
type TicketsHandler struct {
	manager   *lifecycle.Manager
	schedules map[int]hours.Weekly
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(manager *lifecycle.Manager, schedules map[int]hours.Weekly) *TicketsHandler {
	return &TicketsHandler{manager: manager, schedules: schedules}
}

type createTicketRequest struct {
	GuildID       string   `json:"guild_id"`
	ChannelID     string   `json:"channel_id"`
	UserID        string   `json:"user_id"`
	Username      string   `json:"username"`
	Category      string   `json:"category"`
	PanelNumber   int      `json:"panel_number"`
	CategoryIndex int      `json:"category_index"`
	Answers       []string `json:"answers"`
}

type actorRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req createTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.GuildID == "" || req.ChannelID == "" || req.UserID == "" || req.Category == "" {
		return apperrors.NewValidationError("guild_id, channel_id, user_id, category required", nil)
	}

	ticket, err := h.manager.Create(c.UserContext(), lifecycle.CreateInput{
		GuildID:       req.GuildID,
		ChannelID:     req.ChannelID,
		UserID:        req.UserID,
		Username:      req.Username,
		Category:      req.Category,
		PanelNumber:   req.PanelNumber,
		CategoryIndex: req.CategoryIndex,
		Answers:       req.Answers,
	})
	if err != nil {
		return mapLifecycleErr(err)
	}

	response := fiber.Map{"data": ticket}
	if schedule, ok := h.schedules[req.PanelNumber]; ok {
		verdict, err := hours.Evaluate(schedule, time.Now())
		if err == nil && verdict.OutsideHours {
			response["working_hours"] = fiber.Map{
				"outside_hours": true,
				"notice":        verdict.Notice,
			}
		}
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}

// ListTickets GET /tickets. The open filter narrows to active tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	var (
		tickets []*domain.Ticket
		err     error
	)
	switch c.Query("filter") {
	case "", "all":
		tickets, err = h.manager.All()
	case "open":
		tickets, err = h.manager.Open()
	case "inactive":
		minutes := parseIntQuery(c.Query("minutes"), 60)
		tickets, err = h.manager.Inactive(minutes)
	default:
		return apperrors.NewValidationError("unknown filter", nil)
	}
	if err != nil {
		return err
	}
	if tickets == nil {
		tickets = []*domain.Ticket{}
	}
	return c.JSON(fiber.Map{"data": tickets})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.manager.GetByID(c.Params("id"))
	if err != nil {
		return mapLifecycleErr(err)
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// GetTicketByChannel GET /channels/:channelId/ticket.
func (h *TicketsHandler) GetTicketByChannel(c *fiber.Ctx) error {
	ticket, err := h.manager.GetByChannel(c.Params("channelId"))
	if err != nil {
		return mapLifecycleErr(err)
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// ClaimTicket POST /tickets/:id/claim.
func (h *TicketsHandler) ClaimTicket(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return err
	}
	if err := h.manager.Claim(c.UserContext(), c.Params("id"), actor); err != nil {
		return mapLifecycleErr(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"claimed": true}})
}

// UnclaimTicket POST /tickets/:id/unclaim.
func (h *TicketsHandler) UnclaimTicket(c *fiber.Ctx) error {
	if err := h.manager.Unclaim(c.UserContext(), c.Params("id")); err != nil {
		return mapLifecycleErr(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"claimed": false}})
}

type priorityRequest struct {
	actorRequest
	Priority domain.TicketPriority `json:"priority"`
}

// SetPriority PUT /tickets/:id/priority.
func (h *TicketsHandler) SetPriority(c *fiber.Ctx) error {
	var req priorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actor := lifecycle.Actor{UserID: req.UserID, Username: req.Username}
	if err := h.manager.SetPriority(c.UserContext(), c.Params("id"), req.Priority, actor); err != nil {
		return mapLifecycleErr(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"priority": req.Priority}})
}

type tagRequest struct {
	actorRequest
	Tag string `json:"tag"`
}

// AddTag POST /tickets/:id/tags.
func (h *TicketsHandler) AddTag(c *fiber.Ctx) error {
	var req tagRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Tag) == "" {
		return apperrors.NewValidationError("tag required", nil)
	}
	actor := lifecycle.Actor{UserID: req.UserID, Username: req.Username}
	if err := h.manager.AddTag(c.UserContext(), c.Params("id"), req.Tag, actor); err != nil {
		return mapLifecycleErr(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"tag": req.Tag}})
}

// RemoveTag DELETE /tickets/:id/tags/:tag.
func (h *TicketsHandler) RemoveTag(c *fiber.Ctx) error {
	actor := lifecycle.Actor{UserID: c.Query("user_id"), Username: c.Query("username")}
	if err := h.manager.RemoveTag(c.UserContext(), c.Params("id"), c.Params("tag"), actor); err != nil {
		return mapLifecycleErr(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type messageRequest struct {
	AuthorID       string   `json:"author_id"`
	AuthorUsername string   `json:"author_username"`
	Content        string   `json:"content"`
	Attachments    []string `json:"attachments"`
}

// AddMessage POST /tickets/:id/messages. A missing ticket is accepted and
// dropped, mirroring the lifecycle contract.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AuthorID == "" || strings.TrimSpace(req.Content) == "" {
		return apperrors.NewValidationError("author_id and content required", nil)
	}
	err := h.manager.AddMessage(c.UserContext(), c.Params("id"), domain.Message{
		AuthorID:       req.AuthorID,
		AuthorUsername: req.AuthorUsername,
		Content:        req.Content,
		Attachments:    req.Attachments,
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return err
	}
	if err := h.manager.Close(c.UserContext(), c.Params("id"), actor); err != nil {
		return mapLifecycleErr(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": domain.TicketStatusClosed}})
}

// ReopenTicket POST /tickets/:id/reopen.
func (h *TicketsHandler) ReopenTicket(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return err
	}
	if err := h.manager.Reopen(c.UserContext(), c.Params("id"), actor); err != nil {
		return mapLifecycleErr(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": domain.TicketStatusOpen}})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor := lifecycle.Actor{UserID: c.Query("user_id"), Username: c.Query("username")}
	if err := h.manager.Delete(c.UserContext(), c.Params("id"), actor); err != nil {
		return mapLifecycleErr(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type ratingRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// SetRating POST /tickets/:id/rating. The 1-5 bound is enforced here, at the
// caller layer.
func (h *TicketsHandler) SetRating(c *fiber.Ctx) error {
	var req ratingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Rating < 1 || req.Rating > 5 {
		return apperrors.NewValidationError("rating must be between 1 and 5", nil)
	}
	if err := h.manager.SetRating(c.UserContext(), c.Params("id"), req.Rating, req.Feedback); err != nil {
		return mapLifecycleErr(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"rating": req.Rating}})
}

// WorkingHours GET /panels/:panel/working-hours.
func (h *TicketsHandler) WorkingHours(c *fiber.Ctx) error {
	panel, err := strconv.Atoi(c.Params("panel"))
	if err != nil {
		return apperrors.NewValidationError("invalid panel number", nil)
	}
	schedule, ok := h.schedules[panel]
	if !ok {
		return c.JSON(fiber.Map{"data": fiber.Map{"outside_hours": false}})
	}
	verdict, err := hours.Evaluate(schedule, time.Now())
	if err != nil {
		return apperrors.NewValidationError("invalid schedule timezone", nil)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"outside_hours": verdict.OutsideHours,
		"notice":        verdict.Notice,
	}})
}

func parseActor(c *fiber.Ctx) (lifecycle.Actor, error) {
	var req actorRequest
	if err := c.BodyParser(&req); err != nil {
		return lifecycle.Actor{}, apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" {
		return lifecycle.Actor{}, apperrors.NewValidationError("user_id required", nil)
	}
	return lifecycle.Actor{UserID: req.UserID, Username: req.Username}, nil
}

func parseIntQuery(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func mapLifecycleErr(err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrTicketNotFound):
		return apperrors.NewNotFound("ticket", nil)
	case errors.Is(err, lifecycle.ErrTicketLimit),
		errors.Is(err, lifecycle.ErrChannelInUse),
		errors.Is(err, lifecycle.ErrAlreadyClaimed),
		errors.Is(err, lifecycle.ErrNotClaimed),
		errors.Is(err, lifecycle.ErrAlreadyClosed),
		errors.Is(err, lifecycle.ErrNotClosed),
		errors.Is(err, lifecycle.ErrDuplicateTag),
		errors.Is(err, lifecycle.ErrTagNotFound):
		return apperrors.NewConflict(err.Error(), nil)
	case errors.Is(err, lifecycle.ErrInvalidPriority):
		return apperrors.NewValidationError(err.Error(), nil)
	default:
		return err
	}
}
