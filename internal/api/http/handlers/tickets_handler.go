package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/weaver-helpdesk/internal/api/dto"
	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/service"
	apperrors "github.com/spec-kit/weaver-helpdesk/pkg/util/errorutil"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
	history *service.HistoryService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, historyService *service.HistoryService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, history: historyService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	guildID := req.GuildID
	if guildID == "" {
		guildID = p.GuildID
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), service.TicketCreateInput{
		UserID:    p.SubjectID,
		GuildID:   guildID,
		ChannelID: req.ChannelID,
		Subject:   req.Subject,
		Category:  req.Category,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := service.TicketListFilter{
		Limit:  parseInt(c.Query("limit"), 0),
		Offset: parseInt(c.Query("offset"), 0),
	}
	if v := c.Query("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := c.Query("guild_id"); v != "" {
		filter.GuildID = &v
	}
	if v := c.Query("assigned_to"); v != "" {
		filter.AssignedTo = &v
	}
	for _, raw := range splitList(c.Query("status")) {
		st := domain.TicketStatus(raw)
		if !st.Valid() {
			return apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	for _, raw := range splitList(c.Query("category")) {
		cat, ok := domain.ParseCategory(raw)
		if !ok {
			return apperrors.NewValidationError("invalid category", map[string]any{"category": raw})
		}
		filter.Categories = append(filter.Categories, cat)
	}

	tickets, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id. Requesters only see their own tickets.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !p.IsStaff() && ticket.UserID != p.SubjectID {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Timeline GET /tickets/:id/timeline.
func (h *TicketsHandler) Timeline(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	timeline, err := h.history.Timeline(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTimelineResponse(timeline)})
}

// ClaimTicket POST /tickets/:id/claim.
func (h *TicketsHandler) ClaimTicket(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.service.ClaimTicket(c.UserContext(), id, p.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CloseTicketRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	ticket, err := h.service.CloseTicket(c.UserContext(), id, p.SubjectID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// SubmitFeedback POST /tickets/:id/feedback.
func (h *TicketsHandler) SubmitFeedback(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.FeedbackRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.SubmitFeedback(c.UserContext(), id, p.SubjectID, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Stats GET /tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	var userID *string
	if v := c.Query("user_id"); v != "" {
		userID = &v
	}
	stats, err := h.service.Stats(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Status GET /status.
func (h *TicketsHandler) Status(c *fiber.Ctx) error {
	status, err := h.service.Status(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": status})
}
