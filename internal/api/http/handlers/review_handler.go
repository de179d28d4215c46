package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/weaver-helpdesk/internal/api/dto"
	"github.com/spec-kit/weaver-helpdesk/internal/service"
)

// ReviewHandler serves the staff review queue.
type ReviewHandler struct {
	review *service.ReviewService
}

// NewReviewHandler constructs handler.
func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{review: reviewService}
}

// Track POST /review/tracked.
func (h *ReviewHandler) Track(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.TrackRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tracked, err := h.review.Track(c.UserContext(), service.TrackInput{
		TicketID: req.TicketID,
		StaffID:  p.SubjectID,
		Priority: req.Priority,
		Notes:    req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTrackedResponse(tracked)})
}

// List GET /review/tracked.
func (h *ReviewHandler) List(c *fiber.Ctx) error {
	items, err := h.review.List(c.UserContext(), service.ReviewListInput{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Sort:     c.Query("sort"),
	})
	if err != nil {
		return err
	}
	out := make([]dto.TrackedResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewTrackedResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get GET /review/tracked/:ticketId.
func (h *ReviewHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "ticketId")
	if err != nil {
		return err
	}
	detail, err := h.review.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TrackedDetailResponse{
		TrackedResponse: dto.NewTrackedResponse(&detail.Tracked),
		Ticket:          dto.NewTicketResponse(&detail.Ticket),
		Feedback:        dto.NewFeedbackResponse(detail.Feedback),
	}})
}

// Update PATCH /review/tracked/:ticketId.
func (h *ReviewHandler) Update(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "ticketId")
	if err != nil {
		return err
	}
	var req dto.ReviewUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tracked, err := h.review.Update(c.UserContext(), id, service.ReviewUpdateInput{
		Status:     req.Status,
		Priority:   req.Priority,
		Note:       req.Note,
		ReviewerID: p.SubjectID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTrackedResponse(tracked)})
}

// Untrack DELETE /review/tracked/:ticketId.
func (h *ReviewHandler) Untrack(c *fiber.Ctx) error {
	id, err := parseID(c, "ticketId")
	if err != nil {
		return err
	}
	if err := h.review.Untrack(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Stats GET /review/tracked/stats.
func (h *ReviewHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.review.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// ExportReady GET /review/tracked/export-ready.
func (h *ReviewHandler) ExportReady(c *fiber.Ctx) error {
	rows, err := h.review.ExportReady(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rows})
}

// Export POST /review/tracked/:ticketId/export.
func (h *ReviewHandler) Export(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "ticketId")
	if err != nil {
		return err
	}
	outcome, err := h.review.Export(c.UserContext(), id, p.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ExportResponse{
		Exported: outcome.Exported,
		PageID:   outcome.Result.PageID,
		PageURL:  outcome.Result.PageURL,
		Data:     outcome.Data,
	}})
}
