package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/weaver-helpdesk/internal/api/dto"
	"github.com/spec-kit/weaver-helpdesk/internal/service"
	apperrors "github.com/spec-kit/weaver-helpdesk/pkg/util/errorutil"
)

// FAQsHandler serves the knowledge base.
type FAQsHandler struct {
	faqs *service.FAQService
}

// NewFAQsHandler constructs handler.
func NewFAQsHandler(faqService *service.FAQService) *FAQsHandler {
	return &FAQsHandler{faqs: faqService}
}

// Search GET /faqs/search.
func (h *FAQsHandler) Search(c *fiber.Ctx) error {
	faqs, err := h.faqs.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFAQList(faqs)})
}

// List GET /faqs.
func (h *FAQsHandler) List(c *fiber.Ctx) error {
	faqs, err := h.faqs.List(c.UserContext(), c.Query("category"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFAQList(faqs)})
}

// View GET /faqs/:id.
func (h *FAQsHandler) View(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	faq, err := h.faqs.View(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFAQResponse(faq)})
}

// Vote POST /faqs/:id/vote.
func (h *FAQsHandler) Vote(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.VoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	var helpful bool
	switch strings.ToLower(strings.TrimSpace(req.Vote)) {
	case "helpful":
		helpful = true
	case "not_helpful":
	default:
		return apperrors.NewValidationError("vote must be helpful or not_helpful", map[string]any{"field": "vote"})
	}
	faq, err := h.faqs.Vote(c.UserContext(), id, helpful)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFAQResponse(faq)})
}
