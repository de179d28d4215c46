package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/weaver-helpdesk/internal/api/dto"
	"github.com/spec-kit/weaver-helpdesk/internal/escalation"
	"github.com/spec-kit/weaver-helpdesk/internal/service"
)

// EscalationRunner triggers a stale-ticket sweep on demand.
type EscalationRunner interface {
	RunNow(ctx context.Context) (escalation.SweepResult, error)
}

// AdminHandler exposes knowledge-base management and manual sweeps.
type AdminHandler struct {
	faqs        *service.FAQService
	escalations EscalationRunner
}

// NewAdminHandler constructs handler.
func NewAdminHandler(faqService *service.FAQService, escalations EscalationRunner) *AdminHandler {
	return &AdminHandler{faqs: faqService, escalations: escalations}
}

// CreateFAQ POST /admin/faqs.
func (h *AdminHandler) CreateFAQ(c *fiber.Ctx) error {
	var req dto.FAQRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	faq, err := h.faqs.Create(c.UserContext(), faqInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewFAQResponse(faq)})
}

// UpdateFAQ PATCH /admin/faqs/:id.
func (h *AdminHandler) UpdateFAQ(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.FAQRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	faq, err := h.faqs.Update(c.UserContext(), id, faqInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFAQResponse(faq)})
}

// DeleteFAQ DELETE /admin/faqs/:id.
func (h *AdminHandler) DeleteFAQ(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.faqs.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RunEscalations POST /admin/escalations/run.
func (h *AdminHandler) RunEscalations(c *fiber.Ctx) error {
	result, err := h.escalations.RunNow(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

func faqInput(req dto.FAQRequest) service.FAQInput {
	return service.FAQInput{
		Question: req.Question,
		Answer:   req.Answer,
		Category: req.Category,
		Keywords: req.Keywords,
	}
}
