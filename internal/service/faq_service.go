package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/weaver-helpdesk/pkg/util/errorutil"
)

const (
	faqSearchLimit = 10
	faqListLimit   = 25
)

// FAQService manages the knowledge base.
type FAQService struct {
	faqs   repository.FAQRepository
	logger *zap.Logger
}

// FAQInput carries fields for creating or editing an entry. Nil fields are
// left unchanged on edit.
type FAQInput struct {
	Question *string
	Answer   *string
	Category *string
	Keywords *string
}

// NewFAQService builds the service.
func NewFAQService(faqs repository.FAQRepository, logger *zap.Logger) *FAQService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FAQService{faqs: faqs, logger: logger}
}

// ParseKeywords splits a comma-separated keyword string into trimmed,
// lowercased, non-empty keywords.
func ParseKeywords(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if k := strings.ToLower(strings.TrimSpace(part)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Search finds entries whose question, answer or keywords contain query.
func (s *FAQService) Search(ctx context.Context, query string) ([]domain.FAQ, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("search query is required", map[string]any{"field": "q"})
	}
	faqs, err := s.faqs.Search(ctx, query, faqSearchLimit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return faqs, nil
}

// List returns the most viewed entries, optionally within one category.
func (s *FAQService) List(ctx context.Context, category string) ([]domain.FAQ, error) {
	var filter *domain.Category
	if strings.TrimSpace(category) != "" {
		c, err := parseCategory(category)
		if err != nil {
			return nil, err
		}
		filter = &c
	}
	faqs, err := s.faqs.List(ctx, filter, faqListLimit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return faqs, nil
}

// View returns an entry and counts the view.
func (s *FAQService) View(ctx context.Context, id int64) (*domain.FAQ, error) {
	faq, err := s.faqs.RecordView(ctx, id)
	if err != nil {
		return nil, notFound(err, "faq", map[string]any{"faq_id": id})
	}
	return faq, nil
}

// Vote records a helpful or not-helpful vote.
func (s *FAQService) Vote(ctx context.Context, id int64, helpful bool) (*domain.FAQ, error) {
	faq, err := s.faqs.Vote(ctx, id, helpful)
	if err != nil {
		return nil, notFound(err, "faq", map[string]any{"faq_id": id})
	}
	return faq, nil
}

// Create adds an entry. Question, answer and category are required.
func (s *FAQService) Create(ctx context.Context, input FAQInput) (*domain.FAQ, error) {
	question := trimmed(input.Question)
	answer := trimmed(input.Answer)
	if question == "" || answer == "" {
		return nil, apperrors.NewValidationError("question and answer are required", nil)
	}
	category, err := parseCategory(trimmed(input.Category))
	if err != nil {
		return nil, err
	}
	faq := &domain.FAQ{
		Question: question,
		Answer:   answer,
		Category: category,
		Keywords: ParseKeywords(trimmed(input.Keywords)),
	}
	if err := s.faqs.Create(ctx, faq); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("faq created", zap.Int64("faq_id", faq.ID), zap.String("category", string(faq.Category)))
	return faq, nil
}

// Update edits an entry. At least one field must be given.
func (s *FAQService) Update(ctx context.Context, id int64, input FAQInput) (*domain.FAQ, error) {
	if trimmed(input.Question) == "" && trimmed(input.Answer) == "" && input.Category == nil && input.Keywords == nil {
		return nil, apperrors.NewValidationError("Please provide at least one field to update.", nil)
	}
	faq, err := s.faqs.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "faq", map[string]any{"faq_id": id})
	}
	if q := trimmed(input.Question); q != "" {
		faq.Question = q
	}
	if a := trimmed(input.Answer); a != "" {
		faq.Answer = a
	}
	if input.Category != nil {
		c, err := parseCategory(*input.Category)
		if err != nil {
			return nil, err
		}
		faq.Category = c
	}
	if input.Keywords != nil {
		faq.Keywords = ParseKeywords(*input.Keywords)
	}
	if err := s.faqs.Update(ctx, faq); err != nil {
		return nil, notFound(err, "faq", map[string]any{"faq_id": id})
	}
	s.logger.Info("faq updated", zap.Int64("faq_id", id))
	return faq, nil
}

// Delete removes an entry.
func (s *FAQService) Delete(ctx context.Context, id int64) error {
	if err := s.faqs.Delete(ctx, id); err != nil {
		return notFound(err, "faq", map[string]any{"faq_id": id})
	}
	s.logger.Info("faq deleted", zap.Int64("faq_id", id))
	return nil
}

func parseCategory(raw string) (domain.Category, error) {
	c, ok := domain.ParseCategory(raw)
	if !ok {
		return "", apperrors.NewValidationError("unknown category", map[string]any{"category": raw})
	}
	return c, nil
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
