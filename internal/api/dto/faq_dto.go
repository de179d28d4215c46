package dto

import (
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

// FAQRequest is used for both create and partial update. Keywords is a
// comma separated list.
type FAQRequest struct {
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
	Category *string `json:"category"`
	Keywords *string `json:"keywords"`
}

// VoteRequest payload; vote is helpful or not_helpful.
type VoteRequest struct {
	Vote string `json:"vote"`
}

// FAQResponse represents a knowledge-base entry.
type FAQResponse struct {
	ID         int64           `json:"id"`
	Question   string          `json:"question"`
	Answer     string          `json:"answer"`
	Category   domain.Category `json:"category"`
	Keywords   []string        `json:"keywords"`
	Views      int             `json:"views"`
	Helpful    int             `json:"helpful"`
	NotHelpful int             `json:"not_helpful"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewFAQResponse maps the domain FAQ.
func NewFAQResponse(f *domain.FAQ) FAQResponse {
	keywords := f.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return FAQResponse{
		ID:         f.ID,
		Question:   f.Question,
		Answer:     f.Answer,
		Category:   f.Category,
		Keywords:   keywords,
		Views:      f.Views,
		Helpful:    f.Helpful,
		NotHelpful: f.NotHelpful,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// NewFAQList maps a slice of FAQs.
func NewFAQList(faqs []domain.FAQ) []FAQResponse {
	out := make([]FAQResponse, 0, len(faqs))
	for i := range faqs {
		out = append(out, NewFAQResponse(&faqs[i]))
	}
	return out
}
