package dto

import (
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/export"
)

// TrackRequest payload.
type TrackRequest struct {
	TicketID int64  `json:"ticket_id"`
	Priority string `json:"priority"`
	Notes    string `json:"notes"`
}

// ReviewUpdateRequest payload. Note is appended to existing notes.
type ReviewUpdateRequest struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Note     string `json:"note"`
}

// TrackedResponse represents a review queue entry.
type TrackedResponse struct {
	TicketID     int64                 `json:"ticket_id"`
	Rating       int                   `json:"rating"`
	Priority     domain.ReviewPriority `json:"priority"`
	Status       domain.ReviewStatus   `json:"status"`
	Notes        string                `json:"notes"`
	TrackedBy    string                `json:"tracked_by"`
	ReviewedBy   *string               `json:"reviewed_by"`
	NotionPageID *string               `json:"notion_page_id"`
	ExportedAt   *time.Time            `json:"exported_at"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TrackedDetailResponse joins the entry with its ticket and feedback.
type TrackedDetailResponse struct {
	TrackedResponse
	Ticket   TicketResponse    `json:"ticket"`
	Feedback *FeedbackResponse `json:"feedback"`
}

// FeedbackResponse represents a requester rating.
type FeedbackResponse struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportResponse reports an export attempt. When the document store is not
// configured Exported is false and Data holds the row for manual entry.
type ExportResponse struct {
	Exported bool        `json:"exported"`
	PageID   string      `json:"page_id,omitempty"`
	PageURL  string      `json:"page_url,omitempty"`
	Data     export.Data `json:"data"`
}

// NewTrackedResponse maps the domain entry.
func NewTrackedResponse(t *domain.TrackedTicket) TrackedResponse {
	return TrackedResponse{
		TicketID:     t.TicketID,
		Rating:       t.Rating,
		Priority:     t.Priority,
		Status:       t.Status,
		Notes:        t.Notes,
		TrackedBy:    t.TrackedBy,
		ReviewedBy:   t.ReviewedBy,
		NotionPageID: t.NotionPageID,
		ExportedAt:   t.ExportedAt,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// NewFeedbackResponse maps feedback; nil stays nil.
func NewFeedbackResponse(fb *domain.Feedback) *FeedbackResponse {
	if fb == nil {
		return nil
	}
	return &FeedbackResponse{Rating: fb.Rating, Comment: fb.Comment, CreatedAt: fb.CreatedAt}
}
