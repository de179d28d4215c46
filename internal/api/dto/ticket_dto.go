package dto

import (
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/service"
)

// CreateTicketRequest payload. The channel is the thread the chat bridge
// opened for the ticket.
type CreateTicketRequest struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	Subject   string `json:"subject"`
	Category  string `json:"category"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Reason string `json:"reason"`
}

// FeedbackRequest payload.
type FeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID          int64               `json:"id"`
	UserID      string              `json:"user_id"`
	GuildID     string              `json:"guild_id"`
	ChannelID   string              `json:"channel_id"`
	Subject     string              `json:"subject"`
	Category    domain.Category     `json:"category"`
	Status      domain.TicketStatus `json:"status"`
	AssignedTo  *string             `json:"assigned_to"`
	AIResponded bool                `json:"ai_responded"`
	Tracked     bool                `json:"tracked"`
	CreatedAt   time.Time           `json:"created_at"`
	ClosedAt    *time.Time          `json:"closed_at"`
	EscalatedAt *time.Time          `json:"escalated_at"`
}

// NewTicketResponse maps the domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		GuildID:     t.GuildID,
		ChannelID:   t.ChannelID,
		Subject:     t.Subject,
		Category:    t.Category,
		Status:      t.Status,
		AssignedTo:  t.AssignedTo,
		AIResponded: t.AIResponded,
		Tracked:     t.Tracked,
		CreatedAt:   t.CreatedAt,
		ClosedAt:    t.ClosedAt,
		EscalatedAt: t.EscalatedAt,
	}
}

// HistoryEntryResponse is one audited transition.
type HistoryEntryResponse struct {
	Action     string               `json:"action"`
	ActorType  domain.SubjectType   `json:"actor_type"`
	ActorID    *string              `json:"actor_id"`
	FromStatus *domain.TicketStatus `json:"from_status"`
	ToStatus   domain.TicketStatus  `json:"to_status"`
	Details    map[string]any       `json:"details,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

// MessageResponse is a message the service posted into the thread.
type MessageResponse struct {
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	IsAI      bool      `json:"is_ai"`
	CreatedAt time.Time `json:"created_at"`
}

// TimelineResponse groups a ticket with its audit trail.
type TimelineResponse struct {
	Ticket   TicketResponse         `json:"ticket"`
	History  []HistoryEntryResponse `json:"history"`
	Messages []MessageResponse      `json:"messages"`
}

// NewTimelineResponse maps the service timeline.
func NewTimelineResponse(tl *service.TicketTimeline) TimelineResponse {
	out := TimelineResponse{
		Ticket:   NewTicketResponse(&tl.Ticket),
		History:  make([]HistoryEntryResponse, 0, len(tl.History)),
		Messages: make([]MessageResponse, 0, len(tl.Messages)),
	}
	for _, h := range tl.History {
		out.History = append(out.History, HistoryEntryResponse{
			Action:     h.Action,
			ActorType:  h.ActorType,
			ActorID:    h.ActorID,
			FromStatus: h.FromStatus,
			ToStatus:   h.ToStatus,
			Details:    h.Details,
			CreatedAt:  h.CreatedAt,
		})
	}
	for _, m := range tl.Messages {
		out.Messages = append(out.Messages, MessageResponse{
			AuthorID:  m.AuthorID,
			Content:   m.Content,
			IsAI:      m.IsAI,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}
