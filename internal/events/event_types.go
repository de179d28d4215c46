package events

import (
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/lifecycle"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventTicketClaimed    EventType = "ticket_claimed"
	EventTicketClosing    EventType = "ticket_closing"
	EventTicketClosed     EventType = "ticket_closed"
	EventTicketAutoClosed EventType = "ticket_auto_closed"
	EventTicketEscalated  EventType = "ticket_escalated"
)

// TransitionTypes lists every event that carries a TransitionPayload.
var TransitionTypes = []EventType{
	EventTicketCreated,
	EventTicketClaimed,
	EventTicketClosing,
	EventTicketClosed,
	EventTicketAutoClosed,
	EventTicketEscalated,
}

// ForAction maps a lifecycle action to the event announcing it.
func ForAction(kind lifecycle.ActionKind) EventType {
	switch kind {
	case lifecycle.ActionClaim:
		return EventTicketClaimed
	case lifecycle.ActionClose:
		return EventTicketClosing
	case lifecycle.ActionSubmitFeedback:
		return EventTicketClosed
	case lifecycle.ActionAutoClose:
		return EventTicketAutoClosed
	}
	return EventType(kind)
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type domain.SubjectType `json:"type"`
	ID   string             `json:"id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TransitionPayload carries the ticket after a lifecycle change and the
// notices the change asked for.
type TransitionPayload struct {
	Ticket   domain.Ticket       `json:"ticket"`
	From     domain.TicketStatus `json:"from"`
	Notices  []lifecycle.Notify  `json:"notices"`
	Archive  bool                `json:"archive"`
	Feedback *domain.Feedback    `json:"feedback,omitempty"`
}
