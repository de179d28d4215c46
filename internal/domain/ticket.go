package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "open"
	TicketStatusClaimed         TicketStatus = "claimed"
	TicketStatusPendingFeedback TicketStatus = "pending_feedback"
	TicketStatusClosed          TicketStatus = "closed"
)

// ActiveStatuses are the states that count against the one-ticket-per-user rule.
var ActiveStatuses = []TicketStatus{TicketStatusOpen, TicketStatusClaimed}

// IsActive reports whether the status blocks the owner from opening another ticket.
func (s TicketStatus) IsActive() bool {
	return s == TicketStatusOpen || s == TicketStatusClaimed
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusClaimed, TicketStatusPendingFeedback, TicketStatusClosed:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           int64
	UserID       string
	GuildID      string
	ChannelID    string
	Subject      string
	Category     Category
	Status       TicketStatus
	AssignedTo   *string
	AIResponded  bool
	Tracked      bool
	TrackedAt    *time.Time
	TrackedBy    *string
	NotionPageID *string
	CreatedAt    time.Time
	ClosedAt     *time.Time
	EscalatedAt  *time.Time
}

// Clone returns a deep copy so pure transitions never alias the caller's pointers.
func (t Ticket) Clone() Ticket {
	out := t
	out.AssignedTo = cloneString(t.AssignedTo)
	out.TrackedBy = cloneString(t.TrackedBy)
	out.NotionPageID = cloneString(t.NotionPageID)
	out.TrackedAt = cloneTime(t.TrackedAt)
	out.ClosedAt = cloneTime(t.ClosedAt)
	out.EscalatedAt = cloneTime(t.EscalatedAt)
	return out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
