package domain

import "time"

// TicketHistory is an immutable audit trail entry written for every
// lifecycle transition.
type TicketHistory struct {
	ID         int64
	TicketID   int64
	Action     string
	ActorType  SubjectType
	ActorID    *string
	FromStatus *TicketStatus
	ToStatus   TicketStatus
	Details    map[string]any
	CreatedAt  time.Time
}
