package domain

import "time"

// TicketMessage is a persisted message posted into a ticket thread.
type TicketMessage struct {
	ID        int64
	TicketID  int64
	AuthorID  string
	Content   string
	IsAI      bool
	CreatedAt time.Time
}
