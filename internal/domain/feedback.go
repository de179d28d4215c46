package domain

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Feedback is the requester's rating of a finished ticket. One per ticket.
type Feedback struct {
	ID        int64
	TicketID  int64
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// ValidRating reports whether r is within the 1-5 scale.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
