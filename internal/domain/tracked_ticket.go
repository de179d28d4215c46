package domain

import "time"

// ReviewPriority ranks tracked tickets in the review queue.
type ReviewPriority string

const (
	ReviewPriorityLow    ReviewPriority = "low"
	ReviewPriorityNormal ReviewPriority = "normal"
	ReviewPriorityHigh   ReviewPriority = "high"
	ReviewPriorityUrgent ReviewPriority = "urgent"
)

// Rank orders priorities with urgent first.
func (p ReviewPriority) Rank() int {
	switch p {
	case ReviewPriorityUrgent:
		return 0
	case ReviewPriorityHigh:
		return 1
	case ReviewPriorityNormal:
		return 2
	case ReviewPriorityLow:
		return 3
	}
	return 4
}

// Valid reports whether p is a known priority.
func (p ReviewPriority) Valid() bool {
	return p.Rank() < 4
}

// ReviewStatus tracks progress of a tracked ticket toward export.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusInReview ReviewStatus = "in_review"
	ReviewStatusResolved ReviewStatus = "resolved"
	ReviewStatusExported ReviewStatus = "exported"
)

// Valid reports whether s is a known review status.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewStatusPending, ReviewStatusInReview, ReviewStatusResolved, ReviewStatusExported:
		return true
	}
	return false
}

// TrackedTicket is a ticket flagged by staff for secondary review.
type TrackedTicket struct {
	ID           int64
	TicketID     int64
	Rating       int
	Priority     ReviewPriority
	Status       ReviewStatus
	Notes        string
	TrackedBy    string
	ReviewedBy   *string
	NotionPageID *string
	ExportedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
