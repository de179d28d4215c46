package domain

import "time"

// DeferredJobKind names the handler a deferred job is routed to.
type DeferredJobKind string

const (
	DeferredJobAutoClose DeferredJobKind = "ticket_auto_close"
)

// DeferredJob is a persisted "run at" record that survives restarts.
type DeferredJob struct {
	ID       string          `json:"id"`
	Kind     DeferredJobKind `json:"kind"`
	TicketID int64           `json:"ticket_id"`
	DueAt    time.Time       `json:"due_at"`
	Attempts int             `json:"attempts,omitempty"`
}
