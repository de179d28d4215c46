package lifecycle

import (
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

// Audience says where a notice is delivered.
type Audience string

const (
	AudienceThread    Audience = "thread"
	AudienceLog       Audience = "log"
	AudienceRequester Audience = "requester"
)

// NoticeKind identifies the message template a notice renders with.
type NoticeKind string

const (
	NoticeCreated         NoticeKind = "ticket_created"
	NoticeClaimed         NoticeKind = "ticket_claimed"
	NoticeClosing         NoticeKind = "ticket_closing"
	NoticeFeedbackRequest NoticeKind = "feedback_request"
	NoticeFeedbackClosed  NoticeKind = "ticket_closed_feedback"
	NoticeFeedbackLogged  NoticeKind = "feedback_received"
	NoticeAutoClosed      NoticeKind = "ticket_auto_closed"
	NoticeAutoClosedLog   NoticeKind = "ticket_closed_no_feedback"
)

// Effect is a side effect to run after the transition is persisted.
type Effect interface {
	effect()
}

// Notify asks for a notice to be delivered. Delivery failure never undoes
// the transition.
type Notify struct {
	Audience Audience
	Kind     NoticeKind
	ActorID  string
	Reason   string
	Rating   int
	Comment  string
}

// ScheduleAutoClose arms the no-feedback deadline.
type ScheduleAutoClose struct {
	DueAt time.Time
}

// RecordFeedback must be persisted atomically with the transition.
type RecordFeedback struct {
	Feedback domain.Feedback
}

// ArchiveThread locks the discussion thread once the ticket is closed.
type ArchiveThread struct {
	Reason string
}

func (Notify) effect()            {}
func (ScheduleAutoClose) effect() {}
func (RecordFeedback) effect()    {}
func (ArchiveThread) effect()     {}

// Outcome is the result of a transition: the new ticket state, the status the
// stored row must still have for the write to apply, and follow-up effects.
type Outcome struct {
	Action  ActionKind
	From    domain.TicketStatus
	Ticket  domain.Ticket
	Effects []Effect
}

// Feedback returns the feedback row carried by the outcome, if any.
func (o Outcome) Feedback() (domain.Feedback, bool) {
	for _, e := range o.Effects {
		if rf, ok := e.(RecordFeedback); ok {
			return rf.Feedback, true
		}
	}
	return domain.Feedback{}, false
}
