package lifecycle

// ActionKind keys the transition dispatch table.
type ActionKind string

const (
	ActionClaim          ActionKind = "claim"
	ActionClose          ActionKind = "close"
	ActionSubmitFeedback ActionKind = "submit_feedback"
	ActionAutoClose      ActionKind = "auto_close"
)

// Action is a typed request to move a ticket.
type Action interface {
	Kind() ActionKind
}

// Claim assigns the ticket to the acting staff member.
type Claim struct {
	StaffID string
}

// Close is a staff-initiated close that waits for requester feedback.
type Close struct {
	StaffID string
	Reason  string
}

// SubmitFeedback records the requester's rating and finishes the ticket.
type SubmitFeedback struct {
	UserID  string
	Rating  int
	Comment string
}

// AutoClose finishes a ticket whose feedback window expired.
type AutoClose struct{}

func (Claim) Kind() ActionKind          { return ActionClaim }
func (Close) Kind() ActionKind          { return ActionClose }
func (SubmitFeedback) Kind() ActionKind { return ActionSubmitFeedback }
func (AutoClose) Kind() ActionKind      { return ActionAutoClose }

// DefaultCloseReason is used when staff close without giving a reason.
const DefaultCloseReason = "No reason provided"

// DefaultFeedbackComment is stored when the requester leaves the comment empty.
const DefaultFeedbackComment = "No additional comments"
