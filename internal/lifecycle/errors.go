package lifecycle

import "errors"

var (
	ErrSubjectEmpty    = errors.New("lifecycle: subject is required")
	ErrSubjectTooLong  = errors.New("lifecycle: subject too long")
	ErrInvalidCategory = errors.New("lifecycle: unknown category")
	ErrAlreadyClaimed  = errors.New("lifecycle: ticket already claimed")
	ErrNotOpen         = errors.New("lifecycle: ticket is not open")
	ErrAlreadyClosing  = errors.New("lifecycle: ticket already closed or pending feedback")
	ErrTicketClosed    = errors.New("lifecycle: ticket already closed")
	ErrNotOwner        = errors.New("lifecycle: only the ticket creator can provide feedback")
	ErrInvalidRating   = errors.New("lifecycle: rating must be between 1 and 5")
	ErrNoLongerPending = errors.New("lifecycle: ticket no longer pending feedback")
	ErrUnknownAction   = errors.New("lifecycle: unknown action")
	ErrMissingActor    = errors.New("lifecycle: acting staff member required")
)
