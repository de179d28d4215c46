package lifecycle

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

// TransitionFunc computes the next ticket state for one action kind.
type TransitionFunc func(m *Machine, t domain.Ticket, a Action, now time.Time) (Outcome, error)

// Rules are the timing and validation knobs of the workflow.
type Rules struct {
	AutoCloseAfter   time.Duration
	MaxSubjectLength int
}

// DefaultRules mirrors the production configuration.
func DefaultRules() Rules {
	return Rules{AutoCloseAfter: 24 * time.Hour, MaxSubjectLength: 100}
}

// Machine dispatches actions to their transition functions.
type Machine struct {
	rules Rules
	table map[ActionKind]TransitionFunc
}

// NewMachine builds a machine with the standard transition table.
func NewMachine(rules Rules) *Machine {
	if rules.AutoCloseAfter <= 0 {
		rules.AutoCloseAfter = DefaultRules().AutoCloseAfter
	}
	if rules.MaxSubjectLength <= 0 {
		rules.MaxSubjectLength = DefaultRules().MaxSubjectLength
	}
	return &Machine{
		rules: rules,
		table: map[ActionKind]TransitionFunc{
			ActionClaim:          claim,
			ActionClose:          closeTicket,
			ActionSubmitFeedback: submitFeedback,
			ActionAutoClose:      autoClose,
		},
	}
}

// Rules returns the machine's configuration.
func (m *Machine) Rules() Rules {
	return m.rules
}

// Apply runs the transition registered for the action. The input ticket is
// never mutated.
func (m *Machine) Apply(t domain.Ticket, a Action, now time.Time) (Outcome, error) {
	if a == nil {
		return Outcome{}, ErrUnknownAction
	}
	fn, ok := m.table[a.Kind()]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownAction, a.Kind())
	}
	out, err := fn(m, t.Clone(), a, now)
	if err != nil {
		return Outcome{}, err
	}
	out.Action = a.Kind()
	out.From = t.Status
	return out, nil
}

// CreateRequest carries the requester's input for a new ticket.
type CreateRequest struct {
	UserID    string
	GuildID   string
	ChannelID string
	Subject   string
	Category  string
}

// NewTicket validates the request and returns an unsaved open ticket.
func (m *Machine) NewTicket(req CreateRequest, now time.Time) (domain.Ticket, error) {
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return domain.Ticket{}, ErrSubjectEmpty
	}
	if utf8.RuneCountInString(subject) > m.rules.MaxSubjectLength {
		return domain.Ticket{}, fmt.Errorf("%w: maximum %d characters", ErrSubjectTooLong, m.rules.MaxSubjectLength)
	}
	category, ok := domain.ParseCategory(req.Category)
	if !ok {
		return domain.Ticket{}, fmt.Errorf("%w: %q", ErrInvalidCategory, req.Category)
	}
	return domain.Ticket{
		UserID:    req.UserID,
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		Subject:   subject,
		Category:  category,
		Status:    domain.TicketStatusOpen,
		CreatedAt: now.UTC(),
	}, nil
}

// CreatedEffects are the notices sent once a new ticket is stored.
func CreatedEffects(t domain.Ticket) []Effect {
	return []Effect{
		Notify{Audience: AudienceThread, Kind: NoticeCreated, ActorID: t.UserID},
		Notify{Audience: AudienceLog, Kind: NoticeCreated, ActorID: t.UserID},
	}
}

// Escalate marks an untouched stale ticket as escalated. It reports false when
// the ticket is not eligible, so a ticket is flagged at most once.
func Escalate(t domain.Ticket, threshold time.Duration, now time.Time) (domain.Ticket, bool) {
	if !EligibleForEscalation(t, threshold, now) {
		return t, false
	}
	next := t.Clone()
	stamp := now.UTC()
	next.EscalatedAt = &stamp
	return next, true
}

// EligibleForEscalation reports whether the ticket is open, unassigned, older
// than the threshold and not yet escalated.
func EligibleForEscalation(t domain.Ticket, threshold time.Duration, now time.Time) bool {
	if t.Status != domain.TicketStatusOpen || t.AssignedTo != nil || t.EscalatedAt != nil {
		return false
	}
	return !t.CreatedAt.After(now.Add(-threshold))
}

func claim(_ *Machine, t domain.Ticket, a Action, now time.Time) (Outcome, error) {
	act := a.(Claim)
	if act.StaffID == "" {
		return Outcome{}, ErrMissingActor
	}
	if t.AssignedTo != nil {
		return Outcome{}, fmt.Errorf("%w by %s", ErrAlreadyClaimed, *t.AssignedTo)
	}
	if t.Status != domain.TicketStatusOpen {
		return Outcome{}, ErrNotOpen
	}

	staff := act.StaffID
	t.AssignedTo = &staff
	t.Status = domain.TicketStatusClaimed

	return Outcome{
		Ticket: t,
		Effects: []Effect{
			Notify{Audience: AudienceThread, Kind: NoticeClaimed, ActorID: staff},
		},
	}, nil
}

func closeTicket(m *Machine, t domain.Ticket, a Action, now time.Time) (Outcome, error) {
	act := a.(Close)
	if act.StaffID == "" {
		return Outcome{}, ErrMissingActor
	}
	if t.Status == domain.TicketStatusClosed || t.Status == domain.TicketStatusPendingFeedback {
		return Outcome{}, ErrAlreadyClosing
	}

	reason := strings.TrimSpace(act.Reason)
	if reason == "" {
		reason = DefaultCloseReason
	}
	t.Status = domain.TicketStatusPendingFeedback

	return Outcome{
		Ticket: t,
		Effects: []Effect{
			Notify{Audience: AudienceThread, Kind: NoticeClosing, ActorID: act.StaffID, Reason: reason},
			Notify{Audience: AudienceRequester, Kind: NoticeFeedbackRequest, ActorID: act.StaffID, Reason: reason},
			ScheduleAutoClose{DueAt: now.Add(m.rules.AutoCloseAfter).UTC()},
		},
	}, nil
}

func submitFeedback(_ *Machine, t domain.Ticket, a Action, now time.Time) (Outcome, error) {
	act := a.(SubmitFeedback)
	if !domain.ValidRating(act.Rating) {
		return Outcome{}, ErrInvalidRating
	}
	if act.UserID != t.UserID {
		return Outcome{}, ErrNotOwner
	}
	if t.Status == domain.TicketStatusClosed {
		return Outcome{}, ErrTicketClosed
	}

	comment := strings.TrimSpace(act.Comment)
	if comment == "" {
		comment = DefaultFeedbackComment
	}
	closedAt := now.UTC()
	t.Status = domain.TicketStatusClosed
	t.ClosedAt = &closedAt

	return Outcome{
		Ticket: t,
		Effects: []Effect{
			RecordFeedback{Feedback: domain.Feedback{
				TicketID:  t.ID,
				Rating:    act.Rating,
				Comment:   comment,
				CreatedAt: closedAt,
			}},
			Notify{Audience: AudienceThread, Kind: NoticeFeedbackClosed, ActorID: act.UserID, Rating: act.Rating, Comment: comment},
			Notify{Audience: AudienceLog, Kind: NoticeFeedbackLogged, ActorID: act.UserID, Rating: act.Rating, Comment: comment},
			ArchiveThread{Reason: "Ticket closed with feedback"},
		},
	}, nil
}

func autoClose(_ *Machine, t domain.Ticket, _ Action, now time.Time) (Outcome, error) {
	if t.Status != domain.TicketStatusPendingFeedback {
		return Outcome{}, ErrNoLongerPending
	}

	closedAt := now.UTC()
	t.Status = domain.TicketStatusClosed
	t.ClosedAt = &closedAt

	return Outcome{
		Ticket: t,
		Effects: []Effect{
			Notify{Audience: AudienceThread, Kind: NoticeAutoClosed},
			Notify{Audience: AudienceLog, Kind: NoticeAutoClosedLog},
			ArchiveThread{Reason: "Ticket auto-closed after feedback timeout"},
		},
	}, nil
}
