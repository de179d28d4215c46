package lifecycle

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func openTicket() domain.Ticket {
	return domain.Ticket{
		ID:        7,
		UserID:    "user-1",
		GuildID:   "guild-1",
		ChannelID: "thread-1",
		Subject:   "Webhook failures",
		Category:  domain.CategoryWebhooks,
		Status:    domain.TicketStatusOpen,
		CreatedAt: baseTime.Add(-time.Hour),
	}
}

func ptr(s string) *string { return &s }

func TestNewTicketValidation(t *testing.T) {
	m := NewMachine(DefaultRules())

	tk, err := m.NewTicket(CreateRequest{UserID: "u", GuildID: "g", Subject: "  Help  ", Category: "webhooks"}, baseTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tk.Status != domain.TicketStatusOpen || tk.Subject != "Help" || tk.Category != domain.CategoryWebhooks {
		t.Fatalf("unexpected ticket: %+v", tk)
	}

	cases := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"empty subject", CreateRequest{Subject: "   ", Category: "Webhooks"}, ErrSubjectEmpty},
		{"long subject", CreateRequest{Subject: strings.Repeat("a", 101), Category: "Webhooks"}, ErrSubjectTooLong},
		{"bad category", CreateRequest{Subject: "x", Category: "Billing"}, ErrInvalidCategory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := m.NewTicket(tc.req, baseTime); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := m.NewTicket(CreateRequest{Subject: strings.Repeat("a", 100), Category: "Webhooks"}, baseTime); err != nil {
		t.Fatalf("100 characters should be accepted: %v", err)
	}
}

func TestClaim(t *testing.T) {
	m := NewMachine(DefaultRules())

	out, err := m.Apply(openTicket(), Claim{StaffID: "staff-9"}, baseTime)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if out.From != domain.TicketStatusOpen || out.Ticket.Status != domain.TicketStatusClaimed {
		t.Fatalf("unexpected transition %s -> %s", out.From, out.Ticket.Status)
	}
	if out.Ticket.AssignedTo == nil || *out.Ticket.AssignedTo != "staff-9" {
		t.Fatalf("assignee not set: %+v", out.Ticket.AssignedTo)
	}

	if _, err := m.Apply(out.Ticket, Claim{StaffID: "staff-2"}, baseTime); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("second claim should fail with ErrAlreadyClaimed, got %v", err)
	}

	pending := openTicket()
	pending.Status = domain.TicketStatusPendingFeedback
	if _, err := m.Apply(pending, Claim{StaffID: "staff-2"}, baseTime); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("claim on pending ticket: got %v", err)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	m := NewMachine(DefaultRules())
	in := openTicket()
	if _, err := m.Apply(in, Claim{StaffID: "s"}, baseTime); err != nil {
		t.Fatal(err)
	}
	if in.AssignedTo != nil || in.Status != domain.TicketStatusOpen {
		t.Fatalf("input mutated: %+v", in)
	}
}

func TestCloseSchedulesAutoClose(t *testing.T) {
	m := NewMachine(DefaultRules())

	for _, status := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusClaimed} {
		tk := openTicket()
		tk.Status = status
		out, err := m.Apply(tk, Close{StaffID: "staff-1"}, baseTime)
		if err != nil {
			t.Fatalf("close from %s: %v", status, err)
		}
		if out.Ticket.Status != domain.TicketStatusPendingFeedback {
			t.Fatalf("want pending_feedback, got %s", out.Ticket.Status)
		}

		var scheduled, requested bool
		for _, e := range out.Effects {
			switch eff := e.(type) {
			case ScheduleAutoClose:
				scheduled = true
				if !eff.DueAt.Equal(baseTime.Add(24 * time.Hour)) {
					t.Fatalf("unexpected due time %s", eff.DueAt)
				}
			case Notify:
				if eff.Audience == AudienceRequester && eff.Kind == NoticeFeedbackRequest {
					requested = true
					if eff.Reason != DefaultCloseReason {
						t.Fatalf("want default reason, got %q", eff.Reason)
					}
				}
			}
		}
		if !scheduled || !requested {
			t.Fatalf("missing effects: %+v", out.Effects)
		}
	}

	for _, status := range []domain.TicketStatus{domain.TicketStatusPendingFeedback, domain.TicketStatusClosed} {
		tk := openTicket()
		tk.Status = status
		if _, err := m.Apply(tk, Close{StaffID: "staff-1"}, baseTime); !errors.Is(err, ErrAlreadyClosing) {
			t.Fatalf("close from %s: got %v", status, err)
		}
	}
}

func TestSubmitFeedbackRatingBounds(t *testing.T) {
	m := NewMachine(DefaultRules())
	tk := openTicket()
	tk.Status = domain.TicketStatusPendingFeedback

	for _, rating := range []int{0, 6, -1} {
		if _, err := m.Apply(tk, SubmitFeedback{UserID: "user-1", Rating: rating}, baseTime); !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("rating %d: want ErrInvalidRating, got %v", rating, err)
		}
	}

	for _, rating := range []int{1, 5} {
		out, err := m.Apply(tk, SubmitFeedback{UserID: "user-1", Rating: rating}, baseTime)
		if err != nil {
			t.Fatalf("rating %d: %v", rating, err)
		}
		if out.Ticket.Status != domain.TicketStatusClosed || out.Ticket.ClosedAt == nil {
			t.Fatalf("ticket not closed: %+v", out.Ticket)
		}
		fb, ok := out.Feedback()
		if !ok || fb.Rating != rating || fb.Comment != DefaultFeedbackComment || fb.TicketID != tk.ID {
			t.Fatalf("unexpected feedback: %+v (%v)", fb, ok)
		}
	}
}

func TestSubmitFeedbackRules(t *testing.T) {
	m := NewMachine(DefaultRules())
	tk := openTicket()
	tk.Status = domain.TicketStatusPendingFeedback

	if _, err := m.Apply(tk, SubmitFeedback{UserID: "someone-else", Rating: 4}, baseTime); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("want ErrNotOwner, got %v", err)
	}

	closed := tk
	closed.Status = domain.TicketStatusClosed
	if _, err := m.Apply(closed, SubmitFeedback{UserID: "user-1", Rating: 4}, baseTime); !errors.Is(err, ErrTicketClosed) {
		t.Fatalf("want ErrTicketClosed, got %v", err)
	}

	out, err := m.Apply(openTicket(), SubmitFeedback{UserID: "user-1", Rating: 3, Comment: "quick fix"}, baseTime)
	if err != nil {
		t.Fatalf("feedback on open ticket: %v", err)
	}
	if fb, _ := out.Feedback(); fb.Comment != "quick fix" {
		t.Fatalf("comment not kept: %q", fb.Comment)
	}
}

func TestAutoClose(t *testing.T) {
	m := NewMachine(DefaultRules())
	tk := openTicket()
	tk.Status = domain.TicketStatusPendingFeedback

	out, err := m.Apply(tk, AutoClose{}, baseTime)
	if err != nil {
		t.Fatalf("auto close: %v", err)
	}
	if out.Ticket.Status != domain.TicketStatusClosed || !out.Ticket.ClosedAt.Equal(baseTime) {
		t.Fatalf("unexpected ticket: %+v", out.Ticket)
	}

	if _, err := m.Apply(out.Ticket, AutoClose{}, baseTime); !errors.Is(err, ErrNoLongerPending) {
		t.Fatalf("second auto close: want ErrNoLongerPending, got %v", err)
	}
}

func TestClosedIsTerminal(t *testing.T) {
	m := NewMachine(DefaultRules())
	tk := openTicket()
	tk.Status = domain.TicketStatusClosed
	tk.AssignedTo = ptr("staff-1")

	actions := []Action{
		Claim{StaffID: "staff-2"},
		Close{StaffID: "staff-2"},
		SubmitFeedback{UserID: "user-1", Rating: 5},
		AutoClose{},
	}
	for _, a := range actions {
		if _, err := m.Apply(tk, a, baseTime); err == nil {
			t.Fatalf("%s on closed ticket should fail", a.Kind())
		}
	}
}

func TestEscalateOnce(t *testing.T) {
	tk := openTicket()
	tk.CreatedAt = baseTime.Add(-25 * time.Hour)

	next, ok := Escalate(tk, 24*time.Hour, baseTime)
	if !ok || next.EscalatedAt == nil {
		t.Fatalf("stale ticket should escalate")
	}
	if _, ok := Escalate(next, 24*time.Hour, baseTime.Add(time.Hour)); ok {
		t.Fatalf("ticket escalated twice")
	}

	fresh := openTicket()
	if _, ok := Escalate(fresh, 24*time.Hour, baseTime); ok {
		t.Fatalf("fresh ticket should not escalate")
	}

	claimed := tk
	claimed.AssignedTo = ptr("staff-1")
	if _, ok := Escalate(claimed, 24*time.Hour, baseTime); ok {
		t.Fatalf("assigned ticket should not escalate")
	}
}
