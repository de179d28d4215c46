package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/export"
)

func newReviewHarness(t *testing.T, exp export.Exporter) (*ReviewService, *memTickets, *memFeedback, *memTracked) {
	t.Helper()
	tickets := newMemTickets()
	fb := newMemFeedback(tickets)
	tracked := newMemTracked(tickets)
	svc := NewReviewService(ReviewDependencies{
		TicketRepo:   tickets,
		FeedbackRepo: fb,
		TrackedRepo:  tracked,
		Exporter:     exp,
		Clock:        fixedClock,
	})
	return svc, tickets, fb, tracked
}

func seedTicket(tickets *memTickets, subject string) domain.Ticket {
	return tickets.put(domain.Ticket{
		UserID:    "u1",
		GuildID:   "g1",
		ChannelID: "c-" + subject,
		Subject:   subject,
		Category:  domain.CategoryWebhooks,
		Status:    domain.TicketStatusClosed,
		CreatedAt: testNow,
	})
}

func TestTrackUntrackRoundTrip(t *testing.T) {
	svc, tickets, fb, tracked := newReviewHarness(t, nil)
	ctx := context.Background()
	ticket := seedTicket(tickets, "webhook retries")
	fb.rows[ticket.ID] = domain.Feedback{TicketID: ticket.ID, Rating: 2}
	before := tickets.get(ticket.ID)

	tr, err := svc.Track(ctx, TrackInput{TicketID: ticket.ID, StaffID: "staff-1", Priority: "HIGH", Notes: "slow answer"})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if tr.Rating != 2 || tr.Priority != domain.ReviewPriorityHigh || tr.Status != domain.ReviewStatusPending {
		t.Fatalf("unexpected tracked row: %+v", tr)
	}
	if got := tickets.get(ticket.ID); !got.Tracked || got.TrackedBy == nil || *got.TrackedBy != "staff-1" {
		t.Fatalf("ticket tracked fields not set: %+v", got)
	}

	_, err = svc.Track(ctx, TrackInput{TicketID: ticket.ID, StaffID: "staff-2"})
	requireCode(t, err, "CONFLICT")

	if err := svc.Untrack(ctx, ticket.ID); err != nil {
		t.Fatalf("Untrack: %v", err)
	}
	if _, err := tracked.GetByTicket(ctx, ticket.ID); err == nil {
		t.Fatal("tracked row should be gone")
	}
	after := tickets.get(ticket.ID)
	if after.Tracked != before.Tracked || after.TrackedAt != nil || after.TrackedBy != nil {
		t.Fatalf("tracked fields not restored: %+v", after)
	}

	requireCode(t, svc.Untrack(ctx, ticket.ID), "NOT_FOUND")

	retracked, err := svc.Track(ctx, TrackInput{TicketID: ticket.ID, StaffID: "staff-3"})
	if err != nil {
		t.Fatalf("re-Track: %v", err)
	}
	if retracked.Notes != "" || retracked.Priority != domain.ReviewPriorityNormal {
		t.Fatalf("re-tracking must start fresh: %+v", retracked)
	}
}

func TestTrackWithoutFeedbackUsesZeroRating(t *testing.T) {
	svc, tickets, _, _ := newReviewHarness(t, nil)
	ticket := seedTicket(tickets, "no feedback")
	tr, err := svc.Track(context.Background(), TrackInput{TicketID: ticket.ID, StaffID: "s"})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if tr.Rating != 0 {
		t.Fatalf("rating = %d", tr.Rating)
	}

	_, err = svc.Track(context.Background(), TrackInput{TicketID: 404, StaffID: "s"})
	requireCode(t, err, "NOT_FOUND")
	other := seedTicket(tickets, "bad priority")
	_, err = svc.Track(context.Background(), TrackInput{TicketID: other.ID, StaffID: "s", Priority: "meh"})
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestReviewListDefaultOrder(t *testing.T) {
	svc, tickets, fb, _ := newReviewHarness(t, nil)
	ctx := context.Background()
	cases := []struct {
		priority string
		rating   int
	}{
		{"urgent", 3},
		{"low", 1},
		{"high", 2},
	}
	for i, c := range cases {
		ticket := seedTicket(tickets, string(rune('a'+i)))
		fb.rows[ticket.ID] = domain.Feedback{TicketID: ticket.ID, Rating: c.rating}
		if _, err := svc.Track(ctx, TrackInput{TicketID: ticket.ID, StaffID: "s", Priority: c.priority}); err != nil {
			t.Fatalf("Track: %v", err)
		}
	}

	items, err := svc.List(ctx, ReviewListInput{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var got []string
	for _, it := range items {
		got = append(got, string(it.Priority))
	}
	if strings.Join(got, ",") != "urgent,high,low" {
		t.Fatalf("order = %v", got)
	}

	items, err = svc.List(ctx, ReviewListInput{Sort: "rating_asc"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if items[0].Rating != 1 || items[2].Rating != 3 {
		t.Fatalf("rating_asc order wrong: %+v", items)
	}

	items, err = svc.List(ctx, ReviewListInput{Priority: "low"})
	if err != nil || len(items) != 1 {
		t.Fatalf("priority filter: %v %d", err, len(items))
	}

	_, err = svc.List(ctx, ReviewListInput{Status: "archived"})
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestReviewUpdateAppendsNotes(t *testing.T) {
	svc, tickets, _, _ := newReviewHarness(t, nil)
	ctx := context.Background()
	ticket := seedTicket(tickets, "notes")
	if _, err := svc.Track(ctx, TrackInput{TicketID: ticket.ID, StaffID: "s", Notes: "first"}); err != nil {
		t.Fatalf("Track: %v", err)
	}

	updated, err := svc.Update(ctx, ticket.ID, ReviewUpdateInput{Status: "in_review", Note: "second", ReviewerID: "lead"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := "first\n\n[2025-03-01T12:00:00Z] second"
	if updated.Notes != want {
		t.Fatalf("notes = %q, want %q", updated.Notes, want)
	}
	if updated.Status != domain.ReviewStatusInReview || updated.ReviewedBy == nil || *updated.ReviewedBy != "lead" {
		t.Fatalf("unexpected update: %+v", updated)
	}

	_, err = svc.Update(ctx, ticket.ID, ReviewUpdateInput{Status: "done"})
	requireCode(t, err, "VALIDATION_FAILED")
	_, err = svc.Update(ctx, 404, ReviewUpdateInput{Status: "resolved"})
	requireCode(t, err, "NOT_FOUND")
}

func TestExportWithoutExporterReturnsManualData(t *testing.T) {
	svc, tickets, _, tracked := newReviewHarness(t, nil)
	ctx := context.Background()
	ticket := seedTicket(tickets, "manual")
	if _, err := svc.Track(ctx, TrackInput{TicketID: ticket.ID, StaffID: "s", Priority: "urgent"}); err != nil {
		t.Fatalf("Track: %v", err)
	}

	out, err := svc.Export(ctx, ticket.ID, "s")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if out.Exported || out.Data.TicketID != ticket.ID || out.Data.Title != "#1 - manual" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	tr, _ := tracked.GetByTicket(ctx, ticket.ID)
	if tr.Status != domain.ReviewStatusPending {
		t.Fatalf("manual export must not change status, got %s", tr.Status)
	}
}

func TestExportMarksExported(t *testing.T) {
	exp := &fakeExporter{available: true}
	svc, tickets, _, tracked := newReviewHarness(t, exp)
	ctx := context.Background()
	ticket := seedTicket(tickets, "auto")
	if _, err := svc.Track(ctx, TrackInput{TicketID: ticket.ID, StaffID: "s"}); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if _, err := svc.Update(ctx, ticket.ID, ReviewUpdateInput{Status: "resolved"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	ready, err := svc.ExportReady(ctx)
	if err != nil || len(ready) != 1 {
		t.Fatalf("ExportReady: %v %d", err, len(ready))
	}

	out, err := svc.Export(ctx, ticket.ID, "s")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !out.Exported || out.Result.PageID != "page-1" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	tr, _ := tracked.GetByTicket(ctx, ticket.ID)
	if tr.Status != domain.ReviewStatusExported || tr.NotionPageID == nil || *tr.NotionPageID != "page-1" {
		t.Fatalf("not marked exported: %+v", tr)
	}

	ready, err = svc.ExportReady(ctx)
	if err != nil || len(ready) != 0 {
		t.Fatalf("export queue should be empty: %v %d", err, len(ready))
	}
}

func TestExportFailureIsServiceUnavailable(t *testing.T) {
	exp := &fakeExporter{available: true, err: errors.New("notion 502")}
	svc, tickets, _, _ := newReviewHarness(t, exp)
	ctx := context.Background()
	ticket := seedTicket(tickets, "fail")
	if _, err := svc.Track(ctx, TrackInput{TicketID: ticket.ID, StaffID: "s"}); err != nil {
		t.Fatalf("Track: %v", err)
	}
	_, err := svc.Export(ctx, ticket.ID, "s")
	requireCode(t, err, "SERVICE_UNAVAILABLE")
}

func TestReviewStats(t *testing.T) {
	svc, tickets, fb, _ := newReviewHarness(t, nil)
	ctx := context.Background()
	for i, rating := range []int{1, 0, 5} {
		ticket := seedTicket(tickets, string(rune('a'+i)))
		if rating > 0 {
			fb.rows[ticket.ID] = domain.Feedback{TicketID: ticket.ID, Rating: rating}
		}
		if _, err := svc.Track(ctx, TrackInput{TicketID: ticket.ID, StaffID: "s", Priority: "urgent"}); err != nil {
			t.Fatalf("Track: %v", err)
		}
	}
	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Urgent != 3 || stats.LowRated != 1 || stats.AvgRating != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
