package review

import (
	"testing"
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

func TestSortPriority(t *testing.T) {
	items := []domain.TrackedTicket{
		{TicketID: 1, Priority: domain.ReviewPriorityLow, Rating: 1},
		{TicketID: 2, Priority: domain.ReviewPriorityUrgent, Rating: 4},
		{TicketID: 3, Priority: domain.ReviewPriorityHigh, Rating: 2},
		{TicketID: 4, Priority: domain.ReviewPriorityUrgent, Rating: 1},
	}
	Sort(items, ParseSortMode(""))

	want := []int64{4, 2, 3, 1}
	for i, id := range want {
		if items[i].TicketID != id {
			t.Fatalf("position %d: want ticket %d, got %d", i, id, items[i].TicketID)
		}
	}
}

func TestSortModes(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func() []domain.TrackedTicket {
		return []domain.TrackedTicket{
			{TicketID: 1, Rating: 3, CreatedAt: base.Add(2 * time.Hour)},
			{TicketID: 2, Rating: 1, CreatedAt: base},
			{TicketID: 3, Rating: 5, CreatedAt: base.Add(time.Hour)},
		}
	}

	cases := []struct {
		mode SortMode
		want []int64
	}{
		{SortRatingAsc, []int64{2, 1, 3}},
		{SortRatingDesc, []int64{3, 1, 2}},
		{SortOldest, []int64{2, 3, 1}},
		{SortNewest, []int64{1, 3, 2}},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			items := mk()
			Sort(items, tc.mode)
			for i, id := range tc.want {
				if items[i].TicketID != id {
					t.Fatalf("position %d: want %d, got %d", i, id, items[i].TicketID)
				}
			}
		})
	}
}

func TestAppendNote(t *testing.T) {
	now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	if got := AppendNote("", "first", now); got != "first" {
		t.Fatalf("got %q", got)
	}
	want := "first\n\n[2025-02-03T04:05:06Z] second"
	if got := AppendNote("first", "second", now); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := AppendNote("first", "  ", now); got != "first" {
		t.Fatalf("blank note should be ignored, got %q", got)
	}
}

func TestExportReady(t *testing.T) {
	page := "page-1"
	cases := []struct {
		item domain.TrackedTicket
		want bool
	}{
		{domain.TrackedTicket{Status: domain.ReviewStatusResolved}, true},
		{domain.TrackedTicket{Status: domain.ReviewStatusExported}, true},
		{domain.TrackedTicket{Status: domain.ReviewStatusExported, NotionPageID: &page}, false},
		{domain.TrackedTicket{Status: domain.ReviewStatusPending}, false},
	}
	for _, tc := range cases {
		if got := ExportReady(tc.item); got != tc.want {
			t.Fatalf("%+v: want %v, got %v", tc.item, tc.want, got)
		}
	}
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	items := []domain.TrackedTicket{
		{Status: domain.ReviewStatusPending, Priority: domain.ReviewPriorityUrgent, Rating: 1, CreatedAt: now.Add(-time.Hour)},
		{Status: domain.ReviewStatusResolved, Priority: domain.ReviewPriorityHigh, Rating: 4, CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{Status: domain.ReviewStatusPending, Priority: domain.ReviewPriorityLow, Rating: 0, CreatedAt: now.Add(-2 * 24 * time.Hour)},
	}
	st := ComputeStats(items, now)

	if st.Total != 3 || st.ByStatus[domain.ReviewStatusPending] != 2 || st.ByStatus[domain.ReviewStatusExported] != 0 {
		t.Fatalf("unexpected counts: %+v", st)
	}
	if st.Urgent != 1 || st.High != 1 || st.LowRated != 1 || st.AddedWeek != 2 {
		t.Fatalf("unexpected breakdown: %+v", st)
	}
	if st.AvgRating != 2.5 {
		t.Fatalf("want avg 2.5, got %v", st.AvgRating)
	}
}
