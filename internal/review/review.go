// Package review holds the ordering and note rules of the secondary review queue.
package review

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

// SortMode selects the ordering of a review listing.
type SortMode string

const (
	SortPriority   SortMode = "priority"
	SortRatingAsc  SortMode = "rating_asc"
	SortRatingDesc SortMode = "rating_desc"
	SortOldest     SortMode = "oldest"
	SortNewest     SortMode = "newest"
)

// ListLimit caps a review listing.
const ListLimit = 25

// ParseSortMode falls back to priority ordering for unknown input.
func ParseSortMode(raw string) SortMode {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case SortRatingAsc, SortRatingDesc, SortOldest, SortNewest:
		return m
	}
	return SortPriority
}

// Sort orders items in place. Priority mode puts urgent first and, within a
// priority, the lowest rated first.
func Sort(items []domain.TrackedTicket, mode SortMode) {
	var less func(a, b domain.TrackedTicket) bool
	switch mode {
	case SortRatingAsc:
		less = func(a, b domain.TrackedTicket) bool { return a.Rating < b.Rating }
	case SortRatingDesc:
		less = func(a, b domain.TrackedTicket) bool { return a.Rating > b.Rating }
	case SortOldest:
		less = func(a, b domain.TrackedTicket) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortNewest:
		less = func(a, b domain.TrackedTicket) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		less = func(a, b domain.TrackedTicket) bool {
			ra, rb := a.Priority.Rank(), b.Priority.Rank()
			if ra != rb {
				return ra < rb
			}
			return a.Rating < b.Rating
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

// AppendNote adds a timestamped note after any existing notes.
func AppendNote(existing, note string, now time.Time) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return fmt.Sprintf("%s\n\n[%s] %s", existing, now.UTC().Format(time.RFC3339), note)
}

// ExportReady reports whether a tracked ticket belongs in the export queue.
func ExportReady(t domain.TrackedTicket) bool {
	if t.Status == domain.ReviewStatusResolved {
		return true
	}
	return t.Status == domain.ReviewStatusExported && t.NotionPageID == nil
}

// Stats summarises the review queue.
type Stats struct {
	Total     int                         `json:"total"`
	ByStatus  map[domain.ReviewStatus]int `json:"by_status"`
	Urgent    int                         `json:"urgent"`
	High      int                         `json:"high"`
	AvgRating float64                     `json:"avg_rating"`
	LowRated  int                         `json:"low_rated"`
	AddedWeek int                         `json:"added_this_week"`
}

// ComputeStats builds queue statistics. Ratings of zero mean the ticket had
// no feedback and are excluded from the average.
func ComputeStats(items []domain.TrackedTicket, now time.Time) Stats {
	st := Stats{ByStatus: map[domain.ReviewStatus]int{
		domain.ReviewStatusPending:  0,
		domain.ReviewStatusInReview: 0,
		domain.ReviewStatusResolved: 0,
		domain.ReviewStatusExported: 0,
	}}
	weekAgo := now.Add(-7 * 24 * time.Hour)

	var sum, rated int
	for _, it := range items {
		st.Total++
		st.ByStatus[it.Status]++
		switch it.Priority {
		case domain.ReviewPriorityUrgent:
			st.Urgent++
		case domain.ReviewPriorityHigh:
			st.High++
		}
		if it.Rating > 0 {
			sum += it.Rating
			rated++
			if it.Rating <= 2 {
				st.LowRated++
			}
		}
		if !it.CreatedAt.Before(weekAgo) {
			st.AddedWeek++
		}
	}
	if rated > 0 {
		st.AvgRating = roundTo2(float64(sum) / float64(rated))
	}
	return st
}

func roundTo2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
