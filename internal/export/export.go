// Package export publishes reviewed tickets to the external tracker.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

// ErrUnavailable means no exporter is configured.
var ErrUnavailable = errors.New("export: exporter not configured")

const maxSummaryLength = 2000

var categoryDomain = map[domain.Category]string{
	domain.CategoryAppDirectory:     "App Directory",
	domain.CategoryAppNameChange:    "Verified App Name Change Request",
	domain.CategoryAPIGateway:       "API & Gateway",
	domain.CategoryCommunityPerks:   "Developer Community Perks",
	domain.CategoryPremiumApps:      "Premium Apps",
	domain.CategorySocialSDK:        "Social SDK",
	domain.CategoryTeamsOwnership:   "Developer Product Ownership Transfer Request",
	domain.CategoryVerificationInts: "App Verification and Intents",
	domain.CategoryWebhooks:         "Webhooks",
}

var priorityLabel = map[domain.ReviewPriority]string{
	domain.ReviewPriorityUrgent: "P0",
	domain.ReviewPriorityHigh:   "P0",
	domain.ReviewPriorityNormal: "P1",
	domain.ReviewPriorityLow:    "P2",
}

// Data is the tracker row for one ticket. It doubles as the manual export
// payload when no exporter is configured.
type Data struct {
	TicketID  int64     `json:"ticket_id"`
	Title     string    `json:"title"`
	ThreadURL string    `json:"thread_url"`
	Domain    string    `json:"domain"`
	Priority  string    `json:"priority"`
	Summary   string    `json:"summary"`
	Added     time.Time `json:"added"`
}

// Result identifies the created tracker page.
type Result struct {
	PageID  string `json:"page_id"`
	PageURL string `json:"page_url"`
}

// Exporter writes tracker rows.
type Exporter interface {
	Available() bool
	ExportTicket(ctx context.Context, data Data) (Result, error)
}

// BuildData assembles the tracker row. fb may be nil.
func BuildData(t domain.Ticket, tracked domain.TrackedTicket, fb *domain.Feedback, now time.Time) Data {
	dom, ok := categoryDomain[t.Category]
	if !ok {
		dom = categoryDomain[domain.CategoryAPIGateway]
	}
	prio, ok := priorityLabel[tracked.Priority]
	if !ok {
		prio = "P1"
	}

	rating, comment := "N/A", "No feedback provided"
	if fb != nil {
		rating = fmt.Sprintf("%d", fb.Rating)
		if fb.Comment != "" {
			comment = fb.Comment
		}
	}
	summary := fmt.Sprintf("Rating: %s/5\nUser Feedback: %s\n", rating, comment)
	if strings.TrimSpace(tracked.Notes) != "" {
		summary += "\nReview Notes: " + tracked.Notes
	}

	return Data{
		TicketID:  t.ID,
		Title:     fmt.Sprintf("#%d - %s", t.ID, t.Subject),
		ThreadURL: ThreadURL(t),
		Domain:    dom,
		Priority:  prio,
		Summary:   truncateRunes(summary, maxSummaryLength),
		Added:     now.UTC(),
	}
}

// ThreadURL links to the ticket's discussion thread.
func ThreadURL(t domain.Ticket) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s", t.GuildID, t.ChannelID)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Disabled is the exporter used when no tracker credentials are configured.
type Disabled struct{}

func (Disabled) Available() bool { return false }

func (Disabled) ExportTicket(context.Context, Data) (Result, error) {
	return Result{}, ErrUnavailable
}
