package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/lifecycle"
	"github.com/spec-kit/weaver-helpdesk/internal/notify"
)

const (
	maxFieldValue       = 1024
	maxEmbedDescription = 4096
)

// StarRating renders a 1-5 rating as filled and empty stars.
func StarRating(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > domain.MaxRating {
		rating = domain.MaxRating
	}
	return strings.Repeat("⭐", rating) + strings.Repeat("☆", domain.MaxRating-rating) + fmt.Sprintf(" (%d/5)", rating)
}

// FormatDuration renders an elapsed time as "3h 12m" or "12m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int64(d / time.Hour)
	minutes := int64((d % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func ratingColor(rating int) int {
	switch {
	case rating >= 4:
		return notify.ColorSuccess
	case rating == 3:
		return notify.ColorWarning
	}
	return notify.ColorDanger
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

func hoursText(d time.Duration) string {
	h := int(d / time.Hour)
	if h == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", h)
}

// renderNotice builds the message for a notice. The boolean is false for
// notice kinds that have no template for the audience.
func (n *NotificationService) renderNotice(t domain.Ticket, notice lifecycle.Notify, now time.Time) (notify.Message, bool) {
	ticketID := fmt.Sprintf("#%d", t.ID)
	category := string(t.Category)

	switch notice.Kind {
	case lifecycle.NoticeCreated:
		if notice.Audience == lifecycle.AudienceThread {
			content := fmt.Sprintf("New support ticket from %s", mention(t.UserID))
			if n.supportRoleID != "" {
				content = fmt.Sprintf("<@&%s> - %s", n.supportRoleID, content)
			}
			return notify.Message{
				Content: content,
				Embeds: []notify.Embed{{
					Title:       "🎫 Support Ticket",
					Description: fmt.Sprintf("**Subject:** %s\n**Category:** %s", truncate(t.Subject, 200), category),
					Color:       notify.ColorInfo,
					Fields: []notify.Field{
						{Name: "User", Value: mention(t.UserID), Inline: true},
						{Name: "Status", Value: "🟢 Open", Inline: true},
						{Name: "Category", Value: category, Inline: true},
					},
					Footer:    fmt.Sprintf("Ticket ID: %d", t.ID),
					Timestamp: now,
				}},
			}, true
		}
		return notify.Message{Embeds: []notify.Embed{{
			Title: "🎫 New Ticket",
			Color: notify.ColorInfo,
			Fields: []notify.Field{
				{Name: "🎫 Ticket ID", Value: ticketID, Inline: true},
				{Name: "👤 User", Value: mention(t.UserID), Inline: true},
				{Name: "📁 Category", Value: category, Inline: true},
				{Name: "📝 Subject", Value: truncate(t.Subject, maxFieldValue)},
				{Name: "🧵 Thread", Value: fmt.Sprintf("<#%s>", t.ChannelID), Inline: true},
			},
			Timestamp: now,
		}}}, true

	case lifecycle.NoticeClaimed:
		return notify.Message{Embeds: []notify.Embed{{
			Title:       "🎫 Ticket Claimed",
			Description: fmt.Sprintf("This ticket has been claimed by %s", mention(notice.ActorID)),
			Color:       notify.ColorSuccess,
			Timestamp:   now,
		}}}, true

	case lifecycle.NoticeClosing:
		return notify.Message{Embeds: []notify.Embed{{
			Title:       "🔒 Ticket Closing",
			Description: fmt.Sprintf("This ticket is being closed by %s.\nAwaiting feedback from the ticket creator.", mention(notice.ActorID)),
			Color:       notify.ColorWarning,
			Fields:      []notify.Field{{Name: "📝 Reason", Value: truncate(notice.Reason, maxFieldValue)}},
			Timestamp:   now,
		}}}, true

	case lifecycle.NoticeFeedbackRequest:
		return notify.Message{Embeds: []notify.Embed{{
			Title:       "📝 Ticket Feedback Request",
			Description: fmt.Sprintf("Your support ticket **\"%s\"** has been resolved.\n\nPlease rate your experience from 1 to 5.", t.Subject),
			Color:       notify.ColorInfo,
			Fields: []notify.Field{
				{Name: "📁 Category", Value: category, Inline: true},
				{Name: "🎫 Ticket ID", Value: ticketID, Inline: true},
				{Name: "⭐ Rating Scale", Value: "1 = Very Poor\n2 = Poor\n3 = Okay\n4 = Good\n5 = Excellent"},
			},
			Timestamp: now,
		}}}, true

	case lifecycle.NoticeFeedbackClosed:
		return notify.Message{Embeds: []notify.Embed{{
			Title:       "✅ Ticket Closed",
			Description: "Feedback has been received. This ticket is now closed.",
			Color:       notify.ColorSuccess,
			Timestamp:   now,
		}}}, true

	case lifecycle.NoticeFeedbackLogged:
		assigned := "Unassigned"
		if t.AssignedTo != nil {
			assigned = mention(*t.AssignedTo)
		}
		end := now
		if t.ClosedAt != nil {
			end = *t.ClosedAt
		}
		return notify.Message{Embeds: []notify.Embed{{
			Title:       "📊 Ticket Feedback Received",
			Description: fmt.Sprintf("Feedback for ticket: **%s**", t.Subject),
			Color:       ratingColor(notice.Rating),
			Fields: []notify.Field{
				{Name: "🎫 Ticket ID", Value: ticketID, Inline: true},
				{Name: "👤 User", Value: mention(t.UserID), Inline: true},
				{Name: "⭐ Rating", Value: StarRating(notice.Rating), Inline: true},
				{Name: "📁 Category", Value: category, Inline: true},
				{Name: "👨‍💼 Assigned To", Value: assigned, Inline: true},
				{Name: "⏱️ Duration", Value: FormatDuration(end.Sub(t.CreatedAt)), Inline: true},
				{Name: "💬 Comments", Value: truncate(notice.Comment, maxFieldValue)},
			},
			Timestamp: now,
		}}}, true

	case lifecycle.NoticeAutoClosed:
		return notify.Message{Embeds: []notify.Embed{{
			Title:       "🔒 Ticket Auto-Closed",
			Description: fmt.Sprintf("This ticket was automatically closed after %s without feedback.", hoursText(n.autoCloseAfter)),
			Color:       notify.ColorWarning,
			Timestamp:   now,
		}}}, true

	case lifecycle.NoticeAutoClosedLog:
		return notify.Message{Embeds: []notify.Embed{{
			Title: "🔒 Ticket Closed (No Feedback)",
			Color: notify.ColorWarning,
			Fields: []notify.Field{
				{Name: "🎫 Ticket ID", Value: ticketID, Inline: true},
				{Name: "👤 User", Value: mention(t.UserID), Inline: true},
				{Name: "📁 Category", Value: category, Inline: true},
			},
			Timestamp: now,
		}}}, true
	}
	return notify.Message{}, false
}

// feedbackFallback is posted in the thread when the requester cannot be
// reached by direct message.
func feedbackFallback(t domain.Ticket, reason string) notify.Message {
	return notify.Message{
		Content: mention(t.UserID),
		Embeds: []notify.Embed{{
			Title:       "📝 Feedback Request",
			Description: fmt.Sprintf("%s, please provide your feedback for this ticket.", mention(t.UserID)),
			Color:       notify.ColorInfo,
			Fields:      []notify.Field{{Name: "📝 Close Reason", Value: truncate(reason, maxFieldValue)}},
		}},
	}
}

// assistMessage is the assistant's first reply in a new ticket thread.
func assistMessage(text string, faqs []domain.FAQ, now time.Time) notify.Message {
	embed := notify.Embed{
		Title:       "🤖 Weaver Assistant",
		Description: truncate(text, maxEmbedDescription),
		Color:       notify.ColorInfo,
		Footer:      "A staff member will be with you shortly",
		Timestamp:   now,
	}
	if len(faqs) > 0 {
		refs := make([]string, 0, len(faqs))
		for _, f := range faqs {
			q := f.Question
			if len([]rune(q)) > 60 {
				q = truncate(q, 60) + "..."
			}
			refs = append(refs, fmt.Sprintf("• **FAQ #%d:** %s", f.ID, q))
		}
		embed.Fields = append(embed.Fields, notify.Field{
			Name:  "📚 Related FAQs",
			Value: truncate("Use `/faq view <id>` for full details:\n"+strings.Join(refs, "\n"), maxFieldValue),
		})
	}
	return notify.Message{Embeds: []notify.Embed{embed}}
}
