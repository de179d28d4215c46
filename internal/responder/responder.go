// Package responder writes the assistant's first reply to new tickets and
// the staff-facing escalation notices.
package responder

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

// InitialRequest is the context handed to the responder for a new ticket.
type InitialRequest struct {
	Ticket  domain.Ticket
	FAQs    []domain.FAQ
	History []domain.Ticket
}

// Responder produces message text. It never fails: when generation is
// unavailable it returns deterministic fallback text.
type Responder interface {
	InitialResponse(ctx context.Context, req InitialRequest) string
	EscalationNotice(ctx context.Context, ticket domain.Ticket, waited time.Duration) string
}

// DocLinks are the reference links offered for a category.
type DocLinks struct {
	HelpCenter string
	APIDocs    string
	Extra      []NamedLink
}

// NamedLink is an additional labelled link.
type NamedLink struct {
	Name string
	URL  string
}

var defaultDocs = DocLinks{
	HelpCenter: "https://support-dev.discord.com/hc/en-us",
	APIDocs:    "https://discord.com/developers/docs",
}

var categoryDocs = map[domain.Category]DocLinks{
	domain.CategoryAppDirectory: {
		HelpCenter: "https://support-dev.discord.com/hc/en-us/sections/31439707456663-Discovery",
		APIDocs:    "https://discord.com/developers/docs/resources/application#application-object",
	},
	domain.CategoryAppNameChange: {
		HelpCenter: "https://support-dev.discord.com/hc/en-us/articles/6129090215959-How-Do-I-Change-My-Bot-s-Name",
		APIDocs:    "https://discord.com/developers/docs/resources/application#edit-current-application",
	},
	domain.CategoryAPIGateway: {
		HelpCenter: "https://support-dev.discord.com/hc/en-us/articles/6223003921559-My-Bot-is-Being-Rate-Limited",
		APIDocs:    "https://discord.com/developers/docs/topics/gateway",
		Extra:      []NamedLink{{Name: "Rate Limits", URL: "https://discord.com/developers/docs/topics/rate-limits"}},
	},
	domain.CategoryCommunityPerks: {
		HelpCenter: "https://support-dev.discord.com/hc/en-us/articles/10113997751447-Active-Developer-Badge",
		APIDocs:    "https://discord.com/developers/docs/tutorials/developing-a-user-installable-app",
	},
	domain.CategoryPremiumApps: {
		HelpCenter: "https://support-dev.discord.com/hc/en-us/sections/17294380054935-Monetization",
		APIDocs:    "https://discord.com/developers/docs/monetization/overview",
	},
	domain.CategorySocialSDK: {
		HelpCenter: "https://support-dev.discord.com/hc/categories/30608732211607",
		APIDocs:    "https://discord.com/developers/docs/developer-tools/embedded-app-sdk",
	},
	domain.CategoryTeamsOwnership: {
		HelpCenter: "https://support-dev.discord.com/hc/categories/360000656531",
		APIDocs:    "https://discord.com/developers/docs/topics/teams",
	},
	domain.CategoryVerificationInts: {
		HelpCenter: "https://support-dev.discord.com/hc/en-us/sections/5324794669207-Privileged-Gateway-Intents",
		APIDocs:    "https://discord.com/developers/docs/topics/gateway#gateway-intents",
		Extra:      []NamedLink{{Name: "Privileged Intents", URL: "https://discord.com/developers/docs/topics/gateway#privileged-intents"}},
	},
	domain.CategoryWebhooks: {
		HelpCenter: "https://support.discord.com/hc/en-us/articles/228383668-Intro-to-Webhooks",
		APIDocs:    "https://discord.com/developers/docs/resources/webhook",
	},
}

// DocsFor returns the reference links for a category.
func DocsFor(c domain.Category) DocLinks {
	if d, ok := categoryDocs[c]; ok {
		return d
	}
	return defaultDocs
}

var categoryTips = map[domain.Category]string{
	domain.CategoryAppDirectory:     "app listing details, screenshots of any issues, or your application ID",
	domain.CategoryAppNameChange:    "your current app name, desired new name, and application ID",
	domain.CategoryAPIGateway:       "error codes, API responses, relevant code snippets, or gateway event logs",
	domain.CategoryCommunityPerks:   "your developer profile or any eligibility questions",
	domain.CategoryPremiumApps:      "your monetization setup details or SKU information",
	domain.CategorySocialSDK:        "SDK version, platform details, and any error messages",
	domain.CategoryTeamsOwnership:   "team ID, current ownership details, or transfer requirements",
	domain.CategoryVerificationInts: "your application ID, current verification status, or intent requirements",
	domain.CategoryWebhooks:         "webhook URL issues, delivery failures, or payload examples",
}

const defaultTip = "any relevant details, screenshots, or error messages"

// FormatWait renders a duration as "2d 3h" or "5h".
func FormatWait(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int64(d / time.Hour)
	days := hours / 24
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours%24)
	}
	return fmt.Sprintf("%dh", hours)
}

// Fallback is the deterministic responder used when no model is configured
// and whenever a model call fails.
type Fallback struct{}

// InitialResponse implements Responder.
func (Fallback) InitialResponse(_ context.Context, req InitialRequest) string {
	tip, ok := categoryTips[req.Ticket.Category]
	if !ok {
		tip = defaultTip
	}
	docs := DocsFor(req.Ticket.Category)
	return fmt.Sprintf(`👋 Thanks for reaching out! Your ticket has been received and a support team member will claim it and assist you as soon as possible.

While you wait, it would be helpful if you could share any additional context like **%s**. The more details you provide, the faster we can help!

📚 **Helpful Resources:**
• [Discord Help Center](%s)
• [Developer Documentation](%s)

We appreciate your patience! 🙏`, tip, docs.HelpCenter, docs.APIDocs)
}

// EscalationNotice implements Responder.
func (Fallback) EscalationNotice(_ context.Context, t domain.Ticket, _ time.Duration) string {
	return fmt.Sprintf("⚠️ **Ticket Requires Attention**\n\nTicket #%d (%q) has been open for over 24 hours without staff response. Please review and claim this ticket.",
		t.ID, t.Subject)
}
