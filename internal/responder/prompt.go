package responder

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

const maxHistoryInPrompt = 3

const initialSystemPrompt = `You are Weaver, the support assistant for a developer community on Discord. A requester has just opened a support ticket and you write the first reply while they wait for a human.

Do:
- thank them and say a staff member will claim the ticket soon
- use the FAQ entries provided only when they answer the question directly
- ask for useful context such as screenshots, error messages, API responses or application IDs
- link one to three relevant pages from the Help Center or the Developer Documentation
- keep it to two to four short paragraphs of Discord markdown

Do not:
- ask for passwords, payment details or other secrets
- invent facts or promise response times
- try to resolve the ticket yourself

Questions about Nitro, server boosting, vanity URLs, account verification, moderation, server setup or other consumer matters belong to the general customer support form; point the requester there.`

const escalationSystemPrompt = `You write short escalation notices for support staff about tickets nobody has picked up. Two or three professional sentences.`

func buildInitialPrompt(req InitialRequest) string {
	t := req.Ticket
	docs := DocsFor(t.Category)

	var b strings.Builder
	b.WriteString("A new support ticket was opened. Write the first reply.\n\n")
	b.WriteString("**Ticket**\n")
	fmt.Fprintf(&b, "- Subject: %s\n- Category: %s\n- User ID: %s\n\n", t.Subject, t.Category, t.UserID)

	b.WriteString("**Documentation for this category**\n")
	fmt.Fprintf(&b, "- Help Center: %s\n- API Documentation: %s\n", docs.HelpCenter, docs.APIDocs)
	for _, l := range docs.Extra {
		fmt.Fprintf(&b, "- %s: %s\n", l.Name, l.URL)
	}

	if len(req.History) > 0 {
		b.WriteString("\n**Requester's earlier tickets**\n")
		for i, h := range req.History {
			if i == maxHistoryInPrompt {
				break
			}
			fmt.Fprintf(&b, "%d. [%s] %s - Status: %s\n", i+1, h.Category, h.Subject, h.Status)
		}
	}

	if len(req.FAQs) > 0 {
		b.WriteString("\n**Possibly relevant FAQs**\n")
		for i, f := range req.FAQs {
			fmt.Fprintf(&b, "%d. Q: %s\n   A: %s\n", i+1, f.Question, f.Answer)
		}
		b.WriteString("\nUse an FAQ only if it answers the question; otherwise leave it out.\n")
	} else {
		b.WriteString("\nNo relevant FAQs were found.\n")
	}

	b.WriteString("\nInclude one or two documentation links in the reply.")
	return b.String()
}

func buildEscalationPrompt(t domain.Ticket, waited time.Duration) string {
	return fmt.Sprintf(`Write an escalation notice for a ticket waiting %s without a staff response.
- Ticket ID: #%d
- Subject: %s
- Category: %s
- Created: %s
- User: <@%s>`, FormatWait(waited), t.ID, t.Subject, t.Category, t.CreatedAt.UTC().Format(time.RFC1123), t.UserID)
}

