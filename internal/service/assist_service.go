package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/faqsearch"
	"github.com/spec-kit/weaver-helpdesk/internal/notify"
	"github.com/spec-kit/weaver-helpdesk/internal/observability"
	"github.com/spec-kit/weaver-helpdesk/internal/repository"
	"github.com/spec-kit/weaver-helpdesk/internal/responder"
)

const (
	assistFAQLimit     = 3
	assistHistoryLimit = 5
	assistAuthorID     = "weaver"
)

// FAQFinder ranks knowledge-base entries for a ticket.
type FAQFinder interface {
	FindRelevant(ctx context.Context, subject string, category domain.Category, limit int) []faqsearch.Scored
}

// AssistDependencies wires the assist service.
type AssistDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	FAQs        FAQFinder
	Responder   responder.Responder
	Sink        notify.Sink
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Clock       func() time.Time
}

// AssistService posts the assistant's first reply into new ticket threads.
type AssistService struct {
	tickets   repository.TicketRepository
	messages  repository.TicketMessageRepository
	faqs      FAQFinder
	responder responder.Responder
	sink      notify.Sink
	metrics   *observability.Metrics
	logger    *zap.Logger
	clock     func() time.Time

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewAssistService builds the service.
func NewAssistService(deps AssistDependencies) *AssistService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	resp := deps.Responder
	if resp == nil {
		resp = responder.Fallback{}
	}
	return &AssistService{
		tickets:   deps.TicketRepo,
		messages:  deps.MessageRepo,
		faqs:      deps.FAQs,
		responder: resp,
		sink:      deps.Sink,
		metrics:   deps.Metrics,
		logger:    logger,
		clock:     clock,
	}
}

// Start runs Respond in the background. Replies started here are awaited by
// Wait. Once Wait has been called, Start replies inline.
func (a *AssistService) Start(ctx context.Context, ticket domain.Ticket) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		a.Respond(ctx, ticket)
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		a.Respond(ctx, ticket)
	}()
}

// Wait blocks until in-flight replies finish or ctx ends.
func (a *AssistService) Wait(ctx context.Context) error {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Respond gathers FAQ and history context, asks the responder for a reply and
// posts it in the ticket thread. Failures are logged; the ticket is unaffected.
func (a *AssistService) Respond(ctx context.Context, ticket domain.Ticket) {
	logger := a.logger.With(zap.Int64("ticket_id", ticket.ID))

	var faqs []domain.FAQ
	if a.faqs != nil {
		for _, scored := range a.faqs.FindRelevant(ctx, ticket.Subject, ticket.Category, assistFAQLimit) {
			faqs = append(faqs, scored.FAQ)
		}
	}

	history, err := a.tickets.ListUserHistory(ctx, ticket.UserID, ticket.GuildID, ticket.ID, assistHistoryLimit)
	if err != nil {
		logger.Warn("ticket history lookup failed", zap.Error(err))
		history = nil
	}

	logger.Debug("assist context gathered", zap.Int("faqs", len(faqs)), zap.Int("history", len(history)))

	text := a.responder.InitialResponse(ctx, responder.InitialRequest{
		Ticket:  ticket,
		FAQs:    faqs,
		History: history,
	})

	if a.sink == nil {
		return
	}
	if err := a.sink.SendThread(ctx, ticket.ChannelID, assistMessage(text, faqs, a.clock())); err != nil {
		a.metrics.Inc(observability.CounterNotificationsFailed, "assist_reply")
		if errors.Is(err, notify.ErrChannelNotFound) {
			logger.Info("ticket thread gone before assist reply")
			return
		}
		logger.Error("failed to post assist reply", zap.Error(err))
		return
	}

	if err := a.tickets.MarkAIResponded(ctx, ticket.ID); err != nil {
		logger.Warn("failed to mark ai_responded", zap.Error(err))
	}
	if a.messages != nil {
		msg := &domain.TicketMessage{
			TicketID: ticket.ID,
			AuthorID: assistAuthorID,
			Content:  text,
			IsAI:     true,
		}
		if err := a.messages.Create(ctx, msg); err != nil {
			logger.Warn("failed to store assist reply", zap.Error(err))
		}
	}
	a.metrics.Inc(observability.CounterAssistReplies, string(ticket.Category))
	logger.Info("assist reply posted")
}
