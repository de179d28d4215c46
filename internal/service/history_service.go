package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/events"
	"github.com/spec-kit/weaver-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/weaver-helpdesk/pkg/util/errorutil"
)

// HistoryDependencies wires the history service.
type HistoryDependencies struct {
	Dispatcher  events.Dispatcher
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	MessageRepo repository.TicketMessageRepository
	Logger      *zap.Logger
}

// HistoryService keeps the audit trail of ticket transitions.
type HistoryService struct {
	dispatcher events.Dispatcher
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	messages   repository.TicketMessageRepository
	logger     *zap.Logger
}

// TicketTimeline is a ticket with its transitions and stored thread messages.
type TicketTimeline struct {
	Ticket   domain.Ticket
	History  []domain.TicketHistory
	Messages []domain.TicketMessage
}

// NewHistoryService creates the service.
func NewHistoryService(deps HistoryDependencies) *HistoryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{
		dispatcher: deps.Dispatcher,
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		messages:   deps.MessageRepo,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to transition events.
func (h *HistoryService) RegisterHandlers() {
	if h.dispatcher == nil || h.history == nil {
		return
	}
	for _, et := range events.TransitionTypes {
		h.dispatcher.Subscribe(et, h.record)
	}
}

func (h *HistoryService) record(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TransitionPayload)
	if !ok {
		return fmt.Errorf("history: unexpected payload %T for %s", event.Payload, event.Type)
	}
	entry := domain.TicketHistory{
		TicketID:  event.TicketID,
		Action:    string(event.Type),
		ActorType: event.Actor.Type,
		ToStatus:  payload.Ticket.Status,
		Details:   historyDetails(event.Type, payload),
		CreatedAt: event.Timestamp.UTC(),
	}
	if event.Actor.ID != "" {
		id := event.Actor.ID
		entry.ActorID = &id
	}
	if payload.From != "" {
		from := payload.From
		entry.FromStatus = &from
	}
	if err := h.history.Create(ctx, &entry); err != nil {
		h.logger.Warn("failed to record ticket history",
			zap.Int64("ticket_id", event.TicketID),
			zap.String("action", entry.Action),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func historyDetails(eventType events.EventType, payload events.TransitionPayload) map[string]any {
	details := map[string]any{}
	if payload.Ticket.AssignedTo != nil {
		details["assigned_to"] = *payload.Ticket.AssignedTo
	}
	for _, notice := range payload.Notices {
		if notice.Reason != "" {
			details["reason"] = notice.Reason
			break
		}
	}
	if payload.Feedback != nil {
		details["rating"] = payload.Feedback.Rating
	}
	if eventType == events.EventTicketEscalated && payload.Ticket.EscalatedAt != nil {
		details["waited"] = payload.Ticket.EscalatedAt.Sub(payload.Ticket.CreatedAt).String()
	}
	return details
}

// Timeline returns a ticket's transitions and stored thread messages.
func (h *HistoryService) Timeline(ctx context.Context, ticketID int64) (*TicketTimeline, error) {
	ticket, err := h.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	history, err := h.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	messages, err := h.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketTimeline{Ticket: *ticket, History: history, Messages: messages}, nil
}
