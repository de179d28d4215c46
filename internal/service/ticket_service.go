package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/cooldown"
	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/events"
	"github.com/spec-kit/weaver-helpdesk/internal/lifecycle"
	"github.com/spec-kit/weaver-helpdesk/internal/moderation"
	"github.com/spec-kit/weaver-helpdesk/internal/observability"
	"github.com/spec-kit/weaver-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/weaver-helpdesk/pkg/util/errorutil"
)

const (
	defaultListLimit = 25
	maxListLimit     = 100
	statusWindow     = 24 * time.Hour
)

// JobScheduler persists deferred work such as the feedback auto-close.
type JobScheduler interface {
	Schedule(ctx context.Context, kind domain.DeferredJobKind, ticketID int64, dueAt time.Time) (domain.DeferredJob, error)
}

// Assistant produces the first reply in a newly created ticket. Start must
// not block the caller.
type Assistant interface {
	Start(ctx context.Context, ticket domain.Ticket)
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	feedback   repository.FeedbackRepository
	faqs       repository.FAQRepository
	machine    *lifecycle.Machine
	limiter    cooldown.Limiter
	filter     moderation.Filter
	jobs       JobScheduler
	assistant  Assistant
	dispatcher events.Publisher
	metrics    *observability.Metrics
	logger     *zap.Logger
	clock      func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	FeedbackRepo repository.FeedbackRepository
	FAQRepo      repository.FAQRepository
	Machine      *lifecycle.Machine
	Limiter      cooldown.Limiter
	Filter       moderation.Filter
	Jobs         JobScheduler
	Assistant    Assistant
	Dispatcher   events.Publisher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	UserID    string
	GuildID   string
	ChannelID string
	Subject   string
	Category  string
}

// TicketListFilter describes staff listing filters.
type TicketListFilter struct {
	UserID     *string
	GuildID    *string
	AssignedTo *string
	Statuses   []domain.TicketStatus
	Categories []domain.Category
	Limit      int
	Offset     int
}

// TicketStats summarises tickets, optionally for one requester.
type TicketStats struct {
	Total      int                     `json:"total"`
	Open       int                     `json:"open"`
	Closed     int                     `json:"closed"`
	AvgRating  string                  `json:"avg_rating"`
	ByCategory map[domain.Category]int `json:"by_category"`
}

// SystemStatus is the staff-facing health summary of the support system.
type SystemStatus struct {
	OpenTickets      int    `json:"open_tickets"`
	TotalTickets     int    `json:"total_tickets"`
	FAQCount         int    `json:"faq_count"`
	FAQCategories    int    `json:"faq_categories"`
	AvgResolution24h string `json:"avg_resolution_24h"`
	Resolved24h      int    `json:"resolved_24h"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	machine := deps.Machine
	if machine == nil {
		machine = lifecycle.NewMachine(lifecycle.DefaultRules())
	}
	filter := deps.Filter
	if filter == nil {
		filter = moderation.Allow{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		feedback:   deps.FeedbackRepo,
		faqs:       deps.FAQRepo,
		machine:    machine,
		limiter:    deps.Limiter,
		filter:     filter,
		jobs:       deps.Jobs,
		assistant:  deps.Assistant,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		clock:      clock,
	}
}

// CreateTicket opens a ticket for a requester. Input validation runs first,
// then the creation cooldown is consumed, then the one-active-ticket rule is
// checked.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	now := s.clock()
	ticket, err := s.machine.NewTicket(lifecycle.CreateRequest{
		UserID:    input.UserID,
		GuildID:   input.GuildID,
		ChannelID: input.ChannelID,
		Subject:   input.Subject,
		Category:  input.Category,
	}, now)
	if err != nil {
		return nil, lifecycleError(err)
	}
	if s.filter.IsProfane(ticket.Subject) {
		return nil, apperrors.NewValidationError(
			"Your ticket subject contains inappropriate language. Please provide a professional description of your issue.",
			map[string]any{"field": "subject"},
		)
	}

	if s.limiter != nil {
		decision, err := s.limiter.TryConsume(ctx, input.UserID, now)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !decision.Allowed {
			s.metrics.Inc(observability.CounterCooldownRejections)
			retry := decision.RetryAfterSeconds()
			return nil, apperrors.NewTooManyRequests(
				fmt.Sprintf("Please wait %ds before creating another ticket.", retry), retry)
		}
	}

	existing, err := s.tickets.FindActiveByUser(ctx, input.UserID, input.GuildID)
	switch {
	case err == nil:
		return nil, duplicateTicket(existing)
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.MapError(err)
	}

	if err := s.tickets.Create(ctx, &ticket); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			if existing, findErr := s.tickets.FindActiveByUser(ctx, input.UserID, input.GuildID); findErr == nil {
				return nil, duplicateTicket(existing)
			}
			return nil, apperrors.NewConflict("You already have an open ticket.", nil)
		}
		return nil, apperrors.MapError(err)
	}

	s.metrics.Inc(observability.CounterTicketsCreated, string(ticket.Category))
	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("user_id", ticket.UserID),
		zap.String("category", string(ticket.Category)),
	)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    userActor(ticket.UserID),
		Payload:  transitionPayload(ticket, "", lifecycle.CreatedEffects(ticket)),
	})

	if s.assistant != nil {
		snapshot := ticket.Clone()
		s.assistant.Start(context.WithoutCancel(ctx), snapshot)
	}
	return &ticket, nil
}

func duplicateTicket(existing *domain.Ticket) error {
	return apperrors.NewConflict(
		fmt.Sprintf("You already have an open ticket: <#%s>", existing.ChannelID),
		map[string]any{"ticket_id": existing.ID, "channel_id": existing.ChannelID},
	)
}

// GetTicket fetches a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// ListTickets returns tickets matching the staff filter.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		UserID:     filter.UserID,
		GuildID:    filter.GuildID,
		AssignedTo: filter.AssignedTo,
		Statuses:   filter.Statuses,
		Categories: filter.Categories,
		Limit:      limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ClaimTicket assigns an open ticket to a staff member.
func (s *TicketService) ClaimTicket(ctx context.Context, ticketID int64, staffID string) (*domain.Ticket, error) {
	return s.apply(ctx, ticketID, lifecycle.Claim{StaffID: staffID}, staffActor(staffID))
}

// CloseTicket moves a ticket to pending feedback and arms the auto-close.
func (s *TicketService) CloseTicket(ctx context.Context, ticketID int64, staffID, reason string) (*domain.Ticket, error) {
	return s.apply(ctx, ticketID, lifecycle.Close{StaffID: staffID, Reason: reason}, staffActor(staffID))
}

// SubmitFeedback records the requester's rating and closes the ticket.
func (s *TicketService) SubmitFeedback(ctx context.Context, ticketID int64, userID string, rating int, comment string) (*domain.Ticket, error) {
	if !domain.ValidRating(rating) {
		return nil, lifecycleError(lifecycle.ErrInvalidRating)
	}
	if s.feedback != nil {
		if _, err := s.feedback.GetByTicket(ctx, ticketID); err == nil {
			return nil, apperrors.NewConflict("Feedback has already been submitted for this ticket.", nil)
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
	}
	return s.apply(ctx, ticketID, lifecycle.SubmitFeedback{UserID: userID, Rating: rating, Comment: comment}, userActor(userID))
}

// AutoClose is the deferred handler that finishes tickets whose feedback
// window expired. A ticket that already left pending feedback is a no-op.
func (s *TicketService) AutoClose(ctx context.Context, job domain.DeferredJob) error {
	_, err := s.apply(ctx, job.TicketID, lifecycle.AutoClose{}, events.Actor{Type: domain.SubjectTypeSystem})
	if err == nil {
		return nil
	}
	if apperrors.IsCode(err, "CONFLICT") || apperrors.IsCode(err, "NOT_FOUND") {
		s.logger.Debug("auto-close skipped",
			zap.Int64("ticket_id", job.TicketID),
			zap.Error(err),
		)
		return nil
	}
	return err
}

func (s *TicketService) apply(ctx context.Context, ticketID int64, action lifecycle.Action, actor events.Actor) (*domain.Ticket, error) {
	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	now := s.clock()
	out, err := s.machine.Apply(*current, action, now)
	if err != nil {
		return nil, lifecycleError(err)
	}

	next := out.Ticket
	from := []domain.TicketStatus{out.From}
	var recorded *domain.Feedback
	if fb, ok := out.Feedback(); ok {
		if err := s.feedback.CreateAndClose(ctx, &fb, &next, from); err != nil {
			return nil, writeConflict(err, "Feedback has already been submitted for this ticket.")
		}
		recorded = &fb
	} else if err := s.tickets.TransitionStatus(ctx, &next, from); err != nil {
		return nil, writeConflict(err, "ticket was changed by another request, please retry")
	}

	s.metrics.Inc(observability.CounterTicketTransitions, string(out.Action))
	s.logger.Info("ticket transitioned",
		zap.Int64("ticket_id", next.ID),
		zap.String("action", string(out.Action)),
		zap.String("from", string(out.From)),
		zap.String("to", string(next.Status)),
	)

	payload := transitionPayload(next, out.From, out.Effects)
	payload.Feedback = recorded
	for _, effect := range out.Effects {
		if sched, ok := effect.(lifecycle.ScheduleAutoClose); ok {
			s.scheduleAutoClose(ctx, next.ID, sched.DueAt)
		}
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.ForAction(out.Action),
		TicketID: next.ID,
		Actor:    actor,
		Payload:  payload,
	})
	return &next, nil
}

func (s *TicketService) scheduleAutoClose(ctx context.Context, ticketID int64, dueAt time.Time) {
	if s.jobs == nil {
		s.logger.Warn("no job scheduler configured, auto-close not armed", zap.Int64("ticket_id", ticketID))
		return
	}
	job, err := s.jobs.Schedule(ctx, domain.DeferredJobAutoClose, ticketID, dueAt)
	if err != nil {
		s.logger.Error("failed to schedule auto-close",
			zap.Int64("ticket_id", ticketID),
			zap.Time("due_at", dueAt),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("auto-close scheduled",
		zap.Int64("ticket_id", ticketID),
		zap.String("job_id", job.ID),
		zap.Time("due_at", dueAt),
	)
}

// Stats returns ticket totals, optionally restricted to one requester.
func (s *TicketService) Stats(ctx context.Context, userID *string) (*TicketStats, error) {
	stats, err := s.tickets.Stats(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	out := &TicketStats{
		Total:      stats.Total,
		Open:       stats.Open,
		Closed:     stats.Closed,
		AvgRating:  "N/A",
		ByCategory: stats.ByCategory,
	}
	if out.ByCategory == nil {
		out.ByCategory = map[domain.Category]int{}
	}
	if stats.AvgRating != nil {
		out.AvgRating = fmt.Sprintf("%.2f", *stats.AvgRating)
	}
	return out, nil
}

// Status summarises the ticket and FAQ systems for staff.
func (s *TicketService) Status(ctx context.Context) (*SystemStatus, error) {
	open, err := s.tickets.CountByStatus(ctx, domain.TicketStatusOpen)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	total, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	avg, resolved, err := s.tickets.AvgResolutionSince(ctx, s.clock().Add(-statusWindow))
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	status := &SystemStatus{
		OpenTickets:      open,
		TotalTickets:     total,
		AvgResolution24h: "N/A",
		Resolved24h:      resolved,
	}
	if resolved > 0 {
		status.AvgResolution24h = FormatDuration(avg)
	}
	if s.faqs != nil {
		if status.FAQCount, err = s.faqs.Count(ctx); err != nil {
			return nil, apperrors.MapError(err)
		}
		categories, err := s.faqs.Categories(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		status.FAQCategories = len(categories)
	}
	return status, nil
}

func transitionPayload(t domain.Ticket, from domain.TicketStatus, effects []lifecycle.Effect) events.TransitionPayload {
	payload := events.TransitionPayload{Ticket: t, From: from}
	for _, effect := range effects {
		switch e := effect.(type) {
		case lifecycle.Notify:
			payload.Notices = append(payload.Notices, e)
		case lifecycle.ArchiveThread:
			payload.Archive = true
		}
	}
	return payload
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func userActor(userID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeUser, ID: userID}
}

func staffActor(staffID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeStaff, ID: staffID}
}
