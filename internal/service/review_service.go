package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/export"
	"github.com/spec-kit/weaver-helpdesk/internal/observability"
	"github.com/spec-kit/weaver-helpdesk/internal/repository"
	"github.com/spec-kit/weaver-helpdesk/internal/review"
	apperrors "github.com/spec-kit/weaver-helpdesk/pkg/util/errorutil"
)

// ReviewDependencies wires the review service.
type ReviewDependencies struct {
	TicketRepo   repository.TicketRepository
	FeedbackRepo repository.FeedbackRepository
	TrackedRepo  repository.TrackedTicketRepository
	Exporter     export.Exporter
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        func() time.Time
}

// ReviewService runs the secondary review queue over flagged tickets.
type ReviewService struct {
	tickets  repository.TicketRepository
	feedback repository.FeedbackRepository
	tracked  repository.TrackedTicketRepository
	exporter export.Exporter
	metrics  *observability.Metrics
	logger   *zap.Logger
	clock    func() time.Time
}

// TrackInput flags a ticket for review.
type TrackInput struct {
	TicketID int64
	StaffID  string
	Priority string
	Notes    string
}

// ReviewUpdateInput changes a tracked ticket. Empty fields are left as is.
type ReviewUpdateInput struct {
	Status     string
	Priority   string
	Note       string
	ReviewerID string
}

// ReviewListInput filters and orders the queue.
type ReviewListInput struct {
	Status   string
	Priority string
	Sort     string
}

// TrackedDetail is a tracked ticket with its ticket and feedback.
type TrackedDetail struct {
	Tracked  domain.TrackedTicket
	Ticket   domain.Ticket
	Feedback *domain.Feedback
}

// ExportOutcome reports an export. When no exporter is configured Exported
// is false and Data holds the row for manual entry.
type ExportOutcome struct {
	Exported bool
	Result   export.Result
	Data     export.Data
}

// NewReviewService builds the service.
func NewReviewService(deps ReviewDependencies) *ReviewService {
	exporter := deps.Exporter
	if exporter == nil {
		exporter = export.Disabled{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ReviewService{
		tickets:  deps.TicketRepo,
		feedback: deps.FeedbackRepo,
		tracked:  deps.TrackedRepo,
		exporter: exporter,
		metrics:  deps.Metrics,
		logger:   logger,
		clock:    clock,
	}
}

// Track flags a ticket. The feedback rating at tracking time is copied onto
// the record, 0 when there is none.
func (s *ReviewService) Track(ctx context.Context, input TrackInput) (*domain.TrackedTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, input.TicketID)
	if err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": input.TicketID})
	}
	if _, err := s.tracked.GetByTicket(ctx, ticket.ID); err == nil {
		return nil, alreadyTracked(ticket.ID)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	priority := domain.ReviewPriorityNormal
	if strings.TrimSpace(input.Priority) != "" {
		if priority, err = parsePriority(input.Priority); err != nil {
			return nil, err
		}
	}

	rating := 0
	fb, err := s.feedback.GetByTicket(ctx, ticket.ID)
	switch {
	case err == nil:
		rating = fb.Rating
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.MapError(err)
	}

	now := s.clock().UTC()
	tracked := &domain.TrackedTicket{
		TicketID:  ticket.ID,
		Rating:    rating,
		Priority:  priority,
		Status:    domain.ReviewStatusPending,
		Notes:     strings.TrimSpace(input.Notes),
		TrackedBy: input.StaffID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tracked.Track(ctx, tracked); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, alreadyTracked(ticket.ID)
		}
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticket.ID})
	}
	s.logger.Info("ticket tracked",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("priority", string(priority)),
		zap.String("tracked_by", input.StaffID),
	)
	return tracked, nil
}

func alreadyTracked(ticketID int64) error {
	return apperrors.NewConflict("ticket is already being tracked", map[string]any{"ticket_id": ticketID})
}

// List returns up to review.ListLimit tracked tickets in the requested order.
func (s *ReviewService) List(ctx context.Context, input ReviewListInput) ([]domain.TrackedTicket, error) {
	var filter repository.TrackedFilter
	if raw := strings.TrimSpace(input.Status); raw != "" && raw != "all" {
		st, err := parseReviewStatus(raw)
		if err != nil {
			return nil, err
		}
		filter.Status = &st
	}
	if raw := strings.TrimSpace(input.Priority); raw != "" && raw != "all" {
		p, err := parsePriority(raw)
		if err != nil {
			return nil, err
		}
		filter.Priority = &p
	}
	items, err := s.tracked.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	review.Sort(items, review.ParseSortMode(input.Sort))
	if len(items) > review.ListLimit {
		items = items[:review.ListLimit]
	}
	return items, nil
}

// Get returns a tracked ticket with its context.
func (s *ReviewService) Get(ctx context.Context, ticketID int64) (*TrackedDetail, error) {
	tracked, err := s.tracked.GetByTicket(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "tracked ticket", map[string]any{"ticket_id": ticketID})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	detail := &TrackedDetail{Tracked: *tracked, Ticket: *ticket}
	if fb, err := s.feedback.GetByTicket(ctx, ticketID); err == nil {
		detail.Feedback = fb
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	return detail, nil
}

// Update changes status or priority and appends a timestamped note.
func (s *ReviewService) Update(ctx context.Context, ticketID int64, input ReviewUpdateInput) (*domain.TrackedTicket, error) {
	tracked, err := s.tracked.GetByTicket(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "tracked ticket", map[string]any{"ticket_id": ticketID})
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		if tracked.Status, err = parseReviewStatus(raw); err != nil {
			return nil, err
		}
	}
	if raw := strings.TrimSpace(input.Priority); raw != "" {
		if tracked.Priority, err = parsePriority(raw); err != nil {
			return nil, err
		}
	}
	now := s.clock().UTC()
	tracked.Notes = review.AppendNote(tracked.Notes, input.Note, now)
	if input.ReviewerID != "" {
		reviewer := input.ReviewerID
		tracked.ReviewedBy = &reviewer
	}
	tracked.UpdatedAt = now

	if err := s.tracked.Update(ctx, tracked); err != nil {
		return nil, notFound(err, "tracked ticket", map[string]any{"ticket_id": ticketID})
	}
	s.logger.Info("tracked ticket updated",
		zap.Int64("ticket_id", ticketID),
		zap.String("status", string(tracked.Status)),
	)
	return tracked, nil
}

// Untrack deletes the review record and clears the ticket's tracked fields.
func (s *ReviewService) Untrack(ctx context.Context, ticketID int64) error {
	if err := s.tracked.Untrack(ctx, ticketID); err != nil {
		return notFound(err, "tracked ticket", map[string]any{"ticket_id": ticketID})
	}
	s.logger.Info("ticket untracked", zap.Int64("ticket_id", ticketID))
	return nil
}

// Stats summarises the whole queue.
func (s *ReviewService) Stats(ctx context.Context) (review.Stats, error) {
	items, err := s.tracked.List(ctx, repository.TrackedFilter{})
	if err != nil {
		return review.Stats{}, apperrors.MapError(err)
	}
	return review.ComputeStats(items, s.clock()), nil
}

// ExportReady returns tracker rows for tickets waiting to be exported.
func (s *ReviewService) ExportReady(ctx context.Context) ([]export.Data, error) {
	items, err := s.tracked.ListExportReady(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	now := s.clock()
	out := make([]export.Data, 0, len(items))
	for _, tracked := range items {
		ticket, err := s.tickets.GetByID(ctx, tracked.TicketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, apperrors.MapError(err)
		}
		out = append(out, export.BuildData(*ticket, tracked, s.feedbackFor(ctx, tracked.TicketID), now))
	}
	return out, nil
}

// Export writes the tracked ticket to the document store and marks it
// exported. Without a configured exporter the row is returned for manual
// entry and nothing is changed.
func (s *ReviewService) Export(ctx context.Context, ticketID int64, staffID string) (*ExportOutcome, error) {
	detail, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	data := export.BuildData(detail.Ticket, detail.Tracked, detail.Feedback, s.clock())
	if !s.exporter.Available() {
		return &ExportOutcome{Data: data}, nil
	}

	result, err := s.exporter.ExportTicket(ctx, data)
	if err != nil {
		s.logger.Error("export failed", zap.Int64("ticket_id", ticketID), zap.Error(err))
		if errors.Is(err, export.ErrUnavailable) {
			return &ExportOutcome{Data: data}, nil
		}
		return nil, apperrors.NewServiceUnavailable("Failed to export ticket to the document store")
	}
	if err := s.tracked.MarkExported(ctx, ticketID, result.PageID, s.clock().UTC()); err != nil {
		return nil, notFound(err, "tracked ticket", map[string]any{"ticket_id": ticketID})
	}
	s.metrics.Inc(observability.CounterExports)
	s.logger.Info("ticket exported",
		zap.Int64("ticket_id", ticketID),
		zap.String("page_id", result.PageID),
		zap.String("exported_by", staffID),
	)
	return &ExportOutcome{Exported: true, Result: result, Data: data}, nil
}

func (s *ReviewService) feedbackFor(ctx context.Context, ticketID int64) *domain.Feedback {
	fb, err := s.feedback.GetByTicket(ctx, ticketID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("feedback lookup failed", zap.Int64("ticket_id", ticketID), zap.Error(err))
		}
		return nil
	}
	return fb
}

func parsePriority(raw string) (domain.ReviewPriority, error) {
	p := domain.ReviewPriority(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", apperrors.NewValidationError("unknown priority", map[string]any{"priority": raw})
	}
	return p, nil
}

func parseReviewStatus(raw string) (domain.ReviewStatus, error) {
	st := domain.ReviewStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !st.Valid() {
		return "", apperrors.NewValidationError("unknown review status", map[string]any{"status": raw})
	}
	return st, nil
}
