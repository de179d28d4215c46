// Package escalation flags open tickets that nobody has claimed in time and
// alerts staff about them.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/events"
	"github.com/spec-kit/weaver-helpdesk/internal/lifecycle"
	"github.com/spec-kit/weaver-helpdesk/internal/notify"
	"github.com/spec-kit/weaver-helpdesk/internal/observability"
	"github.com/spec-kit/weaver-helpdesk/internal/responder"
)

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("escalation: scheduler already started")

// TicketStore is the persistence the sweep needs. ListStale pages by ticket
// id; a page shorter than limit is the last one.
type TicketStore interface {
	ListStale(ctx context.Context, cutoff time.Time, afterID int64, limit int) ([]domain.Ticket, error)
	MarkEscalated(ctx context.Context, id int64, at time.Time) (bool, error)
}

// Options configures a Scheduler.
type Options struct {
	Schedule      string
	Warmup        time.Duration
	Threshold     time.Duration
	SupportRoleID string
	// BatchSize is the page size used while walking every stale ticket.
	BatchSize int
	Clock     func() time.Time
	// Events receives a ticket_escalated event per stamped ticket.
	Events events.Publisher
}

// SweepResult summarises one sweep.
type SweepResult struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Found     int           `json:"found"`
	Escalated int           `json:"escalated"`
	Failed    int           `json:"failed"`
	Skipped   bool          `json:"skipped"`
}

// Scheduler runs the stale-ticket sweep on a cron schedule. At most one
// sweep runs at a time; overlapping triggers are skipped.
type Scheduler struct {
	store     TicketStore
	responder responder.Responder
	sink      notify.Sink
	metrics   *observability.Metrics
	logger    *zap.Logger
	opts      Options

	running atomic.Bool

	mu      sync.Mutex
	cron    *cron.Cron
	warmup  *time.Timer
	cancel  context.CancelFunc
	last    SweepResult
	hasLast bool
}

// NewScheduler builds a scheduler.
func NewScheduler(store TicketStore, resp responder.Responder, sink notify.Sink, metrics *observability.Metrics, logger *zap.Logger, opts Options) *Scheduler {
	if opts.Schedule == "" {
		opts.Schedule = "0 * * * *"
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 24 * time.Hour
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		store:     store,
		responder: resp,
		sink:      sink,
		metrics:   metrics,
		logger:    logger.Named("escalation"),
		opts:      opts,
	}
}

// Start registers the cron entry and arms the warm-up sweep.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(s.opts.Schedule, func() { s.trigger(runCtx, "schedule") }); err != nil {
		cancel()
		return fmt.Errorf("escalation: invalid schedule %q: %w", s.opts.Schedule, err)
	}
	c.Start()

	s.cron = c
	s.cancel = cancel
	if s.opts.Warmup > 0 {
		s.warmup = time.AfterFunc(s.opts.Warmup, func() { s.trigger(runCtx, "warmup") })
	}
	s.logger.Info("escalation scheduler started",
		zap.String("schedule", s.opts.Schedule),
		zap.Duration("warmup", s.opts.Warmup),
		zap.Duration("threshold", s.opts.Threshold),
	)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, warmup, cancel := s.cron, s.warmup, s.cancel
	s.cron, s.warmup, s.cancel = nil, nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	if warmup != nil {
		warmup.Stop()
	}
	cancel()
	<-c.Stop().Done()
	s.logger.Info("escalation scheduler stopped")
}

// RunNow triggers a sweep immediately, for operators.
func (s *Scheduler) RunNow(ctx context.Context) (SweepResult, error) {
	s.logger.Info("manual escalation sweep requested")
	return s.Sweep(ctx)
}

// LastResult returns the most recent completed sweep.
func (s *Scheduler) LastResult() (SweepResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

func (s *Scheduler) trigger(ctx context.Context, source string) {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("escalation sweep failed", zap.String("trigger", source), zap.Error(err))
	}
}

// Sweep escalates every eligible ticket once. A failure on one ticket is
// logged and counted; the sweep moves on to the next.
func (s *Scheduler) Sweep(ctx context.Context) (result SweepResult, err error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("escalation sweep already running; skipping")
		s.metrics.Inc(observability.CounterSweepsSkipped)
		return SweepResult{Skipped: true}, nil
	}
	defer s.running.Store(false)

	now := s.opts.Clock()
	result.StartedAt = now
	defer func() {
		result.Duration = s.opts.Clock().Sub(now)
		s.mu.Lock()
		s.last, s.hasLast = result, true
		s.mu.Unlock()
	}()

	cutoff := now.Add(-s.opts.Threshold)
	var afterID int64
	for {
		page, err := s.store.ListStale(ctx, cutoff, afterID, s.opts.BatchSize)
		if err != nil {
			return result, fmt.Errorf("list stale tickets: %w", err)
		}
		result.Found += len(page)

		for _, t := range page {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if t.ID > afterID {
				afterID = t.ID
			}
			ok, escErr := s.escalate(ctx, t, now)
			switch {
			case escErr != nil:
				result.Failed++
				s.metrics.Inc(observability.CounterEscalationFailures)
				s.logger.Error("ticket escalation failed", zap.Int64("ticket_id", t.ID), zap.Error(escErr))
			case ok:
				result.Escalated++
				s.metrics.Inc(observability.CounterEscalations)
			}
		}
		if len(page) < s.opts.BatchSize {
			break
		}
	}

	if result.Found == 0 {
		s.logger.Info("no stale tickets found")
	} else {
		s.logger.Info("escalation sweep finished",
			zap.Int("found", result.Found),
			zap.Int("escalated", result.Escalated),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

// escalate alerts staff first and stamps the ticket afterwards. If the
// thread post fails the ticket stays unstamped and is retried next sweep.
func (s *Scheduler) escalate(ctx context.Context, t domain.Ticket, now time.Time) (bool, error) {
	if _, eligible := lifecycle.Escalate(t, s.opts.Threshold, now); !eligible {
		return false, nil
	}

	waited := now.Sub(t.CreatedAt)
	wait := responder.FormatWait(waited)
	text := s.responder.EscalationNotice(ctx, t, waited)

	if err := s.sink.SendThread(ctx, t.ChannelID, threadAlert(t, text, wait, s.opts.SupportRoleID, now)); err != nil {
		if errors.Is(err, notify.ErrChannelNotFound) {
			s.logger.Warn("ticket thread not found; escalation left pending", zap.Int64("ticket_id", t.ID))
		}
		return false, fmt.Errorf("notify thread: %w", err)
	}
	if err := s.sink.SendLog(ctx, logAlert(t, wait, now)); err != nil {
		s.logger.Warn("escalation log message failed", zap.Int64("ticket_id", t.ID), zap.Error(err))
	}

	stamped, err := s.store.MarkEscalated(ctx, t.ID, now)
	if err != nil {
		return false, fmt.Errorf("mark escalated: %w", err)
	}
	if !stamped {
		s.logger.Info("ticket changed during escalation; not stamped", zap.Int64("ticket_id", t.ID))
		return false, nil
	}
	s.logger.Info("ticket escalated", zap.Int64("ticket_id", t.ID), zap.String("waiting", wait))
	s.publish(ctx, t, now)
	return true, nil
}

func (s *Scheduler) publish(ctx context.Context, t domain.Ticket, now time.Time) {
	if s.opts.Events == nil {
		return
	}
	at := now
	t.EscalatedAt = &at
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketEscalated,
		TicketID:  t.ID,
		Actor:     events.Actor{Type: domain.SubjectTypeSystem},
		Timestamp: now,
		Payload:   events.TransitionPayload{Ticket: t, From: t.Status},
	}
	if err := s.opts.Events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish escalation event", zap.Int64("ticket_id", t.ID), zap.Error(err))
	}
}

func threadAlert(t domain.Ticket, text, wait, roleID string, now time.Time) notify.Message {
	content := "🚨 **Escalation Alert**"
	if roleID != "" {
		content = fmt.Sprintf("<@&%s> %s", roleID, content)
	}
	return notify.Message{
		Content: content,
		Embeds: []notify.Embed{{
			Title:       "⚠️ Ticket Escalation - Needs Attention",
			Description: text,
			Color:       notify.ColorDanger,
			Fields: []notify.Field{
				{Name: "🎫 Ticket ID", Value: fmt.Sprintf("#%d", t.ID), Inline: true},
				{Name: "📁 Category", Value: string(t.Category), Inline: true},
				{Name: "⏱️ Waiting", Value: wait, Inline: true},
				{Name: "👤 User", Value: fmt.Sprintf("<@%s>", t.UserID), Inline: true},
			},
			Footer:    "This ticket requires staff attention",
			Timestamp: now,
		}},
	}
}

func logAlert(t domain.Ticket, wait string, now time.Time) notify.Message {
	subject := []rune(t.Subject)
	if len(subject) > 1024 {
		subject = subject[:1024]
	}
	return notify.Message{Embeds: []notify.Embed{{
		Title:       "📋 Ticket Escalated",
		Description: fmt.Sprintf("Ticket #%d has been waiting over 24 hours without staff response.", t.ID),
		Color:       notify.ColorDanger,
		Fields: []notify.Field{
			{Name: "Subject", Value: string(subject)},
			{Name: "Category", Value: string(t.Category), Inline: true},
			{Name: "Wait Time", Value: wait, Inline: true},
			{Name: "Thread", Value: fmt.Sprintf("<#%s>", t.ChannelID), Inline: true},
		},
		Timestamp: now,
	}}}
}
