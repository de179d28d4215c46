package deferred

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

const (
	defaultBatch       = 50
	defaultMaxAttempts = 5
)

// Handler executes one job. Returning an error reschedules the job with
// backoff until the attempt limit is reached.
type Handler func(ctx context.Context, job domain.DeferredJob) error

// RunnerOptions tunes a Runner.
type RunnerOptions struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	Clock        func() time.Time
}

// Runner polls the store and dispatches due jobs to their handlers. The
// first pass runs immediately on Start, which fires anything that came due
// while the process was down.
type Runner struct {
	store    Store
	logger   *zap.Logger
	opts     RunnerOptions
	handlers map[domain.DeferredJobKind]Handler

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a runner over store.
func NewRunner(store Store, logger *zap.Logger, opts RunnerOptions) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatch
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		store:    store,
		logger:   logger,
		opts:     opts,
		handlers: make(map[domain.DeferredJobKind]Handler),
	}
}

// Handle registers the handler for a job kind. Call before Start.
func (r *Runner) Handle(kind domain.DeferredJobKind, h Handler) {
	r.handlers[kind] = h
}

// Schedule persists a new job due at dueAt.
func (r *Runner) Schedule(ctx context.Context, kind domain.DeferredJobKind, ticketID int64, dueAt time.Time) (domain.DeferredJob, error) {
	job := domain.DeferredJob{
		ID:       uuid.NewString(),
		Kind:     kind,
		TicketID: ticketID,
		DueAt:    dueAt.UTC(),
	}
	if err := r.store.Schedule(ctx, job); err != nil {
		return domain.DeferredJob{}, err
	}
	r.logger.Debug("deferred job scheduled",
		zap.String("job_id", job.ID),
		zap.String("kind", string(kind)),
		zap.Int64("ticket_id", ticketID),
		zap.Time("due_at", job.DueAt),
	)
	return job, nil
}

// Start launches the poll loop. It is a no-op when already running.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(runCtx, r.done)
	r.logger.Info("deferred job runner started", zap.Duration("poll_interval", r.opts.PollInterval))
}

// Stop cancels the loop and waits for the in-flight pass to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.logger.Info("deferred job runner stopped")
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("deferred job pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce processes every job currently due and returns how many handlers
// completed successfully.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	now := r.opts.Clock()
	jobs, err := r.store.Due(ctx, now, r.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("load due jobs: %w", err)
	}

	completed := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}
		if r.process(ctx, job, now) {
			completed++
		}
	}
	return completed, nil
}

func (r *Runner) process(ctx context.Context, job domain.DeferredJob, now time.Time) bool {
	logger := r.logger.With(
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.Int64("ticket_id", job.TicketID),
	)

	handler, ok := r.handlers[job.Kind]
	if !ok {
		logger.Warn("no handler for deferred job; dropping")
		r.complete(ctx, job, logger)
		return false
	}

	if err := r.invoke(ctx, handler, job); err != nil {
		job.Attempts++
		if job.Attempts >= r.opts.MaxAttempts {
			logger.Error("deferred job failed permanently", zap.Error(err), zap.Int("attempts", job.Attempts))
			r.complete(ctx, job, logger)
			return false
		}
		job.DueAt = now.Add(time.Duration(job.Attempts) * r.opts.PollInterval).UTC()
		logger.Warn("deferred job failed; rescheduled", zap.Error(err), zap.Time("due_at", job.DueAt))
		if err := r.store.Schedule(ctx, job); err != nil {
			logger.Error("failed to reschedule deferred job", zap.Error(err))
		}
		return false
	}

	r.complete(ctx, job, logger)
	return true
}

func (r *Runner) invoke(ctx context.Context, handler Handler, job domain.DeferredJob) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return handler(ctx, job)
}

func (r *Runner) complete(ctx context.Context, job domain.DeferredJob, logger *zap.Logger) {
	if err := r.store.Complete(ctx, job.ID); err != nil {
		logger.Error("failed to complete deferred job", zap.Error(err))
	}
}
