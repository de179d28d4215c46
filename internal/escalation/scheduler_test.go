package escalation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/events"
	"github.com/spec-kit/weaver-helpdesk/internal/notify"
	"github.com/spec-kit/weaver-helpdesk/internal/observability"
	"github.com/spec-kit/weaver-helpdesk/internal/responder"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type memoryStore struct {
	mu      sync.Mutex
	tickets map[int64]*domain.Ticket
	block   chan struct{}
	entered chan struct{}
}

func newMemoryStore(tickets ...domain.Ticket) *memoryStore {
	s := &memoryStore{tickets: map[int64]*domain.Ticket{}}
	for i := range tickets {
		t := tickets[i]
		s.tickets[t.ID] = &t
	}
	return s
}

func (s *memoryStore) ListStale(_ context.Context, cutoff time.Time, afterID int64, limit int) ([]domain.Ticket, error) {
	if s.entered != nil {
		close(s.entered)
	}
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range s.tickets {
		if t.ID > afterID && t.Status == domain.TicketStatusOpen && t.AssignedTo == nil && t.EscalatedAt == nil && !t.CreatedAt.After(cutoff) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) MarkEscalated(_ context.Context, id int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok || t.EscalatedAt != nil {
		return false, nil
	}
	t.EscalatedAt = &at
	return true, nil
}

func (s *memoryStore) escalated(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets[id].EscalatedAt != nil
}

type recordingSink struct {
	mu      sync.Mutex
	threads map[string]int
	logs    int
	failFor map[string]error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{threads: map[string]int{}, failFor: map[string]error{}}
}

func (s *recordingSink) SendThread(_ context.Context, channelID string, _ notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[channelID]; err != nil {
		return err
	}
	s.threads[channelID]++
	return nil
}

func (s *recordingSink) SendLog(context.Context, notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs++
	return nil
}

func (s *recordingSink) SendDirect(context.Context, string, notify.Message) error { return nil }
func (s *recordingSink) ArchiveThread(context.Context, string) error             { return nil }

func staleTicket(id int64, channel string, age time.Duration) domain.Ticket {
	return domain.Ticket{
		ID:        id,
		UserID:    "user",
		ChannelID: channel,
		Subject:   "Help",
		Category:  domain.CategoryWebhooks,
		Status:    domain.TicketStatusOpen,
		CreatedAt: now.Add(-age),
	}
}

func newTestScheduler(store TicketStore, sink notify.Sink, metrics *observability.Metrics) *Scheduler {
	return NewScheduler(store, responder.Fallback{}, sink, metrics, nil, Options{
		Threshold:     24 * time.Hour,
		SupportRoleID: "role",
		Clock:         func() time.Time { return now },
	})
}

func TestSweepEscalatesOnce(t *testing.T) {
	store := newMemoryStore(
		staleTicket(1, "thread-1", 25*time.Hour),
		staleTicket(2, "thread-2", 2*time.Hour),
	)
	sink := newRecordingSink()
	metrics := observability.NewMetrics()
	s := newTestScheduler(store, sink, metrics)

	res, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Found != 1 || res.Escalated != 1 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !store.escalated(1) || store.escalated(2) {
		t.Fatal("only the stale ticket should be stamped")
	}
	if sink.threads["thread-1"] != 1 || sink.logs != 1 {
		t.Fatalf("expected one thread and one log message, got %+v / %d", sink.threads, sink.logs)
	}

	res, err = s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if res.Found != 0 || res.Escalated != 0 || sink.threads["thread-1"] != 1 {
		t.Fatalf("second sweep should be a no-op: %+v", res)
	}
	if metrics.Counter(observability.CounterEscalations) != 1 {
		t.Fatalf("escalation counter = %d", metrics.Counter(observability.CounterEscalations))
	}
	if last, ok := s.LastResult(); !ok || last.Found != 0 {
		t.Fatalf("last result not recorded: %+v", last)
	}
}

func TestSweepContinuesAfterFailure(t *testing.T) {
	store := newMemoryStore(
		staleTicket(1, "gone", 30*time.Hour),
		staleTicket(2, "thread-2", 30*time.Hour),
	)
	sink := newRecordingSink()
	sink.failFor["gone"] = notify.ErrChannelNotFound
	s := newTestScheduler(store, sink, nil)

	res, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Found != 2 || res.Escalated != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if store.escalated(1) {
		t.Fatal("ticket with missing thread must stay unstamped for retry")
	}
	if !store.escalated(2) {
		t.Fatal("healthy ticket should still be escalated")
	}
}

func TestSweepSkipsWhenAlreadyRunning(t *testing.T) {
	store := newMemoryStore(staleTicket(1, "thread-1", 30*time.Hour))
	store.block = make(chan struct{})
	store.entered = make(chan struct{})
	metrics := observability.NewMetrics()
	s := newTestScheduler(store, newRecordingSink(), metrics)

	done := make(chan SweepResult)
	go func() {
		res, _ := s.Sweep(context.Background())
		done <- res
	}()
	<-store.entered

	res, err := s.RunNow(context.Background())
	if err != nil || !res.Skipped {
		t.Fatalf("overlapping sweep should be skipped: %+v %v", res, err)
	}
	if metrics.Counter(observability.CounterSweepsSkipped) != 1 {
		t.Fatal("skip not counted")
	}

	close(store.block)
	if first := <-done; first.Escalated != 1 {
		t.Fatalf("first sweep should complete: %+v", first)
	}
	if s.running.Load() {
		t.Fatal("guard not released")
	}
}

func TestSweepListError(t *testing.T) {
	s := newTestScheduler(failingStore{}, newRecordingSink(), nil)
	if _, err := s.Sweep(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if s.running.Load() {
		t.Fatal("guard not released after error")
	}
}

type failingStore struct{}

func (failingStore) ListStale(context.Context, time.Time, int64, int) ([]domain.Ticket, error) {
	return nil, errors.New("db down")
}

func (failingStore) MarkEscalated(context.Context, int64, time.Time) (bool, error) {
	return false, nil
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(newMemoryStore(), responder.Fallback{}, newRecordingSink(), nil, nil, Options{Schedule: "not a cron"})
	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Fatal("expected schedule error")
	}
}

func TestStartRunsWarmupSweep(t *testing.T) {
	store := newMemoryStore(staleTicket(1, "thread-1", 30*time.Hour))
	s := NewScheduler(store, responder.Fallback{}, newRecordingSink(), nil, nil, Options{
		Warmup: 10 * time.Millisecond,
		Clock:  func() time.Time { return now },
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Stop)
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for !store.escalated(1) {
		select {
		case <-deadline:
			t.Fatal("warm-up sweep did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSweepWalksPastUndeliverableTickets(t *testing.T) {
	store := newMemoryStore(
		staleTicket(1, "deleted-1", 100*time.Hour),
		staleTicket(2, "deleted-2", 90*time.Hour),
		staleTicket(3, "thread-3", 25*time.Hour),
	)
	sink := newRecordingSink()
	sink.failFor["deleted-1"] = notify.ErrChannelNotFound
	sink.failFor["deleted-2"] = notify.ErrChannelNotFound
	s := NewScheduler(store, responder.Fallback{}, sink, nil, nil, Options{
		Threshold: 24 * time.Hour,
		BatchSize: 2,
		Clock:     func() time.Time { return now },
	})

	res, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Found != 3 || res.Escalated != 1 || res.Failed != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !store.escalated(3) {
		t.Fatal("ticket beyond the first page was never escalated")
	}
	if store.escalated(1) || store.escalated(2) {
		t.Fatal("undeliverable tickets must stay unstamped")
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func TestSweepPublishesEscalatedEvent(t *testing.T) {
	store := newMemoryStore(
		staleTicket(1, "thread-1", 30*time.Hour),
		staleTicket(2, "gone", 30*time.Hour),
	)
	sink := newRecordingSink()
	sink.failFor["gone"] = notify.ErrChannelNotFound
	pub := &recordingPublisher{}
	s := NewScheduler(store, responder.Fallback{}, sink, nil, nil, Options{
		Threshold: 24 * time.Hour,
		Clock:     func() time.Time { return now },
		Events:    pub,
	})

	if _, err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	e := pub.events[0]
	if e.Type != events.EventTicketEscalated || e.TicketID != 1 || e.Actor.Type != domain.SubjectTypeSystem {
		t.Fatalf("unexpected event: %+v", e)
	}
	payload, ok := e.Payload.(events.TransitionPayload)
	if !ok || payload.Ticket.EscalatedAt == nil || !payload.Ticket.EscalatedAt.Equal(now) {
		t.Fatalf("payload should carry the stamped ticket: %+v", e.Payload)
	}
}
