package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/events"
	"github.com/spec-kit/weaver-helpdesk/internal/service"
)

// Subscriber attaches its handlers to the event dispatcher.
type Subscriber interface {
	RegisterHandlers()
}

var (
	_ Subscriber = (*service.NotificationService)(nil)
	_ Subscriber = (*service.HistoryService)(nil)
)

// StartSubscribers registers every subscriber's handlers.
func StartSubscribers(subscribers ...Subscriber) {
	for _, sub := range subscribers {
		if sub == nil {
			continue
		}
		sub.RegisterHandlers()
	}
}

// EventQueue hands published events to a pool of workers so request handlers
// do not wait on chat delivery. It wraps a synchronous dispatcher, which the
// workers call. Each ticket is pinned to one worker, so events for the same
// ticket are delivered in publish order.
type EventQueue struct {
	next   events.Dispatcher
	logger *zap.Logger
	shards []chan events.Event
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewEventQueue starts workers goroutines, each draining its own queue of
// size entries.
func NewEventQueue(next events.Dispatcher, size, workers int, logger *zap.Logger) *EventQueue {
	if size <= 0 {
		size = 256
	}
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &EventQueue{
		next:   next,
		logger: logger,
		shards: make([]chan events.Event, workers),
	}
	for i := range q.shards {
		q.shards[i] = make(chan events.Event, size)
		q.wg.Add(1)
		go q.run(q.shards[i])
	}
	return q
}

func (q *EventQueue) run(queue <-chan events.Event) {
	defer q.wg.Done()
	for event := range queue {
		_ = q.next.Publish(context.Background(), event)
	}
}

func (q *EventQueue) shardFor(ticketID int64) chan events.Event {
	return q.shards[uint64(ticketID)%uint64(len(q.shards))]
}

// Publish enqueues the event on its ticket's worker, waiting for room when
// that worker is behind. After Stop, or when ctx ends first, the event is
// delivered on the caller's goroutine instead of being dropped.
func (q *EventQueue) Publish(ctx context.Context, event events.Event) error {
	q.mu.RLock()
	if !q.closed {
		if q.enqueue(ctx, q.shardFor(event.TicketID), event) {
			q.mu.RUnlock()
			return nil
		}
	}
	q.mu.RUnlock()

	q.logger.Debug("event queue unavailable, delivering inline",
		zap.String("event_type", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
	)
	return q.next.Publish(context.WithoutCancel(ctx), event)
}

func (q *EventQueue) enqueue(ctx context.Context, shard chan<- events.Event, event events.Event) bool {
	select {
	case shard <- event:
		return true
	default:
	}
	select {
	case shard <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// Subscribe registers a handler on the wrapped dispatcher.
func (q *EventQueue) Subscribe(eventType events.EventType, handler events.EventHandler) {
	q.next.Subscribe(eventType, handler)
}

// Stop closes the queues and waits for queued events to drain or ctx to end.
func (q *EventQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		for _, shard := range q.shards {
			close(shard)
		}
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
