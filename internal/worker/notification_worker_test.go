package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/events"
)

func TestEventQueueDeliversAndDrains(t *testing.T) {
	d := events.NewInMemoryDispatcher(nil)
	q := NewEventQueue(d, 8, 2, nil)

	var mu sync.Mutex
	seen := map[int64]bool{}
	q.Subscribe(events.EventTicketClaimed, func(_ context.Context, e events.Event) error {
		mu.Lock()
		seen[e.TicketID] = true
		mu.Unlock()
		return nil
	})

	for i := int64(1); i <= 5; i++ {
		if err := q.Publish(context.Background(), events.Event{Type: events.EventTicketClaimed, TicketID: i}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 5 {
		t.Fatalf("expected 5 delivered events, got %d", len(seen))
	}
}

func TestEventQueuePublishAfterStopIsInline(t *testing.T) {
	d := events.NewInMemoryDispatcher(nil)
	q := NewEventQueue(d, 1, 1, nil)
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	delivered := false
	q.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
		delivered = true
		return nil
	})
	if err := q.Publish(context.Background(), events.Event{Type: events.EventTicketCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !delivered {
		t.Fatal("expected inline delivery after stop")
	}
}

type countingSubscriber struct{ calls int }

func (c *countingSubscriber) RegisterHandlers() { c.calls++ }

func TestStartSubscribersRegistersEach(t *testing.T) {
	a, b := &countingSubscriber{}, &countingSubscriber{}
	StartSubscribers(a, nil, b)
	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("expected one registration each, got %d and %d", a.calls, b.calls)
	}
}

func TestEventQueueKeepsPerTicketOrder(t *testing.T) {
	d := events.NewInMemoryDispatcher(nil)
	q := NewEventQueue(d, 4, 4, nil)

	var mu sync.Mutex
	got := map[int64][]events.EventType{}
	record := func(_ context.Context, e events.Event) error {
		if e.Type == events.EventTicketCreated {
			time.Sleep(5 * time.Millisecond)
		}
		mu.Lock()
		got[e.TicketID] = append(got[e.TicketID], e.Type)
		mu.Unlock()
		return nil
	}
	sequence := []events.EventType{events.EventTicketCreated, events.EventTicketClaimed, events.EventTicketClosing, events.EventTicketClosed}
	for _, et := range sequence {
		q.Subscribe(et, record)
	}

	for _, et := range sequence {
		for id := int64(1); id <= 6; id++ {
			if err := q.Publish(context.Background(), events.Event{Type: et, TicketID: id}); err != nil {
				t.Fatalf("Publish: %v", err)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for id := int64(1); id <= 6; id++ {
		order := got[id]
		if len(order) != len(sequence) {
			t.Fatalf("ticket %d: expected %d events, got %v", id, len(sequence), order)
		}
		for i := range sequence {
			if order[i] != sequence[i] {
				t.Fatalf("ticket %d delivered out of order: %v", id, order)
			}
		}
	}
}
