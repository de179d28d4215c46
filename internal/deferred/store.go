// Package deferred runs persisted "do this at time T" jobs, so timers armed
// before a restart still fire afterwards.
package deferred

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

// Store persists deferred jobs.
type Store interface {
	Schedule(ctx context.Context, job domain.DeferredJob) error
	// Due returns up to limit jobs whose due time is at or before now, earliest first.
	Due(ctx context.Context, now time.Time, limit int) ([]domain.DeferredJob, error)
	Complete(ctx context.Context, id string) error
}

// MemoryStore keeps jobs in process memory. Jobs are lost on restart.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]domain.DeferredJob
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]domain.DeferredJob)}
}

// Schedule implements Store. Scheduling an existing id replaces it.
func (s *MemoryStore) Schedule(_ context.Context, job domain.DeferredJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

// Due implements Store.
func (s *MemoryStore) Due(_ context.Context, now time.Time, limit int) ([]domain.DeferredJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []domain.DeferredJob
	for _, job := range s.jobs {
		if !job.DueAt.After(now) {
			due = append(due, job)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].DueAt.Before(due[j].DueAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// Complete implements Store.
func (s *MemoryStore) Complete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

// Len reports the number of pending jobs.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
