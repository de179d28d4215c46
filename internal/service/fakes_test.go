package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/export"
	"github.com/spec-kit/weaver-helpdesk/internal/notify"
	"github.com/spec-kit/weaver-helpdesk/internal/repository"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type memTickets struct {
	mu        sync.Mutex
	nextID    int64
	rows      map[int64]domain.Ticket
	aiMarked  map[int64]bool
	createErr error
}

func newMemTickets() *memTickets {
	return &memTickets{rows: map[int64]domain.Ticket{}, aiMarked: map[int64]bool{}}
}

func (m *memTickets) put(t domain.Ticket) domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		m.nextID++
		t.ID = m.nextID
	} else if t.ID > m.nextID {
		m.nextID = t.ID
	}
	m.rows[t.ID] = t.Clone()
	return t
}

func (m *memTickets) get(id int64) domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Clone()
}

func (m *memTickets) Create(_ context.Context, t *domain.Ticket) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	for _, row := range m.rows {
		if row.UserID == t.UserID && row.GuildID == t.GuildID && row.Status.IsActive() {
			m.mu.Unlock()
			return repository.ErrDuplicate
		}
	}
	m.mu.Unlock()
	*t = m.put(*t)
	return nil
}

func (m *memTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := t.Clone()
	return &c, nil
}

func (m *memTickets) FindActiveByUser(_ context.Context, userID, guildID string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.UserID == userID && t.GuildID == guildID && t.Status.IsActive() {
			c := t.Clone()
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memTickets) TransitionStatus(_ context.Context, t *domain.Ticket, from []domain.TicketStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(t, from)
}

func (m *memTickets) transitionLocked(t *domain.Ticket, from []domain.TicketStatus) error {
	cur, ok := m.rows[t.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	for _, st := range from {
		if cur.Status == st {
			m.rows[t.ID] = t.Clone()
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memTickets) ListWithFilter(_ context.Context, f repository.TicketFilter) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, t := range m.rows {
		if f.UserID != nil && t.UserID != *f.UserID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memTickets) ListUserHistory(_ context.Context, userID, guildID string, excludeID int64, limit int) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, t := range m.rows {
		if t.UserID == userID && t.GuildID == guildID && t.ID != excludeID {
			out = append(out, t.Clone())
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTickets) ListStale(context.Context, time.Time, int64, int) ([]domain.Ticket, error) {
	return nil, nil
}

func (m *memTickets) MarkEscalated(context.Context, int64, time.Time) (bool, error) {
	return false, nil
}

func (m *memTickets) MarkAIResponded(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.AIResponded = true
	m.rows[id] = t
	m.aiMarked[id] = true
	return nil
}

func (m *memTickets) Stats(_ context.Context, userID *string) (repository.TicketStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := repository.TicketStats{ByCategory: map[domain.Category]int{}}
	for _, t := range m.rows {
		if userID != nil && t.UserID != *userID {
			continue
		}
		stats.Total++
		switch t.Status {
		case domain.TicketStatusOpen:
			stats.Open++
		case domain.TicketStatusClosed:
			stats.Closed++
		}
		stats.ByCategory[t.Category]++
	}
	return stats, nil
}

func (m *memTickets) CountByStatus(_ context.Context, statuses ...domain.TicketStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.rows {
		if len(statuses) == 0 || containsStatus(statuses, t.Status) {
			n++
		}
	}
	return n, nil
}

func (m *memTickets) AvgResolutionSince(_ context.Context, since time.Time) (time.Duration, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total time.Duration
	n := 0
	for _, t := range m.rows {
		if t.ClosedAt != nil && t.ClosedAt.After(since) {
			total += t.ClosedAt.Sub(t.CreatedAt)
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return total / time.Duration(n), n, nil
}

func containsStatus(list []domain.TicketStatus, st domain.TicketStatus) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}

type memFeedback struct {
	tickets *memTickets
	mu      sync.Mutex
	rows    map[int64]domain.Feedback
}

func newMemFeedback(tickets *memTickets) *memFeedback {
	return &memFeedback{tickets: tickets, rows: map[int64]domain.Feedback{}}
}

func (m *memFeedback) GetByTicket(_ context.Context, ticketID int64) (*domain.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fb, ok := m.rows[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &fb, nil
}

func (m *memFeedback) CreateAndClose(_ context.Context, fb *domain.Feedback, t *domain.Ticket, from []domain.TicketStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[fb.TicketID]; ok {
		return repository.ErrDuplicate
	}
	m.tickets.mu.Lock()
	err := m.tickets.transitionLocked(t, from)
	m.tickets.mu.Unlock()
	if err != nil {
		return err
	}
	fb.ID = int64(len(m.rows) + 1)
	m.rows[fb.TicketID] = *fb
	return nil
}

type memTracked struct {
	tickets *memTickets
	mu      sync.Mutex
	rows    map[int64]domain.TrackedTicket
}

func newMemTracked(tickets *memTickets) *memTracked {
	return &memTracked{tickets: tickets, rows: map[int64]domain.TrackedTicket{}}
}

func (m *memTracked) Track(_ context.Context, tr *domain.TrackedTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[tr.TicketID]; ok {
		return repository.ErrDuplicate
	}
	m.tickets.mu.Lock()
	defer m.tickets.mu.Unlock()
	t, ok := m.tickets.rows[tr.TicketID]
	if !ok {
		return pgx.ErrNoRows
	}
	tr.ID = int64(len(m.rows) + 1)
	m.rows[tr.TicketID] = *tr
	at, by := tr.CreatedAt, tr.TrackedBy
	t.Tracked, t.TrackedAt, t.TrackedBy = true, &at, &by
	m.tickets.rows[tr.TicketID] = t
	return nil
}

func (m *memTracked) GetByTicket(_ context.Context, ticketID int64) (*domain.TrackedTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.rows[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &tr, nil
}

func (m *memTracked) List(_ context.Context, f repository.TrackedFilter) ([]domain.TrackedTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TrackedTicket
	for _, tr := range m.rows {
		if f.Status != nil && tr.Status != *f.Status {
			continue
		}
		if f.Priority != nil && tr.Priority != *f.Priority {
			continue
		}
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketID < out[j].TicketID })
	return out, nil
}

func (m *memTracked) Update(_ context.Context, tr *domain.TrackedTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[tr.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	m.rows[tr.TicketID] = *tr
	return nil
}

func (m *memTracked) Untrack(_ context.Context, ticketID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[ticketID]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.rows, ticketID)
	m.tickets.mu.Lock()
	defer m.tickets.mu.Unlock()
	t := m.tickets.rows[ticketID]
	t.Tracked, t.TrackedAt, t.TrackedBy = false, nil, nil
	m.tickets.rows[ticketID] = t
	return nil
}

func (m *memTracked) ListExportReady(ctx context.Context) ([]domain.TrackedTicket, error) {
	all, _ := m.List(ctx, repository.TrackedFilter{})
	var out []domain.TrackedTicket
	for _, tr := range all {
		if tr.Status == domain.ReviewStatusResolved || (tr.Status == domain.ReviewStatusExported && tr.NotionPageID == nil) {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (m *memTracked) MarkExported(_ context.Context, ticketID int64, pageID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.rows[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	tr.Status = domain.ReviewStatusExported
	tr.NotionPageID = &pageID
	tr.ExportedAt = &at
	m.rows[ticketID] = tr
	return nil
}

type memFAQs struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.FAQ
}

func newMemFAQs() *memFAQs { return &memFAQs{rows: map[int64]domain.FAQ{}} }

func (m *memFAQs) Create(_ context.Context, f *domain.FAQ) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	f.ID = m.nextID
	m.rows[f.ID] = *f
	return nil
}

func (m *memFAQs) Update(_ context.Context, f *domain.FAQ) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[f.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.rows[f.ID] = *f
	return nil
}

func (m *memFAQs) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.rows, id)
	return nil
}

func (m *memFAQs) GetByID(_ context.Context, id int64) (*domain.FAQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &f, nil
}

func (m *memFAQs) RecordView(_ context.Context, id int64) (*domain.FAQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	f.Views++
	m.rows[id] = f
	return &f, nil
}

func (m *memFAQs) Vote(_ context.Context, id int64, helpful bool) (*domain.FAQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if helpful {
		f.Helpful++
	} else {
		f.NotHelpful++
	}
	m.rows[id] = f
	return &f, nil
}

func (m *memFAQs) Search(_ context.Context, query string, limit int) ([]domain.FAQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(query)
	var out []domain.FAQ
	for _, f := range m.rows {
		if strings.Contains(strings.ToLower(f.Question), q) || strings.Contains(strings.ToLower(f.Answer), q) {
			out = append(out, f)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memFAQs) List(_ context.Context, c *domain.Category, limit int) ([]domain.FAQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FAQ
	for _, f := range m.rows {
		if c == nil || f.Category == *c {
			out = append(out, f)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memFAQs) ListByCategory(ctx context.Context, c domain.Category, limit int) ([]domain.FAQ, error) {
	return m.List(ctx, &c, limit)
}

func (m *memFAQs) ListCandidates(ctx context.Context, c domain.Category, _ []string, limit int) ([]domain.FAQ, error) {
	return m.List(ctx, nil, limit)
}

func (m *memFAQs) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

func (m *memFAQs) Categories(context.Context) ([]domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[domain.Category]bool{}
	var out []domain.Category
	for _, f := range m.rows {
		if !seen[f.Category] {
			seen[f.Category] = true
			out = append(out, f.Category)
		}
	}
	return out, nil
}

type memMessages struct {
	mu   sync.Mutex
	rows []domain.TicketMessage
}

func (m *memMessages) Create(_ context.Context, msg *domain.TicketMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memMessages) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TicketMessage
	for _, msg := range m.rows {
		if msg.TicketID == ticketID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type sent struct {
	target string
	msg    notify.Message
}

type recordingSink struct {
	mu        sync.Mutex
	thread    []sent
	logs      []notify.Message
	direct    []sent
	archived  []string
	directErr error
	threadErr error
}

func (r *recordingSink) SendThread(_ context.Context, channelID string, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.threadErr != nil {
		return r.threadErr
	}
	r.thread = append(r.thread, sent{channelID, msg})
	return nil
}

func (r *recordingSink) SendLog(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, msg)
	return nil
}

func (r *recordingSink) SendDirect(_ context.Context, userID string, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.directErr != nil {
		return r.directErr
	}
	r.direct = append(r.direct, sent{userID, msg})
	return nil
}

func (r *recordingSink) ArchiveThread(_ context.Context, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archived = append(r.archived, channelID)
	return nil
}

type recordingJobs struct {
	mu   sync.Mutex
	jobs []domain.DeferredJob
}

func (r *recordingJobs) Schedule(_ context.Context, kind domain.DeferredJobKind, ticketID int64, dueAt time.Time) (domain.DeferredJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job := domain.DeferredJob{ID: "job", Kind: kind, TicketID: ticketID, DueAt: dueAt}
	r.jobs = append(r.jobs, job)
	return job, nil
}

type profaneWords []string

func (p profaneWords) IsProfane(s string) bool {
	for _, w := range p {
		if strings.Contains(strings.ToLower(s), w) {
			return true
		}
	}
	return false
}

type fakeExporter struct {
	available bool
	err       error
	calls     []export.Data
}

func (f *fakeExporter) Available() bool { return f.available }

func (f *fakeExporter) ExportTicket(_ context.Context, d export.Data) (export.Result, error) {
	f.calls = append(f.calls, d)
	if f.err != nil {
		return export.Result{}, f.err
	}
	return export.Result{PageID: "page-1", PageURL: "https://notion.so/page-1"}, nil
}

type memHistory struct {
	mu   sync.Mutex
	rows []domain.TicketHistory
}

func (m *memHistory) Create(_ context.Context, h *domain.TicketHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, *h)
	return nil
}

func (m *memHistory) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range m.rows {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}
