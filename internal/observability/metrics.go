package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Domain counter names.
const (
	CounterTicketsCreated      = "tickets_created"
	CounterTicketTransitions   = "ticket_transitions"
	CounterCooldownRejections  = "cooldown_rejections"
	CounterEscalations         = "escalations"
	CounterEscalationFailures  = "escalation_failures"
	CounterSweepsSkipped       = "escalation_sweeps_skipped"
	CounterNotificationsFailed = "notifications_failed"
	CounterAssistReplies       = "assist_replies"
	CounterExports             = "exports"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	latencyTotal map[string]time.Duration
	domain       map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
		domain:       make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Inc increments a domain counter, optionally split by label.
func (m *Metrics) Inc(name string, label ...string) {
	if m == nil {
		return
	}
	key := name
	if len(label) > 0 && label[0] != "" {
		key = name + "{" + label[0] + "}"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domain[key]++
}

// Counter returns the current value of a domain counter.
func (m *Metrics) Counter(name string, label ...string) int64 {
	if m == nil {
		return 0
	}
	key := name
	if len(label) > 0 && label[0] != "" {
		key = name + "{" + label[0] + "}"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.domain[key]
}

// RequestStat is the aggregate for one path/method/status key.
type RequestStat struct {
	Key       string  `json:"key"`
	Count     int64   `json:"count"`
	AvgMillis float64 `json:"avg_ms"`
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Requests []RequestStat    `json:"requests"`
	Errors   map[string]int64 `json:"errors"`
	Domain   map[string]int64 `json:"domain"`
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Errors: map[string]int64{}, Domain: map[string]int64{}}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, count := range m.requestCount {
		stat := RequestStat{Key: key, Count: count}
		if count > 0 {
			stat.AvgMillis = float64(m.latencyTotal[key].Microseconds()) / 1000 / float64(count)
		}
		snap.Requests = append(snap.Requests, stat)
	}
	sort.Slice(snap.Requests, func(i, j int) bool { return snap.Requests[i].Key < snap.Requests[j].Key })
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	for k, v := range m.domain {
		snap.Domain[k] = v
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
