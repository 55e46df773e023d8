// Package health tracks remote store connectivity with a fixed-interval
// probe that runs independently of the capture workflow.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PollInterval is how often the monitor probes the store.
const PollInterval = 30 * time.Second

// offlineAfter is how many consecutive failed probes flip the status to
// offline. A single dropped request does not.
const offlineAfter = 3

// Status is the monitor's view of store connectivity.
type Status string

const (
	StatusChecking Status = "checking"
	StatusOnline   Status = "online"
	StatusOffline  Status = "offline"
)

// Prober answers a single liveness probe.
type Prober interface {
	HealthCheck(ctx context.Context) bool
}

// Monitor polls a Prober on a fixed interval. It starts in StatusChecking
// and never blocks, or is blocked by, the capture workflow. Stop it through
// the context passed to Run.
type Monitor struct {
	prober   Prober
	interval time.Duration

	mu       sync.Mutex
	status   Status
	failures int
}

// NewMonitor constructs a monitor with the standard poll interval.
func NewMonitor(prober Prober) *Monitor {
	return &Monitor{prober: prober, interval: PollInterval, status: StatusChecking}
}

// Status returns the current connectivity status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Probe runs one check immediately and updates the status.
func (m *Monitor) Probe(ctx context.Context) Status {
	ok := m.prober.HealthCheck(ctx)
	m.record(ok)
	return m.Status()
}

func (m *Monitor) record(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		if m.status != StatusOnline {
			slog.Info("remote store reachable")
		}
		m.status = StatusOnline
		m.failures = 0
		return
	}
	m.failures++
	if m.failures >= offlineAfter && m.status != StatusOffline {
		slog.Warn("remote store unreachable", "consecutive_failures", m.failures)
		m.status = StatusOffline
	}
}

// Run probes immediately and then on every tick until ctx is canceled. The
// ticker is owned by this call and stopped on return, so no probe outlives
// the caller.
func (m *Monitor) Run(ctx context.Context) {
	m.Probe(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}
