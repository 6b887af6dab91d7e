// Package connectivity watches network reachability of the content host and
// reports availability changes as a single boolean signal.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultInterval = 3 * time.Second

// Prober reports whether the content host is currently reachable
type Prober interface {
	Probe(ctx context.Context) bool
}

// ProberFunc adapts a function to Prober
type ProberFunc func(ctx context.Context) bool

// Probe calls f(ctx)
func (f ProberFunc) Probe(ctx context.Context) bool {
	return f(ctx)
}

// Monitor polls a Prober and emits one callback per actual status change.
type Monitor struct {
	prober   Prober
	interval time.Duration
	logger   *slog.Logger

	mu        sync.RWMutex
	observed  bool
	connected bool
}

// NewMonitor creates a Monitor that polls prober every interval.
func NewMonitor(prober Prober, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		prober:   prober,
		interval: interval,
		logger:   logger,
	}
}

// Run probes immediately and then on every tick until ctx is cancelled.
// onChange is called from this goroutine only, for the first observation and
// afterwards only when availability flips, so calls never overlap.
func (m *Monitor) Run(ctx context.Context, onChange func(available bool)) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx, onChange)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.check(ctx, onChange)
		}
	}
}

func (m *Monitor) check(ctx context.Context, onChange func(bool)) {
	up := m.prober.Probe(ctx)
	if ctx.Err() != nil {
		// A probe cut short by shutdown says nothing about the network
		return
	}

	m.mu.Lock()
	changed := !m.observed || m.connected != up
	m.observed = true
	m.connected = up
	m.mu.Unlock()

	if !changed {
		return
	}
	m.logger.Info("connectivity changed", "available", up)
	if onChange != nil {
		onChange(up)
	}
}

// Current returns the last observed availability. Before the first probe
// completes the network is assumed available.
func (m *Monitor) Current() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.observed || m.connected
}
