// Package loader owns the page load state machine. A Coordinator decides when
// to (re)start loading the remote page and turns surface progress, surface
// failures and connectivity changes into domain.LoadStatus transitions.
//
// All transitions run on the goroutine executing Run. Public methods only
// enqueue work and return, so they are safe to call from surface callbacks,
// the connectivity monitor, and the UI at the same time.
package loader

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/inferno/internal/domain"
)

const defaultQueueSize = 256

// Coordinator is the single source of truth for the page load status
type Coordinator struct {
	endpoint string
	timeout  time.Duration
	logger   *slog.Logger

	queue   chan func()
	stopped chan struct{}

	// Loop-owned
	factory domain.SurfaceFactory
	attempt uuid.UUID // identity of the attempt whose callbacks are honoured

	mu        sync.RWMutex // Protects status (written only by the loop) and observers
	status    domain.LoadStatus
	observers []domain.StatusObserver
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout overrides the fetch timeout passed to surfaces.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithQueueSize sets how many pending signals can be buffered before Run drains them.
func WithQueueSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.queue = make(chan func(), n)
		}
	}
}

// NewCoordinator creates a Coordinator in Standby for the given endpoint.
func NewCoordinator(endpoint string, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		endpoint: endpoint,
		timeout:  domain.LoadTimeout,
		logger:   logger,
		queue:    make(chan func(), defaultQueueSize),
		stopped:  make(chan struct{}),
		status:   domain.Standby(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes signals until ctx is cancelled. It must be called exactly once.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.stopped)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-c.queue:
			fn()
		}
	}
}

// enqueue hands fn to the loop. Signals sent after Run returned are dropped.
func (c *Coordinator) enqueue(fn func()) {
	select {
	case c.queue <- fn:
	case <-c.stopped:
	}
}

// Status returns a snapshot of the current load status
func (c *Coordinator) Status() domain.LoadStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Subscribe registers an observer for every subsequent transition.
// Observers run on the loop goroutine and must not block.
func (c *Coordinator) Subscribe(obs domain.StatusObserver) {
	c.mu.Lock()
	c.observers = append(c.observers, obs)
	c.mu.Unlock()
}

// Bind stores factory for this and every future attempt and starts loading.
// While offline the load is deferred until connectivity returns.
func (c *Coordinator) Bind(factory domain.SurfaceFactory) {
	c.enqueue(func() {
		c.factory = factory
		if c.status.Phase == domain.PhaseNoConnection {
			c.logger.Info("surface bound while offline, deferring load")
			return
		}
		c.startLoad()
	})
}

// Reload starts a fresh attempt with the bound factory. This is the only way
// out of Failure or Finished besides a connectivity cycle.
func (c *Coordinator) Reload() {
	c.enqueue(func() {
		if c.factory == nil {
			c.logger.Warn("reload ignored", "error", domain.ErrNotBound)
			return
		}
		if c.status.Phase == domain.PhaseNoConnection {
			c.logger.Debug("reload ignored while offline")
			return
		}
		c.startLoad()
	})
}

// SetConnectivity reports a connectivity transition.
func (c *Coordinator) SetConnectivity(available bool) {
	c.enqueue(func() {
		offline := c.status.Phase == domain.PhaseNoConnection
		switch {
		case available && offline:
			c.logger.Info("connectivity restored, restarting load")
			if c.factory == nil {
				c.transition(domain.Standby())
				return
			}
			c.startLoad()
		case !available && !offline:
			c.logger.Info("connectivity lost", "abandoned", c.status.String())
			c.attempt = uuid.Nil
			c.transition(domain.NoConnection())
		}
	})
}

// ReportProgress delivers a progress value for the current attempt.
func (c *Coordinator) ReportProgress(progress float64) {
	c.enqueue(func() {
		c.applyProgress(progress)
	})
}

// ReportFailure delivers a load failure for the current attempt.
func (c *Coordinator) ReportFailure(reason string) {
	c.enqueue(func() {
		c.applyFailure(reason)
	})
}

// startLoad runs on the loop. The listener is registered before Load is
// issued so no early progress is missed.
func (c *Coordinator) startLoad() {
	surface := c.factory()
	if surface == nil {
		c.attempt = uuid.Nil
		c.logger.Error("surface factory returned no surface")
		c.transition(domain.Failure("content surface unavailable"))
		return
	}

	id := uuid.New()
	c.attempt = id
	c.transition(domain.Progressing(0))

	c.logger.Info("starting load", "attempt", id.String(), "url", c.endpoint, "timeout", c.timeout)
	surface.Observe(&attemptListener{c: c, id: id})
	surface.Load(domain.LoadRequest{URL: c.endpoint, Timeout: c.timeout})
}

func (c *Coordinator) applyProgress(progress float64) {
	if c.status.Phase != domain.PhaseProgressing || math.IsNaN(progress) {
		return
	}
	if progress >= 1 {
		c.transition(domain.Finished())
		return
	}
	if progress < 0 {
		progress = 0
	}
	// Duplicate and out-of-order values keep progress non-decreasing
	if progress <= c.status.Progress {
		return
	}
	c.transition(domain.Progressing(progress))
}

func (c *Coordinator) applyFailure(reason string) {
	if c.status.Phase != domain.PhaseProgressing {
		return
	}
	c.logger.Warn("load failed", "attempt", c.attempt.String(), "reason", reason)
	c.transition(domain.Failure(reason))
}

func (c *Coordinator) transition(next domain.LoadStatus) {
	c.mu.Lock()
	if c.status == next {
		c.mu.Unlock()
		return
	}
	prev := c.status
	c.status = next
	observers := make([]domain.StatusObserver, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	c.logger.Debug("load status changed", "from", prev.String(), "to", next.String())
	for _, obs := range observers {
		obs.OnStatus(next)
	}
}

// attemptListener forwards surface callbacks for one attempt. Callbacks from
// a superseded attempt are dropped on the loop.
type attemptListener struct {
	c  *Coordinator
	id uuid.UUID
}

func (l *attemptListener) OnProgress(progress float64) {
	l.c.enqueue(func() {
		if l.c.attempt != l.id {
			return
		}
		l.c.applyProgress(progress)
	})
}

func (l *attemptListener) OnFailure(reason string) {
	l.c.enqueue(func() {
		if l.c.attempt != l.id {
			return
		}
		l.c.applyFailure(reason)
	})
}
