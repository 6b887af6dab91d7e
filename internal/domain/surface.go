package domain

import "time"

// LoadTimeout is the fetch-level timeout applied to every page load.
const LoadTimeout = 12 * time.Second

// LoadRequest describes a single page fetch issued to a content surface
type LoadRequest struct {
	URL     string
	Timeout time.Duration
}

// LoadListener receives progress and failure callbacks from a content surface.
// Callbacks may arrive on any goroutine.
type LoadListener interface {
	// OnProgress reports the estimated load fraction in [0, 1]
	OnProgress(progress float64)

	// OnFailure reports that the load failed (during connection or mid-body)
	OnFailure(reason string)
}

// ContentSurface renders the remote page. The coordinator only consumes it.
type ContentSurface interface {
	// Observe registers the listener for all subsequent callbacks
	Observe(listener LoadListener)

	// Load starts fetching asynchronously and returns immediately
	Load(req LoadRequest)
}

// SurfaceFactory produces a fresh content surface for each load attempt.
// It may return nil when no surface can be created.
type SurfaceFactory func() ContentSurface

// StatusObserver is notified of every load status transition, in order.
type StatusObserver interface {
	OnStatus(status LoadStatus)
}

// StatusObserverFunc adapts a function to StatusObserver
type StatusObserverFunc func(LoadStatus)

// OnStatus calls f(status)
func (f StatusObserverFunc) OnStatus(status LoadStatus) {
	f(status)
}
