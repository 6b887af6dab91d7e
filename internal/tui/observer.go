package tui

import "github.com/mmcdole/inferno/internal/domain"

// ChannelObserver adapts domain.StatusObserver to a channel for Bubble Tea.
// When the reader falls behind, older statuses are replaced by the newest.
type ChannelObserver struct {
	ch chan domain.LoadStatus
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver(buffer int) *ChannelObserver {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelObserver{ch: make(chan domain.LoadStatus, buffer)}
}

// Updates returns the receive side of the channel
func (o *ChannelObserver) Updates() <-chan domain.LoadStatus {
	return o.ch
}

// OnStatus sends status without blocking, evicting the oldest queued
// status when the buffer is full. Only one goroutine may call OnStatus.
func (o *ChannelObserver) OnStatus(status domain.LoadStatus) {
	for {
		select {
		case o.ch <- status:
			return
		default:
		}
		select {
		case <-o.ch:
		default:
		}
	}
}
