package service

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmcdole/inferno/internal/domain"
)

// Event names recorded by the shell
const (
	EventSessionStart = "session_start"
	EventLoadStatus   = "load_status"
)

// MetricsService queues analytics events in the store until flushed
type MetricsService struct {
	store  domain.Store
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	lastPhase domain.LoadPhase
	seen      bool
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(store domain.Store, logger *slog.Logger) *MetricsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// TrackEvent records an event with optional parameters
func (m *MetricsService) TrackEvent(name string, params map[string]string) error {
	event := domain.Event{
		ID:        uuid.NewString(),
		Name:      name,
		Timestamp: m.now().UnixMilli(),
		Params:    params,
	}
	if err := m.store.AppendEvent(event); err != nil {
		return fmt.Errorf("failed to record event %s: %w", name, err)
	}
	m.logger.Debug("event tracked", "event", name, "id", event.ID)
	return nil
}

// Events returns the queued events, oldest first
func (m *MetricsService) Events() ([]domain.Event, error) {
	return m.store.Events()
}

// FlushEvents drops every queued event and reports how many were dropped
func (m *MetricsService) FlushEvents() (int, error) {
	events, err := m.store.Events()
	if err != nil {
		return 0, err
	}
	if err := m.store.FlushEvents(); err != nil {
		return 0, fmt.Errorf("failed to flush events: %w", err)
	}
	m.logger.Info("flushed events", "count", len(events))
	return len(events), nil
}

// OnStatus records one event per phase change. Progress ticks within a
// phase are not recorded.
func (m *MetricsService) OnStatus(status domain.LoadStatus) {
	m.mu.Lock()
	if m.seen && m.lastPhase == status.Phase {
		m.mu.Unlock()
		return
	}
	m.seen = true
	m.lastPhase = status.Phase
	m.mu.Unlock()

	params := map[string]string{"phase": status.Phase.String()}
	switch status.Phase {
	case domain.PhaseProgressing:
		params["progress"] = strconv.FormatFloat(status.Progress, 'f', 2, 64)
	case domain.PhaseFailure:
		params["reason"] = status.Reason
	}
	if err := m.TrackEvent(EventLoadStatus, params); err != nil {
		m.logger.Warn("failed to record status event", "error", err)
	}
}
