package loader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/inferno/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSurface records requests and exposes its listener so tests can drive callbacks.
type fakeSurface struct {
	mu       sync.Mutex
	listener domain.LoadListener
	requests []domain.LoadRequest
	// observedBeforeLoad is true when Observe ran before the first Load
	observedBeforeLoad bool
}

func (s *fakeSurface) Observe(l domain.LoadListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

func (s *fakeSurface) Load(req domain.LoadRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		s.observedBeforeLoad = s.listener != nil
	}
	s.requests = append(s.requests, req)
}

func (s *fakeSurface) progress(p float64) {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	l.OnProgress(p)
}

func (s *fakeSurface) fail(reason string) {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	l.OnFailure(reason)
}

// fakeFactory hands out a new fakeSurface per call
type fakeFactory struct {
	mu       sync.Mutex
	surfaces []*fakeSurface
}

func (f *fakeFactory) build() domain.ContentSurface {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeSurface{}
	f.surfaces = append(f.surfaces, s)
	return s
}

func (f *fakeFactory) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.surfaces)
}

func (f *fakeFactory) last() *fakeSurface {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.surfaces[len(f.surfaces)-1]
}

// recorder collects every observed transition
type recorder struct {
	mu       sync.Mutex
	statuses []domain.LoadStatus
}

func (r *recorder) OnStatus(s domain.LoadStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *recorder) all() []domain.LoadStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.LoadStatus, len(r.statuses))
	copy(out, r.statuses)
	return out
}

const testEndpoint = "https://egginferno2.com"

func startCoordinator(t *testing.T) (*Coordinator, *fakeFactory, *recorder) {
	t.Helper()
	c := NewCoordinator(testEndpoint, nil)
	rec := &recorder{}
	c.Subscribe(rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c, &fakeFactory{}, rec
}

// flush blocks until every signal enqueued so far has been processed
func flush(t *testing.T, c *Coordinator) {
	t.Helper()
	done := make(chan struct{})
	c.enqueue(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not drain its queue")
	}
}

func TestCoordinator_InitialStatusIsStandby(t *testing.T) {
	t.Parallel()
	c, _, rec := startCoordinator(t)

	assert.Equal(t, domain.Standby(), c.Status())
	assert.Empty(t, rec.all())
}

func TestCoordinator_BindStartsLoad(t *testing.T) {
	t.Parallel()
	c, f, _ := startCoordinator(t)

	c.Bind(f.build)
	flush(t, c)

	assert.Equal(t, domain.Progressing(0), c.Status())
	require.Equal(t, 1, f.calls())

	s := f.last()
	require.Len(t, s.requests, 1)
	assert.Equal(t, domain.LoadRequest{URL: testEndpoint, Timeout: 12 * time.Second}, s.requests[0])
	assert.True(t, s.observedBeforeLoad, "listener must be registered before the fetch is issued")
}

func TestCoordinator_ScenarioA_LoadToFinished(t *testing.T) {
	t.Parallel()
	c, f, rec := startCoordinator(t)

	c.Bind(f.build)
	flush(t, c)
	s := f.last()
	s.progress(0.0)
	s.progress(0.5)
	s.progress(1.0)
	flush(t, c)

	assert.Equal(t, domain.Finished(), c.Status())
	assert.Equal(t, []domain.LoadStatus{
		domain.Progressing(0),
		domain.Progressing(0.5),
		domain.Finished(),
	}, rec.all())
}

func TestCoordinator_ScenarioB_LateProgressAfterDisconnect(t *testing.T) {
	t.Parallel()
	c, f, _ := startCoordinator(t)

	c.Bind(f.build)
	flush(t, c)
	s := f.last()
	s.progress(0.3)
	c.SetConnectivity(false)
	flush(t, c)
	assert.Equal(t, domain.NoConnection(), c.Status())

	s.progress(0.6)
	c.ReportProgress(0.6)
	s.fail("late")
	flush(t, c)
	assert.Equal(t, domain.NoConnection(), c.Status())
}

func TestCoordinator_ScenarioC_ReconnectRestartsWithFactory(t *testing.T) {
	t.Parallel()
	c, f, _ := startCoordinator(t)

	c.Bind(f.build)
	c.SetConnectivity(false)
	flush(t, c)
	require.Equal(t, domain.NoConnection(), c.Status())
	require.Equal(t, 1, f.calls())

	c.SetConnectivity(true)
	flush(t, c)

	assert.Equal(t, domain.Progressing(0), c.Status())
	assert.Equal(t, 2, f.calls())
	assert.Len(t, f.last().requests, 1)
}

func TestCoordinator_ScenarioD_FailureIsSticky(t *testing.T) {
	t.Parallel()
	c, f, rec := startCoordinator(t)

	c.Bind(f.build)
	flush(t, c)
	c.ReportFailure("timeout")
	flush(t, c)
	assert.Equal(t, domain.Failure("timeout"), c.Status())

	c.ReportProgress(0.4)
	c.ReportProgress(1.0)
	f.last().progress(0.9)
	c.SetConnectivity(true)
	flush(t, c)

	assert.Equal(t, domain.Failure("timeout"), c.Status())
	assert.Equal(t, []domain.LoadStatus{domain.Progressing(0), domain.Failure("timeout")}, rec.all())
}

func TestCoordinator_FailureLeftOnlyByConnectivityLoss(t *testing.T) {
	t.Parallel()
	c, f, _ := startCoordinator(t)

	c.Bind(f.build)
	flush(t, c)
	f.last().fail("dns lookup failed")
	c.SetConnectivity(false)
	flush(t, c)

	assert.Equal(t, domain.NoConnection(), c.Status())
}

func TestCoordinator_IncreasingProgressNeverFinishes(t *testing.T) {
	t.Parallel()
	c, f, _ := startCoordinator(t)

	c.Bind(f.build)
	flush(t, c)
	s := f.last()

	values := []float64{0.05, 0.1, 0.25, 0.5, 0.75, 0.9, 0.99, 0.999}
	for _, v := range values {
		s.progress(v)
		flush(t, c)
		assert.Equal(t, domain.Progressing(v), c.Status())
	}
}

func TestCoordinator_DuplicateProgressIsOneTransition(t *testing.T) {
	t.Parallel()
	c, f, rec := startCoordinator(t)

	c.Bind(f.build)
	flush(t, c)
	c.ReportProgress(0.4)
	c.ReportProgress(0.4)
	flush(t, c)

	assert.Equal(t, []domain.LoadStatus{domain.Progressing(0), domain.Progressing(0.4)}, rec.all())
}

func TestCoordinator_OutOfOrderProgressIgnored(t *testing.T) {
	t.Parallel()
	c, f, _ := startCoordinator(t)

	c.Bind(f.build)
	c.ReportProgress(0.7)
	c.ReportProgress(0.2)
	flush(t, c)

	assert.Equal(t, domain.Progressing(0.7), c.Status())
}

func TestCoordinator_ProgressAboveOneFinishes(t *testing.T) {
	t.Parallel()
	c, f, _ := startCoordinator(t)

	c.Bind(f.build)
	c.ReportProgress(1.5)
	flush(t, c)

	assert.Equal(t, domain.Finished(), c.Status())
}

func TestCoordinator_ProgressIgnoredInStandby(t *testing.T) {
	t.Parallel()
	c, _, rec := startCoordinator(t)

	c.ReportProgress(0.5)
	c.ReportFailure("boom")
	flush(t, c)

	assert.Equal(t, domain.Standby(), c.Status())
	assert.Empty(t, rec.all())
}

func TestCoordinator_DisconnectFromEveryPhase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(c *Coordinator, f *fakeFactory)
	}{
		{name: "standby", setup: func(c *Coordinator, f *fakeFactory) {}},
		{name: "progressing", setup: func(c *Coordinator, f *fakeFactory) {
			c.Bind(f.build)
			c.ReportProgress(0.3)
		}},
		{name: "finished", setup: func(c *Coordinator, f *fakeFactory) {
			c.Bind(f.build)
			c.ReportProgress(1)
		}},
		{name: "failure", setup: func(c *Coordinator, f *fakeFactory) {
			c.Bind(f.build)
			c.ReportFailure("boom")
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, f, _ := startCoordinator(t)
			tt.setup(c, f)
			c.SetConnectivity(false)
			flush(t, c)
			assert.Equal(t, domain.NoConnection(), c.Status())
		})
	}
}

func TestCoordinator_DisconnectWhileOfflineIsNoop(t *testing.T) {
	t.Parallel()
	c, f, rec := startCoordinator(t)

	c.Bind(f.build)
	c.SetConnectivity(false)
	c.SetConnectivity(false)
	flush(t, c)

	assert.Equal(t, []domain.LoadStatus{domain.Progressing(0), domain.NoConnection()}, rec.all())
}

func TestCoordinator_ConnectWhileOnlineIsNoop(t *testing.T) {
	t.Parallel()
	c, f, rec := startCoordinator(t)

	c.Bind(f.build)
	c.ReportProgress(0.5)
	c.SetConnectivity(true)
	c.SetConnectivity(true)
	flush(t, c)

	assert.Equal(t, domain.Progressing(0.5), c.Status())
	assert.Equal(t, 1, f.calls())
	assert.Len(t, rec.all(), 2)
}

func TestCoordinator_ReconnectCycleStartsExactlyOneLoad(t *testing.T) {
	t.Parallel()
	c, f, _ := startCoordinator(t)

	c.Bind(f.build)
	c.ReportProgress(1)
	c.SetConnectivity(false)
	c.SetConnectivity(true)
	c.SetConnectivity(true)
	flush(t, c)

	assert.Equal(t, domain.Progressing(0), c.Status())
	assert.Equal(t, 2, f.calls())
}

func TestCoordinator_SupersededAttemptCallbacksIgnored(t *testing.T) {
	t.Parallel()
	c, f, _ := startCoordinator(t)

	c.Bind(f.build)
	flush(t, c)
	old := f.last()

	c.SetConnectivity(false)
	c.SetConnectivity(true)
	flush(t, c)
	fresh := f.last()
	require.NotSame(t, old, fresh)

	old.progress(0.8)
	old.fail("stale failure")
	flush(t, c)
	assert.Equal(t, domain.Progressing(0), c.Status())

	fresh.progress(0.2)
	flush(t, c)
	assert.Equal(t, domain.Progressing(0.2), c.Status())
}

func TestCoordinator_BindWhileOfflineDefersLoad(t *testing.T) {
	t.Parallel()
	c, f, _ := startCoordinator(t)

	c.SetConnectivity(false)
	c.Bind(f.build)
	flush(t, c)
	assert.Equal(t, domain.NoConnection(), c.Status())
	assert.Equal(t, 0, f.calls())

	c.SetConnectivity(true)
	flush(t, c)
	assert.Equal(t, domain.Progressing(0), c.Status())
	assert.Equal(t, 1, f.calls())
}

func TestCoordinator_ReconnectWithoutFactoryReturnsToStandby(t *testing.T) {
	t.Parallel()
	c, _, _ := startCoordinator(t)

	c.SetConnectivity(false)
	c.SetConnectivity(true)
	flush(t, c)

	assert.Equal(t, domain.Standby(), c.Status())
}

func TestCoordinator_ReloadRecoversFromFailure(t *testing.T) {
	t.Parallel()
	c, f, _ := startCoordinator(t)

	c.Reload()
	flush(t, c)
	assert.Equal(t, domain.Standby(), c.Status())

	c.Bind(f.build)
	c.ReportFailure("server returned 503")
	c.Reload()
	flush(t, c)

	assert.Equal(t, domain.Progressing(0), c.Status())
	assert.Equal(t, 2, f.calls())
}

func TestCoordinator_ReloadIgnoredWhileOffline(t *testing.T) {
	t.Parallel()
	c, f, _ := startCoordinator(t)

	c.Bind(f.build)
	c.SetConnectivity(false)
	c.Reload()
	flush(t, c)

	assert.Equal(t, domain.NoConnection(), c.Status())
	assert.Equal(t, 1, f.calls())
}

func TestCoordinator_NilSurfaceFails(t *testing.T) {
	t.Parallel()
	c, _, _ := startCoordinator(t)

	c.Bind(func() domain.ContentSurface { return nil })
	flush(t, c)

	assert.Equal(t, domain.Failure("content surface unavailable"), c.Status())
}

func TestCoordinator_CustomTimeout(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(testEndpoint, nil, WithTimeout(3*time.Second), WithQueueSize(4))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	f := &fakeFactory{}
	c.Bind(f.build)
	flush(t, c)

	assert.Equal(t, 3*time.Second, f.last().requests[0].Timeout)
}

func TestCoordinator_SignalsAfterStopAreDropped(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(testEndpoint, nil, WithQueueSize(1))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			c.ReportProgress(0.5)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("signals blocked after Run returned")
	}
	assert.Equal(t, domain.Standby(), c.Status())
}

func TestCoordinator_ConcurrentSignals(t *testing.T) {
	t.Parallel()
	c, f, _ := startCoordinator(t)

	c.Bind(f.build)
	flush(t, c)
	s := f.last()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			s.progress(v)
			_ = c.Status()
		}(float64(i) / 100)
	}
	wg.Wait()
	flush(t, c)

	assert.Equal(t, domain.Progressing(0.5), c.Status())
}
