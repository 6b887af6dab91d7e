package surface

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/inferno/internal/domain"
)

type recorder struct {
	mu       sync.Mutex
	progress []float64
	failures []string
	done     chan struct{}
	once     sync.Once
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{})}
}

func (r *recorder) OnProgress(p float64) {
	r.mu.Lock()
	r.progress = append(r.progress, p)
	r.mu.Unlock()
	if p >= 1 {
		r.once.Do(func() { close(r.done) })
	}
}

func (r *recorder) OnFailure(reason string) {
	r.mu.Lock()
	r.failures = append(r.failures, reason)
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("load did not finish")
	}
}

func (r *recorder) snapshot() ([]float64, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.progress...), append([]string(nil), r.failures...)
}

func load(t *testing.T, f *Factory, url string, timeout time.Duration) *recorder {
	t.Helper()
	rec := newRecorder()
	s := f.New()
	s.Observe(rec)
	s.Load(domain.LoadRequest{URL: url, Timeout: timeout})
	rec.wait(t)
	return rec
}

func TestHTTPSurface_ProgressReachesOne(t *testing.T) {
	t.Parallel()

	body := "<html><head><title>  Egg\n Inferno </title></head><body>" + strings.Repeat("x", 200*1024) + "</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	f := NewFactory(nil)
	rec := load(t, f, srv.URL, time.Second*5)

	progress, failures := rec.snapshot()
	assert.Empty(t, failures)
	require.NotEmpty(t, progress)
	assert.Equal(t, headersProgress, progress[0])
	assert.Equal(t, 1.0, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.Greater(t, progress[i], progress[i-1], "progress must be strictly increasing")
	}

	page, ok := f.LastPage()
	require.True(t, ok)
	assert.Equal(t, "Egg Inferno", page.Title)
	assert.Equal(t, int64(len(body)), page.Bytes)
	assert.Equal(t, "text/html", page.ContentType)
}

func TestHTTPSurface_NonSuccessStatusFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rec := load(t, NewFactory(nil), srv.URL, 5*time.Second)

	progress, failures := rec.snapshot()
	assert.Empty(t, progress)
	assert.Equal(t, []string{"server returned 503 Service Unavailable"}, failures)
}

func TestHTTPSurface_TimeoutFails(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	rec := load(t, NewFactory(nil), srv.URL, 50*time.Millisecond)

	_, failures := rec.snapshot()
	assert.Equal(t, []string{"The request timed out."}, failures)
}

func TestHTTPSurface_UnreachableHostFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	rec := load(t, NewFactory(nil), url, 2*time.Second)

	progress, failures := rec.snapshot()
	assert.Empty(t, progress)
	require.Len(t, failures, 1)
	assert.NotEmpty(t, failures[0])
}

func TestHTTPSurface_InvalidURLFails(t *testing.T) {
	t.Parallel()

	rec := load(t, NewFactory(nil), "http://bad host/", time.Second)

	_, failures := rec.snapshot()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "invalid request")
}

func TestFactory_SharesCookiesUntilCleared(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session")
		mu.Lock()
		if err == nil {
			seen = append(seen, c.Value)
		} else {
			seen = append(seen, "")
		}
		mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	f := NewFactory(nil, WithUserAgent("inferno-test"))
	load(t, f, srv.URL, 5*time.Second)
	load(t, f, srv.URL, 5*time.Second)
	f.ClearData()
	_, ok := f.LastPage()
	assert.False(t, ok)
	load(t, f, srv.URL, 5*time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "abc", ""}, seen)
}

func TestBodyProgress(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.55, bodyProgress(50, 100), 0.011)
	assert.Equal(t, 0.99, bodyProgress(100, 100), "only EOF completes the load")

	// Unknown length approaches but never reaches 1
	prev := headersProgress
	for _, n := range []int64{1024, 64 * 1024, 1 << 20, 1 << 30} {
		p := bodyProgress(n, -1)
		assert.GreaterOrEqual(t, p, prev)
		assert.Less(t, p, 1.0)
		prev = p
	}
}

func TestExtractTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Play", extractTitle(`<TITLE lang="en">Play</TITLE>`))
	assert.Equal(t, "", extractTitle("<html><body>none</body></html>"))
}
