// Package surface fetches the remote game page and reports load progress the
// way an embedded web view would: a small jump once the server answers, then
// body progress, then 1.0 when the document is complete.
package surface

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/inferno/internal/domain"
)

const (
	// headersProgress is reported once the response status line arrives
	headersProgress = 0.1
	// unknownLengthScale controls how fast progress approaches 1 without Content-Length
	unknownLengthScale = 64 * 1024
	readChunk          = 32 * 1024
	maxTitleScan       = 64 * 1024
)

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// Page summarizes a completed load
type Page struct {
	URL         string
	FinalURL    string
	ContentType string
	Title       string
	Bytes       int64
	Duration    time.Duration
}

// HTTPSurface loads a single page over HTTP. Create one per attempt.
type HTTPSurface struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
	onPage    func(Page)

	mu       sync.Mutex
	listener domain.LoadListener
	lastSent float64
}

// Observe registers the listener for all subsequent callbacks
func (s *HTTPSurface) Observe(listener domain.LoadListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = listener
}

// Load fetches req.URL in the background. req.Timeout bounds the whole fetch.
func (s *HTTPSurface) Load(req domain.LoadRequest) {
	go s.fetch(req)
}

func (s *HTTPSurface) fetch(req domain.LoadRequest) {
	start := time.Now()
	ctx := context.Background()
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		s.fail(fmt.Sprintf("invalid request: %v", err))
		return
	}
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if s.userAgent != "" {
		httpReq.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.fail(describeError(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.fail(fmt.Sprintf("server returned %s", resp.Status))
		return
	}
	s.progress(headersProgress)

	var (
		read int64
		head strings.Builder
		buf  = make([]byte, readChunk)
	)
	total := resp.ContentLength
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			read += int64(n)
			if head.Len() < maxTitleScan {
				head.Write(buf[:n])
			}
			s.progress(bodyProgress(read, total))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.fail(describeError(err))
			return
		}
	}

	page := Page{
		URL:         req.URL,
		FinalURL:    resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Title:       extractTitle(head.String()),
		Bytes:       read,
		Duration:    time.Since(start),
	}
	s.logger.Info("page loaded", "url", page.FinalURL, "bytes", page.Bytes, "duration", page.Duration)
	if s.onPage != nil {
		s.onPage(page)
	}
	s.progress(1)
}

// bodyProgress maps bytes read into (headersProgress, 1). The document is
// only complete at EOF, so this never returns 1.
func bodyProgress(read, total int64) float64 {
	var frac float64
	if total > 0 {
		frac = float64(read) / float64(total)
	} else {
		frac = 1 - 1/(1+float64(read)/unknownLengthScale)
	}
	p := headersProgress + (1-headersProgress)*frac
	// Two decimals are enough for display and avoid flooding listeners
	p = math.Floor(p*100) / 100
	return math.Min(p, 0.99)
}

func (s *HTTPSurface) progress(p float64) {
	s.mu.Lock()
	l := s.listener
	if p <= s.lastSent && p < 1 {
		s.mu.Unlock()
		return
	}
	s.lastSent = p
	s.mu.Unlock()

	if l != nil {
		l.OnProgress(p)
	}
}

func (s *HTTPSurface) fail(reason string) {
	s.logger.Warn("page load failed", "reason", reason)
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		l.OnFailure(reason)
	}
}

// describeError turns transport errors into short human-readable reasons
func describeError(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out."
	case errors.As(err, &dnsErr):
		return "A server with the specified hostname could not be found."
	case errors.As(err, &netErr) && netErr.Timeout():
		return "The request timed out."
	default:
		return err.Error()
	}
}

func extractTitle(html string) string {
	m := titlePattern.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return strings.Join(strings.Fields(m[1]), " ")
}

// Factory creates one HTTPSurface per load attempt. Surfaces share a cookie
// jar, like web views sharing a website data store.
type Factory struct {
	transport http.RoundTripper
	userAgent string
	logger    *slog.Logger

	mu       sync.Mutex
	jar      http.CookieJar
	lastPage *Page
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithTransport sets the round tripper used by every surface.
func WithTransport(rt http.RoundTripper) FactoryOption {
	return func(f *Factory) {
		f.transport = rt
	}
}

// WithUserAgent sets the User-Agent header sent with page requests.
func WithUserAgent(ua string) FactoryOption {
	return func(f *Factory) {
		f.userAgent = ua
	}
}

// NewFactory creates a Factory with an empty cookie jar.
func NewFactory(logger *slog.Logger, opts ...FactoryOption) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Factory{logger: logger}
	for _, opt := range opts {
		opt(f)
	}
	f.jar = newJar()
	return f
}

func newJar() http.CookieJar {
	// cookiejar.New only fails with a non-nil PublicSuffixList
	jar, _ := cookiejar.New(nil)
	return jar
}

// New returns a fresh surface. f.New satisfies domain.SurfaceFactory.
func (f *Factory) New() domain.ContentSurface {
	f.mu.Lock()
	jar := f.jar
	f.mu.Unlock()

	return &HTTPSurface{
		client:    &http.Client{Transport: f.transport, Jar: jar},
		userAgent: f.userAgent,
		logger:    f.logger,
		onPage:    f.recordPage,
	}
}

func (f *Factory) recordPage(p Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPage = &p
}

// LastPage returns the most recently completed page, if any
func (f *Factory) LastPage() (Page, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastPage == nil {
		return Page{}, false
	}
	return *f.lastPage, true
}

// ClearData drops cookies and the remembered page. Surfaces created
// afterwards start with an empty jar.
func (f *Factory) ClearData() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jar = newJar()
	f.lastPage = nil
	f.logger.Info("cleared surface data")
}
