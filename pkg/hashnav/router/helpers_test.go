package router_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/router"
	"github.com/prometheus/client_golang/prometheus"
)

// recorder is an ordered, shared event log.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// testPage records every lifecycle notification it receives.
type testPage struct {
	name string
	rec  *recorder

	mu     sync.Mutex
	data   router.PageData
	err    *router.PageError
	events []string
}

func newPage(name string, rec *recorder) *testPage {
	return &testPage{name: name, rec: rec}
}

func (p *testPage) log(event string) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	if p.rec != nil {
		p.rec.add("%s %s", event, p.name)
	}
}

func (p *testPage) SetPageData(data router.PageData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = data
}

func (p *testPage) SetPageError(err *router.PageError) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	p.log("error")
}

func (p *testPage) OnMounted()      { p.log("mounted") }
func (p *testPage) OnChanged()      { p.log("changed") }
func (p *testPage) OnDataProvided() { p.log("dataProvided") }

func (p *testPage) Data() router.PageData {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data
}

func (p *testPage) Err() *router.PageError {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *testPage) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func pageName(p router.Page) string {
	if tp, ok := p.(*testPage); ok {
		return tp.name
	}
	return fmt.Sprintf("%T", p)
}

// fakeHost is a ViewHost that records what the router asks of it.
type fakeHost struct {
	rec *recorder

	mu        sync.Mutex
	attached  map[router.Page]bool
	visible   map[router.Page]bool
	detached  []router.Page
	reclaimed int
	onVisible func(p router.Page, visible bool)
}

func newHost(rec *recorder) *fakeHost {
	return &fakeHost{
		rec:      rec,
		attached: make(map[router.Page]bool),
		visible:  make(map[router.Page]bool),
	}
}

func (h *fakeHost) Attach(p router.Page) {
	h.mu.Lock()
	h.attached[p] = true
	h.mu.Unlock()
	h.rec.add("attach %s", pageName(p))
}

func (h *fakeHost) Detach(p router.Page) {
	h.mu.Lock()
	delete(h.attached, p)
	delete(h.visible, p)
	h.detached = append(h.detached, p)
	h.mu.Unlock()
	h.rec.add("detach %s", pageName(p))
}

func (h *fakeHost) SetVisible(p router.Page, visible bool) {
	h.mu.Lock()
	h.visible[p] = visible
	hook := h.onVisible
	h.mu.Unlock()
	if visible {
		h.rec.add("show %s", pageName(p))
	} else {
		h.rec.add("hide %s", pageName(p))
	}
	if hook != nil {
		hook(p, visible)
	}
}

func (h *fakeHost) Reclaim() {
	h.mu.Lock()
	h.reclaimed++
	h.mu.Unlock()
	h.rec.add("reclaim")
}

func (h *fakeHost) isAttached(p router.Page) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attached[p]
}

func (h *fakeHost) isVisible(p router.Page) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visible[p]
}

func (h *fakeHost) reclaims() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reclaimed
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	r     *router.Router
	rec   *recorder
	host  *fakeHost
	clock *clock
	loc   *router.MemoryLocation
	reg   *prometheus.Registry
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, cfg router.Config, mutate ...func(*router.Options)) *fixture {
	t.Helper()

	f := &fixture{
		rec:   &recorder{},
		clock: newClock(),
		loc:   router.NewMemoryLocation(""),
		reg:   prometheus.NewRegistry(),
	}
	f.host = newHost(f.rec)

	opts := router.Options{
		Config:            &cfg,
		Location:          f.loc,
		Views:             f.host,
		Logger:            discardLogger(),
		MetricsRegisterer: f.reg,
		Now:               f.clock.Now,
	}
	for _, m := range mutate {
		m(&opts)
	}

	f.r = router.New(opts)
	t.Cleanup(f.r.Close)
	return f
}

func factoryFor(name string, rec *recorder, created *[]*testPage) router.PageFactory {
	var mu sync.Mutex
	return func() router.Page {
		p := newPage(name, rec)
		mu.Lock()
		if created != nil {
			*created = append(*created, p)
		}
		mu.Unlock()
		return p
	}
}

func recordingProvider(rec *recorder, err error) router.ProviderFunc {
	return func(_ context.Context, page router.Page, _ router.Params) error {
		rec.add("fetch %s", pageName(page))
		return err
	}
}
