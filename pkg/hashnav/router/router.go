package router

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/constants"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/internal"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

const tracerName = "github.com/BrandonKowalski/hashnav/router"

// BootFunc runs once before the first navigation. It receives the query
// values of the initial hash.
type BootFunc func(ctx context.Context, query url.Values) error

// Navigation describes a completed load.
type Navigation struct {
	ID    string
	Route string
	Hash  string
	Page  Page
}

// Options configures a Router.
type Options struct {
	// Config defaults to DefaultConfig().
	Config *Config

	// Location defaults to an empty MemoryLocation.
	Location Location

	// Views receives page attach, detach and visibility calls.
	Views ViewHost

	// Widgets lists the application's widgets, if any.
	Widgets WidgetHost

	// Logger defaults to the internal framework logger.
	Logger *slog.Logger

	// MetricsRegisterer receives the router's collectors. Nil keeps them
	// unregistered.
	MetricsRegisterer prometheus.Registerer

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider

	// Now defaults to time.Now.
	Now func() time.Time

	// OnStateChange is called with the new state label.
	OnStateChange func(state string)

	// OnRefocus is called after a page became active.
	OnRefocus func(page Page)

	// OnClose is called when stepping back has nowhere to go.
	OnClose func()
}

type activeState struct {
	page  Page
	route string
	hash  string
}

// Router resolves hashes to registered pages and drives their lifecycle.
//
// Registry, history and active state are guarded by one lock that is never
// held while application code runs. Navigations are not serialised: when two
// overlap, the one finishing last decides the active page.
type Router struct {
	mu sync.Mutex

	registry     *registry
	pages        *pageTable
	history      *History
	register     map[string]any
	active       activeState
	activeWidget string
	rootHash     string
	rootSet      bool
	initialised  bool
	rootFunc     func(ctx context.Context) (string, error)
	bootFunc     BootFunc
	forcedHash   string
	echo         map[string]int
	transitions  map[string]TransitionFunc
	listeners    map[int]func(Navigation)
	nextListener int
	baseCtx      context.Context
	unsubscribe  func()

	config     *atomic.Pointer[Config]
	state      *atomic.String
	updateHash *atomic.Bool
	navCount   *atomic.Int64

	location      Location
	views         ViewHost
	widgets       WidgetHost
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *metrics
	now           func() time.Time
	onStateChange func(string)
	onRefocus     func(Page)
	onClose       func()
}

// New creates a Router.
func New(opts Options) *Router {
	cfg := DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}

	r := &Router{
		registry:    newRegistry(),
		pages:       newPageTable(),
		history:     NewHistory(),
		register:    make(map[string]any),
		echo:        make(map[string]int),
		transitions: make(map[string]TransitionFunc),
		listeners:   make(map[int]func(Navigation)),
		baseCtx:     context.Background(),

		config:     atomic.NewPointer(&cfg),
		state:      atomic.NewString(constants.StateIdle),
		updateHash: atomic.NewBool(true),
		navCount:   atomic.NewInt64(0),

		location:      opts.Location,
		views:         opts.Views,
		widgets:       opts.Widgets,
		logger:        opts.Logger,
		metrics:       newMetrics(opts.MetricsRegisterer),
		now:           opts.Now,
		onStateChange: opts.OnStateChange,
		onRefocus:     opts.OnRefocus,
		onClose:       opts.OnClose,
	}

	if r.location == nil {
		r.location = NewMemoryLocation("")
	}
	if r.views == nil {
		r.views = nopViewHost{}
	}
	if r.logger == nil {
		r.logger = internal.GetInternalLogger()
	}
	if r.now == nil {
		r.now = time.Now
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	r.tracer = tp.Tracer(tracerName)

	r.transitions[TransitionCrossFade] = r.crossFade

	return r
}

// Config returns the current configuration.
func (r *Router) Config() Config {
	return *r.config.Load()
}

// SetConfig replaces the configuration. It applies from the next option read.
func (r *Router) SetConfig(cfg Config) {
	r.config.Store(&cfg)
}

// SetUpdateHash overrides Config.UpdateHash for this router. Both must be
// true for navigation to write to the Location.
func (r *Router) SetUpdateHash(enabled bool) {
	r.updateHash.Store(enabled)
}

func (r *Router) mustUpdateHash() bool {
	return r.Config().UpdateHash && r.updateHash.Load()
}

// Hash returns the hash the router considers current: the Location's hash,
// or the router's own when location updates are disabled.
func (r *Router) Hash() string {
	if !r.mustUpdateHash() {
		r.mu.Lock()
		defer r.mu.Unlock()
		return normalizeHash(r.forcedHash)
	}
	return normalizeHash(r.location.Hash())
}

// Navigations returns how many navigations the router has started.
func (r *Router) Navigations() int64 {
	return r.navCount.Load()
}

// State returns the application state label.
func (r *Router) State() string {
	return r.state.Load()
}

func (r *Router) setState(state string) {
	if r.state.Swap(state) == state {
		return
	}
	if r.onStateChange != nil {
		r.onStateChange(state)
	}
}

// ActivePage returns the page loaded last, or nil.
func (r *Router) ActivePage() Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active.page
}

// ActiveRoute returns the route loaded last.
func (r *Router) ActiveRoute() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active.route
}

// ActiveHash returns the hash loaded last.
func (r *Router) ActiveHash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active.hash
}

// ActiveWidget returns the widget holding focus, if any.
func (r *Router) ActiveWidget() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeWidget
}

// History returns a copy of the stored hashes, oldest first.
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Entries()
}

// Register returns a copy of the navigation register of the last Navigate.
func (r *Router) Register() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]any, len(r.register))
	for k, v := range r.register {
		out[k] = v
	}
	return out
}

// PageMeta returns the routing metadata kept for page.
func (r *Router) PageMeta(page Page) (PageMeta, bool) {
	if !isComparable(page) {
		return PageMeta{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.pages.get(page)
	if !ok {
		return PageMeta{}, false
	}
	return *m, true
}

// IsPageExpired reports whether page's provided data is stale. Pages never
// provided, or provided without expiry, are not expired.
func (r *Router) IsPageExpired(page Page) bool {
	m, ok := r.PageMeta(page)
	if !ok {
		return false
	}
	return m.Expired(r.now())
}

// Subscribe registers fn to be called after every completed load.
func (r *Router) Subscribe(fn func(Navigation)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextListener
	r.nextListener++
	r.listeners[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

func (r *Router) notify(nav Navigation) {
	r.mu.Lock()
	fns := make([]func(Navigation), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(nav)
	}
}

// Close stops listening to the Location and detaches every live page.
func (r *Router) Close() {
	r.mu.Lock()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	live := r.pages.pages()
	r.pages = newPageTable()
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	for _, p := range live {
		r.views.Detach(p)
	}
	r.logger.Debug("router closed", "pages", len(live))
}

func (r *Router) refocus(page Page) {
	if r.onRefocus != nil && page != nil {
		r.onRefocus(page)
	}
}
