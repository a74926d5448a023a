package router

import (
	"context"
	"time"
)

// Modifiers are per-route options affecting history storage.
type Modifiers struct {
	// PreventStorage keeps hashes of this route out of the history.
	PreventStorage bool `toml:"preventStorage"`

	// ClearHistory empties the history when navigating to this route.
	ClearHistory bool `toml:"clearHistory"`

	// StoreLast is accepted for configuration compatibility and kept on the
	// route; the router does not act on it.
	StoreLast bool `toml:"storeLast"`

	// Store, when explicitly false, keeps hashes of this route out of the
	// history. Nil means unset.
	Store *bool `toml:"store"`
}

func (m Modifiers) blocksStorage() bool {
	return m.PreventStorage || (m.Store != nil && !*m.Store)
}

// TriggerType selects how data fetching is sequenced against the transition.
type TriggerType string

const (
	// TriggerOn puts the app in the Loading state, cleans up the old page,
	// fetches, then transitions.
	TriggerOn TriggerType = "on"

	// TriggerBefore fetches while the old page stays visible, then
	// transitions.
	TriggerBefore TriggerType = "before"

	// TriggerAfter transitions first and fetches once the new page is visible.
	TriggerAfter TriggerType = "after"
)

// ProviderFunc fetches data for a page. The page is passed directly; params
// hold the URL values and navigation register.
type ProviderFunc func(ctx context.Context, page Page, params Params) error

// ProviderBinding binds a data provider to a route.
type ProviderBinding struct {
	Callback ProviderFunc
	Expires  time.Duration
	Trigger  TriggerType
}

// registry holds everything registered against route patterns. It is owned
// by a Router and guarded by its lock.
type registry struct {
	stacks    map[string][]Handler
	order     []string
	compiled  map[string]*compiledRoute
	modifiers map[string]Modifiers
	providers map[string]ProviderBinding
	widgets   map[string][]string
}

func newRegistry() *registry {
	return &registry{
		stacks:    make(map[string][]Handler),
		compiled:  make(map[string]*compiledRoute),
		modifiers: make(map[string]Modifiers),
		providers: make(map[string]ProviderBinding),
		widgets:   make(map[string][]string),
	}
}

func (g *registry) hasPage(route string) bool {
	_, idx, ok := g.pageEntry(route)
	return ok && idx >= 0
}

// pageEntry returns the first page-bearing handler of route and its index.
func (g *registry) pageEntry(route string) (Handler, int, bool) {
	for i, h := range g.stacks[route] {
		if h.IsPageBearing() {
			return h, i, true
		}
	}
	return Handler{}, -1, false
}

// slotOf returns the index of the instance handler holding page, or -1.
func (g *registry) slotOf(route string, page Page) int {
	for i, h := range g.stacks[route] {
		if h.kind == KindInstance && h.page == page {
			return i
		}
	}
	return -1
}

func (g *registry) setSlot(route string, index int, h Handler) {
	stack := g.stacks[route]
	if index < 0 || index >= len(stack) {
		return
	}
	stack[index] = h
}

func (g *registry) add(route string, h Handler, compiled *compiledRoute) {
	if _, ok := g.stacks[route]; !ok {
		g.order = append(g.order, route)
		g.compiled[route] = compiled
	}
	g.stacks[route] = append(g.stacks[route], h)
}

// Route registers a handler for a route pattern.
//
// A pattern may hold one page-bearing handler (instance, constructor or
// async loader) and any number of callbacks. A second page-bearing handler is
// logged and ignored. Modifiers are only recorded when the pattern is first
// registered.
//
// Unless Config.LazyCreate is set, constructors are instantiated and
// attached to the view host right away.
func (r *Router) Route(pattern string, h Handler, mods ...Modifiers) error {
	if err := h.validate(); err != nil {
		return NewConfigError("route", pattern, err)
	}

	pattern = normalizePattern(pattern)
	compiled, err := compileRoute(pattern)
	if err != nil {
		return NewConfigError("route", pattern, err)
	}

	r.mu.Lock()
	_, exists := r.registry.stacks[pattern]
	conflict := h.IsPageBearing() && r.registry.hasPage(pattern)
	r.mu.Unlock()

	if conflict {
		r.logger.Warn("page for route already exists",
			"route", pattern, "error", ErrRegistrationConflict)
		return nil
	}

	if h.IsPageBearing() && !r.Config().LazyCreate {
		h, err = r.eager(h)
		if err != nil {
			return NewConfigError("route", pattern, err)
		}
	}

	r.mu.Lock()
	if h.IsPageBearing() && r.registry.hasPage(pattern) {
		r.mu.Unlock()
		r.logger.Warn("page for route already exists",
			"route", pattern, "error", ErrRegistrationConflict)
		if h.kind == KindInstance {
			r.views.Detach(h.page)
		}
		return nil
	}
	r.registry.add(pattern, h, compiled)
	if !exists && len(mods) > 0 {
		r.registry.modifiers[pattern] = mods[0]
	}
	r.mu.Unlock()

	r.logger.Debug("route registered", "route", pattern, "kind", h.kind.String())
	return nil
}

// eager creates and attaches the page of a handler at registration time.
// Async loaders are always deferred to first load.
func (r *Router) eager(h Handler) (Handler, error) {
	switch h.kind {
	case KindConstructor:
		page, err := r.create(h.factory)
		if err != nil {
			return h, err
		}
		r.views.Attach(page)
		return Instance(page), nil
	case KindInstance:
		r.views.Attach(h.page)
	}
	return h, nil
}

// Root registers a route and makes it the landing hash used when the router
// starts without a location.
func (r *Router) Root(pattern string, h Handler, mods ...Modifiers) error {
	r.mu.Lock()
	r.rootHash = normalizePattern(pattern)
	r.rootSet = true
	r.mu.Unlock()
	return r.Route(pattern, h, mods...)
}

// RootFunc sets a function resolving the landing hash at start.
func (r *Router) RootFunc(fn func(ctx context.Context) (string, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rootFunc = fn
}

// Widget declares which widgets are visible while route is active. Widget
// references are matched case-insensitively. Only the first registration for
// a route counts.
func (r *Router) Widget(pattern string, refs ...string) {
	pattern = normalizePattern(pattern)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.registry.widgets[pattern]; ok {
		r.logger.Warn("widgets already exist for route",
			"route", pattern, "error", ErrRegistrationConflict)
		return
	}
	r.registry.widgets[pattern] = append([]string(nil), refs...)
}

// On binds a data provider to a route. The page's data is considered fresh
// for expires after each successful fetch. Only the first binding for a
// route counts.
func (r *Router) On(pattern string, cb ProviderFunc, expires time.Duration, trigger TriggerType) {
	if trigger == "" {
		trigger = TriggerOn
	}
	pattern = normalizePattern(pattern)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.registry.providers[pattern]; ok {
		r.logger.Warn("provider for route already exists",
			"route", pattern, "error", ErrRegistrationConflict)
		return
	}
	r.registry.providers[pattern] = ProviderBinding{
		Callback: cb,
		Expires:  expires,
		Trigger:  trigger,
	}
}

// Before binds a provider that runs while the previous page stays visible.
func (r *Router) Before(pattern string, cb ProviderFunc, expires time.Duration) {
	r.On(pattern, cb, expires, TriggerBefore)
}

// After binds a provider that runs once the new page is visible.
func (r *Router) After(pattern string, cb ProviderFunc, expires time.Duration) {
	r.On(pattern, cb, expires, TriggerAfter)
}

// Routes returns the registered patterns in registration order.
func (r *Router) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.registry.order...)
}

// Handlers returns a copy of the handler stack of a route.
func (r *Router) Handlers(pattern string) []Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Handler(nil), r.registry.stacks[normalizePattern(pattern)]...)
}

// Provider returns the provider binding of a route.
func (r *Router) Provider(pattern string) (ProviderBinding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.registry.providers[normalizePattern(pattern)]
	return b, ok
}

// WidgetsFor returns the widget references registered for a route.
func (r *Router) WidgetsFor(pattern string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.registry.widgets[normalizePattern(pattern)]...)
}

// RouteModifiers returns the modifiers registered with a route.
func (r *Router) RouteModifiers(pattern string) Modifiers {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.modifiers[normalizePattern(pattern)]
}
