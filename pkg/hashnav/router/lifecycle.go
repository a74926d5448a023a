package router

import (
	"context"
	"fmt"
	"time"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/constants"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/internal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// load makes the page of route active for hash. It resolves or creates the
// page, provides its data according to the route's provider binding, runs
// the transition and cleans up the previously active page.
//
// Provider failures are routed to the error page and do not make load fail.
// Errors are returned only when no page could be produced at all.
func (r *Router) load(ctx context.Context, route, hash string) (Page, error) {
	ctx, span := r.tracer.Start(ctx, "hashnav.load", trace.WithAttributes(
		attribute.String("hashnav.route", route),
		attribute.String("hashnav.hash", hash),
	))
	defer span.End()

	r.mu.Lock()
	h, idx, ok := r.registry.pageEntry(route)
	binding, hasBinding := r.registry.providers[route]
	prev := r.active.page
	prevRoute := r.active.route
	r.mu.Unlock()

	if !ok {
		err := fmt.Errorf("%w: %q", ErrNoPageHandler, route)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var (
		page    Page
		provide bool
		shared  bool
		created bool
	)

	switch h.kind {
	case KindInstance:
		page = h.page
		if hasBinding {
			r.mu.Lock()
			meta, seen := r.pages.get(page)
			provide = !seen || meta.Expired(r.now()) || meta.Hash != hash
			r.mu.Unlock()
		}
		shared = prev != nil && prevRoute == route

	case KindConstructor, KindAsyncLoader:
		factory := h.factory
		if h.kind == KindAsyncLoader {
			f, err := r.resolveLoader(ctx, h.loader)
			if err != nil {
				r.metrics.pageLoads.WithLabelValues(route, outcomeFailed).Inc()
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, fmt.Errorf("loading %q: %w", route, err)
			}
			factory = f
		}

		p, err := r.create(factory)
		if err != nil {
			r.metrics.pageLoads.WithLabelValues(route, outcomeFailed).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("creating %q: %w", route, err)
		}
		r.views.Attach(p)
		page = r.claimSlot(route, idx, p)
		provide = hasBinding
		created = page == p
	}

	r.mu.Lock()
	meta := r.pages.ensure(page)
	meta.Hash = hash
	meta.Route = route
	r.mu.Unlock()

	handled := false

	switch {
	case shared && provide:
		params := r.providePageData(page, route, hash)
		if err := r.fetch(ctx, binding, page, route, params); err != nil {
			handled = r.handleError(ctx, page, route, err)
		} else {
			r.markFresh(page, binding.Expires)
			emit(page, params, EventDataProvided, EventChanged)
		}

	case shared:
		params := r.providePageData(page, route, hash)
		emit(page, params, EventChanged)

	case provide:
		if err := r.runTrigger(ctx, binding, page, prev, prevRoute, route, hash); err != nil {
			handled = r.handleError(ctx, page, route, err)
		} else {
			emit(page, nil, EventDataProvided, mountEvent(created))
		}

	default:
		r.providePageData(page, route, hash)
		r.doTransition(ctx, page, prev)
		if prev != nil && prev != page {
			r.cleanup(prev, prevRoute)
		}
		emit(page, nil, mountEvent(created))
	}

	if handled {
		return r.ActivePage(), nil
	}

	r.mu.Lock()
	r.active = activeState{page: page, route: route, hash: hash}
	r.mu.Unlock()

	r.updateWidgets(page, route)

	outcome := outcomeReused
	if created {
		outcome = outcomeCreated
	}
	r.metrics.pageLoads.WithLabelValues(route, outcome).Inc()

	id := NavigationID(ctx)
	r.logger.Info("route loaded", "route", route, "hash", hash, "navigation_id", id)
	r.notify(Navigation{ID: id, Route: route, Hash: hash, Page: page})

	return page, nil
}

func mountEvent(created bool) Event {
	if created {
		return EventMounted
	}
	return EventChanged
}

// claimSlot writes a freshly created page into the stack slot at index. If a
// concurrent load filled the slot first, that page wins and p is discarded.
func (r *Router) claimSlot(route string, index int, p Page) Page {
	r.mu.Lock()
	stack := r.registry.stacks[route]
	if index >= 0 && index < len(stack) && stack[index].kind == KindInstance && stack[index].page != p {
		existing := stack[index].page
		r.pages.remove(p)
		r.mu.Unlock()
		r.views.Detach(p)
		return existing
	}
	r.registry.setSlot(route, index, Instance(p))
	r.mu.Unlock()
	return p
}

// create instantiates a page and records its factory so cleanup can destroy
// it later.
func (r *Router) create(factory PageFactory) (page Page, err error) {
	defer func() {
		if v := recover(); v != nil {
			page, err = nil, panicError("page factory", v)
		}
	}()

	page = factory()
	if page == nil {
		return nil, fmt.Errorf("%w: factory returned nil page", ErrInvalidHandler)
	}
	if !isComparable(page) {
		return nil, fmt.Errorf("%w: %T", ErrNonComparablePage, page)
	}

	r.mu.Lock()
	r.pages.ensure(page).factory = factory
	r.mu.Unlock()

	if rcv, ok := page.(WidgetsReceiver); ok && r.widgets != nil {
		rcv.SetWidgets(r.widgetMap())
	}
	return page, nil
}

func (r *Router) resolveLoader(ctx context.Context, loader AsyncLoaderFunc) (factory PageFactory, err error) {
	defer func() {
		if v := recover(); v != nil {
			factory, err = nil, panicError("async loader", v)
		}
	}()

	factory, err = loader(ctx)
	if err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: async loader returned nil factory", ErrInvalidHandler)
	}
	return factory, nil
}

// providePageData hands URL values and the navigation register to page.
func (r *Router) providePageData(page Page, route, hash string) Params {
	r.mu.Lock()
	values := r.urlParamsLocked(route, hash)
	params := make(Params, len(values)+len(r.register))
	for k, v := range values {
		params[k] = v
	}
	var persist map[string]any
	if len(r.register) > 0 {
		persist = make(map[string]any, len(r.register))
		for k, v := range r.register {
			params[k] = v
			persist[k] = v
		}
	}
	r.mu.Unlock()

	if rcv, ok := page.(DataReceiver); ok {
		rcv.SetPageData(PageData{Params: params, Persist: persist})
	}
	emit(page, params, EventURLParams)
	return params
}

// markFresh stamps the expiry of page's data. An expiry of zero leaves the
// data stale right away.
func (r *Router) markFresh(page Page, expires time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages.ensure(page).ExpiresAt = r.now().Add(expires)
}

// handleError expires page and loads the error route with the failure. It
// reports whether the error page took over.
func (r *Router) handleError(ctx context.Context, page Page, route string, err error) bool {
	r.mu.Lock()
	meta := r.pages.ensure(page)
	meta.ExpiresAt = r.now()
	hash := meta.Hash
	hasErrorRoute := r.registry.hasPage(constants.RouteError)
	r.mu.Unlock()

	r.metrics.providerFailures.WithLabelValues(route).Inc()

	if route == constants.RouteError || !hasErrorRoute {
		r.logger.Error("providing page data failed",
			"route", route, "hash", hash, "navigation_id", NavigationID(ctx), "error", err)
		return false
	}

	errorPage, loadErr := r.load(ctx, constants.RouteError, hash)
	if loadErr != nil {
		r.logger.Error("loading error page failed",
			"route", route, "hash", hash, "error", loadErr, "cause", err)
		return false
	}
	if errorPage != page {
		r.views.SetVisible(page, false)
	}

	if rcv, ok := errorPage.(ErrorReceiver); ok {
		rcv.SetPageError(&PageError{Page: page, Route: route, Hash: hash, Err: err})
	}

	if r.State() == constants.StateLoading {
		r.setState(constants.StateIdle)
	}

	r.mu.Lock()
	r.active = activeState{page: errorPage, route: constants.RouteError, hash: hash}
	r.mu.Unlock()
	return true
}

// cleanup destroys page when the cleanup policy asks for it. Only pages the
// router created from a factory can be destroyed; their stack slot goes back
// to the factory so the next load creates a fresh instance.
func (r *Router) cleanup(page Page, route string) bool {
	cfg := r.Config()

	r.mu.Lock()
	keepAlive := cfg.KeepAlive || truthy(r.register[constants.RegisterKeepAlive])
	fromHistory := truthy(r.register[constants.RegisterFromBack])
	destroy := (fromHistory && (cfg.DestroyOnHistoryBack || cfg.LazyDestroy)) ||
		(cfg.LazyDestroy && !keepAlive)
	if !destroy {
		r.mu.Unlock()
		return false
	}

	meta, ok := r.pages.get(page)
	if !ok || meta.factory == nil {
		r.mu.Unlock()
		r.logger.Debug("page kept, it was not created by the router", "route", route)
		return false
	}
	idx := r.registry.slotOf(route, page)
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	r.registry.setSlot(route, idx, Constructor(meta.factory))
	r.pages.remove(page)
	r.mu.Unlock()

	r.views.Detach(page)
	if cfg.GCOnUnload {
		r.views.Reclaim()
	}
	r.logger.Debug("page destroyed", "route", route, "from_history", fromHistory)
	return true
}

func (r *Router) widgetMap() map[string]Widget {
	out := make(map[string]Widget)
	for _, w := range r.widgets.Widgets() {
		out[internal.Fold(w.Ref())] = w
	}
	return out
}

// updateWidgets shows the widgets registered for route and hides the rest.
func (r *Router) updateWidgets(page Page, route string) {
	if r.widgets == nil {
		return
	}

	r.mu.Lock()
	if len(r.registry.widgets) == 0 {
		r.mu.Unlock()
		return
	}
	configured := make(map[string]bool)
	for _, ref := range r.registry.widgets[route] {
		configured[internal.Fold(ref)] = true
	}
	r.mu.Unlock()

	for _, w := range r.widgets.Widgets() {
		visible := configured[internal.Fold(w.Ref())]
		w.SetVisible(visible)
		if !visible {
			continue
		}
		if l, ok := w.(WidgetActivatedListener); ok {
			l.OnActivated(page)
		}
	}
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
