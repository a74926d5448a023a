package router

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/constants"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/internal"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Navigation kinds recorded on navigations_total.
const (
	kindNavigate  = "navigate"
	kindBack      = "back"
	kindBacktrack = "backtrack"
	kindCapture   = "capture"
	kindBoot      = "boot"
	kindRoot      = "root"
	kindResume    = "resume"
)

type navigationIDKey struct{}

// NavigationID returns the id of the navigation ctx belongs to, or "".
func NavigationID(ctx context.Context) string {
	id, _ := ctx.Value(navigationIDKey{}).(string)
	return id
}

func withNavigationID(ctx context.Context) context.Context {
	if NavigationID(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, navigationIDKey{}, uuid.NewString())
}

type navigateOptions struct {
	args  map[string]any
	store bool
}

// NavigateOption configures a single Navigate call.
type NavigateOption func(*navigateOptions)

// WithArgs puts args in the navigation register. The next page receives
// them as params and persist data.
func WithArgs(args map[string]any) NavigateOption {
	return func(o *navigateOptions) {
		for k, v := range args {
			o.args[k] = v
		}
	}
}

// WithoutHistory keeps the hash being left out of the history.
func WithoutHistory() NavigateOption {
	return func(o *navigateOptions) {
		o.store = false
	}
}

// WithReload processes the target even when it is already the current hash.
func WithReload() NavigateOption {
	return func(o *navigateOptions) {
		o.args[constants.RegisterReload] = true
	}
}

// WithKeepAlive keeps the page being left alive regardless of LazyDestroy.
func WithKeepAlive() NavigateOption {
	return func(o *navigateOptions) {
		o.args[constants.RegisterKeepAlive] = true
	}
}

// Navigate goes to target.
//
// The register is reset to the call's args. The current hash is stored in
// the history unless WithoutHistory is given or its route blocks storage.
// A target route with ClearHistory empties the history. When location
// updates are enabled the target is written to the Location; either way the
// target is processed before Navigate returns.
func (r *Router) Navigate(ctx context.Context, target string, opts ...NavigateOption) error {
	return r.navigate(ctx, target, kindNavigate, opts...)
}

func (r *Router) navigate(ctx context.Context, target, kind string, opts ...NavigateOption) error {
	o := navigateOptions{args: make(map[string]any), store: true}
	for _, opt := range opts {
		opt(&o)
	}

	ctx = withNavigationID(ctx)
	ctx, span := r.tracer.Start(ctx, "hashnav.navigate", trace.WithAttributes(
		attribute.String("hashnav.target", target),
		attribute.String("hashnav.kind", kind),
		attribute.String("hashnav.navigation_id", NavigationID(ctx)),
	))
	defer span.End()

	r.navCount.Inc()
	r.metrics.navigations.WithLabelValues(kind).Inc()

	target = strings.TrimLeft(target, "#")
	cfg := r.Config()
	update := r.mustUpdateHash()

	// raw keeps "/" apart from an absent hash; current is its matchable form.
	var raw string
	if update {
		raw = strings.TrimLeft(r.location.Hash(), "#")
	}

	r.mu.Lock()
	if !update {
		raw = r.forcedHash
		if raw == "" {
			raw = strings.TrimLeft(r.location.Hash(), "#")
		}
	}
	current := normalizeHash(raw)

	r.register = o.args

	if hasHash(raw) && o.store {
		from, _ := r.matchLocked(current)
		if !r.registry.modifiers[from].blocksStorage() {
			r.history.Push(canonicalHash(raw), cfg.StoreSameHash)
		}
	}

	if to, ok := r.matchLocked(target); ok && r.registry.modifiers[to].ClearHistory {
		r.history.Clear()
	}

	depth := r.history.Len()
	reload := truthy(r.register[constants.RegisterReload])
	r.mu.Unlock()

	r.metrics.historyDepth.Set(float64(depth))
	r.logger.Debug("navigate",
		"target", target, "from", current, "kind", kind, "navigation_id", NavigationID(ctx))

	if !hasHash(raw) || !sameHash(raw, target) {
		if !update {
			r.mu.Lock()
			r.forcedHash = target
			r.mu.Unlock()
			return r.HandleHashChange(ctx, target)
		}
		r.expectEcho(target)
		r.location.SetHash(target)
		return r.HandleHashChange(ctx, target)
	}

	if reload {
		return r.HandleHashChange(ctx, current)
	}
	return nil
}

// sameHash compares two hashes ignoring a leading '#', leading and trailing
// slashes. The query string counts.
func sameHash(a, b string) bool {
	return canonicalHash(a) == canonicalHash(b)
}

// hasHash reports whether raw names a location, "/" included. A bare query
// string does not.
func hasHash(raw string) bool {
	path, _, _ := strings.Cut(strings.TrimLeft(raw, "#"), "?")
	return path != ""
}

func canonicalHash(h string) string {
	h = strings.TrimLeft(h, "#")
	path, query, hasQuery := strings.Cut(h, "?")
	path = strings.Trim(path, "/")
	if hasQuery {
		return path + "?" + query
	}
	return path
}

// expectEcho records that the next change notification for hash was caused
// by the router itself.
func (r *Router) expectEcho(hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unsubscribe == nil {
		return
	}
	r.echo[normalizeHash(hash)]++
}

func (r *Router) onLocationChange(hash string) {
	key := normalizeHash(hash)

	r.mu.Lock()
	if n := r.echo[key]; n > 0 {
		if n == 1 {
			delete(r.echo, key)
		} else {
			r.echo[key] = n - 1
		}
		r.mu.Unlock()
		return
	}
	ctx := r.baseCtx
	r.mu.Unlock()

	if err := r.HandleHashChange(ctx, hash); err != nil {
		r.logger.Error("handling location change failed", "hash", hash, "error", err)
	}
}

// HandleHashChange resolves hash, or the current hash when hash is empty, and
// runs the handler stack of the matched route from last registered to first.
// Unmatched hashes load the "*" route when one is registered and are ignored
// otherwise.
func (r *Router) HandleHashChange(ctx context.Context, hash string) error {
	if hash == "" {
		hash = r.Hash()
	}
	hash = normalizeHash(hash)
	ctx = withNavigationID(ctx)

	r.mu.Lock()
	route, ok := r.matchLocked(hash)
	var stack []Handler
	if ok {
		stack = append(stack, r.registry.stacks[route]...)
	}
	hasNotFound := r.registry.hasPage(constants.RouteNotFound)
	r.mu.Unlock()

	if !ok {
		if !hasNotFound {
			r.logger.Debug("no route for hash", "hash", hash, "error", ErrRouteNotFound)
			return nil
		}
		page, err := r.load(ctx, constants.RouteNotFound, hash)
		if err != nil {
			return err
		}
		r.refocus(page)
		return nil
	}

	var errs []error
	for i := len(stack) - 1; i >= 0; i-- {
		h := stack[i]
		if !h.IsPageBearing() {
			r.runCallback(ctx, h.callback, route, hash)
			continue
		}
		page, err := r.load(ctx, route, hash)
		if err != nil {
			r.logger.Error("loading page failed", "route", route, "hash", hash, "error", err)
			errs = append(errs, err)
			continue
		}
		r.refocus(page)
	}
	return errors.Join(errs...)
}

func (r *Router) runCallback(ctx context.Context, cb CallbackFunc, route, hash string) {
	r.mu.Lock()
	values := r.urlParamsLocked(route, hash)
	r.mu.Unlock()

	params := make(Params, len(values))
	for k, v := range values {
		params[k] = v
	}

	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("route callback failed", "route", route, "error", panicError("callback", v))
		}
	}()
	cb(ctx, params)
}

// Step moves through the history. Only negative directions do anything: the
// most recent history entry is popped and navigated to without being stored
// again. With an empty history and Config.Backtrack set, shorter prefixes of
// the current hash are tried instead. When nothing is left the OnClose hook
// runs. Step reports whether it handled the request.
func (r *Router) Step(ctx context.Context, direction int) (bool, error) {
	if direction >= 0 {
		return false, nil
	}

	r.mu.Lock()
	empty := r.history.IsEmpty()
	prev, _ := r.history.Pop()
	depth := r.history.Len()
	r.mu.Unlock()

	// An empty entry is the root "/".
	if !empty {
		r.metrics.historyDepth.Set(float64(depth))
		return true, r.navigate(ctx, "/"+prev, kindBack, WithoutHistory(), WithArgs(map[string]any{
			constants.RegisterBacktrack: true,
			constants.RegisterFromBack:  true,
		}))
	}

	if r.Config().Backtrack {
		parts := splitSegments(StripRegex(r.Hash(), "R"))
		if len(parts) > 1 {
			for n := len(parts) - 1; n >= 0; n-- {
				candidate := "/" + strings.Join(parts[:n], "/")
				if _, ok := r.Match(candidate); !ok {
					continue
				}
				return true, r.navigate(ctx, candidate, kindBacktrack, WithoutHistory(), WithArgs(map[string]any{
					constants.RegisterFromBack: true,
				}))
			}
		}
	}

	if r.onClose != nil {
		r.onClose()
		return true, nil
	}
	return false, nil
}

// Capture navigates to the Nth registered route, 1-based in registration
// order, for a digit key. It does nothing unless Config.NumberNavigation is
// set.
func (r *Router) Capture(ctx context.Context, key constants.NavKey) (bool, error) {
	if !r.Config().NumberNavigation || !key.IsDigit() {
		return false, nil
	}

	routes := r.Routes()
	n := key.Digit()
	if n < 1 || n > len(routes) {
		return false, nil
	}
	return true, r.navigate(ctx, routes[n-1], kindCapture)
}

// Boot sets a function that runs before the first navigation.
func (r *Router) Boot(fn BootFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bootFunc = fn
}

// Start subscribes to the Location, runs the boot function and performs the
// first navigation: to the boot page when one is registered, to the root when
// the location is empty, or to the current hash otherwise.
func (r *Router) Start(ctx context.Context) error {
	r.mu.Lock()
	r.baseCtx = ctx
	if n, ok := r.location.(Notifier); ok && r.unsubscribe == nil {
		r.unsubscribe = n.Subscribe(r.onLocationChange)
	}
	boot := r.bootFunc
	root := rootTarget(r.rootHash)
	rootFn := r.rootFunc
	hasRoot := r.hasRoot()
	_, hasBootPage := r.registry.stacks[constants.RouteBootPage]
	r.mu.Unlock()

	raw := strings.TrimLeft(r.location.Hash(), "#")
	hash := normalizeHash(raw)

	if boot != nil {
		if err := boot(ctx, queryValues(raw)); err != nil {
			return fmt.Errorf("boot: %w", err)
		}
	}

	switch {
	case hasBootPage:
		resume := hash
		if strings.Contains(raw, constants.RouteBootPage) || hash == "" {
			resume = root
		}
		return r.navigate(ctx, constants.RouteBootPage, kindBoot, WithArgs(map[string]any{
			constants.RegisterResume: resume,
			constants.RegisterReload: true,
		}))

	case hash == "" && (hasRoot || rootFn != nil):
		target := root
		if rootFn != nil {
			resolved, err := rootFn(ctx)
			if err != nil {
				return fmt.Errorf("resolving root: %w", err)
			}
			target = resolved
		}
		if hasHash(raw) && sameHash(target, raw) {
			return r.HandleHashChange(ctx, target)
		}
		return r.navigate(ctx, target, kindRoot)

	default:
		return r.HandleHashChange(ctx, raw)
	}
}

// rootTarget turns the normalized root pattern back into a hash; the root
// "/" normalizes to "".
func rootTarget(pattern string) string {
	if pattern == "" {
		return "/"
	}
	return pattern
}

func (r *Router) hasRoot() bool {
	return r.rootSet
}

func queryValues(raw string) url.Values {
	i := strings.IndexByte(raw, '?')
	if i < 0 {
		return url.Values{}
	}
	values, _ := url.ParseQuery(raw[i+1:])
	if values == nil {
		values = url.Values{}
	}
	return values
}

// Resume continues a navigation deferred by the boot page: to the stored
// resume hash when it matches a route, to the root otherwise. The boot page
// is not stored in the history.
func (r *Router) Resume(ctx context.Context) error {
	r.mu.Lock()
	v, ok := r.register[constants.RegisterResume]
	root := rootTarget(r.rootHash)
	hasRoot := r.hasRoot()
	r.mu.Unlock()

	if !ok {
		return nil
	}

	hash, _ := v.(string)
	hash = strings.TrimLeft(hash, "#")
	if hash != "" {
		if _, ok := r.Match(hash); ok {
			return r.navigate(ctx, hash, kindResume, WithoutHistory())
		}
	}
	if hasRoot {
		return r.navigate(ctx, root, kindResume, WithoutHistory())
	}
	return nil
}

// FocusWidget hands focus to the widget with the given reference and moves
// the app to the Widgets state. It reports whether the widget exists.
func (r *Router) FocusWidget(name string) bool {
	if name == "" || r.widgets == nil {
		return false
	}

	var found Widget
	for _, w := range r.widgets.Widgets() {
		if internal.EqualFold(w.Ref(), name) {
			found = w
			break
		}
	}
	if found == nil {
		return false
	}

	r.mu.Lock()
	r.activeWidget = found.Ref()
	r.mu.Unlock()

	if r.State() == constants.StateWidgets {
		if r.onStateChange != nil {
			r.onStateChange(constants.StateWidgets)
		}
		return true
	}
	r.setState(constants.StateWidgets)
	return true
}

// RestoreFocus returns focus to the pages.
func (r *Router) RestoreFocus() {
	r.setState(constants.StatePages)
}

// HandleRemote applies a focus request from a remote: "widget" focuses the
// named widget, "page" restores focus to the pages.
func (r *Router) HandleRemote(kind, name string) bool {
	switch kind {
	case "widget":
		return r.FocusWidget(name)
	case "page":
		r.RestoreFocus()
		return true
	default:
		return false
	}
}

// Restore returns focus to the pages when Config.AutoRestoreRemote is set.
func (r *Router) Restore() bool {
	if !r.Config().AutoRestoreRemote {
		return false
	}
	return r.HandleRemote("page", "")
}
