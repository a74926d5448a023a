package router

import (
	"errors"
	"fmt"
	"time"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/constants"
)

// RouteConfig declares one route for Add.
type RouteConfig struct {
	Path string

	// Component is the page-bearing handler of the route. With Async set it
	// must be built with AsyncLoader.
	Component Handler
	Async     bool

	// Hook is registered as a callback when Component is unset.
	Hook CallbackFunc

	Options Modifiers
	Widgets []string

	// On, Before and After bind a data provider with the matching trigger.
	// Only the first one set takes effect.
	On     ProviderFunc
	Before ProviderFunc
	After  ProviderFunc

	// Cache is how long provided data stays fresh.
	Cache time.Duration
}

// RoutesConfig declares a whole route table for Add.
type RoutesConfig struct {
	// Root is the landing hash used when the router starts without one.
	Root string

	Boot BootFunc

	// BootComponent is registered as the boot page.
	BootComponent Handler

	// UpdateHash overrides Config.UpdateHash when set.
	UpdateHash *bool

	Routes []RouteConfig
}

// Add registers a route table. Every route is validated before anything is
// registered; a route flagged Async without an async loader component is a
// ConfigError wrapping ErrAsyncMisuse. Root, Boot, BootComponent and
// UpdateHash are only applied by the first call.
func (r *Router) Add(cfg RoutesConfig) error {
	for _, rc := range cfg.Routes {
		if rc.Async && rc.Component.kind != KindAsyncLoader {
			return NewConfigError("add", rc.Path, ErrAsyncMisuse)
		}
		if rc.Component.IsZero() && rc.Hook == nil {
			return NewConfigError("add", rc.Path,
				fmt.Errorf("%w: route needs a component or a hook", ErrInvalidHandler))
		}
	}

	r.mu.Lock()
	first := !r.initialised
	r.initialised = true
	if first {
		if cfg.Root != "" {
			r.rootHash = normalizePattern(cfg.Root)
			r.rootSet = true
		}
		if cfg.Boot != nil {
			r.bootFunc = cfg.Boot
		}
	}
	r.mu.Unlock()

	if first {
		if !cfg.BootComponent.IsZero() {
			if err := r.Route(constants.RouteBootPage, cfg.BootComponent); err != nil {
				return err
			}
		}
		if cfg.UpdateHash != nil {
			r.updateHash.Store(*cfg.UpdateHash)
		}
	}

	var errs []error
	for _, rc := range cfg.Routes {
		h := rc.Component
		if h.IsZero() {
			h = Callback(rc.Hook)
		}
		if err := r.Route(rc.Path, h, rc.Options); err != nil {
			errs = append(errs, err)
			continue
		}

		if len(rc.Widgets) > 0 {
			r.Widget(rc.Path, rc.Widgets...)
		}

		switch {
		case rc.On != nil:
			r.On(rc.Path, rc.On, rc.Cache, TriggerOn)
		case rc.Before != nil:
			r.Before(rc.Path, rc.Before, rc.Cache)
		case rc.After != nil:
			r.After(rc.Path, rc.After, rc.Cache)
		}
	}
	return errors.Join(errs...)
}
