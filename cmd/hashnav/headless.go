package main

import (
	"context"
	"log/slog"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/config"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/router"
)

// page stands in for a view when the router runs without a UI. It logs
// the lifecycle notifications it receives.
type page struct {
	route  string
	logger *slog.Logger
}

func (p *page) OnURLParams(params router.Params) {
	p.logger.Debug("url params", "route", p.route, "params", map[string]any(params))
}

func (p *page) OnDataProvided() {
	p.logger.Info("data provided", "route", p.route)
}

func (p *page) OnMounted() {
	p.logger.Info("mounted", "route", p.route)
}

func (p *page) OnChanged() {
	p.logger.Info("changed", "route", p.route)
}

func (p *page) SetPageError(err *router.PageError) {
	p.logger.Error("page error", "route", err.Route, "hash", err.Hash, "error", err.Err)
}

// headless binds every configured route to a logging page and every
// provider to a no-op fetch.
func headless(logger *slog.Logger) hashnav.Bindings {
	return hashnav.Bindings{
		Handler: func(route config.Route) (router.Handler, bool) {
			path := route.Path
			return router.Constructor(func() router.Page {
				return &page{route: path, logger: logger}
			}), true
		},
		Provider: func(route config.Route) (router.ProviderFunc, bool) {
			return func(ctx context.Context, _ router.Page, params router.Params) error {
				logger.Info("provide", "route", route.Path,
					"navigation_id", router.NavigationID(ctx), "params", map[string]any(params))
				return nil
			}, true
		},
	}
}
