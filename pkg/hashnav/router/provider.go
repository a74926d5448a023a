package router

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/constants"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// runTrigger sequences data fetching for page against the transition from
// old, as chosen by the binding's trigger.
func (r *Router) runTrigger(ctx context.Context, b ProviderBinding, page, old Page, oldRoute, route, hash string) error {
	if old == page {
		old = nil
	}

	switch b.Trigger {
	case TriggerBefore:
		return r.triggerBefore(ctx, b, page, old, oldRoute, route, hash)
	case TriggerAfter:
		return r.triggerAfter(ctx, b, page, old, oldRoute, route, hash)
	case TriggerOn:
		return r.triggerOn(ctx, b, page, old, oldRoute, route, hash)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedTrigger, b.Trigger)
	}
}

// triggerBefore fetches while old stays visible, transitions, then cleans up.
func (r *Router) triggerBefore(ctx context.Context, b ProviderBinding, page, old Page, oldRoute, route, hash string) error {
	params := r.providePageData(page, route, hash)
	if err := r.fetch(ctx, b, page, route, params); err != nil {
		return err
	}

	r.doTransition(ctx, page, old)
	r.markFresh(page, b.Expires)

	if old != nil {
		r.cleanup(old, oldRoute)
	}
	return nil
}

// triggerAfter transitions and cleans up first, then fetches.
func (r *Router) triggerAfter(ctx context.Context, b ProviderBinding, page, old Page, oldRoute, route, hash string) error {
	r.doTransition(ctx, page, old)
	if old != nil {
		r.cleanup(old, oldRoute)
	}

	params := r.providePageData(page, route, hash)
	if err := r.fetch(ctx, b, page, route, params); err != nil {
		return err
	}

	r.markFresh(page, b.Expires)
	return nil
}

// triggerOn holds the Loading state while old is cleaned up, data is fetched
// and the transition runs.
func (r *Router) triggerOn(ctx context.Context, b ProviderBinding, page, old Page, oldRoute, route, hash string) error {
	r.setState(constants.StateLoading)
	defer r.setState(constants.StateIdle)

	destroyed := false
	if old != nil {
		destroyed = r.cleanup(old, oldRoute)
	}

	params := r.providePageData(page, route, hash)
	if err := r.fetch(ctx, b, page, route, params); err != nil {
		return err
	}

	out := old
	if destroyed {
		out = nil
	}
	r.doTransition(ctx, page, out)
	r.markFresh(page, b.Expires)
	return nil
}

// fetch runs the provider callback. Panics are returned as errors.
func (r *Router) fetch(ctx context.Context, b ProviderBinding, page Page, route string, params Params) (err error) {
	ctx, span := r.tracer.Start(ctx, "hashnav.provide", trace.WithAttributes(
		attribute.String("hashnav.route", route),
		attribute.String("hashnav.trigger", string(b.Trigger)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			err = panicError("provider", v)
		}
		r.metrics.providerDuration.WithLabelValues(string(b.Trigger)).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if b.Callback == nil {
		return nil
	}
	return b.Callback(ctx, page, maps.Clone(params))
}
