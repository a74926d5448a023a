package router

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TransitionCrossFade is the default transition. Without an animating view
// host it shows the incoming page and hides the outgoing one.
const TransitionCrossFade = "crossFade"

// TransitionFunc swaps out for in. It returns once the swap is complete.
type TransitionFunc func(ctx context.Context, in, out Page) error

// Transition selects a transition by name, or runs a custom function when Run
// is set.
type Transition struct {
	Name string
	Run  TransitionFunc
}

// Transitioner is implemented by pages that pick their own transition.
type Transitioner interface {
	PageTransition(in, out Page) (Transition, error)
}

// RegisterTransition makes fn available under name.
func (r *Router) RegisterTransition(name string, fn TransitionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions[name] = fn
}

func (r *Router) crossFade(_ context.Context, in, out Page) error {
	r.toggle(in, out)
	return nil
}

func (r *Router) toggle(in, out Page) {
	if out != nil && out != in {
		r.views.SetVisible(out, false)
	}
	if in != nil {
		r.views.SetVisible(in, true)
	}
}

// doTransition runs the transition from out to in. Failures fall back to a
// plain visibility toggle and are never returned.
func (r *Router) doTransition(ctx context.Context, in, out Page) {
	if r.Config().DisableTransitions {
		r.toggle(in, out)
		return
	}

	t, ok := in.(Transitioner)
	if !ok {
		r.toggle(in, out)
		return
	}

	fn := r.resolveTransition(t, in, out)

	ctx, span := r.tracer.Start(ctx, "hashnav.transition")
	defer span.End()
	span.SetAttributes(attribute.String("hashnav.page", fmt.Sprintf("%T", in)))

	if err := runTransition(ctx, fn, in, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Warn("transition failed", "error", err)
		r.toggle(in, out)
	}
}

func (r *Router) resolveTransition(t Transitioner, in, out Page) (fn TransitionFunc) {
	r.mu.Lock()
	fallback := r.transitions[TransitionCrossFade]
	r.mu.Unlock()

	tr, err := func() (tr Transition, err error) {
		defer func() {
			if v := recover(); v != nil {
				err = panicError("transition resolver", v)
			}
		}()
		return t.PageTransition(in, out)
	}()
	if err != nil {
		r.logger.Warn("transition resolver failed, using cross fade", "error", err)
		return fallback
	}

	if tr.Run != nil {
		return tr.Run
	}

	r.mu.Lock()
	named, ok := r.transitions[tr.Name]
	r.mu.Unlock()
	if !ok {
		r.logger.Warn("unknown transition, using cross fade", "transition", tr.Name)
		return fallback
	}
	return named
}

func runTransition(ctx context.Context, fn TransitionFunc, in, out Page) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = panicError("transition", v)
		}
	}()
	return fn(ctx, in, out)
}
