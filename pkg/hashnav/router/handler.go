package router

import (
	"context"
	"fmt"
)

// HandlerKind tags the four kinds of route handler.
type HandlerKind int

const (
	KindInstance    HandlerKind = iota // A live page instance
	KindConstructor                    // A factory, instantiated on first load (or eagerly)
	KindAsyncLoader                    // A factory that must be resolved before instantiation
	KindCallback                       // A plain function with no page lifecycle
)

func (k HandlerKind) String() string {
	switch k {
	case KindInstance:
		return "instance"
	case KindConstructor:
		return "constructor"
	case KindAsyncLoader:
		return "async"
	case KindCallback:
		return "callback"
	default:
		return fmt.Sprintf("HandlerKind(%d)", int(k))
	}
}

// AsyncLoaderFunc resolves a page factory, e.g. by loading a plugin or
// fetching a manifest.
type AsyncLoaderFunc func(ctx context.Context) (PageFactory, error)

// CallbackFunc is invoked with the route parameters when its route matches.
type CallbackFunc func(ctx context.Context, params Params)

// Handler is one entry of a route's handler stack. Build one with Instance,
// Constructor, AsyncLoader or Callback.
type Handler struct {
	kind     HandlerKind
	page     Page
	factory  PageFactory
	loader   AsyncLoaderFunc
	callback CallbackFunc
}

// Instance wraps an existing page. Pages registered this way have no factory,
// so cleanup policy can hide them but never destroy them.
func Instance(p Page) Handler {
	return Handler{kind: KindInstance, page: p}
}

// Constructor wraps a page factory.
func Constructor(f PageFactory) Handler {
	return Handler{kind: KindConstructor, factory: f}
}

// AsyncLoader wraps a loader that resolves a page factory.
func AsyncLoader(f AsyncLoaderFunc) Handler {
	return Handler{kind: KindAsyncLoader, loader: f}
}

// Callback wraps a plain function.
func Callback(f CallbackFunc) Handler {
	return Handler{kind: KindCallback, callback: f}
}

// Kind returns the handler's kind.
func (h Handler) Kind() HandlerKind {
	return h.kind
}

// IsPageBearing reports whether the handler produces a page.
func (h Handler) IsPageBearing() bool {
	return h.kind != KindCallback
}

// IsZero reports whether h was never set.
func (h Handler) IsZero() bool {
	return h.kind == KindInstance && h.page == nil
}

// Page returns the wrapped instance for KindInstance handlers.
func (h Handler) Page() Page {
	return h.page
}

func (h Handler) validate() error {
	switch h.kind {
	case KindInstance:
		if h.page == nil {
			return fmt.Errorf("%w: nil page instance", ErrInvalidHandler)
		}
		if !isComparable(h.page) {
			return fmt.Errorf("%w: %T", ErrNonComparablePage, h.page)
		}
	case KindConstructor:
		if h.factory == nil {
			return fmt.Errorf("%w: nil page factory", ErrInvalidHandler)
		}
	case KindAsyncLoader:
		if h.loader == nil {
			return fmt.Errorf("%w: nil async loader", ErrInvalidHandler)
		}
	case KindCallback:
		if h.callback == nil {
			return fmt.Errorf("%w: nil callback", ErrInvalidHandler)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidHandler, int(h.kind))
	}
	return nil
}
