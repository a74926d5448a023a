// Package router resolves location hashes to registered pages and manages the
// lifecycle of those pages.
//
// Pages are heavyweight, stateful views. Instead of re-rendering them on every
// navigation, the router creates, reuses, caches or destroys them according
// to its Config, and sequences data loading around the transition between
// the outgoing and incoming page.
//
// # Basic Usage
//
//	r := router.New(router.Options{Views: host})
//
//	// A live instance, a factory, or an async loader can back a route.
//	r.Root("/home", router.Constructor(func() router.Page { return &HomePage{} }))
//	r.Route("/detail/:id", router.Constructor(newDetailPage))
//	r.Route("!", router.Instance(errorPage))
//	r.Route("*", router.Instance(notFoundPage))
//
//	// Fetch data before the detail page becomes visible. The data stays
//	// fresh for 30 seconds.
//	r.Before("/detail/:id", func(ctx context.Context, page router.Page, params router.Params) error {
//	    return page.(*DetailPage).Load(ctx, params.String("id"))
//	}, 30*time.Second)
//
//	if err := r.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	r.Navigate(ctx, "/detail/42")
//	r.Step(ctx, -1) // back to /home
//
// # Route Patterns
//
// Patterns are '/'-separated segments. A segment is a literal (matched
// case-insensitively), a named parameter (:id), an inline regular expression
// ({/[0-9]+/}, flags i and m are honoured), or a named parameter constrained
// by one (:id{/[0-9]+/}). When several routes match, the one with a literal
// or regex segment where the others have a parameter wins.
//
// The patterns "!" (error page), "*" (not found) and "$" are never matched
// against hashes. "@boot-page" is shown first when registered and continues
// with Resume.
//
// # Data Providers
//
// A route can have one provider. Its trigger decides the order of steps:
//
//	before: fetch, transition, stamp expiry, clean up old page
//	after:  transition, clean up old page, fetch, stamp expiry
//	on:     Loading state, clean up old page, fetch, transition, stamp expiry
//
// The provider runs again when the page's data expired or the hash changed.
// A failing provider expires the page and loads the "!" route, which receives
// a *PageError if it implements ErrorReceiver.
//
// # Concurrency
//
// Router methods are safe for concurrent use. Navigations are not serialised
// or cancelled: when two overlap, the one that finishes last decides the
// active page.
package router
