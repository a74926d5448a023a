package router

// ViewHost owns the visual component tree. The router only tells it which
// pages exist and which one is visible.
type ViewHost interface {
	// Attach adds a freshly created page, hidden.
	Attach(page Page)

	// Detach removes a page that is being destroyed.
	Detach(page Page)

	// SetVisible shows or hides a page.
	SetVisible(page Page, visible bool)

	// Reclaim releases resources of detached pages right away.
	Reclaim()
}

// Widget is a peripheral view shown alongside pages.
type Widget interface {
	Ref() string
	SetVisible(visible bool)
}

// WidgetHost lists the widgets of the application.
type WidgetHost interface {
	Widgets() []Widget
}

// WidgetActivatedListener is implemented by widgets that want to know when
// they were made visible for a page.
type WidgetActivatedListener interface {
	OnActivated(page Page)
}

// WidgetsReceiver is implemented by pages that want the widgets of the
// application, keyed by folded reference, when they are created.
type WidgetsReceiver interface {
	SetWidgets(widgets map[string]Widget)
}

type nopViewHost struct{}

func (nopViewHost) Attach(Page)           {}
func (nopViewHost) Detach(Page)           {}
func (nopViewHost) SetVisible(Page, bool) {}
func (nopViewHost) Reclaim()              {}
