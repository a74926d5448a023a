package router

import (
	"fmt"
	"reflect"
	"time"
)

// Page is an application view instance. The router tracks pages by identity,
// so page values must be comparable; pointers to structs are the usual choice.
//
// A page opts into lifecycle notifications by implementing any of the
// listener interfaces below.
type Page any

// PageFactory creates a fresh page instance.
type PageFactory func() Page

// Params holds the named URL values of a hash merged with the navigation
// register of the call that produced it.
type Params map[string]any

// String returns the value for key formatted as a string, or "" if unset.
func (p Params) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// PageData is what a page receives on every load.
type PageData struct {
	// Params are URL values plus register values (register wins on conflict).
	Params Params

	// Persist is the navigation register of the call, nil if it was empty.
	Persist map[string]any
}

// DataReceiver receives route parameters on every load.
type DataReceiver interface {
	SetPageData(data PageData)
}

// URLParamsListener is notified with the route parameters on every load.
type URLParamsListener interface {
	OnURLParams(params Params)
}

// DataProvidedListener is notified once a provider has fetched data for the page.
type DataProvidedListener interface {
	OnDataProvided()
}

// MountedListener is notified after a freshly created page became active.
type MountedListener interface {
	OnMounted()
}

// ChangedListener is notified when an existing page instance is activated again.
type ChangedListener interface {
	OnChanged()
}

// ErrorReceiver is implemented by error pages that want the failure details.
type ErrorReceiver interface {
	SetPageError(err *PageError)
}

// Event names a lifecycle notification.
type Event int

const (
	EventURLParams Event = iota
	EventDataProvided
	EventMounted
	EventChanged
)

func (e Event) String() string {
	switch e {
	case EventURLParams:
		return "urlParams"
	case EventDataProvided:
		return "dataProvided"
	case EventMounted:
		return "mounted"
	case EventChanged:
		return "changed"
	default:
		return "unknown"
	}
}

func emit(page Page, params Params, events ...Event) {
	for _, e := range events {
		switch e {
		case EventURLParams:
			if l, ok := page.(URLParamsListener); ok {
				l.OnURLParams(params)
			}
		case EventDataProvided:
			if l, ok := page.(DataProvidedListener); ok {
				l.OnDataProvided()
			}
		case EventMounted:
			if l, ok := page.(MountedListener); ok {
				l.OnMounted()
			}
		case EventChanged:
			if l, ok := page.(ChangedListener); ok {
				l.OnChanged()
			}
		}
	}
}

// PageMeta is the routing metadata kept for a page instance.
type PageMeta struct {
	Route string
	Hash  string

	// ExpiresAt is when provided data goes stale. Zero means never.
	ExpiresAt time.Time

	factory PageFactory
}

// Expired reports whether the page's data is stale at now.
func (m PageMeta) Expired(now time.Time) bool {
	if m.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(m.ExpiresAt)
}

// pageTable is the identity-keyed side table holding PageMeta. Callers hold
// the router lock.
type pageTable struct {
	entries map[Page]*PageMeta
}

func newPageTable() *pageTable {
	return &pageTable{entries: make(map[Page]*PageMeta)}
}

func (t *pageTable) get(p Page) (*PageMeta, bool) {
	m, ok := t.entries[p]
	return m, ok
}

func (t *pageTable) ensure(p Page) *PageMeta {
	if m, ok := t.entries[p]; ok {
		return m
	}
	m := &PageMeta{}
	t.entries[p] = m
	return m
}

func (t *pageTable) remove(p Page) {
	delete(t.entries, p)
}

func (t *pageTable) pages() []Page {
	out := make([]Page, 0, len(t.entries))
	for p := range t.entries {
		out = append(out, p)
	}
	return out
}

func isComparable(p Page) bool {
	if p == nil {
		return false
	}
	return reflect.TypeOf(p).Comparable()
}
