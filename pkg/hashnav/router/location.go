package router

import "sync"

// Location reads and writes the externally visible hash.
type Location interface {
	Hash() string
	SetHash(hash string)
}

// Notifier is implemented by locations that signal external hash changes.
// The returned function cancels the subscription.
type Notifier interface {
	Subscribe(fn func(hash string)) (cancel func())
}

// MemoryLocation is an in-process Location for hosts without a browser.
// Listeners are called synchronously on SetHash when the hash changes.
type MemoryLocation struct {
	mu        sync.Mutex
	hash      string
	nextID    int
	listeners map[int]func(string)
}

// NewMemoryLocation creates a location holding hash.
func NewMemoryLocation(hash string) *MemoryLocation {
	return &MemoryLocation{
		hash:      hash,
		listeners: make(map[int]func(string)),
	}
}

func (l *MemoryLocation) Hash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hash
}

func (l *MemoryLocation) SetHash(hash string) {
	l.mu.Lock()
	if l.hash == hash {
		l.mu.Unlock()
		return
	}
	l.hash = hash
	fns := make([]func(string), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(hash)
	}
}

func (l *MemoryLocation) Subscribe(fn func(hash string)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.listeners[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, id)
	}
}
