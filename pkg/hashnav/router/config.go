package router

// Config holds the router's behaviour switches. A Router reads its config
// every time an option is consulted, so SetConfig takes effect on the next
// navigation.
type Config struct {
	// LazyCreate defers page instantiation until first load.
	LazyCreate bool `toml:"lazyCreate"`

	// LazyDestroy destroys pages when they are navigated away from.
	LazyDestroy bool `toml:"lazyDestroy"`

	// DestroyOnHistoryBack destroys pages left by a back step.
	DestroyOnHistoryBack bool `toml:"destroyOnHistoryBack"`

	// KeepAlive overrides LazyDestroy for forward navigation.
	KeepAlive bool `toml:"keepAlive"`

	DisableTransitions bool `toml:"disableTransitions"`

	// UpdateHash writes navigation targets to the Location. When false the
	// router keeps its own hash and processes targets directly.
	UpdateHash bool `toml:"updateHash"`

	// StoreSameHash appends repeated hashes to the history instead of moving
	// them to the end.
	StoreSameHash bool `toml:"storeSameHash"`

	// Backtrack lets Step fall back to shorter prefixes of the current hash
	// when the history is empty.
	Backtrack bool `toml:"backtrack"`

	// NumberNavigation maps digit keys onto routes in registration order.
	NumberNavigation bool `toml:"numberNavigation"`

	// GCOnUnload asks the view host to reclaim resources after a page is
	// destroyed.
	GCOnUnload bool `toml:"gcOnUnload"`

	// AutoRestoreRemote returns focus to pages when a remote signals a
	// return to the page surface.
	AutoRestoreRemote bool `toml:"autoRestoreRemote"`
}

// DefaultConfig returns the default router configuration.
func DefaultConfig() Config {
	return Config{
		UpdateHash: true,
	}
}
