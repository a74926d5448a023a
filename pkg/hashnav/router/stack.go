package router

// History manages the navigation history for back navigation. It stores
// previously visited hashes, most recent last. History is not safe for
// concurrent use on its own; the Router guards it with its lock.
type History struct {
	entries []string
}

// NewHistory creates a new empty history.
func NewHistory() *History {
	return &History{
		entries: make([]string, 0),
	}
}

// Push stores a hash. If the hash is already present and allowDuplicates is
// false, the existing entry is moved to the end instead.
func (h *History) Push(hash string, allowDuplicates bool) {
	if !allowDuplicates {
		if i := h.indexOf(hash); i >= 0 {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
		}
	}
	h.entries = append(h.entries, hash)
}

// Pop removes and returns the most recent hash.
// Returns false if the history is empty.
func (h *History) Pop() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	last := h.entries[len(h.entries)-1]
	h.entries = h.entries[:len(h.entries)-1]
	return last, true
}

// IsEmpty returns true if the history has no entries.
func (h *History) IsEmpty() bool {
	return len(h.entries) == 0
}

// Len returns the number of entries in the history.
func (h *History) Len() int {
	return len(h.entries)
}

// Clear removes all entries from the history.
func (h *History) Clear() {
	h.entries = h.entries[:0]
}

// Entries returns a copy of the stored hashes, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) indexOf(hash string) int {
	for i, e := range h.entries {
		if e == hash {
			return i
		}
	}
	return -1
}
