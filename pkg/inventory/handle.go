package inventory

import "sync/atomic"

// Handle is the shared reference to the currently published Index. Refreshes
// build a complete replacement Index and swap it in atomically, so readers
// never observe a partially populated index. Current returns nil until the
// first publish.
type Handle struct {
	cur atomic.Pointer[Index]
}

// Current returns the published Index, or nil if none has been published.
func (h *Handle) Current() *Index {
	return h.cur.Load()
}

// Publish replaces the published Index.
func (h *Handle) Publish(ix *Index) {
	h.cur.Store(ix)
}
