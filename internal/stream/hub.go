package stream

import (
	"sync"
	"sync/atomic"
)

// subscriber is one registered handler.
// active flips to false exactly once, on release.
type subscriber[T any] struct {
	fn     func(T)
	active atomic.Bool
}

// hub holds the subscriber list shared by Subject and Behavior.
//
// mu guards the list; emitMu serializes deliveries. Releases only take mu, so
// they never wait behind a delivery in progress.
type hub[T any] struct {
	mu     sync.Mutex
	emitMu sync.Mutex
	subs   []*subscriber[T]
}

func (h *hub[T]) add(fn func(T)) *subscriber[T] {
	s := &subscriber[T]{fn: fn}
	s.active.Store(true)

	h.mu.Lock()
	h.subs = append(h.subs, s)
	h.mu.Unlock()
	return s
}

// remove deactivates s. Returns false if it was already released.
func (h *hub[T]) remove(s *subscriber[T]) bool {
	if !s.active.CompareAndSwap(true, false) {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, cur := range h.subs {
		if cur == s {
			// Copy instead of in-place shift: a delivery may still be
			// iterating over the previous backing array.
			next := make([]*subscriber[T], 0, len(h.subs)-1)
			next = append(next, h.subs[:i]...)
			next = append(next, h.subs[i+1:]...)
			h.subs = next
			return true
		}
	}
	return true
}

func (h *hub[T]) release(s *subscriber[T]) func() {
	return func() { h.remove(s) }
}

// deliver calls every active subscriber with v.
// Caller must hold emitMu.
func (h *hub[T]) deliver(v T) {
	h.mu.Lock()
	subs := h.subs
	h.mu.Unlock()

	for _, s := range subs {
		if s.active.Load() {
			s.fn(v)
		}
	}
}

// Len returns the number of live subscriptions.
func (h *hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
