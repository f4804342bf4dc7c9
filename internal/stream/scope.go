package stream

import (
	"context"
	"sync"
)

// Scope ties a set of subscriptions to one owner's lifetime.
//
// Every release registered via Track runs exactly once, when Close is called.
// Tracking into an already-closed scope releases immediately, so a late
// subscribe can never outlive its owner.
type Scope struct {
	mu       sync.Mutex
	closed   bool
	releases []func()

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScope creates an open scope whose Context is derived from parent.
func NewScope(parent context.Context) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel}
}

// Context is cancelled when the scope closes.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Track registers a release func. Returns false if the scope was already
// closed, in which case release has been called.
func (s *Scope) Track(release func()) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		release()
		return false
	}
	s.releases = append(s.releases, release)
	s.mu.Unlock()
	return true
}

// Closed reports whether Close has been called.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases every tracked subscription, newest first, and cancels the
// scope context. Safe to call more than once.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	releases := s.releases
	s.releases = nil
	s.mu.Unlock()

	s.cancel()
	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}
