package stream

import (
	"context"
	"sync"
)

// Behavior is a single-slot stateful channel with replay-last semantics.
//
// Subscribers receive the current value (if one was ever set) immediately on
// subscribe, then every later value in the order Set was called. There is no
// gap and no duplicate between the replayed value and the live ones.
type Behavior[T any] struct {
	hub[T]

	valMu sync.Mutex
	value T
	has   bool
}

// NewBehavior creates a channel holding no value yet.
func NewBehavior[T any]() *Behavior[T] {
	return &Behavior[T]{}
}

// NewBehaviorOf creates a channel already holding v.
func NewBehaviorOf[T any](v T) *Behavior[T] {
	return &Behavior[T]{value: v, has: true}
}

// Get returns the current value and whether one has been set.
func (b *Behavior[T]) Get() (T, bool) {
	b.valMu.Lock()
	defer b.valMu.Unlock()
	return b.value, b.has
}

// Set replaces the current value and delivers it to every subscriber.
func (b *Behavior[T]) Set(v T) {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()

	b.valMu.Lock()
	b.value = v
	b.has = true
	b.valMu.Unlock()

	b.deliver(v)
}

// Subscribe registers fn, replays the current value to it, and returns its
// release func.
func (b *Behavior[T]) Subscribe(fn func(T)) func() {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()

	s := b.add(fn)
	if v, ok := b.Get(); ok {
		fn(v)
	}
	return b.release(s)
}

// Once calls fn with the first value (current or future) satisfying pred,
// then stops listening. The returned func cancels the wait; after it returns
// fn is never called. Cancelling after fn fired is a no-op.
func (b *Behavior[T]) Once(pred func(T) bool, fn func(T)) func() {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()

	var s *subscriber[T]
	s = b.add(func(v T) {
		if !pred(v) {
			return
		}
		// First matching delivery wins; a concurrent cancel that got
		// there first suppresses the call.
		if !b.remove(s) {
			return
		}
		fn(v)
	})

	if v, ok := b.Get(); ok {
		s.fn(v)
	}
	return b.release(s)
}

// Next blocks until a value satisfying pred exists or ctx is done.
func (b *Behavior[T]) Next(ctx context.Context, pred func(T) bool) (T, error) {
	got := make(chan T, 1)
	cancel := b.Once(pred, func(v T) { got <- v })
	defer cancel()

	select {
	case v := <-got:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
