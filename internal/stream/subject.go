package stream

// Subject is a broadcast channel without replay.
//
// Values emitted before a subscriber registers are never seen by it. This
// matches the transient nature of a single dialing run.
type Subject[T any] struct {
	hub[T]
}

// NewSubject creates an empty broadcast channel.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Emit delivers v to every current subscriber, in subscription order.
func (s *Subject[T]) Emit(v T) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.deliver(v)
}

// Subscribe registers fn and returns its release func.
func (s *Subject[T]) Subscribe(fn func(T)) func() {
	return s.release(s.add(fn))
}

// Where wraps fn so it is only called for values satisfying pred.
func Where[T any](pred func(T) bool, fn func(T)) func(T) {
	return func(v T) {
		if pred(v) {
			fn(v)
		}
	}
}
