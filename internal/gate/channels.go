package gate

import (
	"context"
	"sync"

	"github.com/roach88/dhd/internal/stream"
)

// StatusChannel holds the current gate Status with replay-last semantics.
//
// Writes are serialized: the transition check and the publish happen under
// one lock, so two writers can never interleave a check with the other's
// publish. Setting the current value again is not a change and publishes
// nothing.
type StatusChannel struct {
	writeMu sync.Mutex
	b       *stream.Behavior[Status]
}

// NewStatusChannel creates a channel starting at Idle.
func NewStatusChannel() *StatusChannel {
	return &StatusChannel{b: stream.NewBehaviorOf(Idle)}
}

// Get returns the current status.
func (c *StatusChannel) Get() Status {
	s, _ := c.b.Get()
	return s
}

// Set moves the gate to s. Returns an INVALID_TRANSITION error if the state
// machine forbids the edge; the channel is left unchanged in that case.
func (c *StatusChannel) Set(s Status) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cur := c.Get()
	if cur == s {
		return nil
	}
	if !CanTransition(cur, s) {
		return NewTransitionError(cur, s)
	}
	c.b.Set(s)
	return nil
}

// Reset collapses the gate to Idle from any state. Idempotent.
func (c *StatusChannel) Reset() {
	_ = c.Set(Idle)
}

// Subscribe delivers the current status immediately, then every change.
func (c *StatusChannel) Subscribe(fn func(Status)) func() {
	return c.b.Subscribe(fn)
}

// PositionChannel is the per-chevron anchor slot. Values are overwritten,
// never deleted.
type PositionChannel struct {
	b *stream.Behavior[Anchor]
}

// NewPositionChannel creates an unmeasured position.
func NewPositionChannel() *PositionChannel {
	return &PositionChannel{b: stream.NewBehavior[Anchor]()}
}

// Set records a freshly measured anchor.
func (c *PositionChannel) Set(a Anchor) {
	c.b.Set(a)
}

// Get returns the last anchor written, if any.
func (c *PositionChannel) Get() (Anchor, bool) {
	return c.b.Get()
}

// Subscribe replays the last anchor, then every update.
func (c *PositionChannel) Subscribe(fn func(Anchor)) func() {
	return c.b.Subscribe(fn)
}

// OnceDefined calls fn with the first defined anchor, current or future,
// then stops listening. The returned func cancels the wait.
func (c *PositionChannel) OnceDefined(fn func(Anchor)) func() {
	return c.b.Once(Anchor.Defined, fn)
}

// NextDefined blocks until a defined anchor exists or ctx is done.
func (c *PositionChannel) NextDefined(ctx context.Context) (Anchor, error) {
	return c.b.Next(ctx, Anchor.Defined)
}

// Handshake is the animation-ready broadcast: a chevron announces it has
// committed to its lock animation and the sequence may advance.
type Handshake struct {
	s *stream.Subject[int]
}

// NewHandshake creates an empty handshake channel.
func NewHandshake() *Handshake {
	return &Handshake{s: stream.NewSubject[int]()}
}

// NotifyReady announces chevron as ready.
func (h *Handshake) NotifyReady(chevron int) {
	h.s.Emit(chevron)
}

// Subscribe registers fn for every ready notification.
func (h *Handshake) Subscribe(fn func(chevron int)) func() {
	return h.s.Subscribe(fn)
}

// ResultChannel broadcasts the outcome of each dialing attempt.
type ResultChannel struct {
	s *stream.Subject[SequenceResult]

	mu    sync.Mutex
	last  SequenceResult
	count int
}

// NewResultChannel creates an empty result channel.
func NewResultChannel() *ResultChannel {
	return &ResultChannel{s: stream.NewSubject[SequenceResult]()}
}

// Publish records r and broadcasts it.
func (c *ResultChannel) Publish(r SequenceResult) {
	c.mu.Lock()
	c.last = r
	c.count++
	c.mu.Unlock()

	c.s.Emit(r)
}

// Subscribe registers fn for future results. No replay.
func (c *ResultChannel) Subscribe(fn func(SequenceResult)) func() {
	return c.s.Subscribe(fn)
}

// Last returns the most recent result, if any was ever published.
func (c *ResultChannel) Last() (SequenceResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.count > 0
}

// Count returns how many results have been published.
func (c *ResultChannel) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Channels bundles the process-wide coordination channels. Construct once at
// startup and inject; there are no package-level singletons.
type Channels struct {
	Status      *StatusChannel
	Activations *stream.Subject[Activation]
	Handshake   *Handshake
	Results     *ResultChannel
	Complete    *stream.Subject[string]
	Attempts    *stream.Subject[AttemptEvent]
}

// NewChannels creates a fresh bundle with the gate Idle.
func NewChannels() *Channels {
	return &Channels{
		Status:      NewStatusChannel(),
		Activations: stream.NewSubject[Activation](),
		Handshake:   NewHandshake(),
		Results:     NewResultChannel(),
		Complete:    stream.NewSubject[string](),
		Attempts:    stream.NewSubject[AttemptEvent](),
	}
}

// ActivationsFor subscribes fn to activations targeting chevron only.
func (c *Channels) ActivationsFor(chevron int, fn func(Activation)) func() {
	return c.Activations.Subscribe(stream.Where(func(a Activation) bool {
		return a.Chevron == chevron
	}, fn))
}
