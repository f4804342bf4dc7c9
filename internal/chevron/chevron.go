// Package chevron implements the chevron box component: the view-side
// partner of the engine for one chevron position.
//
// A chevron listens for activations targeting its number, waits for its
// gate position to be measured, starts the lock animation and only then
// reports ready on the handshake channel. Every subscription it holds is
// owned by one scope and dropped together on Close.
package chevron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/dhd/internal/fx"
	"github.com/roach88/dhd/internal/gate"
	"github.com/roach88/dhd/internal/stream"
)

// symbolDrop is the vertical offset the symbol starts above its gate slot.
const symbolDrop = 50

// Chevron is one chevron box.
type Chevron struct {
	Number int

	ch     *gate.Channels
	pos    *gate.PositionChannel
	anim   fx.Animator
	logger *slog.Logger
	scope  *stream.Scope

	mu      sync.Mutex
	glyph   gate.Glyph
	symbol  gate.Anchor
	pending map[int]func()
	nextID  int
	locks   int
}

// Option configures a Chevron.
type Option func(*Chevron)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chevron) { c.logger = l }
}

// WithPosition shares an existing position channel instead of creating one.
func WithPosition(p *gate.PositionChannel) Option {
	return func(c *Chevron) { c.pos = p }
}

// WithSymbolAnchor sets the initial rectangle of the symbol box.
func WithSymbolAnchor(a gate.Anchor) Option {
	return func(c *Chevron) { c.symbol = a }
}

// New creates chevron number and subscribes it to ch. The chevron lives until
// Close.
func New(number int, ch *gate.Channels, anim fx.Animator, opts ...Option) *Chevron {
	c := &Chevron{
		Number:  number,
		ch:      ch,
		anim:    anim,
		logger:  slog.Default(),
		scope:   stream.NewScope(context.Background()),
		pending: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pos == nil {
		c.pos = gate.NewPositionChannel()
	}
	if c.anim == nil {
		c.anim = fx.NopAnimator{}
	}

	// Pending lookups go first so teardown cancels them before anything else.
	c.scope.Track(c.cancelPending)
	c.scope.Track(ch.ActivationsFor(number, c.onActivation))
	c.scope.Track(ch.Results.Subscribe(c.onResult))
	c.scope.Track(ch.Status.Subscribe(c.onStatus))
	c.scope.Track(ch.Complete.Subscribe(func(string) { c.flash() }))

	return c
}

// Position is the channel holding this chevron's anchor on the gate.
func (c *Chevron) Position() *gate.PositionChannel {
	return c.pos
}

// SetSymbolAnchor records a new layout of the symbol box.
func (c *Chevron) SetSymbolAnchor(a gate.Anchor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbol = a
}

// Glyph returns the glyph currently shown, or "" when cleared.
func (c *Chevron) Glyph() gate.Glyph {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.glyph
}

// Locks returns how many lock animations this chevron has started.
func (c *Chevron) Locks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locks
}

// Pending returns how many activations are still waiting for a position.
func (c *Chevron) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Engage locks glyph in without taking part in a dialing sequence: no
// handshake is sent. Blocks until the position is known, ctx ends or the
// chevron is closed.
func (c *Chevron) Engage(ctx context.Context, glyph gate.Glyph) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.scope.Context(), cancel)
	defer stop()

	c.setGlyph(glyph)
	target, err := c.pos.NextDefined(ctx)
	if err != nil {
		return fmt.Errorf("engage chevron %d: %w", c.Number, err)
	}
	c.lock(target, false)
	return nil
}

// Close drops every subscription and pending position lookup. A position
// measured after Close never triggers an animation. Idempotent.
func (c *Chevron) Close() {
	c.scope.Close()
}

func (c *Chevron) onActivation(a gate.Activation) {
	if c.scope.Closed() {
		return
	}
	c.setGlyph(a.Glyph)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	// The lookup may resolve synchronously, before the cancel func is
	// stored; fired tracks that so the entry is never left behind.
	var fired bool
	cancel := c.pos.OnceDefined(func(target gate.Anchor) {
		c.mu.Lock()
		fired = true
		delete(c.pending, id)
		c.mu.Unlock()

		c.lock(target, a.Fail)
		c.ch.Handshake.NotifyReady(c.Number)
	})

	c.mu.Lock()
	if !fired {
		c.pending[id] = cancel
	}
	c.mu.Unlock()

	if !fired {
		c.logger.Debug("chevron waiting for position", "chevron", c.Number, "attempt", a.Attempt)
	}
}

func (c *Chevron) onResult(r gate.SequenceResult) {
	if r.Destination != nil {
		c.flash()
	}
}

func (c *Chevron) onStatus(s gate.Status) {
	if s != gate.Idle {
		return
	}
	c.cancelPending()
	c.clear()
}

// cancelPending drops lookups of activations that never got a position, so
// an anchor measured after a reset cannot start a stale animation.
func (c *Chevron) cancelPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int]func())
	c.mu.Unlock()

	for _, cancel := range pending {
		cancel()
	}
}

func (c *Chevron) setGlyph(g gate.Glyph) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.glyph = g
}

func (c *Chevron) lock(target gate.Anchor, fail bool) {
	c.mu.Lock()
	path := Trajectory(target, c.symbol)
	c.locks++
	c.mu.Unlock()

	name := fx.LockSymbolSuccess
	if fail {
		name = fx.LockSymbolFailed
	}
	c.anim.Play(fx.Animation{Name: name, Target: c.target(), Path: path})
}

func (c *Chevron) clear() {
	c.mu.Lock()
	had := c.glyph != ""
	c.glyph = ""
	c.mu.Unlock()

	if had {
		c.anim.Play(fx.Animation{Name: fx.ClearSymbol, Target: c.target()})
	}
}

func (c *Chevron) flash() {
	c.anim.Play(fx.Animation{Name: fx.FlashOnActivate, Target: c.target()})
}

func (c *Chevron) target() string {
	return fmt.Sprintf("chevron-%d", c.Number)
}

// Trajectory computes the symbol travel path from the gate slot at target to
// the symbol box at symbol.
func Trajectory(target, symbol gate.Anchor) fx.Trajectory {
	return fx.Trajectory{
		CenterY: target.CenterY() - symbol.CenterY(),
		StartX:  target.CenterX() - symbol.CenterX(),
		StartY:  target.Y - symbol.Y + symbolDrop,
	}
}
