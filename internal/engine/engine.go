package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/dhd/internal/gate"
)

// DefaultSettleDelay is how long the gate stays in Shutdown before it
// returns to Idle on its own.
const DefaultSettleDelay = time.Second

// ErrAborted marks an attempt stopped by a reset or a redial.
var ErrAborted = errors.New("dialing sequence aborted")

// Resolver decides whether an address reaches a known destination.
// Matching is pluggable; the engine never guesses it.
type Resolver interface {
	Resolve(address gate.Address) (gate.Destination, bool)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(gate.Address) (gate.Destination, bool)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(a gate.Address) (gate.Destination, bool) { return f(a) }

// Engine is the dialing sequence orchestrator.
//
// Thread-safety model:
//   - BeginDialing, Reset, Shutdown, Close: safe from any goroutine, except
//     from inside a channel handler (they wait for the sequence goroutine)
//   - exactly one sequence goroutine exists at a time; it is the only writer
//     of the result channel and, besides Reset, of the status channel
type Engine struct {
	ch       *gate.Channels
	resolver Resolver
	clock    *Clock
	tokens   TokenGenerator
	logger   *slog.Logger

	chevrons     int
	settle       time.Duration
	readyTimeout time.Duration
	strict       bool

	mu      sync.Mutex // serializes the control surface
	attempt *Attempt
	current atomic.Pointer[run]

	releaseStatus func()
}

// run is one cancellable sequence goroutine.
type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithChevronCount sets the number of physical chevrons (default 7).
func WithChevronCount(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chevrons = n
		}
	}
}

// WithSettleDelay sets how long Shutdown lasts before the gate idles.
func WithSettleDelay(d time.Duration) Option {
	return func(e *Engine) { e.settle = d }
}

// WithReadyTimeout bounds each handshake wait. Zero (the default) waits
// until the attempt is cancelled.
func WithReadyTimeout(d time.Duration) Option {
	return func(e *Engine) { e.readyTimeout = d }
}

// WithTokenGenerator overrides the attempt token source.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// WithClock overrides the activation clock.
func WithClock(c *Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStrictInvariants makes programming errors (dialing an address that
// validation should have rejected) panic instead of returning an error.
// Meant for development and tests.
func WithStrictInvariants() Option {
	return func(e *Engine) { e.strict = true }
}

// New creates an Engine over ch. A nil resolver treats every address as
// unreachable.
func New(ch *gate.Channels, resolver Resolver, opts ...Option) *Engine {
	if resolver == nil {
		resolver = ResolverFunc(func(gate.Address) (gate.Destination, bool) {
			return gate.Destination{}, false
		})
	}

	e := &Engine{
		ch:       ch,
		resolver: resolver,
		clock:    NewClock(),
		tokens:   UUIDv7Generator{},
		logger:   slog.Default(),
		chevrons: gate.ChevronCount,
		settle:   DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(e)
	}

	// Any write of Idle, including one made directly on the status channel
	// by a view component, cancels the running sequence.
	e.releaseStatus = ch.Status.Subscribe(func(s gate.Status) {
		if s != gate.Idle {
			return
		}
		if r := e.current.Load(); r != nil {
			r.cancel()
		}
	})

	return e
}

// BeginDialing starts a dialing attempt for address.
//
// Any sequence already in flight is cancelled and the gate is reset to Idle
// before the new attempt starts. ctx bounds the lifetime of the whole
// attempt, settle delay included.
//
// The address must already have passed validation. An empty or malformed
// address is rejected (or panics under WithStrictInvariants).
func (e *Engine) BeginDialing(ctx context.Context, address gate.Address) (*Attempt, error) {
	if err := address.Validate(); err != nil {
		if e.strict {
			panic(fmt.Sprintf("engine: BeginDialing with unvalidated address: %v", err))
		}
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	e.ch.Status.Reset()

	att := &Attempt{
		ID:      e.tokens.Generate(),
		Address: address.Clone(),
		done:    make(chan struct{}),
	}
	dest, reachable := e.resolver.Resolve(att.Address)

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: att.done}

	// Subscribe before the first activation leaves: a chevron with a known
	// anchor reports ready synchronously, inside the broadcast.
	ready := make(chan int, e.chevrons+1)
	release := e.ch.Handshake.Subscribe(func(n int) {
		select {
		case ready <- n:
		default:
			e.logger.Warn("handshake dropped", "attempt", att.ID, "chevron", n)
		}
	})

	e.attempt = att
	e.current.Store(r)

	e.ch.Attempts.Emit(gate.AttemptEvent{ID: att.ID, Address: att.Address, Phase: gate.AttemptStarted})
	if err := e.ch.Status.Set(gate.Dialing); err != nil {
		e.current.Store(nil)
		release()
		cancel()
		close(att.done)
		return nil, fmt.Errorf("begin dialing: %w", err)
	}

	e.logger.Info("dialing started",
		"attempt", att.ID,
		"address", att.Address.String(),
		"reachable", reachable,
	)

	go func() {
		defer close(att.done)
		defer release()
		e.dial(runCtx, att, dest, reachable, ready)
	}()

	return att, nil
}

// Reset is the idle-reset escape hatch. It stops any running sequence or
// settle delay and leaves the gate Idle. Calling it twice has the same
// effect as calling it once.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	e.ch.Status.Reset()
}

// Shutdown closes an Active gate: Shutdown, settle delay, then Idle.
// Returns a NOT_ACTIVE error when the gate is not Active.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s := e.ch.Status.Get(); s != gate.Active {
		return &gate.Error{
			Code:    gate.ErrCodeNotActive,
			Message: "no open connection to shut down",
			Details: map[string]string{"status": s.String()},
		}
	}
	e.stopLocked()

	if err := e.ch.Status.Set(gate.Shutdown); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: make(chan struct{})}
	e.current.Store(r)

	go func() {
		defer close(r.done)
		e.settleToIdle(runCtx)
	}()
	return nil
}

// Current returns the most recently started attempt, or nil.
func (e *Engine) Current() *Attempt {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempt
}

// Close resets the gate and detaches the engine from the status channel.
func (e *Engine) Close() {
	e.Reset()
	e.releaseStatus()
}

// stopLocked cancels the running goroutine and waits for it to exit.
// Caller must hold e.mu.
func (e *Engine) stopLocked() {
	r := e.current.Swap(nil)
	if r == nil {
		return
	}
	r.cancel()
	<-r.done
}

// dial runs the per-chevron loop of one attempt.
func (e *Engine) dial(ctx context.Context, att *Attempt, dest gate.Destination, reachable bool, ready <-chan int) {
	last := len(att.Address)

	for i, g := range att.Address {
		if err := ctx.Err(); err != nil {
			e.abort(att, err)
			return
		}

		step := i + 1
		act := gate.Activation{
			Attempt: att.ID,
			Step:    step,
			Chevron: gate.ChevronFor(step, e.chevrons),
			Glyph:   g,
			Fail:    !reachable && step == last,
			Seq:     e.clock.Next(),
		}

		e.logger.Debug("chevron activation",
			"attempt", att.ID,
			"step", act.Step,
			"chevron", act.Chevron,
			"glyph", act.Glyph,
			"fail", act.Fail,
		)
		e.ch.Activations.Emit(act)

		if err := e.awaitReady(ctx, att, act.Chevron, ready); err != nil {
			e.abort(att, err)
			return
		}

		if !act.Fail {
			if err := e.ch.Status.Set(gate.Engaged); err != nil {
				e.abort(att, err)
				return
			}
		}
	}

	if err := ctx.Err(); err != nil {
		e.abort(att, err)
		return
	}
	e.finish(ctx, att, dest, reachable)
}

// awaitReady suspends until chevron reports ready, the attempt is cancelled,
// or the optional ready timeout expires.
func (e *Engine) awaitReady(ctx context.Context, att *Attempt, chevron int, ready <-chan int) error {
	var timeout <-chan time.Time
	if e.readyTimeout > 0 {
		t := time.NewTimer(e.readyTimeout)
		defer t.Stop()
		timeout = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timeout:
			return &gate.Error{
				Code:    gate.ErrCodeHandshakeTimeout,
				Message: fmt.Sprintf("chevron did not report ready within %s", e.readyTimeout),
				Details: map[string]string{"attempt": att.ID, "chevron": fmt.Sprint(chevron)},
			}

		case n := <-ready:
			if n == chevron {
				return nil
			}
			e.logger.Debug("handshake for another chevron ignored",
				"attempt", att.ID,
				"want", chevron,
				"got", n,
			)
		}
	}
}

// finish publishes the outcome and moves the gate to its final state.
func (e *Engine) finish(ctx context.Context, att *Attempt, dest gate.Destination, reachable bool) {
	result := gate.SequenceResult{Attempt: att.ID, DestinationReached: reachable}
	if reachable {
		d := dest
		result.Destination = &d
	}

	e.ch.Complete.Emit(att.ID)
	att.setResult(result)
	e.ch.Results.Publish(result)

	final := gate.Active
	if !reachable {
		final = gate.Shutdown
	}
	if err := e.ch.Status.Set(final); err != nil {
		e.logger.Error("final status rejected", "attempt", att.ID, "status", final, "error", err)
	}
	e.ch.Attempts.Emit(gate.AttemptEvent{ID: att.ID, Address: att.Address, Phase: gate.AttemptCompleted})

	e.logger.Info("dialing complete",
		"attempt", att.ID,
		"reached", reachable,
		"destination", dest.Name,
	)

	if !reachable {
		e.settleToIdle(ctx)
	}
}

// abort records why the attempt stopped and collapses the gate to Idle.
// No result is published for an aborted attempt.
func (e *Engine) abort(att *Attempt, cause error) {
	err := cause
	if errors.Is(cause, context.Canceled) {
		err = ErrAborted
	}
	att.setErr(err)

	e.ch.Attempts.Emit(gate.AttemptEvent{
		ID:      att.ID,
		Address: att.Address,
		Phase:   gate.AttemptAborted,
		Reason:  err.Error(),
	})
	e.ch.Status.Reset()

	if gate.IsCode(err, gate.ErrCodeHandshakeTimeout) {
		e.logger.Error("dialing aborted", "attempt", att.ID, "error", err)
		return
	}
	e.logger.Info("dialing aborted", "attempt", att.ID, "reason", err)
}

// settleToIdle holds Shutdown for the settle delay, then idles. A cancel
// during the delay idles immediately.
func (e *Engine) settleToIdle(ctx context.Context) {
	if e.settle > 0 {
		t := time.NewTimer(e.settle)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
	e.ch.Status.Reset()
}
