package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/roach88/dhd/internal/address"
	"github.com/roach88/dhd/internal/catalog"
	"github.com/roach88/dhd/internal/chevron"
	"github.com/roach88/dhd/internal/dialer"
	"github.com/roach88/dhd/internal/engine"
	"github.com/roach88/dhd/internal/gate"
	"github.com/roach88/dhd/internal/journal"
	"github.com/roach88/dhd/internal/store"
	"github.com/roach88/dhd/internal/testutil"
)

// DefaultTimeout bounds a whole scenario run.
const DefaultTimeout = 10 * time.Second

// Layout of the simulated gate the chevrons are measured against.
const (
	gateSize = 700
	slotSize = 40
)

// Harness is the test execution engine.
// It wires the real engine, chevron board and dialing computer over one
// channel bundle and drives them with deterministic tokens.
type Harness struct {
	scenario *Scenario
	ctx      context.Context
	ch       *gate.Channels
	board    *chevron.Board
	engine   *engine.Engine
	computer *dialer.Computer
	alerts   *testutil.AlertSink
	layout   func(int) gate.Anchor
	logger   *slog.Logger

	mu          sync.Mutex
	count       int
	fired       bool
	interrupted chan struct{}
	redialed    *engine.Attempt
	redialErr   error
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory journal for isolation. Execution
// flow:
//  1. Load the catalog and build the validator
//  2. Attach the journal recorder, then the chevron board
//  3. Dial, interrupting once if the scenario says so
//  4. Wait for the final attempt to finish, settle delay included
//  5. Evaluate expectations against the trace and the journal
func Run(scenario *Scenario) (*Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	return RunContext(ctx, scenario)
}

// RunContext is Run bounded by ctx instead of DefaultTimeout.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cat, err := loadCatalog(scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	pattern := scenario.Pattern
	if pattern == "" {
		pattern = address.DefaultPattern
	}
	validator, err := address.NewValidator(pattern, scenario.MinLength, scenario.MaxLength)
	if err != nil {
		return nil, fmt.Errorf("failed to build validator: %w", err)
	}

	// Suppress logs in tests.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	writer := journal.NewWriter(st, logger)
	writerCtx, stopWriter := context.WithCancel(context.Background())
	defer stopWriter()
	writerDone := make(chan error, 1)
	go func() { writerDone <- writer.Run(writerCtx) }()

	h := &Harness{
		scenario:    scenario,
		ctx:         ctx,
		ch:          gate.NewChannels(),
		alerts:      &testutil.AlertSink{},
		logger:      logger,
		interrupted: make(chan struct{}),
	}

	// The recorder goes first: chevrons with a known anchor answer inside
	// the activation broadcast.
	rec := journal.Attach(h.ch, writer.Sink)

	h.board = chevron.NewBoard(scenario.Chevrons, h.ch, nil, chevron.WithLogger(logger))
	h.layout = chevron.RowLayout(h.board.Len(), gateSize, slotSize)

	tokens := scenario.Tokens
	if len(tokens) == 0 {
		tokens = []string{"dial-1"}
	}
	h.engine = engine.New(h.ch, cat,
		engine.WithChevronCount(h.board.Len()),
		engine.WithSettleDelay(scenario.Settle),
		engine.WithTokenGenerator(engine.NewFixedGenerator(tokens...)),
		engine.WithLogger(logger),
	)
	h.computer = dialer.New(h.engine, validator, h.alerts, logger)

	stopDriver := func() {}
	if scenario.Anchors == AnchorsOnActivation {
		stopDriver = h.startDriver()
	} else {
		h.board.Measure(h.layout)
	}

	result := NewResult()
	runErr := h.execute(ctx, result)

	// Snapshot before teardown: closing the engine resets the gate.
	result.Trace = rec.Entries()
	result.Status = h.ch.Status.Get()
	result.Alerts = h.alerts.Alerts()

	rec.Close()
	stopDriver()
	h.engine.Close()
	h.board.Close()

	writer.Close()
	if err := <-writerDone; err != nil {
		return nil, fmt.Errorf("journal writer: %w", err)
	}

	if runErr != nil {
		return nil, runErr
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateExpectations(result, scenario.Expect, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// execute dials the scenario input and waits for the last attempt.
func (h *Harness) execute(ctx context.Context, result *Result) error {
	att, err := h.dial(ctx, h.scenario.Dial)
	if err != nil {
		result.DialErr = err
		h.logger.Info("dial rejected", "scenario", h.scenario.Name, "error", err)
		return nil
	}

	if err := wait(ctx, att); err != nil {
		return fmt.Errorf("scenario %s: %w", h.scenario.Name, err)
	}

	if !h.hasFired() {
		return nil
	}
	select {
	case <-h.interrupted:
	case <-ctx.Done():
		return fmt.Errorf("scenario %s: interrupt did not finish: %w", h.scenario.Name, ctx.Err())
	}

	h.mu.Lock()
	next, redialErr := h.redialed, h.redialErr
	h.mu.Unlock()

	if redialErr != nil {
		result.DialErr = redialErr
	}
	if next != nil {
		if err := wait(ctx, next); err != nil {
			return fmt.Errorf("scenario %s: redial: %w", h.scenario.Name, err)
		}
	}
	return nil
}

func (h *Harness) dial(ctx context.Context, in DialInput) (*engine.Attempt, error) {
	if in.IsText() {
		return h.computer.Submit(ctx, in.Text)
	}
	return h.engine.BeginDialing(ctx, gate.ParseGlyphs(in.Address))
}

// wait blocks until att is done. An aborted attempt is not an error here;
// expectations decide whether it was wanted.
func wait(ctx context.Context, att *engine.Attempt) error {
	err := att.Wait(ctx)
	if err == nil || errors.Is(err, engine.ErrAborted) {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("attempt %s did not finish: %w", att.ID, ctxErr)
	}
	// Any other abort (a handshake timeout) is still an outcome.
	return nil
}

// startDriver measures each chevron only when an activation for it arrives,
// and performs the scenario interrupt in place of the Nth measurement.
// It runs on its own goroutine: the engine control surface must not be
// called from inside a channel handler.
func (h *Harness) startDriver() func() {
	acts := make(chan gate.Activation, 128)
	release := h.ch.Activations.Subscribe(func(a gate.Activation) {
		select {
		case acts <- a:
		default:
			h.logger.Warn("driver queue full, activation dropped", "step", a.Step)
		}
	})

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			case a := <-acts:
				h.onActivation(a)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			release()
			close(stop)
			<-done
		})
	}
}

func (h *Harness) onActivation(a gate.Activation) {
	h.mu.Lock()
	h.count++
	trigger := h.scenario.Interrupt != nil && !h.fired && h.count == h.scenario.Interrupt.After
	if trigger {
		h.fired = true
	}
	h.mu.Unlock()

	if trigger {
		defer close(h.interrupted)
		if h.interrupt() {
			return
		}
	}
	h.measure(a.Chevron)
}

// interrupt performs the scenario interrupt. Returns false when the
// interrupt was rejected and the current sequence keeps running.
func (h *Harness) interrupt() bool {
	in := h.scenario.Interrupt
	switch in.Action {
	case InterruptReset:
		h.engine.Reset()
		return true

	case InterruptRedial:
		att, err := h.dial(h.ctx, *in.Redial)
		h.mu.Lock()
		h.redialed, h.redialErr = att, err
		h.mu.Unlock()
		return err == nil
	}
	return false
}

func (h *Harness) measure(number int) {
	c := h.board.Chevron(number)
	if c == nil {
		h.logger.Warn("activation for unknown chevron", "chevron", number)
		return
	}
	if cur, ok := c.Position().Get(); ok && cur.Defined() {
		return
	}
	c.Position().Set(h.layout(number))
}

func (h *Harness) hasFired() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fired
}

func loadCatalog(dir string) (*catalog.Catalog, error) {
	if dir == "" {
		return catalog.Default()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return catalog.LoadDir(abs)
}
