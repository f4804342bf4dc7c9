package engine

import (
	"context"
	"sync"

	"github.com/roach88/dhd/internal/gate"
)

// Attempt is the handle of one dialing attempt.
type Attempt struct {
	ID      string
	Address gate.Address

	done chan struct{}

	mu        sync.Mutex
	result    gate.SequenceResult
	hasResult bool
	err       error
}

// Done is closed when the sequence goroutine exits: after the final status
// (and, on failure, the settle delay) or after an abort.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the attempt is done or ctx ends.
func (a *Attempt) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result returns the published outcome. ok is false for an aborted or
// still-running attempt.
func (a *Attempt) Result() (gate.SequenceResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result, a.hasResult
}

// Err returns why the attempt was aborted, or nil.
func (a *Attempt) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *Attempt) setResult(r gate.SequenceResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result = r
	a.hasResult = true
}

func (a *Attempt) setErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}
