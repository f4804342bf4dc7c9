package harness

import (
	"github.com/roach88/dhd/internal/alert"
	"github.com/roach88/dhd/internal/gate"
	"github.com/roach88/dhd/internal/journal"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation matched.
	Pass bool `json:"pass"`

	// Trace is the journal of every channel event, in delivery order.
	// Used for expectations and golden comparison.
	Trace []journal.Entry `json:"trace"`

	// Status is the gate status once the scenario settled.
	Status gate.Status `json:"-"`

	// Alerts raised by the dialing computer.
	Alerts []alert.Alert `json:"alerts,omitempty"`

	// DialErr is the error returned by the dial input, if any.
	DialErr error `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []journal.Entry{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Lines renders the trace as golden text.
func (r *Result) Lines() string {
	return journal.Lines(r.Trace)
}

// filter returns the trace entries of kind.
func (r *Result) filter(kind journal.Kind) []journal.Entry {
	var out []journal.Entry
	for _, e := range r.Trace {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
