package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/dhd/internal/gate"
	"github.com/roach88/dhd/internal/journal"
	"github.com/roach88/dhd/internal/store"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Expectation name for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Trace    []journal.Entry // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, entry := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", entry)
		}
	}

	return buf.String()
}

// AssertionContext provides context for evaluating expectations.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateExpectations checks every set field of expect against the result.
// Returns a slice of error messages for failed expectations. actx gives
// access to the journal store for outcome checks; it may be nil.
func EvaluateExpectations(result *Result, expect Expectation, actx *AssertionContext) []string {
	checks := []func(*Result, Expectation) error{
		assertChevrons,
		assertActivationCount,
		assertFailSteps,
		assertStatus,
		assertStatuses,
		assertResults,
		assertAlerts,
		assertDialError,
	}

	var errs []string
	for _, check := range checks {
		if err := check(result, expect); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(expect.Outcomes) > 0 {
		if actx == nil || actx.Store == nil {
			errs = append(errs, "outcomes: no journal store available")
		} else if err := assertOutcomes(actx, result, expect.Outcomes); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertChevrons checks the chevron index of every activation, in order.
func assertChevrons(r *Result, e Expectation) error {
	if e.Chevrons == nil {
		return nil
	}
	got := activationChevrons(r)
	if !slices.Equal(got, e.Chevrons) {
		return &AssertionError{
			Type:     "chevrons",
			Expected: fmt.Sprint(e.Chevrons),
			Actual:   fmt.Sprint(got),
			Trace:    r.Trace,
		}
	}
	return nil
}

func assertActivationCount(r *Result, e Expectation) error {
	if e.Activations == nil {
		return nil
	}
	if got := len(r.filter(journal.KindActivation)); got != *e.Activations {
		return &AssertionError{
			Type:     "activations",
			Expected: fmt.Sprintf("%d activations broadcast", *e.Activations),
			Actual:   fmt.Sprintf("%d activations", got),
			Trace:    r.Trace,
		}
	}
	return nil
}

func assertFailSteps(r *Result, e Expectation) error {
	if e.FailSteps == nil {
		return nil
	}
	var got []int
	for _, entry := range r.filter(journal.KindActivation) {
		if strings.HasSuffix(entry.Detail, "fail=true") {
			got = append(got, detailInt(entry.Detail, "step"))
		}
	}
	if !slices.Equal(got, e.FailSteps) {
		return &AssertionError{
			Type:     "fail_steps",
			Expected: fmt.Sprint(e.FailSteps),
			Actual:   fmt.Sprint(got),
			Trace:    r.Trace,
		}
	}
	return nil
}

func assertStatus(r *Result, e Expectation) error {
	if e.Status == "" {
		return nil
	}
	if r.Status.String() != e.Status {
		return &AssertionError{
			Type:     "status",
			Expected: "final status " + e.Status,
			Actual:   "final status " + r.Status.String(),
			Trace:    r.Trace,
		}
	}
	return nil
}

func assertStatuses(r *Result, e Expectation) error {
	if e.Statuses == nil {
		return nil
	}
	var got []string
	for _, entry := range r.filter(journal.KindStatus) {
		got = append(got, entry.Detail)
	}
	if !slices.Equal(got, e.Statuses) {
		return &AssertionError{
			Type:     "statuses",
			Expected: strings.Join(e.Statuses, " -> "),
			Actual:   strings.Join(got, " -> "),
			Trace:    r.Trace,
		}
	}
	return nil
}

// assertResults checks the result count and the last published result.
func assertResults(r *Result, e Expectation) error {
	results := r.filter(journal.KindResult)

	if e.Results != nil && len(results) != *e.Results {
		return &AssertionError{
			Type:     "results",
			Expected: fmt.Sprintf("%d results published", *e.Results),
			Actual:   fmt.Sprintf("%d results", len(results)),
			Trace:    r.Trace,
		}
	}

	if e.Reached == nil && e.Destination == "" {
		return nil
	}
	if len(results) == 0 {
		return &AssertionError{
			Type:     "result",
			Expected: "a published result",
			Actual:   "result channel unwritten",
			Trace:    r.Trace,
		}
	}

	last := results[len(results)-1]
	if e.Reached != nil && last.Reached != *e.Reached {
		return &AssertionError{
			Type:     "result",
			Expected: fmt.Sprintf("reached=%t", *e.Reached),
			Actual:   fmt.Sprintf("reached=%t", last.Reached),
			Trace:    r.Trace,
		}
	}
	if e.Destination != "" && last.Destination != e.Destination {
		return &AssertionError{
			Type:     "result",
			Expected: "destination " + e.Destination,
			Actual:   fmt.Sprintf("destination %q", last.Destination),
			Trace:    r.Trace,
		}
	}
	return nil
}

func assertAlerts(r *Result, e Expectation) error {
	if e.Alerts == nil {
		return nil
	}
	if len(r.Alerts) != *e.Alerts {
		return &AssertionError{
			Type:     "alerts",
			Expected: fmt.Sprintf("%d alerts raised", *e.Alerts),
			Actual:   fmt.Sprintf("%d alerts", len(r.Alerts)),
		}
	}
	return nil
}

func assertDialError(r *Result, e Expectation) error {
	if e.Error == "" {
		if r.DialErr != nil {
			return &AssertionError{
				Type:     "error",
				Expected: "dial accepted",
				Actual:   r.DialErr.Error(),
			}
		}
		return nil
	}

	var gerr *gate.Error
	if !errors.As(r.DialErr, &gerr) {
		actual := "no error"
		if r.DialErr != nil {
			actual = r.DialErr.Error()
		}
		return &AssertionError{Type: "error", Expected: "error code " + e.Error, Actual: actual}
	}
	if string(gerr.Code) != e.Error {
		return &AssertionError{Type: "error", Expected: "error code " + e.Error, Actual: "error code " + string(gerr.Code)}
	}
	return nil
}

// assertOutcomes checks the journaled outcome of each named attempt.
func assertOutcomes(actx *AssertionContext, r *Result, want map[string]string) error {
	ids := make([]string, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		rec, err := actx.Store.ReadAttempt(actx.Ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return &AssertionError{
				Type:     "outcomes",
				Expected: fmt.Sprintf("attempt %s journaled as %s", id, want[id]),
				Actual:   "attempt not journaled",
				Trace:    r.Trace,
			}
		}
		if err != nil {
			return fmt.Errorf("read attempt %s: %w", id, err)
		}
		if rec.Outcome != want[id] {
			return &AssertionError{
				Type:     "outcomes",
				Expected: fmt.Sprintf("attempt %s journaled as %s", id, want[id]),
				Actual:   rec.Outcome,
				Trace:    r.Trace,
			}
		}
	}
	return nil
}

func activationChevrons(r *Result) []int {
	var out []int
	for _, entry := range r.filter(journal.KindActivation) {
		out = append(out, detailInt(entry.Detail, "chevron"))
	}
	return out
}

// detailInt reads key=N from an activation detail line.
func detailInt(detail, key string) int {
	for _, field := range strings.Fields(detail) {
		k, v, ok := strings.Cut(field, "=")
		if ok && k == key {
			n, _ := strconv.Atoi(v)
			return n
		}
	}
	return 0
}
