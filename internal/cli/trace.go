package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/dhd/internal/journal"
	"github.com/roach88/dhd/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Limit    int
	Kind     string // optional - filter to one entry kind
}

// AttemptSummary is one journaled attempt.
type AttemptSummary struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	Outcome     string `json:"outcome"`
	Destination string `json:"destination,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// TraceResult holds the recorded trace of one attempt.
type TraceResult struct {
	Attempt AttemptSummary  `json:"attempt"`
	Entries []journal.Entry `json:"entries"`
	Stats   TraceStats      `json:"stats"`
}

// TraceStats holds summary counts for the trace.
type TraceStats struct {
	TotalEntries int `json:"total_entries"`
	Activations  int `json:"activations"`
	Readies      int `json:"readies"`
	Statuses     int `json:"statuses"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [attempt-id]",
		Short: "Inspect the dial journal",
		Long: `Inspect dialing attempts recorded in the journal.

Without an argument, lists recent attempts, newest first. With an
attempt id, prints every recorded entry of that attempt in order:
status changes, activations, ready handshakes and the result.

The journal is an audit trail only; nothing is restored from it.

Examples:
  dhd trace --db ./dhd.db
  dhd trace --db ./dhd.db 0190a5b2-...
  dhd trace --db ./dhd.db 0190a5b2-... --kind activation --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database (defaults to journal.path)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum attempts to list")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show entries of this kind")

	return cmd
}

func runTrace(opts *TraceOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	path := opts.Database
	if path == "" {
		path = opts.Config.Journal.Path
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no journal: pass --db or set journal.path")
	}
	st, err := store.Open(path, store.ReadOnly())
	if errors.Is(err, fs.ErrNotExist) {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	f := newFormatter(opts.RootOptions, cmd)
	if len(args) == 0 {
		return listAttempts(ctx, f, opts.Limit, st)
	}
	return showAttempt(ctx, f, opts.Kind, st, args[0])
}

func listAttempts(ctx context.Context, f *OutputFormatter, limit int, st *store.Store) error {
	records, err := st.ListAttempts(ctx, limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list attempts", err)
	}

	summaries := make([]AttemptSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, summarize(r))
	}

	if f.JSON() {
		return f.Respond(CLIResponse{Status: "ok", Data: summaries})
	}

	w := f.Writer
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No attempts recorded.")
		return nil
	}
	fmt.Fprintln(w, headerStyle.Render("Attempts"))
	for _, s := range summaries {
		fmt.Fprintf(w, "  %s  %s  %s %s\n", s.ID, outcomeLabel(s.Outcome), s.Address, dimStyle.Render(s.Destination))
	}
	return nil
}

func showAttempt(ctx context.Context, f *OutputFormatter, kind string, st *store.Store, id string) error {
	entries, err := journal.Replay(ctx, st, id)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitFailure, fmt.Sprintf("attempt not found: %s", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read attempt", err)
	}
	record, err := st.ReadAttempt(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read attempt", err)
	}

	result := TraceResult{Attempt: summarize(record), Entries: []journal.Entry{}}
	for _, e := range entries {
		if kind != "" && string(e.Kind) != kind {
			continue
		}
		result.Entries = append(result.Entries, e)
	}
	result.Stats = traceStats(entries)

	if f.JSON() {
		return f.Respond(CLIResponse{Status: "ok", Data: result, Attempt: id})
	}

	w := f.Writer
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render("Attempt"), id)
	fmt.Fprintf(w, "Address: %s\n", result.Attempt.Address)
	fmt.Fprintf(w, "Outcome: %s\n", outcomeLabel(result.Attempt.Outcome))
	if result.Attempt.Destination != "" {
		fmt.Fprintf(w, "Destination: %s\n", result.Attempt.Destination)
	}
	if result.Attempt.Reason != "" {
		fmt.Fprintf(w, "Reason: %s\n", result.Attempt.Reason)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "  (no entries)")
	}
	for _, e := range result.Entries {
		fmt.Fprintf(w, "  %s\n", e)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Entries: %d\n", result.Stats.TotalEntries)
	fmt.Fprintf(w, "  Activations:   %d\n", result.Stats.Activations)
	fmt.Fprintf(w, "  Readies:       %d\n", result.Stats.Readies)
	fmt.Fprintf(w, "  Statuses:      %d\n", result.Stats.Statuses)
	return nil
}

func summarize(r store.AttemptRecord) AttemptSummary {
	return AttemptSummary{
		ID:          r.ID,
		Address:     r.Address,
		Outcome:     r.Outcome,
		Destination: r.Destination,
		Reason:      r.Reason,
	}
}

func traceStats(entries []journal.Entry) TraceStats {
	stats := TraceStats{TotalEntries: len(entries)}
	for _, e := range entries {
		switch e.Kind {
		case journal.KindActivation:
			stats.Activations++
		case journal.KindReady:
			stats.Readies++
		case journal.KindStatus:
			stats.Statuses++
		}
	}
	return stats
}

func outcomeLabel(outcome string) string {
	switch outcome {
	case store.OutcomeReached:
		return okStyle.Render(outcome)
	case store.OutcomeFailed, store.OutcomeAborted:
		return failStyle.Render(outcome)
	default:
		return dimStyle.Render(outcome)
	}
}
