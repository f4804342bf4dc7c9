package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/dhd/internal/address"
	"github.com/roach88/dhd/internal/engine"
	"github.com/roach88/dhd/internal/gate"
	"github.com/roach88/dhd/internal/metrics"
)

// DialOptions holds flags for the dial command.
type DialOptions struct {
	*RootOptions
	Destination string        // catalog destination id instead of typed coordinates
	Database    string        // journal path, overrides journal.path
	MetricsAddr string        // serve /metrics here while dialing
	Hold        time.Duration // keep an established connection open this long
	Timeout     time.Duration // bound the whole command

	// Tokens overrides attempt token generation. Nil uses UUIDv7.
	Tokens engine.TokenGenerator
}

// DialResult is the outcome of one dial command.
type DialResult struct {
	Attempt     string            `json:"attempt,omitempty"`
	Address     string            `json:"address"`
	Reached     bool              `json:"reached"`
	Destination *gate.Destination `json:"destination,omitempty"`
	Status      string            `json:"status"`
	Aborted     string            `json:"aborted,omitempty"`
	Trace       []string          `json:"trace,omitempty"`
}

// SuggestionView is a nearby catalog destination offered after a miss.
type SuggestionView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Distance int    `json:"distance"`
}

// NewDialCommand creates the dial command.
func NewDialCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DialOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dial [coordinates...]",
		Short: "Dial an address",
		Long: `Dial typed coordinates or a catalog destination.

Coordinates are normalized (case and separators), checked against the
configured pattern, and the point of origin is appended before the
sequence starts. Each chevron locks in turn; the gate ends active when
the address resolves to a destination, otherwise it shuts down and
returns to idle.

Exit codes:
  0 - Destination reached
  1 - Address rejected, unknown, or the sequence was aborted
  2 - Command error (bad flags, catalog or journal unavailable)

Examples:
  dhd dial GDC AFE
  dhd dial --destination abydos --hold 5s
  dhd dial "brt-5qx" --db ./dhd.db --format json
  dhd dial GDCAFE --metrics-addr :9090 --hold 1m`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDial(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Destination, "destination", "d", "", "dial a catalog destination by id")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database (overrides journal.path)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().DurationVar(&opts.Hold, "hold", 0, "keep an established connection open, then shut it down")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "abort if the command runs longer than this")

	return cmd
}

func runDial(opts *DialOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	text := strings.TrimSpace(strings.Join(args, " "))
	if (text == "") == (opts.Destination == "") {
		return NewExitError(ExitCommandError, "dial needs coordinates or --destination, not both")
	}

	logger := opts.Logger(cmd.ErrOrStderr())

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, aborting", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var collector *metrics.Collector
	if opts.MetricsAddr != "" {
		collector = metrics.New()
		_, stop, err := serveMetrics(opts.MetricsAddr, collector, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start metrics server", err)
		}
		defer stop()
	}

	journalPath := opts.Database
	if journalPath == "" {
		journalPath = opts.Config.Journal.Path
	}

	sess, err := newSession(sessionConfig{
		Config:      opts.Config,
		JournalPath: journalPath,
		Metrics:     collector,
		Tokens:      opts.Tokens,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Error("error closing session", "error", err)
		}
	}()

	if !formatter.JSON() {
		sess.watch(&progress{w: cmd.OutOrStdout()})
	}

	att, err := startDial(ctx, sess, opts.Destination, text)
	if err != nil {
		return reportRejected(formatter, sess, text, err)
	}
	logger.Debug("dialing", "attempt", att.ID, "address", att.Address.String())

	result := DialResult{Attempt: att.ID, Address: att.Address.String()}
	if err := att.Wait(ctx); err != nil {
		result.Aborted = err.Error()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			sess.engine.Reset()
		}
	}

	if res, ok := att.Result(); ok {
		result.Reached = res.DestinationReached
		result.Destination = res.Destination
	}

	if result.Reached && opts.Hold > 0 {
		if err := hold(ctx, sess, opts.Hold); err != nil {
			logger.Warn("shutdown interrupted", "error", err)
		}
	}

	result.Status = sess.ch.Status.Get().String()
	result.Trace = sess.trace(att.ID)
	return outputDialResult(formatter, result)
}

// startDial begins the attempt from a destination id or typed coordinates.
func startDial(ctx context.Context, sess *session, destination, text string) (*engine.Attempt, error) {
	if destination == "" {
		return sess.computer.Submit(ctx, text)
	}
	d, ok := sess.catalog.Lookup(destination)
	if !ok {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown destination: %s", destination))
	}
	return sess.computer.Dial(ctx, d)
}

// hold keeps the connection open for d, then shuts the gate down and waits
// for it to idle.
func hold(ctx context.Context, sess *session, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := sess.engine.Shutdown(ctx); err != nil {
		return err
	}
	return sess.waitStatus(ctx, gate.Idle)
}

// reportRejected renders a dial that never started.
func reportRejected(f *OutputFormatter, sess *session, text string, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	var gerr *gate.Error
	if !errors.As(err, &gerr) {
		return WrapExitError(ExitCommandError, "dial failed", err)
	}

	var suggestions []SuggestionView
	if coords, perr := address.Parse(text); perr == nil {
		for _, s := range sess.catalog.Nearest(coords, 3) {
			suggestions = append(suggestions, SuggestionView{
				ID:       s.Destination.ID,
				Name:     s.Destination.Name,
				Address:  s.Destination.Address.String(),
				Distance: s.Distance,
			})
		}
	}

	if f.JSON() {
		var extra map[string]interface{}
		if len(suggestions) > 0 {
			extra = map[string]interface{}{"suggestions": suggestions}
		}
		if encErr := f.GateError(gerr, extra); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintf(f.Writer, "%s %s\n", failStyle.Render("rejected"), gerr.Message)
		if len(suggestions) > 0 {
			fmt.Fprintln(f.Writer, dimStyle.Render("did you mean:"))
			for _, s := range suggestions {
				fmt.Fprintf(f.Writer, "  %s %s %s\n", idColumn.Render(s.ID), nameColumn.Render(s.Name), s.Address)
			}
		}
	}
	return WrapExitError(ExitFailure, "address rejected", err)
}

func outputDialResult(f *OutputFormatter, result DialResult) error {
	if f.JSON() {
		var err error
		switch {
		case result.Reached:
			err = f.Respond(CLIResponse{Status: "ok", Data: result, Attempt: result.Attempt})
		case result.Aborted != "":
			err = f.Fail("E_ABORTED", result.Aborted, result, result.Attempt)
		default:
			err = f.Fail("E_NOT_REACHED", "destination not reached", result, result.Attempt)
		}
		if err != nil {
			return err
		}
	} else {
		w := f.Writer
		fmt.Fprintln(w)
		switch {
		case result.Reached:
			fmt.Fprintf(w, "%s %s (%s)\n", okStyle.Render("✓ connected to"), result.Destination.Name, result.Destination.ID)
		case result.Aborted != "":
			fmt.Fprintf(w, "%s %s\n", failStyle.Render("✗ aborted:"), result.Aborted)
		default:
			fmt.Fprintf(w, "%s %s\n", failStyle.Render("✗ no destination at"), result.Address)
		}
		fmt.Fprintf(w, "%s %s\n", dimStyle.Render("attempt"), result.Attempt)
		if f.Verbose {
			for _, line := range result.Trace {
				fmt.Fprintf(f.errWriter(), "  %s\n", line)
			}
		}
	}

	if !result.Reached {
		if result.Aborted != "" {
			return NewExitError(ExitFailure, "dialing aborted: "+result.Aborted)
		}
		return NewExitError(ExitFailure, "destination not reached")
	}
	return nil
}

// serveMetrics exposes the collector on addr until the returned func is
// called. It returns the address actually bound.
func serveMetrics(addr string, c *metrics.Collector, logger *slog.Logger) (string, func(), error) {
	reg := prometheus.NewRegistry()
	if err := c.Register(reg); err != nil {
		return "", nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
