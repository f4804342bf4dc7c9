package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/roach88/dhd/internal/alert"
	"github.com/roach88/dhd/internal/catalog"
	"github.com/roach88/dhd/internal/chevron"
	"github.com/roach88/dhd/internal/config"
	"github.com/roach88/dhd/internal/dialer"
	"github.com/roach88/dhd/internal/engine"
	"github.com/roach88/dhd/internal/fx"
	"github.com/roach88/dhd/internal/gate"
	"github.com/roach88/dhd/internal/horizon"
	"github.com/roach88/dhd/internal/journal"
	"github.com/roach88/dhd/internal/metrics"
	"github.com/roach88/dhd/internal/store"
)

// Simulated gate the chevrons are laid out on.
const (
	gateSize = 700
	slotSize = 40
)

// sessionConfig selects what a session wires up.
type sessionConfig struct {
	Config      config.Config
	JournalPath string             // empty keeps the trace in memory only
	Metrics     *metrics.Collector // nil disables metrics
	Tokens      engine.TokenGenerator
	Logger      *slog.Logger
}

// session is one fully wired gate: channels, board, event horizon, engine and
// dialing computer over a shared catalog, plus the journal and metrics.
type session struct {
	ch       *gate.Channels
	catalog  *catalog.Catalog
	board    *chevron.Board
	horizon  *horizon.EventHorizon
	engine   *engine.Engine
	computer *dialer.Computer
	alerts   *alert.Service
	recorder *journal.Recorder
	logger   *slog.Logger

	store      *store.Store
	writer     *journal.Writer
	writerDone chan error

	releases  []func()
	closeOnce sync.Once
	closeErr  error
}

func newSession(sc sessionConfig) (*session, error) {
	logger := sc.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := sc.Config

	cat, err := loadCatalog(cfg.Catalog.Dir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load catalog", err)
	}
	validator, err := cfg.Validator()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid address settings", err)
	}

	s := &session{
		ch:      gate.NewChannels(),
		catalog: cat,
		alerts:  alert.NewService(logger),
		logger:  logger,
	}

	var sink func(journal.Entry)
	if sc.JournalPath != "" {
		logger.Debug("opening journal", "path", sc.JournalPath)
		st, err := store.Open(sc.JournalPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		s.store = st
		s.writer = journal.NewWriter(st, logger)
		s.writerDone = make(chan error, 1)
		go func() { s.writerDone <- s.writer.Run(context.Background()) }()
		sink = s.writer.Sink
	}

	// The recorder attaches first so it sees each event before the chevrons
	// react to it.
	s.recorder = journal.Attach(s.ch, sink)
	if sc.Metrics != nil {
		s.releases = append(s.releases, sc.Metrics.Attach(s.ch))
	}

	anim := fx.NewTimedAnimator(cfg.Animation.Scale, logger)
	s.board = chevron.NewBoard(cfg.Gate.Chevrons, s.ch, anim, chevron.WithLogger(logger))
	s.board.Measure(chevron.RowLayout(s.board.Len(), gateSize, slotSize))
	s.horizon = horizon.New(s.ch.Status, anim, fx.LogAudio{Logger: logger}, logger)

	opts := []engine.Option{
		engine.WithChevronCount(s.board.Len()),
		engine.WithSettleDelay(cfg.Gate.Settle),
		engine.WithReadyTimeout(cfg.Gate.ReadyTimeout),
		engine.WithLogger(logger),
	}
	if sc.Tokens != nil {
		opts = append(opts, engine.WithTokenGenerator(sc.Tokens))
	}
	s.engine = engine.New(s.ch, cat, opts...)
	s.computer = dialer.New(s.engine, validator, s.alerts, logger)
	return s, nil
}

// watch prints channel traffic to p until the session closes.
func (s *session) watch(p *progress) {
	s.releases = append(s.releases,
		s.ch.Status.Subscribe(p.status),
		s.ch.Activations.Subscribe(p.activation),
		s.alerts.Subscribe(p.alert),
	)
}

// waitStatus blocks until the gate reports want.
func (s *session) waitStatus(ctx context.Context, want gate.Status) error {
	reached := make(chan struct{})
	var once sync.Once
	release := s.ch.Status.Subscribe(func(st gate.Status) {
		if st == want {
			once.Do(func() { close(reached) })
		}
	})
	defer release()

	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// trace returns the recorded lines belonging to attempt id.
func (s *session) trace(id string) []string {
	var lines []string
	for _, e := range s.recorder.Entries() {
		if e.Attempt == id {
			lines = append(lines, e.String())
		}
	}
	return lines
}

// Close detaches every listener, resets the gate and flushes the journal.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		for _, release := range s.releases {
			release()
		}
		s.engine.Close()
		s.recorder.Close()
		s.horizon.Close()
		s.board.Close()

		if s.writer == nil {
			return
		}
		s.writer.Close()
		if err := <-s.writerDone; err != nil {
			s.closeErr = fmt.Errorf("journal writer: %w", err)
		}
		if err := s.store.Close(); err != nil && s.closeErr == nil {
			s.closeErr = fmt.Errorf("close journal: %w", err)
		}
	})
	return s.closeErr
}

// loadCatalog loads a CUE catalog directory, or the built-in catalog when
// dir is empty.
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
