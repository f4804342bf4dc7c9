package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/dhd/internal/gate"
	"github.com/roach88/dhd/internal/store"
)

// Writer persists entries to the store on a single goroutine.
//
// Enqueue is safe from any goroutine; Run is the only writer to the store.
type Writer struct {
	store  *store.Store
	queue  *entryQueue
	logger *slog.Logger
}

// NewWriter creates a writer for s. Start it with Run.
func NewWriter(s *store.Store, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{store: s, queue: newEntryQueue(), logger: logger}
}

// Enqueue schedules e for persistence. Returns false once the writer is
// closed. Usable as a Recorder sink.
func (w *Writer) Enqueue(e Entry) bool {
	return w.queue.Enqueue(e)
}

// Sink adapts Enqueue to the Recorder sink signature.
func (w *Writer) Sink(e Entry) {
	if !w.Enqueue(e) {
		w.logger.Warn("journal closed, entry dropped", "seq", e.Seq, "kind", e.Kind)
	}
}

// Run persists entries until ctx is cancelled or the writer is closed and
// drained. Write errors are logged and the loop continues.
func (w *Writer) Run(ctx context.Context) error {
	w.logger.Debug("journal writer starting")

	for {
		if e, ok := w.queue.TryDequeue(); ok {
			if err := w.persist(ctx, e); err != nil {
				w.logger.Error("journal write failed", "seq", e.Seq, "attempt", e.Attempt, "kind", e.Kind, "error", err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			w.logger.Debug("journal writer stopping: context cancelled")
			w.queue.Close()
			return ctx.Err()

		case <-w.queue.Wait():
			// The signal channel closes with the queue, so this fires
			// immediately once closed.
			if w.queue.Len() == 0 && w.closed() {
				w.logger.Debug("journal writer stopping: queue closed")
				return nil
			}
		}
	}
}

// Close stops accepting entries. Run returns after draining what is queued.
func (w *Writer) Close() {
	w.queue.Close()
}

func (w *Writer) closed() bool {
	w.queue.mu.Lock()
	defer w.queue.mu.Unlock()
	return w.queue.closed
}

// persist writes e and keeps the attempts table in step.
func (w *Writer) persist(ctx context.Context, e Entry) error {
	switch {
	case e.Kind == KindAttempt && e.Phase == string(gate.AttemptStarted):
		if err := w.store.WriteAttempt(ctx, store.AttemptRecord{ID: e.Attempt, Address: e.Address, Seq: e.Seq}); err != nil {
			return err
		}
	case e.Kind == KindAttempt && e.Phase == string(gate.AttemptAborted):
		if err := w.store.FinishAttempt(ctx, e.Attempt, store.OutcomeAborted, "", e.Reason); err != nil {
			return err
		}
	case e.Kind == KindResult:
		outcome := store.OutcomeFailed
		if e.Reached {
			outcome = store.OutcomeReached
		}
		if err := w.store.FinishAttempt(ctx, e.Attempt, outcome, e.Destination, ""); err != nil {
			return err
		}
	}

	if err := w.store.WriteEntry(ctx, store.Entry{
		AttemptID: e.Attempt,
		Seq:       e.Seq,
		Kind:      string(e.Kind),
		Detail:    e.Detail,
	}); err != nil {
		return fmt.Errorf("entry %d: %w", e.Seq, err)
	}
	return nil
}

// Replay loads a persisted attempt back into entries.
func Replay(ctx context.Context, s *store.Store, attemptID string) ([]Entry, error) {
	if _, err := s.ReadAttempt(ctx, attemptID); err != nil {
		return nil, err
	}
	rows, err := s.ReadEntries(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, Entry{Seq: r.Seq, Attempt: r.AttemptID, Kind: Kind(r.Kind), Detail: r.Detail})
	}
	return out, nil
}
