package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Attempt outcomes.
const (
	OutcomeRunning = "running"
	OutcomeReached = "reached"
	OutcomeFailed  = "failed"
	OutcomeAborted = "aborted"
)

// AttemptRecord is one row of the attempts table.
type AttemptRecord struct {
	ID          string
	Address     string
	Seq         int64
	Outcome     string
	Destination string
	Reason      string
}

// Entry is one recorded channel event.
type Entry struct {
	AttemptID string
	Seq       int64
	Kind      string
	Detail    string
}

// ErrNotFound is returned when an attempt does not exist.
var ErrNotFound = errors.New("not found")

// WriteAttempt records the start of an attempt.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteAttempt(ctx context.Context, a AttemptRecord) error {
	outcome := a.Outcome
	if outcome == "" {
		outcome = OutcomeRunning
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts (id, address, seq, outcome, destination, reason)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, a.ID, a.Address, a.Seq, outcome, a.Destination, a.Reason)
	if err != nil {
		return fmt.Errorf("write attempt: %w", err)
	}
	return nil
}

// FinishAttempt records the outcome of an attempt. Returns ErrNotFound if
// the attempt was never written.
func (s *Store) FinishAttempt(ctx context.Context, id, outcome, destination, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE attempts SET outcome = ?, destination = ?, reason = ?
		WHERE id = ?
	`, outcome, destination, reason, id)
	if err != nil {
		return fmt.Errorf("finish attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish attempt: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish attempt %s: %w", id, ErrNotFound)
	}
	return nil
}

// WriteEntry appends one entry.
func (s *Store) WriteEntry(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (attempt_id, seq, kind, detail)
		VALUES (?, ?, ?, ?)
	`, e.AttemptID, e.Seq, e.Kind, e.Detail)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

// ReadAttempt loads one attempt.
func (s *Store) ReadAttempt(ctx context.Context, id string) (AttemptRecord, error) {
	var a AttemptRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, address, seq, outcome, destination, reason
		FROM attempts WHERE id = ?
	`, id).Scan(&a.ID, &a.Address, &a.Seq, &a.Outcome, &a.Destination, &a.Reason)
	if errors.Is(err, sql.ErrNoRows) {
		return AttemptRecord{}, fmt.Errorf("read attempt %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("read attempt: %w", err)
	}
	return a, nil
}

// ReadEntries returns every entry of an attempt in seq order.
func (s *Store) ReadEntries(ctx context.Context, attemptID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT attempt_id, seq, kind, detail
		FROM entries
		WHERE attempt_id = ?
		ORDER BY seq ASC, id ASC
	`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.AttemptID, &e.Seq, &e.Kind, &e.Detail); err != nil {
			return nil, fmt.Errorf("read entries: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	return out, nil
}

// ListAttempts returns up to limit attempts, newest id first. Attempt ids
// are UUIDv7 in production, so id order is start order. Zero limit lists
// all.
func (s *Store) ListAttempts(ctx context.Context, limit int) ([]AttemptRecord, error) {
	query := `
		SELECT id, address, seq, outcome, destination, reason
		FROM attempts
		ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var a AttemptRecord
		if err := rows.Scan(&a.ID, &a.Address, &a.Seq, &a.Outcome, &a.Destination, &a.Reason); err != nil {
			return nil, fmt.Errorf("list attempts: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return out, nil
}
