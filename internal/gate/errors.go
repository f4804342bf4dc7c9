package gate

import (
	"errors"
	"fmt"
	"strconv"
)

// Error is a coded error raised by the dialing core.
//
// Codes let callers branch on the category (invalid input vs. aborted
// sequence vs. programming error) without string matching.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]string
}

// ErrorCode categorizes dialing errors.
type ErrorCode string

const (
	// ErrCodeInvalidTransition: a Status write that the state machine forbids.
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// ErrCodeEmptyAddress: dialing requested with zero glyphs.
	ErrCodeEmptyAddress ErrorCode = "EMPTY_ADDRESS"

	// ErrCodeInvalidGlyph: a symbol outside the alphabet.
	ErrCodeInvalidGlyph ErrorCode = "INVALID_GLYPH"

	// ErrCodePatternMismatch: input rejected by the configured pattern or length.
	ErrCodePatternMismatch ErrorCode = "PATTERN_MISMATCH"

	// ErrCodeHandshakeTimeout: a chevron never reported ready within the bound.
	ErrCodeHandshakeTimeout ErrorCode = "HANDSHAKE_TIMEOUT"

	// ErrCodeNotActive: shutdown requested while no connection is open.
	ErrCodeNotActive ErrorCode = "NOT_ACTIVE"
)

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s %v", e.Code, e.Message, e.Details)
}

// NewError creates an Error without details.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// IsCode reports whether err (or anything it wraps) is an Error with code.
func IsCode(err error, code ErrorCode) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}

// IsInvalidInput reports whether err means the address itself was rejected.
func IsInvalidInput(err error) bool {
	return IsCode(err, ErrCodeEmptyAddress) ||
		IsCode(err, ErrCodeInvalidGlyph) ||
		IsCode(err, ErrCodePatternMismatch)
}

// NewTransitionError reports a forbidden from→to status write.
func NewTransitionError(from, to Status) *Error {
	return &Error{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot move gate from %s to %s", from, to),
		Details: map[string]string{"from": from.String(), "to": to.String()},
	}
}

func itoa(i int) string { return strconv.Itoa(i) }
