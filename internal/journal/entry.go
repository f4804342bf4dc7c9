// Package journal records everything that crosses the gate channels.
//
// A Recorder keeps an in-memory trace with its own logical sequence. The
// trace renders as stable text lines, which is what golden tests compare.
// A Writer optionally persists the same entries to the store on a single
// background goroutine.
package journal

import (
	"fmt"
	"strings"
)

// Kind is the channel an entry came from.
type Kind string

const (
	KindAttempt    Kind = "attempt"
	KindStatus     Kind = "status"
	KindActivation Kind = "activation"
	KindReady      Kind = "ready"
	KindComplete   Kind = "complete"
	KindResult     Kind = "result"
)

// NoAttempt marks entries recorded before the first attempt.
const NoAttempt = "-"

// Entry is one recorded event.
type Entry struct {
	Seq     int64  `json:"seq"`
	Attempt string `json:"attempt"`
	Kind    Kind   `json:"kind"`
	Detail  string `json:"detail"`

	// Attempt and result entries carry what the store needs.
	Phase       string `json:"phase,omitempty"`
	Address     string `json:"address,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Reached     bool   `json:"reached,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// String renders the entry as one trace line.
func (e Entry) String() string {
	return fmt.Sprintf("%03d %s %s %s", e.Seq, e.Attempt, e.Kind, e.Detail)
}

// Lines renders entries one per line, with a trailing newline.
func Lines(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
