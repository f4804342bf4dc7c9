package journal

import (
	"fmt"
	"sync"

	"github.com/roach88/dhd/internal/gate"
)

// Recorder traces every gate channel of one Channels bundle.
//
// Attach it before any component that answers activations synchronously
// (the chevron board): delivery follows subscription order, so a recorder
// attached later would see a handshake before the activation that caused it.
type Recorder struct {
	mu      sync.Mutex
	seq     int64
	attempt string
	entries []Entry
	sink    func(Entry)

	releases []func()
}

// Attach creates a recorder subscribed to ch. sink, if not nil, receives
// every entry in order, synchronously; it must not block.
func Attach(ch *gate.Channels, sink func(Entry)) *Recorder {
	r := &Recorder{attempt: NoAttempt, sink: sink}
	r.releases = []func(){
		ch.Attempts.Subscribe(r.onAttempt),
		ch.Status.Subscribe(func(s gate.Status) {
			r.add(Entry{Kind: KindStatus, Detail: s.String()})
		}),
		ch.Activations.Subscribe(func(a gate.Activation) {
			r.add(Entry{Attempt: a.Attempt, Kind: KindActivation, Detail: a.String()})
		}),
		ch.Handshake.Subscribe(func(n int) {
			r.add(Entry{Kind: KindReady, Detail: fmt.Sprintf("chevron=%d", n)})
		}),
		ch.Complete.Subscribe(func(id string) {
			r.add(Entry{Attempt: id, Kind: KindComplete, Detail: "sequence"})
		}),
		ch.Results.Subscribe(r.onResult),
	}
	return r
}

func (r *Recorder) onAttempt(e gate.AttemptEvent) {
	entry := Entry{
		Attempt: e.ID,
		Kind:    KindAttempt,
		Phase:   string(e.Phase),
		Address: e.Address.String(),
		Reason:  e.Reason,
	}
	switch e.Phase {
	case gate.AttemptStarted:
		entry.Detail = "started address=" + entry.Address
	case gate.AttemptAborted:
		entry.Detail = "aborted reason=" + e.Reason
	default:
		entry.Detail = string(e.Phase)
	}
	r.add(entry)
}

func (r *Recorder) onResult(res gate.SequenceResult) {
	entry := Entry{Attempt: res.Attempt, Kind: KindResult, Reached: res.DestinationReached}
	entry.Detail = fmt.Sprintf("reached=%t", res.DestinationReached)
	if res.Destination != nil {
		entry.Destination = res.Destination.ID
		entry.Detail += " destination=" + res.Destination.ID
	}
	r.add(entry)
}

// add stamps e with the next seq and the current attempt when it has none.
func (r *Recorder) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Kind == KindAttempt && e.Phase == string(gate.AttemptStarted) {
		r.attempt = e.Attempt
	}
	if e.Attempt == "" {
		e.Attempt = r.attempt
	}
	r.seq++
	e.Seq = r.seq
	r.entries = append(r.entries, e)

	if r.sink != nil {
		r.sink(e)
	}
}

// Entries returns a copy of the trace.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Filter returns the entries of kind, in order.
func (r *Recorder) Filter(kind Kind) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Lines renders the trace as text.
func (r *Recorder) Lines() string {
	return Lines(r.Entries())
}

// Close stops recording. Idempotent.
func (r *Recorder) Close() {
	r.mu.Lock()
	releases := r.releases
	r.releases = nil
	r.mu.Unlock()

	for _, release := range releases {
		release()
	}
}
