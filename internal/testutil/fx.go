package testutil

import (
	"sync"

	"github.com/roach88/dhd/internal/alert"
	"github.com/roach88/dhd/internal/fx"
)

// RecordingAnimator records every playback request and completes it
// instantly.
//
// Thread-safety: All methods are safe for concurrent use.
type RecordingAnimator struct {
	mu     sync.Mutex
	played []fx.Animation
}

// NewRecordingAnimator creates an empty recorder.
func NewRecordingAnimator() *RecordingAnimator {
	return &RecordingAnimator{}
}

// Play implements fx.Animator.
func (r *RecordingAnimator) Play(a fx.Animation) fx.Handle {
	r.mu.Lock()
	r.played = append(r.played, a)
	r.mu.Unlock()
	return fx.NopAnimator{}.Play(a)
}

// Played returns a copy of every request so far.
func (r *RecordingAnimator) Played() []fx.Animation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fx.Animation, len(r.played))
	copy(out, r.played)
	return out
}

// Names returns the names of every request for target, in order. An empty
// target matches all.
func (r *RecordingAnimator) Names(target string) []fx.Name {
	var out []fx.Name
	for _, a := range r.Played() {
		if target == "" || a.Target == target {
			out = append(out, a.Name)
		}
	}
	return out
}

// Count returns how many requests named name were made.
func (r *RecordingAnimator) Count(name fx.Name) int {
	n := 0
	for _, a := range r.Played() {
		if a.Name == name {
			n++
		}
	}
	return n
}

// RecordingAudio records audio cues as "start" / "stop".
type RecordingAudio struct {
	mu   sync.Mutex
	cues []string
}

// StartAmbient implements fx.Audio.
func (r *RecordingAudio) StartAmbient() { r.add("start") }

// StopAmbient implements fx.Audio.
func (r *RecordingAudio) StopAmbient() { r.add("stop") }

func (r *RecordingAudio) add(cue string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, cue)
}

// Cues returns every cue so far.
func (r *RecordingAudio) Cues() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.cues))
	copy(out, r.cues)
	return out
}

// AlertSink records raised alerts.
type AlertSink struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

// Raise implements alert.Raiser.
func (s *AlertSink) Raise(a alert.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
}

// Alerts returns every alert so far.
func (s *AlertSink) Alerts() []alert.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]alert.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}
