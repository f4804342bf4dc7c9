package fx

import (
	"log/slog"
	"sync"
	"time"
)

// Name identifies a named animation timeline.
type Name string

// Chevron box timelines.
const (
	LockSymbolSuccess Name = "lock-symbol-success"
	LockSymbolFailed  Name = "lock-symbol-failed"
	ClearSymbol       Name = "clear-symbol"
	FlashOnActivate   Name = "flash-on-activate"
)

// Event horizon timelines.
const (
	InactiveFlasher Name = "inactive-flasher"
	GateOpen        Name = "gate-open"
	GateShutdown    Name = "gate-shutdown"
)

// Trajectory is the travel path of a symbol from the gate toward its box,
// relative to the box.
type Trajectory struct {
	CenterY float64 `json:"center_y"`
	StartX  float64 `json:"start_x"`
	StartY  float64 `json:"start_y"`
}

// Animation is one playback request.
type Animation struct {
	Name   Name       `json:"name"`
	Target string     `json:"target"` // element key, e.g. "chevron-3"
	Path   Trajectory `json:"path,omitempty"`
}

// Handle controls a playing animation.
type Handle interface {
	// Done is closed once playback finished or was killed.
	Done() <-chan struct{}
	// Kill stops playback. Idempotent.
	Kill()
}

// Animator starts animations. Play must not block and must not publish on
// any gate channel.
type Animator interface {
	Play(a Animation) Handle
}

// handle is the Handle used by the animators in this package.
type handle struct {
	once  sync.Once
	done  chan struct{}
	timer *time.Timer
}

func newHandle() *handle {
	return &handle{done: make(chan struct{})}
}

func (h *handle) Done() <-chan struct{} { return h.done }

func (h *handle) Kill() {
	if h.timer != nil {
		h.timer.Stop()
	}
	h.finish()
}

func (h *handle) finish() {
	h.once.Do(func() { close(h.done) })
}

// NopAnimator completes every animation instantly.
type NopAnimator struct{}

// Play implements Animator.
func (NopAnimator) Play(Animation) Handle {
	h := newHandle()
	h.finish()
	return h
}

// DefaultDurations approximates the visual length of each timeline.
var DefaultDurations = map[Name]time.Duration{
	LockSymbolSuccess: 1500 * time.Millisecond,
	LockSymbolFailed:  1500 * time.Millisecond,
	ClearSymbol:       300 * time.Millisecond,
	FlashOnActivate:   600 * time.Millisecond,
	InactiveFlasher:   2 * time.Second,
	GateOpen:          2500 * time.Millisecond,
	GateShutdown:      time.Second,
}

// TimedAnimator simulates playback with timers. Useful for the CLI, where
// there is nothing to render but durations still matter to the viewer.
type TimedAnimator struct {
	// Scale multiplies every duration. Zero completes instantly.
	Scale     float64
	Durations map[Name]time.Duration
	Logger    *slog.Logger
}

// NewTimedAnimator creates an animator using DefaultDurations.
func NewTimedAnimator(scale float64, logger *slog.Logger) *TimedAnimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimedAnimator{Scale: scale, Durations: DefaultDurations, Logger: logger}
}

// Duration returns the scaled duration of name.
func (t *TimedAnimator) Duration(name Name) time.Duration {
	return time.Duration(float64(t.Durations[name]) * t.Scale)
}

// Play implements Animator.
func (t *TimedAnimator) Play(a Animation) Handle {
	h := newHandle()
	d := t.Duration(a.Name)

	t.Logger.Debug("animation started", "name", a.Name, "target", a.Target, "duration", d)
	if d <= 0 {
		h.finish()
		return h
	}
	h.timer = time.AfterFunc(d, h.finish)
	return h
}
