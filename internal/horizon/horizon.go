// Package horizon implements the event horizon component, which mirrors the
// gate status with a looping visual and the ambient audio.
package horizon

import (
	"log/slog"
	"sync"

	"github.com/roach88/dhd/internal/fx"
	"github.com/roach88/dhd/internal/gate"
)

// Target is the element key used for every event horizon animation.
const Target = "event-horizon"

// EventHorizon reacts to Idle, Active and Shutdown. Dialing and Engaged
// leave the current visual running.
//
// It never writes the status channel: the return to Idle after Shutdown is
// the engine's settle delay.
type EventHorizon struct {
	anim   fx.Animator
	audio  fx.Audio
	logger *slog.Logger

	mu      sync.Mutex
	current fx.Handle
	name    fx.Name
	ambient bool

	release func()
}

// New creates an event horizon subscribed to status. The current status is
// applied immediately.
func New(status *gate.StatusChannel, anim fx.Animator, audio fx.Audio, logger *slog.Logger) *EventHorizon {
	if anim == nil {
		anim = fx.NopAnimator{}
	}
	if audio == nil {
		audio = fx.NopAudio{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &EventHorizon{anim: anim, audio: audio, logger: logger}
	h.release = status.Subscribe(h.onStatus)
	return h
}

// Animation returns the name of the visual currently running.
func (h *EventHorizon) Animation() fx.Name {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.name
}

// Close stops listening, kills the running visual and silences the ambient
// audio if it is still on.
func (h *EventHorizon) Close() {
	h.release()

	h.mu.Lock()
	if h.current != nil {
		h.current.Kill()
		h.current = nil
	}
	stop := h.ambient
	h.ambient = false
	h.mu.Unlock()

	if stop {
		h.audio.StopAmbient()
	}
}

func (h *EventHorizon) onStatus(s gate.Status) {
	var name fx.Name
	switch s {
	case gate.Idle:
		name = fx.InactiveFlasher
	case gate.Active:
		name = fx.GateOpen
	case gate.Shutdown:
		name = fx.GateShutdown
	default:
		return
	}

	h.mu.Lock()
	if h.current != nil {
		h.current.Kill()
	}
	h.current = h.anim.Play(fx.Animation{Name: name, Target: Target})
	h.name = name
	// Reset and redial reach Idle straight from Active, so any move off
	// Active stops the ambient loop.
	start := s == gate.Active && !h.ambient
	stop := s != gate.Active && h.ambient
	h.ambient = s == gate.Active
	h.mu.Unlock()

	h.logger.Debug("event horizon", "status", s, "animation", name)

	switch {
	case start:
		h.audio.StartAmbient()
	case stop:
		h.audio.StopAmbient()
	}
}
