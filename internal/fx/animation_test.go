package fx

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopAnimator_CompletesImmediately(t *testing.T) {
	h := NopAnimator{}.Play(Animation{Name: GateOpen, Target: "event-horizon"})

	select {
	case <-h.Done():
	default:
		t.Fatal("nop animation should be done")
	}
	h.Kill()
}

func TestTimedAnimator_ScaleZero(t *testing.T) {
	a := NewTimedAnimator(0, nil)
	assert.Equal(t, time.Duration(0), a.Duration(LockSymbolSuccess))

	h := a.Play(Animation{Name: LockSymbolSuccess})
	select {
	case <-h.Done():
	default:
		t.Fatal("zero-scale animation should be done")
	}
}

func TestTimedAnimator_FinishesAfterDuration(t *testing.T) {
	a := &TimedAnimator{
		Scale:     1,
		Durations: map[Name]time.Duration{FlashOnActivate: 10 * time.Millisecond},
		Logger:    slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}

	h := a.Play(Animation{Name: FlashOnActivate, Target: "chevron-1"})
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("animation never finished")
	}
}

func TestTimedAnimator_Kill(t *testing.T) {
	a := &TimedAnimator{
		Scale:     1,
		Durations: map[Name]time.Duration{GateOpen: time.Hour},
		Logger:    slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}

	h := a.Play(Animation{Name: GateOpen})
	h.Kill()
	h.Kill()

	select {
	case <-h.Done():
	default:
		t.Fatal("killed animation should be done")
	}
}

func TestLogAudio(t *testing.T) {
	var buf bytes.Buffer
	a := LogAudio{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	a.StartAmbient()
	a.StopAmbient()

	out := buf.String()
	require.Contains(t, out, "action=start")
	require.Contains(t, out, "action=stop")
}
