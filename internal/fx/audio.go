package fx

import "log/slog"

// Audio triggers the ambient event horizon sound. Fire-and-forget.
type Audio interface {
	StartAmbient()
	StopAmbient()
}

// NopAudio plays nothing.
type NopAudio struct{}

func (NopAudio) StartAmbient() {}
func (NopAudio) StopAmbient()  {}

// LogAudio reports audio cues to a logger instead of a speaker.
type LogAudio struct {
	Logger *slog.Logger
}

func (a LogAudio) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// StartAmbient implements Audio.
func (a LogAudio) StartAmbient() {
	a.logger().Info("audio", "cue", "event-horizon", "action", "start")
}

// StopAmbient implements Audio.
func (a LogAudio) StopAmbient() {
	a.logger().Info("audio", "cue", "event-horizon", "action", "stop")
}
