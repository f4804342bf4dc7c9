// Package alert carries transient user-facing notices, such as the input
// error raised when a typed address is rejected.
package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/dhd/internal/stream"
)

// DefaultDuration is how long a notice stays on screen.
const DefaultDuration = 4 * time.Second

// Alert is one user-facing notice.
type Alert struct {
	Critical bool          `json:"critical"`
	Duration time.Duration `json:"duration"`
	Message  string        `json:"message"`
	Title    string        `json:"title"`
}

// Raiser is the fire-and-forget alert capability.
type Raiser interface {
	Raise(a Alert)
}

// InvalidInput is the notice shown when a typed address is rejected.
func InvalidInput() Alert {
	return Alert{
		Critical: true,
		Duration: DefaultDuration,
		Message:  "Field value is invalid",
		Title:    "Input Error",
	}
}

// Service broadcasts alerts to whoever renders them and keeps a history.
type Service struct {
	s      *stream.Subject[Alert]
	logger *slog.Logger

	mu      sync.Mutex
	history []Alert
}

// NewService creates a Service. A nil logger uses slog.Default.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{s: stream.NewSubject[Alert](), logger: logger}
}

// Raise implements Raiser.
func (s *Service) Raise(a Alert) {
	if a.Duration == 0 {
		a.Duration = DefaultDuration
	}

	s.mu.Lock()
	s.history = append(s.history, a)
	s.mu.Unlock()

	level := slog.LevelWarn
	if a.Critical {
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "alert raised", "title", a.Title, "message", a.Message)

	s.s.Emit(a)
}

// Subscribe registers fn for future alerts.
func (s *Service) Subscribe(fn func(Alert)) func() {
	return s.s.Subscribe(fn)
}

// History returns every alert raised so far, oldest first.
func (s *Service) History() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Alert, len(s.history))
	copy(out, s.history)
	return out
}
