package gate

import "fmt"

// ChevronCount is the number of physical chevrons on the dial.
const ChevronCount = 7

// ChevronFor maps a 1-based address step onto a chevron position 1..n.
// Addresses longer than n wrap around and reuse positions.
func ChevronFor(step, n int) int {
	if n <= 0 {
		n = ChevronCount
	}
	return ((step-1)%n+n)%n + 1
}

// Activation is one chevron activation event, created by the engine as the
// sequence advances.
type Activation struct {
	Attempt string `json:"attempt"`
	Step    int    `json:"step"`    // 1-based position in the address
	Chevron int    `json:"chevron"` // 1..ChevronCount
	Glyph   Glyph  `json:"glyph"`
	Fail    bool   `json:"fail"` // terminal chevron of an unreachable address
	Seq     int64  `json:"seq"`  // engine logical clock
}

func (a Activation) String() string {
	return fmt.Sprintf("step=%d chevron=%d glyph=%s fail=%t", a.Step, a.Chevron, a.Glyph, a.Fail)
}

// Destination is a named catalog entry.
type Destination struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address Address `json:"address"`
}

// Destination address length constraints (coordinate glyphs, origin excluded).
const (
	MinDestinationGlyphs = 6
	MaxDestinationGlyphs = 8
)

// Anchor is a screen rectangle. The zero value means "not measured yet".
type Anchor struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Defined reports whether the anchor has been measured.
func (a Anchor) Defined() bool {
	return a.Width > 0 || a.Height > 0
}

// CenterX returns the horizontal center of the rectangle.
func (a Anchor) CenterX() float64 { return a.X + a.Width/2 }

// CenterY returns the vertical center of the rectangle.
func (a Anchor) CenterY() float64 { return a.Y + a.Height/2 }

// SequenceResult is the outcome of one dialing attempt. Published once.
type SequenceResult struct {
	Attempt            string       `json:"attempt"`
	DestinationReached bool         `json:"destination_reached"`
	Destination        *Destination `json:"destination,omitempty"`
}

// AttemptPhase marks the lifecycle edges of a dialing attempt.
type AttemptPhase string

const (
	AttemptStarted   AttemptPhase = "started"
	AttemptAborted   AttemptPhase = "aborted"
	AttemptCompleted AttemptPhase = "completed"
)

// AttemptEvent announces an attempt lifecycle edge.
type AttemptEvent struct {
	ID      string       `json:"id"`
	Address Address      `json:"address"`
	Phase   AttemptPhase `json:"phase"`
	Reason  string       `json:"reason,omitempty"`
}
