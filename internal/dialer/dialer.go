// Package dialer is the dialing computer: the entry point that turns a typed
// address or an address book selection into a dialing attempt.
package dialer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/dhd/internal/address"
	"github.com/roach88/dhd/internal/alert"
	"github.com/roach88/dhd/internal/engine"
	"github.com/roach88/dhd/internal/gate"
)

// Sequencer starts dialing attempts. Implemented by *engine.Engine.
type Sequencer interface {
	BeginDialing(ctx context.Context, address gate.Address) (*engine.Attempt, error)
}

// Computer validates input and hands it to the sequencer. Rejected input
// raises an alert and never reaches the sequencer.
type Computer struct {
	seq       Sequencer
	validator *address.Validator
	alerts    alert.Raiser
	logger    *slog.Logger

	mu   sync.Mutex
	last *engine.Attempt
}

// New creates a dialing computer. A nil validator accepts any address made
// of alphabet glyphs.
func New(seq Sequencer, v *address.Validator, alerts alert.Raiser, logger *slog.Logger) *Computer {
	if v == nil {
		v = address.MustValidator(address.DefaultPattern, 1, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Computer{seq: seq, validator: v, alerts: alerts, logger: logger}
}

// Submit dials typed coordinates. The origin glyph is appended before the
// sequence starts.
func (c *Computer) Submit(ctx context.Context, text string) (*engine.Attempt, error) {
	coords, err := c.validator.Validate(text)
	if err != nil {
		c.logger.Info("address rejected", "input", text, "error", err)
		if c.alerts != nil {
			c.alerts.Raise(alert.InvalidInput())
		}
		return nil, err
	}
	return c.begin(ctx, coords)
}

// Dial dials a catalog destination.
func (c *Computer) Dial(ctx context.Context, d gate.Destination) (*engine.Attempt, error) {
	if err := d.Address.Validate(); err != nil {
		return nil, fmt.Errorf("destination %s: %w", d.ID, err)
	}
	return c.begin(ctx, d.Address)
}

// Field returns a free-text address field wired to Submit. A saved value
// starts dialing in the background; ctx bounds those attempts.
func (c *Computer) Field(ctx context.Context, label string) *address.Field {
	return address.NewField(label, c.validator, c.alerts, func(v string) {
		if _, err := c.Submit(ctx, v); err != nil {
			c.logger.Warn("dialing from field failed", "input", v, "error", err)
		}
	})
}

// Last returns the most recent attempt started through this computer.
func (c *Computer) Last() *engine.Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Computer) begin(ctx context.Context, coords gate.Address) (*engine.Attempt, error) {
	att, err := c.seq.BeginDialing(ctx, address.WithOrigin(coords))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", coords, err)
	}

	c.mu.Lock()
	c.last = att
	c.mu.Unlock()
	return att, nil
}
