package chevron

import (
	"github.com/roach88/dhd/internal/fx"
	"github.com/roach88/dhd/internal/gate"
)

// Board is the full set of chevron boxes of one dialing computer view.
type Board struct {
	chevrons []*Chevron
}

// NewBoard creates chevrons 1..n. A non-positive n uses gate.ChevronCount.
func NewBoard(n int, ch *gate.Channels, anim fx.Animator, opts ...Option) *Board {
	if n <= 0 {
		n = gate.ChevronCount
	}
	b := &Board{chevrons: make([]*Chevron, 0, n)}
	for i := 1; i <= n; i++ {
		b.chevrons = append(b.chevrons, New(i, ch, anim, opts...))
	}
	return b
}

// Len returns the number of chevrons.
func (b *Board) Len() int { return len(b.chevrons) }

// Chevron returns chevron number (1-based), or nil when out of range.
func (b *Board) Chevron(number int) *Chevron {
	if number < 1 || number > len(b.chevrons) {
		return nil
	}
	return b.chevrons[number-1]
}

// All returns the chevrons in number order.
func (b *Board) All() []*Chevron {
	out := make([]*Chevron, len(b.chevrons))
	copy(out, b.chevrons)
	return out
}

// Glyphs returns the glyph shown by each chevron, in number order.
func (b *Board) Glyphs() []gate.Glyph {
	out := make([]gate.Glyph, len(b.chevrons))
	for i, c := range b.chevrons {
		out[i] = c.Glyph()
	}
	return out
}

// Measure sets every gate position from layout, which receives the chevron
// number. Meant for hosts without a real layout pass.
func (b *Board) Measure(layout func(number int) gate.Anchor) {
	for _, c := range b.chevrons {
		c.Position().Set(layout(c.Number))
	}
}

// Close tears down every chevron.
func (b *Board) Close() {
	for _, c := range b.chevrons {
		c.Close()
	}
}

// RowLayout places chevron slots evenly along a gate of the given width.
// Each slot is a square of side slot.
func RowLayout(n int, size, slot float64) func(number int) gate.Anchor {
	if n <= 0 {
		n = gate.ChevronCount
	}
	step := size / float64(n)
	return func(number int) gate.Anchor {
		return gate.Anchor{
			X:      float64(number-1) * step,
			Y:      size / 2,
			Width:  slot,
			Height: slot,
		}
	}
}
