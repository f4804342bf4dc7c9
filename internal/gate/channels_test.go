package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChevronFor_WrapsAround(t *testing.T) {
	var got []int
	for step := 1; step <= 9; step++ {
		got = append(got, ChevronFor(step, ChevronCount))
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 1, 2}, got)

	assert.Equal(t, 3, ChevronFor(3, 0), "non-positive count falls back to the default")
}

func TestPositionChannel_OnceDefinedSkipsUnmeasured(t *testing.T) {
	p := NewPositionChannel()
	p.Set(Anchor{})

	var got []Anchor
	p.OnceDefined(func(a Anchor) { got = append(got, a) })
	assert.Empty(t, got)

	p.Set(Anchor{X: 1, Y: 2, Width: 30, Height: 40})
	p.Set(Anchor{X: 5, Y: 5, Width: 30, Height: 40})

	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].X)
}

func TestPositionChannel_OnceDefinedCancelled(t *testing.T) {
	p := NewPositionChannel()

	fired := false
	cancel := p.OnceDefined(func(Anchor) { fired = true })
	cancel()
	p.Set(Anchor{Width: 1, Height: 1})

	assert.False(t, fired, "cancelled lookup must never resolve")
}

func TestPositionChannel_NextDefined(t *testing.T) {
	p := NewPositionChannel()
	go func() {
		time.Sleep(5 * time.Millisecond)
		p.Set(Anchor{Width: 10, Height: 10})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	a, err := p.NextDefined(ctx)
	require.NoError(t, err)
	assert.True(t, a.Defined())
}

func TestResultChannel_CountsPublishes(t *testing.T) {
	c := NewResultChannel()
	_, ok := c.Last()
	assert.False(t, ok)

	var got []bool
	c.Subscribe(func(r SequenceResult) { got = append(got, r.DestinationReached) })

	c.Publish(SequenceResult{Attempt: "a", DestinationReached: true})
	c.Publish(SequenceResult{Attempt: "b"})

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, "b", last.Attempt)
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, []bool{true, false}, got)
}

func TestChannels_ActivationsForFiltersByChevron(t *testing.T) {
	ch := NewChannels()

	var got []int
	ch.ActivationsFor(2, func(a Activation) { got = append(got, a.Step) })

	for step := 1; step <= 9; step++ {
		ch.Activations.Emit(Activation{Step: step, Chevron: ChevronFor(step, ChevronCount)})
	}
	assert.Equal(t, []int{2, 9}, got, "a chevron may be revisited within one sequence")
}

func TestHandshake_Broadcast(t *testing.T) {
	h := NewHandshake()

	var a, b []int
	h.Subscribe(func(n int) { a = append(a, n) })
	h.Subscribe(func(n int) { b = append(b, n) })
	h.NotifyReady(4)

	assert.Equal(t, []int{4}, a)
	assert.Equal(t, []int{4}, b)
}
