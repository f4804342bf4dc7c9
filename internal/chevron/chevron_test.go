package chevron

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dhd/internal/engine"
	"github.com/roach88/dhd/internal/fx"
	"github.com/roach88/dhd/internal/gate"
	"github.com/roach88/dhd/internal/testutil"
)

var slot = gate.Anchor{X: 100, Y: 200, Width: 40, Height: 40}

type readyLog struct {
	mu  sync.Mutex
	got []int
}

func (r *readyLog) add(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *readyLog) list() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.got...)
}

func setup(t *testing.T, number int) (*gate.Channels, *Chevron, *testutil.RecordingAnimator, *readyLog) {
	t.Helper()
	ch := gate.NewChannels()
	anim := testutil.NewRecordingAnimator()
	c := New(number, ch, anim, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(c.Close)

	ready := &readyLog{}
	t.Cleanup(ch.Handshake.Subscribe(ready.add))
	return ch, c, anim, ready
}

func activation(chevron int, glyph gate.Glyph, fail bool) gate.Activation {
	return gate.Activation{Attempt: "a", Step: chevron, Chevron: chevron, Glyph: glyph, Fail: fail}
}

func TestChevron_ActivationWithKnownPositionIsReadyImmediately(t *testing.T) {
	ch, c, anim, ready := setup(t, 3)
	c.SetSymbolAnchor(gate.Anchor{X: 10, Y: 20, Width: 20, Height: 20})
	c.Position().Set(slot)

	ch.Activations.Emit(activation(3, "G", false))

	assert.Equal(t, []int{3}, ready.list())
	assert.Equal(t, gate.Glyph("G"), c.Glyph())
	assert.Equal(t, 1, c.Locks())

	played := anim.Played()
	require.Len(t, played, 1)
	assert.Equal(t, fx.LockSymbolSuccess, played[0].Name)
	assert.Equal(t, "chevron-3", played[0].Target)
	assert.Equal(t, fx.Trajectory{CenterY: 190, StartX: 100, StartY: 230}, played[0].Path)
}

func TestChevron_WaitsForFirstDefinedPosition(t *testing.T) {
	ch, c, anim, ready := setup(t, 1)

	ch.Activations.Emit(activation(1, "D", false))
	assert.Empty(t, ready.list())
	assert.Equal(t, 1, c.Pending())

	c.Position().Set(gate.Anchor{})
	assert.Empty(t, ready.list(), "unmeasured anchor must not resolve the lookup")

	c.Position().Set(slot)
	assert.Equal(t, []int{1}, ready.list())
	assert.Equal(t, 0, c.Pending())

	c.Position().Set(gate.Anchor{X: 1, Width: 5, Height: 5})
	assert.Equal(t, []int{1}, ready.list(), "lookup is one-shot")
	assert.Equal(t, 1, anim.Count(fx.LockSymbolSuccess))
}

func TestChevron_IgnoresOtherChevrons(t *testing.T) {
	ch, c, anim, ready := setup(t, 2)
	c.Position().Set(slot)

	ch.Activations.Emit(activation(5, "X", false))

	assert.Empty(t, ready.list())
	assert.Empty(t, anim.Played())
	assert.Equal(t, gate.Glyph(""), c.Glyph())
}

func TestChevron_FailedLock(t *testing.T) {
	ch, c, anim, ready := setup(t, 1)
	c.Position().Set(slot)

	ch.Activations.Emit(activation(1, "Z", true))

	assert.Equal(t, []int{1}, ready.list())
	assert.Equal(t, []fx.Name{fx.LockSymbolFailed}, anim.Names("chevron-1"))
}

func TestChevron_IdleCancelsPendingLookup(t *testing.T) {
	ch, c, anim, ready := setup(t, 4)
	require.NoError(t, ch.Status.Set(gate.Dialing))

	ch.Activations.Emit(activation(4, "C", false))
	require.Equal(t, 1, c.Pending())

	ch.Status.Reset()
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, gate.Glyph(""), c.Glyph())

	c.Position().Set(slot)
	assert.Empty(t, ready.list(), "late anchor must not act on a reset activation")
	assert.Equal(t, 0, anim.Count(fx.LockSymbolSuccess))
	assert.Equal(t, 1, anim.Count(fx.ClearSymbol))
}

func TestChevron_CloseDropsEverything(t *testing.T) {
	ch, c, anim, ready := setup(t, 1)

	ch.Activations.Emit(activation(1, "A", false))
	c.Close()
	c.Close()

	c.Position().Set(slot)
	ch.Activations.Emit(activation(1, "B", false))
	ch.Complete.Emit("a")

	assert.Empty(t, ready.list())
	assert.Empty(t, anim.Played())
	assert.Equal(t, gate.Glyph("A"), c.Glyph())
}

func TestChevron_FlashesOnReachedResultAndComplete(t *testing.T) {
	ch, _, anim, _ := setup(t, 1)

	ch.Results.Publish(gate.SequenceResult{Attempt: "a"})
	assert.Equal(t, 0, anim.Count(fx.FlashOnActivate))

	ch.Results.Publish(gate.SequenceResult{
		Attempt:            "b",
		DestinationReached: true,
		Destination:        &gate.Destination{ID: "abydos"},
	})
	assert.Equal(t, 1, anim.Count(fx.FlashOnActivate))

	ch.Complete.Emit("b")
	assert.Equal(t, 2, anim.Count(fx.FlashOnActivate))
}

func TestChevron_EngageLocksWithoutHandshake(t *testing.T) {
	_, c, anim, ready := setup(t, 6)
	c.Position().Set(slot)

	require.NoError(t, c.Engage(context.Background(), "Q"))

	assert.Empty(t, ready.list())
	assert.Equal(t, gate.Glyph("Q"), c.Glyph())
	assert.Equal(t, []fx.Name{fx.LockSymbolSuccess}, anim.Names("chevron-6"))
}

func TestChevron_EngageUnblocksOnClose(t *testing.T) {
	_, c, _, _ := setup(t, 6)

	errc := make(chan error, 1)
	go func() { errc <- c.Engage(context.Background(), "Q") }()

	time.Sleep(10 * time.Millisecond)
	c.Close()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Engage did not return after Close")
	}
}

func TestTrajectory(t *testing.T) {
	target := gate.Anchor{X: 0, Y: 0, Width: 100, Height: 100}
	symbol := gate.Anchor{X: 40, Y: 300, Width: 20, Height: 20}

	got := Trajectory(target, symbol)
	assert.Equal(t, fx.Trajectory{CenterY: -260, StartX: 0, StartY: -250}, got)
}

func TestBoard_DrivesEngineToActive(t *testing.T) {
	ch := gate.NewChannels()
	anim := testutil.NewRecordingAnimator()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	board := NewBoard(0, ch, anim, WithLogger(logger))
	defer board.Close()
	board.Measure(RowLayout(board.Len(), 700, 40))

	dest := gate.Destination{ID: "abydos", Name: "Abydos", Address: gate.ParseGlyphs("GDCAFE")}
	e := engine.New(ch, engine.ResolverFunc(func(a gate.Address) (gate.Destination, bool) {
		return dest, a.Coordinates().Equal(dest.Address)
	}), engine.WithLogger(logger), engine.WithSettleDelay(0))
	defer e.Close()

	att, err := e.BeginDialing(context.Background(), gate.ParseGlyphs("GDCAFEA"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, att.Wait(ctx))

	assert.Equal(t, gate.Active, ch.Status.Get())
	assert.Equal(t, []gate.Glyph{"G", "D", "C", "A", "F", "E", "A"}, board.Glyphs())
	assert.Equal(t, 7, anim.Count(fx.LockSymbolSuccess))
	assert.Equal(t, 14, anim.Count(fx.FlashOnActivate), "each chevron flashes on complete and on result")

	res, ok := att.Result()
	require.True(t, ok)
	assert.True(t, res.DestinationReached)
}

func TestBoard_ChevronLookup(t *testing.T) {
	board := NewBoard(3, gate.NewChannels(), nil)
	defer board.Close()

	assert.Equal(t, 3, board.Len())
	assert.Nil(t, board.Chevron(0))
	assert.Nil(t, board.Chevron(4))
	assert.Equal(t, 2, board.Chevron(2).Number)
	assert.Len(t, board.All(), 3)
}
