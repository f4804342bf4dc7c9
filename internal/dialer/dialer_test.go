package dialer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dhd/internal/address"
	"github.com/roach88/dhd/internal/catalog"
	"github.com/roach88/dhd/internal/chevron"
	"github.com/roach88/dhd/internal/engine"
	"github.com/roach88/dhd/internal/gate"
	"github.com/roach88/dhd/internal/testutil"
)

type rig struct {
	ch      *gate.Channels
	eng     *engine.Engine
	alerts  *testutil.AlertSink
	board   *chevron.Board
	acts    []gate.Activation
	logger  *slog.Logger
	catalog *catalog.Catalog
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		ch:     gate.NewChannels(),
		alerts: &testutil.AlertSink{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	cat, err := catalog.Default()
	require.NoError(t, err)
	r.catalog = cat

	// Activations are recorded before any chevron sees them.
	t.Cleanup(r.ch.Activations.Subscribe(func(a gate.Activation) { r.acts = append(r.acts, a) }))

	r.board = chevron.NewBoard(0, r.ch, nil, chevron.WithLogger(r.logger))
	r.board.Measure(chevron.RowLayout(gate.ChevronCount, 700, 40))
	t.Cleanup(r.board.Close)

	r.eng = engine.New(r.ch, cat, engine.WithLogger(r.logger), engine.WithSettleDelay(0))
	t.Cleanup(r.eng.Close)
	return r
}

func wait(t *testing.T, att *engine.Attempt) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, att.Wait(ctx))
}

func TestSubmit_AppendsOriginAndReaches(t *testing.T) {
	r := newRig(t)
	c := New(r.eng, nil, r.alerts, r.logger)

	att, err := c.Submit(context.Background(), "gdc afe")
	require.NoError(t, err)
	wait(t, att)

	assert.Equal(t, "GDCAFEA", att.Address.String())
	assert.Same(t, att, c.Last())
	assert.Equal(t, gate.Active, r.ch.Status.Get())
	assert.Empty(t, r.alerts.Alerts())
}

func TestSubmit_InvalidRaisesAlertAndNeverDials(t *testing.T) {
	r := newRig(t)
	c := New(r.eng, nil, r.alerts, r.logger)

	att, err := c.Submit(context.Background(), "GD#AFE")
	require.Error(t, err)
	assert.Nil(t, att)
	assert.True(t, gate.IsInvalidInput(err))

	assert.Len(t, r.alerts.Alerts(), 1)
	assert.Empty(t, r.acts)
	assert.Equal(t, gate.Idle, r.ch.Status.Get())
	assert.Nil(t, r.eng.Current())
}

func TestSubmit_PatternBounds(t *testing.T) {
	r := newRig(t)
	c := New(r.eng, address.MustValidator("[A-Z0-9]+", 6, 8), r.alerts, r.logger)

	_, err := c.Submit(context.Background(), "GDC")
	require.Error(t, err)
	assert.True(t, gate.IsCode(err, gate.ErrCodePatternMismatch))
	assert.Empty(t, r.acts)
}

func TestDial_Destination(t *testing.T) {
	r := newRig(t)
	c := New(r.eng, nil, r.alerts, r.logger)

	d, ok := r.catalog.Lookup("othala")
	require.True(t, ok)

	att, err := c.Dial(context.Background(), d)
	require.NoError(t, err)
	wait(t, att)

	chevrons := make([]int, 0, len(r.acts))
	for _, a := range r.acts {
		chevrons = append(chevrons, a.Chevron)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 1, 2}, chevrons)

	res, ok := att.Result()
	require.True(t, ok)
	assert.True(t, res.DestinationReached)
	assert.Equal(t, "othala", res.Destination.ID)
}

func TestDial_RejectsBrokenDestination(t *testing.T) {
	r := newRig(t)
	c := New(r.eng, nil, r.alerts, r.logger)

	_, err := c.Dial(context.Background(), gate.Destination{ID: "void"})
	require.Error(t, err)
	assert.True(t, gate.IsCode(err, gate.ErrCodeEmptyAddress))
}

func TestField_SubmitsOnSave(t *testing.T) {
	r := newRig(t)
	c := New(r.eng, nil, r.alerts, r.logger)

	f := c.Field(context.Background(), "Coordinates")
	f.Focus()
	f.Type("GDCAFE")
	f.Keydown(address.KeyEnter)

	att := c.Last()
	require.NotNil(t, att)
	wait(t, att)
	assert.Equal(t, gate.Active, r.ch.Status.Get())
}
