package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dhd/internal/gate"
)

func TestCollector_CountsChannelTraffic(t *testing.T) {
	ch := gate.NewChannels()
	c := New()
	detach := c.Attach(ch)

	require.NoError(t, ch.Status.Set(gate.Dialing))
	ch.Attempts.Emit(gate.AttemptEvent{ID: "a", Phase: gate.AttemptStarted})
	ch.Activations.Emit(gate.Activation{Chevron: 1, Glyph: "G"})
	ch.Handshake.NotifyReady(1)
	ch.Activations.Emit(gate.Activation{Chevron: 2, Glyph: "X", Fail: true})
	ch.Handshake.NotifyReady(2)
	ch.Handshake.NotifyReady(3)
	ch.Results.Publish(gate.SequenceResult{Attempt: "a"})
	require.NoError(t, ch.Status.Set(gate.Shutdown))

	detach()
	ch.Status.Reset()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.statusChanges.WithLabelValues("idle")), "replayed on attach only")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.statusChanges.WithLabelValues("dialing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.statusChanges.WithLabelValues("shutdown")))
	assert.Equal(t, float64(gate.Shutdown), testutil.ToFloat64(c.status))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.attempts.WithLabelValues("started")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.results.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activations.WithLabelValues("1", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activations.WithLabelValues("2", "true")))

	assert.Equal(t, 1, testutil.CollectAndCount(c.handshakeWait))
}

func TestCollector_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New()
	require.NoError(t, c.Register(reg))
	assert.Error(t, c.Register(reg), "double registration is rejected")

	c.Attach(gate.NewChannels())
	n, err := testutil.GatherAndCount(reg, "dhd_gate_status_changes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
