// Package metrics exports Prometheus counters for the dialing core. A
// Collector observes the gate channels; nothing in the core depends on it.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/dhd/internal/gate"
)

const namespace = "dhd"

// Collector holds the dialing metrics.
type Collector struct {
	statusChanges *prometheus.CounterVec
	status        prometheus.Gauge
	attempts      *prometheus.CounterVec
	results       *prometheus.CounterVec
	activations   *prometheus.CounterVec
	handshakeWait prometheus.Histogram

	mu        sync.Mutex
	activated map[int]time.Time
	now       func() time.Time
}

// New creates an unregistered collector.
func New() *Collector {
	return &Collector{
		statusChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "status_changes_total",
				Help:      "Gate status changes by new status.",
			},
			[]string{"status"},
		),
		status: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "status",
			Help:      "Current gate status (0 idle, 1 dialing, 2 engaged, 3 active, 4 shutdown).",
		}),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dial",
				Name:      "attempts_total",
				Help:      "Dialing attempt lifecycle events by phase.",
			},
			[]string{"phase"},
		),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dial",
				Name:      "results_total",
				Help:      "Published dialing results.",
			},
			[]string{"reached"},
		),
		activations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "chevron",
				Name:      "activations_total",
				Help:      "Chevron activations by chevron and fail flag.",
			},
			[]string{"chevron", "fail"},
		),
		handshakeWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chevron",
			Name:      "handshake_wait_seconds",
			Help:      "Time from activation to the chevron reporting ready.",
			Buckets:   prometheus.DefBuckets,
		}),
		activated: make(map[int]time.Time),
		now:       time.Now,
	}
}

// Register adds every metric to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.statusChanges, c.status, c.attempts, c.results, c.activations, c.handshakeWait,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Attach subscribes the collector to ch. The returned func detaches it.
func (c *Collector) Attach(ch *gate.Channels) func() {
	releases := []func(){
		ch.Status.Subscribe(c.onStatus),
		ch.Attempts.Subscribe(func(e gate.AttemptEvent) {
			c.attempts.WithLabelValues(string(e.Phase)).Inc()
		}),
		ch.Results.Subscribe(func(r gate.SequenceResult) {
			c.results.WithLabelValues(strconv.FormatBool(r.DestinationReached)).Inc()
		}),
		ch.Activations.Subscribe(c.onActivation),
		ch.Handshake.Subscribe(c.onReady),
	}
	return func() {
		for _, release := range releases {
			release()
		}
	}
}

func (c *Collector) onStatus(s gate.Status) {
	c.statusChanges.WithLabelValues(s.String()).Inc()
	c.status.Set(float64(s))
}

func (c *Collector) onActivation(a gate.Activation) {
	c.activations.WithLabelValues(strconv.Itoa(a.Chevron), strconv.FormatBool(a.Fail)).Inc()

	c.mu.Lock()
	c.activated[a.Chevron] = c.now()
	c.mu.Unlock()
}

func (c *Collector) onReady(chevron int) {
	c.mu.Lock()
	start, ok := c.activated[chevron]
	delete(c.activated, chevron)
	c.mu.Unlock()

	if ok {
		c.handshakeWait.Observe(c.now().Sub(start).Seconds())
	}
}
