// Package metrics exposes Prometheus instruments for the signaling server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	roomsActive      prometheus.Gauge
	membersConnected prometheus.Gauge

	signalsRelayed  prometheus.Counter
	signalsDropped  prometheus.Counter
	backpressureHit prometheus.Counter
}

// NewCollector registers the instruments with reg. Production passes
// prometheus.DefaultRegisterer; tests pass a private registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	auto := promauto.With(reg)
	return &Collector{
		roomsActive: auto.NewGauge(prometheus.GaugeOpts{
			Name: "voiceroom_rooms_active",
			Help: "Number of rooms with at least one member",
		}),
		membersConnected: auto.NewGauge(prometheus.GaugeOpts{
			Name: "voiceroom_members_connected",
			Help: "Number of members currently registered across all rooms",
		}),
		signalsRelayed: auto.NewCounter(prometheus.CounterOpts{
			Name: "voiceroom_signals_relayed_total",
			Help: "Negotiation payloads delivered to their target",
		}),
		signalsDropped: auto.NewCounter(prometheus.CounterOpts{
			Name: "voiceroom_signals_dropped_total",
			Help: "Negotiation payloads dropped (absent target or full buffer)",
		}),
		backpressureHit: auto.NewCounter(prometheus.CounterOpts{
			Name: "voiceroom_broadcast_backpressure_total",
			Help: "Broadcast deliveries skipped because a member's send buffer was full",
		}),
	}
}

// SetPresence records the registry's current shape. Called after every mutation.
func (c *Collector) SetPresence(rooms, members int) {
	if c == nil {
		return
	}
	c.roomsActive.Set(float64(rooms))
	c.membersConnected.Set(float64(members))
}

func (c *Collector) SignalRelayed() {
	if c == nil {
		return
	}
	c.signalsRelayed.Inc()
}

func (c *Collector) SignalDropped() {
	if c == nil {
		return
	}
	c.signalsDropped.Inc()
}

func (c *Collector) BackpressureHit() {
	if c == nil {
		return
	}
	c.backpressureHit.Inc()
}
