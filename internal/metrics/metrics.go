package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quack"

// Metrics bundles the gateway's Prometheus collectors. Tests pass their own
// registry so parallel packages never collide on the default registerer.
type Metrics struct {
	ActiveConnections     prometheus.Gauge
	ConnectionsTotal      prometheus.Counter
	RefusalsTotal         prometheus.Counter
	BroadcastsTotal       prometheus.Counter
	DeliveryFailuresTotal prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of currently admitted chat connections",
		}),
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total number of admitted chat connections",
		}),
		RefusalsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refusals_total",
			Help:      "Total number of connection attempts refused before admission",
		}),
		BroadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total number of broadcast fan-out passes",
		}),
		DeliveryFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Total number of per-recipient delivery failures during broadcast",
		}),
	}
}
