package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "swishsensei"

// Collector holds the ingest-side metrics.
type Collector struct {
	Samples      *prometheus.CounterVec
	DecodeErrors *prometheus.CounterVec
	LastSeen     *prometheus.GaugeVec
	Jumps        prometheus.Counter
	Shots        *prometheus.CounterVec
	PublishFails prometheus.Counter
}

// NewCollector registers the ingest metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	m := &Collector{
		Samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Sensor messages received.",
		}, []string{"kind"}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Sensor messages that failed to decode.",
		}, []string{"kind"}),
		LastSeen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_last_seen_timestamp_seconds",
			Help:      "Unix time of the last message per device kind.",
		}, []string{"kind"}),
		Jumps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jumps_total",
			Help:      "Completed jumps.",
		}),
		Shots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shots_total",
			Help:      "Finalized shots.",
		}, []string{"classification", "scored"}),
		PublishFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Bus publishes that failed.",
		}),
	}
	reg.MustRegister(m.Samples, m.DecodeErrors, m.LastSeen, m.Jumps, m.Shots, m.PublishFails)
	return m
}

// Server holds the web-side metrics.
type Server struct {
	Inserts      prometheus.Counter
	InsertErrors prometheus.Counter
	Broadcasts   *prometheus.CounterVec
	Clients      prometheus.Gauge
}

// NewServer registers the server metrics on reg.
func NewServer(reg prometheus.Registerer) *Server {
	m := &Server{
		Inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shots_stored_total",
			Help:      "Shots written to the store.",
		}),
		InsertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shot_store_errors_total",
			Help:      "Shots that failed to store.",
		}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "SocketIO events broadcast.",
		}, []string{"event"}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "socket_clients",
			Help:      "Connected SocketIO clients.",
		}),
	}
	reg.MustRegister(m.Inserts, m.InsertErrors, m.Broadcasts, m.Clients)
	return m
}
