package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the session server's local process counters: ambient
// observability, not cluster-wide state (spec.md's Non-goals exclude a
// multi-node cluster, not a single process's own instrumentation).
type Metrics struct {
	FramesServed prometheus.Counter
	FrameErrors  prometheus.Counter
	Connections  prometheus.Gauge
}

// NewMetrics builds and registers a fresh set of collectors under name,
// so multiple Servers in one process don't collide on metric names.
func NewMetrics(name string) *Metrics {
	m := &Metrics{
		FramesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_" + name + "_frames_served_total",
			Help: "Frames successfully dispatched and replied to.",
		}),
		FrameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_" + name + "_frame_errors_total",
			Help: "Frames whose handler returned an error.",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "session_" + name + "_connections",
			Help: "Currently open child connections.",
		}),
	}
	prometheus.MustRegister(m.FramesServed, m.FrameErrors, m.Connections)
	return m
}
