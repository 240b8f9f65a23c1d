package snapshot

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the aggregator's Prometheus collectors.
type Metrics struct {
	PollsTotal   *prometheus.CounterVec
	PollDuration prometheus.Histogram
	FieldsFilled prometheus.Histogram
}

// NewMetrics creates the aggregator collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "printermon_polls_total",
			Help: "Device snapshot polls by result.",
		}, []string{"result"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "printermon_poll_duration_seconds",
			Help:    "Wall time of device snapshot polls.",
			Buckets: prometheus.DefBuckets,
		}),
		FieldsFilled: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "printermon_poll_fields_filled",
			Help:    "Number of base metrics answered per reachable poll.",
			Buckets: prometheus.LinearBuckets(0, 2, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.PollsTotal, m.PollDuration, m.FieldsFilled)
	}
	return m
}
