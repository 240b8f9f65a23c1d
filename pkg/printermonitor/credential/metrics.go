package credential

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the resolver's Prometheus collectors.
type Metrics struct {
	CacheHits      prometheus.Counter
	Evictions      prometheus.Counter
	Races          *prometheus.CounterVec
	RaceDuration   prometheus.Histogram
	ProbesTotal    *prometheus.CounterVec
	SharedRaceJoin prometheus.Counter
}

// NewMetrics creates the resolver collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "printermon_credential_cache_hits_total",
			Help: "Requests served with a cached credential.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "printermon_credential_evictions_total",
			Help: "Cached credentials evicted after a failed request.",
		}),
		Races: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "printermon_credential_races_total",
			Help: "Credential discovery races by outcome.",
		}, []string{"outcome"}),
		RaceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "printermon_credential_race_duration_seconds",
			Help:    "Wall time of credential discovery races.",
			Buckets: prometheus.DefBuckets,
		}),
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "printermon_snmp_probes_total",
			Help: "SNMP GET probes by protocol version and result.",
		}, []string{"version", "result"}),
		SharedRaceJoin: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "printermon_credential_race_joins_total",
			Help: "Resolve calls that joined a discovery already in flight.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.CacheHits, m.Evictions, m.Races, m.RaceDuration, m.ProbesTotal, m.SharedRaceJoin)
	}
	return m
}
