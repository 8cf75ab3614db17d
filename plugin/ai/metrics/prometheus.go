package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors are the Prometheus metrics of the lookup path.
type Collectors struct {
	lookups  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCollectors creates the collectors and registers them on reg.
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentcache_lookups_total",
				Help: "Total number of knowledge lookups by domain and answering tier",
			},
			[]string{"domain", "tier"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentcache_lookup_duration_seconds",
				Help:    "Knowledge lookup latency in seconds by answering tier",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
			},
			[]string{"tier"},
		),
	}

	for _, collector := range []prometheus.Collector{c.lookups, c.duration} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collectors) observe(domain, tier string, latency time.Duration) {
	c.lookups.WithLabelValues(domain, tier).Inc()
	c.duration.WithLabelValues(tier).Observe(latency.Seconds())
}
