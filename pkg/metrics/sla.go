package metrics

import "github.com/prometheus/client_golang/prometheus"

// SLAMetrics tracks the observable output of the sweep.
type SLAMetrics struct {
	expired prometheus.Counter
}

// NewSLAMetrics registers the sweep counters on the provided registerer.
func NewSLAMetrics(reg prometheus.Registerer) *SLAMetrics {
	if reg == nil {
		return &SLAMetrics{}
	}
	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sla_requests_expired_total",
		Help: "Assignments revoked by the SLA sweep.",
	})
	reg.MustRegister(expired)
	return &SLAMetrics{expired: expired}
}

// AddExpired records how many assignments one sweep pass revoked.
func (s *SLAMetrics) AddExpired(count int) {
	if s == nil || s.expired == nil || count <= 0 {
		return
	}
	s.expired.Add(float64(count))
}
