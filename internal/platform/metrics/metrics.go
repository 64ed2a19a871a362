package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	LookupAttempts   prometheus.Counter
	LookupRetries    prometheus.Counter
	LookupExhausted  prometheus.Counter
	VotersRegistered prometheus.Counter
	VotersTarget     prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		LookupAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avcheck_lookup_attempts_total",
			Help: "Total number of HTTP attempts made against the lookup service",
		}),
		LookupRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avcheck_lookup_retries_total",
			Help: "Total number of attempts that were retries of a failed request",
		}),
		LookupExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avcheck_lookup_exhausted_total",
			Help: "Total number of requests that failed all retry attempts",
		}),
		VotersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avcheck_voters_registered_total",
			Help: "Total number of voters confirmed registered during this run",
		}),
		VotersTarget: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avcheck_voters_target_total",
			Help: "Total number of voters whose AV application was recorded received",
		}),
	}
}

func (m *Metrics) IncrementLookupAttempts() {
	m.LookupAttempts.Inc()
}

func (m *Metrics) IncrementLookupRetries() {
	m.LookupRetries.Inc()
}

func (m *Metrics) IncrementLookupExhausted() {
	m.LookupExhausted.Inc()
}

func (m *Metrics) IncrementVotersRegistered() {
	m.VotersRegistered.Inc()
}

func (m *Metrics) IncrementVotersTarget() {
	m.VotersTarget.Inc()
}
