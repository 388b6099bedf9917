package latch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Decision labels reported by the interceptor
const (
	DecisionAdmit         = "admit"
	DecisionAdmitUnpaired = "admit_unpaired"
	DecisionAdmitOutage   = "admit_outage"
	DecisionDenyLocked    = "deny_locked"
	DecisionDenyOutage    = "deny_outage"
)

// Metrics receives interceptor decisions and remote call timings
type Metrics interface {
	ObserveDecision(decision string)
	ObserveRemoteCall(operation, outcome string, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveDecision(string) {}
func (noopMetrics) ObserveRemoteCall(string, string, time.Duration) {}

func normalizeMetrics(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

// PrometheusMetrics reports to a prometheus registry
type PrometheusMetrics struct {
	decisions   *prometheus.CounterVec
	remoteCalls *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the collectors and registers them when
// reg is not nil.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "latch",
			Name:      "login_decisions_total",
			Help:      "Total number of latch login decisions by outcome.",
		}, []string{"decision"}),
		remoteCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "latch",
			Name:      "remote_call_duration_seconds",
			Help:      "Latency of calls to the latch service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
	}

	if reg != nil {
		if err := reg.Register(m.decisions); err != nil {
			return nil, err
		}
		if err := reg.Register(m.remoteCalls); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *PrometheusMetrics) ObserveDecision(decision string) {
	m.decisions.WithLabelValues(decision).Inc()
}

func (m *PrometheusMetrics) ObserveRemoteCall(operation, outcome string, elapsed time.Duration) {
	m.remoteCalls.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
}

// Collectors returns the underlying collectors
func (m *PrometheusMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.decisions, m.remoteCalls}
}

var _ Metrics = (*PrometheusMetrics)(nil)
