package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/rsrc-go/core/manager"
	"github.com/codewandler/rsrc-go/core/metrics"
)

// managerMetrics implements manager.ManagerMetrics using Prometheus.
type managerMetrics struct {
	resolveDuration    *prometheus.HistogramVec
	resolvesTotal      *prometheus.CounterVec
	resourcesTracked   prometheus.Gauge
	recoveryDuration   prometheus.Histogram
	recoveriesTotal    *prometheus.CounterVec
	resourcesRecovered *prometheus.CounterVec
}

// NewManagerMetrics creates a new Prometheus implementation of ManagerMetrics.
func NewManagerMetrics(reg prometheus.Registerer) manager.ManagerMetrics {
	m := &managerMetrics{
		resolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rsrc_manager_resolve_duration_seconds",
			Help:    "Resource resolution latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"op"}),

		resolvesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsrc_manager_resolves_total",
			Help: "Total number of resource resolutions",
		}, []string{"op", "success"}),

		resourcesTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsrc_manager_resources_tracked",
			Help: "Number of resource instances currently bound",
		}),

		recoveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsrc_manager_recovery_duration_seconds",
			Help:    "Recovery cycle duration in seconds",
			Buckets: defaultBuckets,
		}),

		recoveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsrc_manager_recoveries_total",
			Help: "Total number of recovery cycles",
		}, []string{"success"}),

		resourcesRecovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsrc_manager_resources_recovered_total",
			Help: "Per-instance recovery outcomes",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.resolveDuration,
		m.resolvesTotal,
		m.resourcesTracked,
		m.recoveryDuration,
		m.recoveriesTotal,
		m.resourcesRecovered,
	)

	return m
}

func (m *managerMetrics) ResolveDuration(op string) metrics.Timer {
	return newTimer(m.resolveDuration.WithLabelValues(op))
}

func (m *managerMetrics) ResolveCompleted(op string, success bool) {
	m.resolvesTotal.WithLabelValues(op, boolToStr(success)).Inc()
}

func (m *managerMetrics) ResourcesTracked(count int) {
	m.resourcesTracked.Set(float64(count))
}

func (m *managerMetrics) RecoveryDuration() metrics.Timer {
	return newTimer(m.recoveryDuration)
}

func (m *managerMetrics) RecoveryCompleted(success bool) {
	m.recoveriesTotal.WithLabelValues(boolToStr(success)).Inc()
}

func (m *managerMetrics) ResourceRecovered(outcome string) {
	m.resourcesRecovered.WithLabelValues(outcome).Inc()
}

var _ manager.ManagerMetrics = (*managerMetrics)(nil)
