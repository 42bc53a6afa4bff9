package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/rsrc-go/core/metrics"
	"github.com/codewandler/rsrc-go/core/session"
)

// sessionMetrics implements session.SessionMetrics using Prometheus.
type sessionMetrics struct {
	submitDuration  *prometheus.HistogramVec
	submitsTotal    *prometheus.CounterVec
	transportErrors *prometheus.CounterVec
	stateChanges    *prometheus.CounterVec
}

// NewSessionMetrics creates a new Prometheus implementation of SessionMetrics.
func NewSessionMetrics(reg prometheus.Registerer) session.SessionMetrics {
	m := &sessionMetrics{
		submitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rsrc_session_submit_duration_seconds",
			Help:    "Submission round-trip latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"message_type"}),

		submitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsrc_session_submits_total",
			Help: "Total number of submissions",
		}, []string{"message_type", "success"}),

		transportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsrc_session_transport_errors_total",
			Help: "Total number of transport errors",
		}, []string{"error_type"}),

		stateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsrc_session_state_changes_total",
			Help: "Total number of session state transitions",
		}, []string{"state"}),
	}

	reg.MustRegister(
		m.submitDuration,
		m.submitsTotal,
		m.transportErrors,
		m.stateChanges,
	)

	return m
}

func (m *sessionMetrics) SubmitDuration(msgType string) metrics.Timer {
	return newTimer(m.submitDuration.WithLabelValues(msgType))
}

func (m *sessionMetrics) SubmitCompleted(msgType string, success bool) {
	m.submitsTotal.WithLabelValues(msgType, boolToStr(success)).Inc()
}

func (m *sessionMetrics) TransportError(errorType string) {
	m.transportErrors.WithLabelValues(errorType).Inc()
}

func (m *sessionMetrics) StateChanged(state string) {
	m.stateChanges.WithLabelValues(state).Inc()
}

var _ session.SessionMetrics = (*sessionMetrics)(nil)
