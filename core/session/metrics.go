package session

import "github.com/codewandler/rsrc-go/core/metrics"

// SessionMetrics defines the metrics interface for the session pillar.
// All methods are thread-safe.
type SessionMetrics interface {
	// Submissions
	SubmitDuration(msgType string) metrics.Timer
	SubmitCompleted(msgType string, success bool)

	// Transport errors: closed, expired, service, session_lost
	TransportError(errorType string)

	// Lifecycle transitions: unopened, open, closed, lost
	StateChanged(state string)
}

type nopSessionMetrics struct{}

func (nopSessionMetrics) SubmitDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopSessionMetrics) SubmitCompleted(string, bool)        {}
func (nopSessionMetrics) TransportError(string)               {}
func (nopSessionMetrics) StateChanged(string)                 {}

// NopSessionMetrics returns a no-op SessionMetrics implementation.
func NopSessionMetrics() SessionMetrics { return nopSessionMetrics{} }
