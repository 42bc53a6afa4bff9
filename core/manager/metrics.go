package manager

import "github.com/codewandler/rsrc-go/core/metrics"

// ManagerMetrics defines the metrics interface for the manager pillar.
// All methods are thread-safe.
type ManagerMetrics interface {
	// Resolution round trips: get, create, exists
	ResolveDuration(op string) metrics.Timer
	ResolveCompleted(op string, success bool)

	// Registry size
	ResourcesTracked(count int)

	// Recovery cycles
	RecoveryDuration() metrics.Timer
	RecoveryCompleted(success bool)

	// Per-instance recovery outcomes: rebound, dropped, failed
	ResourceRecovered(outcome string)
}

type nopManagerMetrics struct{}

func (nopManagerMetrics) ResolveDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopManagerMetrics) ResolveCompleted(string, bool)        {}
func (nopManagerMetrics) ResourcesTracked(int)                 {}
func (nopManagerMetrics) RecoveryDuration() metrics.Timer      { return metrics.NopTimer() }
func (nopManagerMetrics) RecoveryCompleted(bool)               {}
func (nopManagerMetrics) ResourceRecovered(string)             {}

// NopManagerMetrics returns a no-op ManagerMetrics implementation.
func NopManagerMetrics() ManagerMetrics { return nopManagerMetrics{} }
