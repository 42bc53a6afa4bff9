// Package metrics defines small instrumentation interfaces so that core
// packages can emit metrics without depending on a concrete backend.
// Prometheus implementations live in adapters/prometheus.
package metrics

// Counter only ever goes up.
type Counter interface {
	// Inc increments the counter by 1.
	Inc()
	// Add increments the counter by delta. delta must be >= 0.
	Add(delta float64)
}

// Gauge tracks a value that can rise and fall.
type Gauge interface {
	// Set sets the gauge to value.
	Set(value float64)
	// Inc increments the gauge by 1.
	Inc()
	// Dec decrements the gauge by 1.
	Dec()
}

// Timer records the duration of a single operation. Create the timer when
// the operation starts and call ObserveDuration when it completes:
//
//	defer m.ResolveDuration("get").ObserveDuration()
type Timer interface {
	// ObserveDuration records the elapsed time since the timer was created.
	ObserveDuration()
}
