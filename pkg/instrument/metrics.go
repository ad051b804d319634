package instrument

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/serval-uni-lu/flakime/pkg/domain"
)

// Metrics collects the counters of injection runs in a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	methods     *prometheus.CounterVec
	guards      prometheus.Counter
	guardErrors prometheus.Counter
	thresholds  prometheus.Histogram
	duration    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		methods: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flakime",
			Name:      "methods_total",
			Help:      "Test methods processed, by instrumentation status.",
		}, []string{"status"}),
		guards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flakime",
			Name:      "guards_inserted_total",
			Help:      "Guards inserted into test methods.",
		}),
		guardErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flakime",
			Name:      "guard_errors_total",
			Help:      "Guards that could not be inserted.",
		}),
		thresholds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flakime",
			Name:      "test_failure_probability",
			Help:      "Effective failure probability of instrumented test methods.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flakime",
			Name:      "run_duration_seconds",
			Help:      "Duration of the last injection run.",
		}),
	}
	m.registry.MustRegister(m.methods, m.guards, m.guardErrors, m.thresholds, m.duration)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) observeMethod(status domain.MethodStatus, probability float64, guards, guardErrors int) {
	if m == nil {
		return
	}
	m.methods.WithLabelValues(string(status)).Inc()
	m.guards.Add(float64(guards))
	m.guardErrors.Add(float64(guardErrors))
	if status == domain.MethodStatusInstrumented {
		m.thresholds.Observe(probability)
	}
}

func (m *Metrics) observeRun(seconds float64) {
	if m == nil {
		return
	}
	m.duration.Set(seconds)
}

// WriteTextfile writes the collected metrics in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
