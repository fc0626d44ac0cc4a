package metrics

import (
	"time"

	"github.com/Layr-Labs/eigensdk-go/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsGenerator interface {
	metrics.Metrics

	IncRelayMessage(kind string)
	IncRelayReconnect()
	IncSolverOperation(status string)
	IncBundleHash()

	ObserveHook(op, phase string, elapsed time.Duration)
	IncHookError(op, phase string)
}

// AtlasMetrics contains the counters updated by the relay client and the
// metrics hook. The embedded eigen metrics serve the /metrics endpoint.
type AtlasMetrics struct {
	metrics.Metrics

	relayMessages   *prometheus.CounterVec
	relayReconnects prometheus.Counter
	solverOps       *prometheus.CounterVec
	bundleHashes    prometheus.Counter

	hookLatency *prometheus.HistogramVec
	hookErrors  *prometheus.CounterVec
}

const apNamespace = "ap"

func NewAtlasMetrics(eigenMetrics metrics.Metrics, reg prometheus.Registerer) *AtlasMetrics {
	return &AtlasMetrics{
		Metrics: eigenMetrics,

		relayMessages: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: apNamespace,
				Subsystem: "relay",
				Name:      "messages_total",
				Help:      "The number of inbound relay messages by kind",
			}, []string{"kind"}),

		relayReconnects: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: apNamespace,
				Subsystem: "relay",
				Name:      "reconnects_total",
				Help:      "The number of times the relay connection was re-established",
			}),

		solverOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: apNamespace,
				Subsystem: "relay",
				Name:      "solver_operations_total",
				Help:      "The number of pushed solver operations. status is one of collected, late, unknown_intent or malformed",
			}, []string{"status"}),

		bundleHashes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: apNamespace,
				Subsystem: "relay",
				Name:      "bundle_hashes_total",
				Help:      "The number of bundle hash confirmations pushed by the relay",
			}),

		hookLatency: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: apNamespace,
				Subsystem: "hooks",
				Name:      "duration_seconds",
				Help:      "Time spent in a hook phase",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation", "phase"}),

		hookErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: apNamespace,
				Subsystem: "hooks",
				Name:      "errors_total",
				Help:      "The number of hook phases that returned an error",
			}, []string{"operation", "phase"}),
	}
}

func (m *AtlasMetrics) IncRelayMessage(kind string) {
	m.relayMessages.WithLabelValues(kind).Inc()
}

func (m *AtlasMetrics) IncRelayReconnect() {
	m.relayReconnects.Inc()
}

func (m *AtlasMetrics) IncSolverOperation(status string) {
	m.solverOps.WithLabelValues(status).Inc()
}

func (m *AtlasMetrics) IncBundleHash() {
	m.bundleHashes.Inc()
}

func (m *AtlasMetrics) ObserveHook(op, phase string, elapsed time.Duration) {
	m.hookLatency.WithLabelValues(op, phase).Observe(elapsed.Seconds())
}

func (m *AtlasMetrics) IncHookError(op, phase string) {
	m.hookErrors.WithLabelValues(op, phase).Inc()
}

// NoopMetrics discards everything. Used when no registry is configured.
type NoopMetrics struct {
	metrics.Metrics
}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{Metrics: metrics.NewNoopMetrics()}
}

func (*NoopMetrics) IncRelayMessage(string)                    {}
func (*NoopMetrics) IncRelayReconnect()                        {}
func (*NoopMetrics) IncSolverOperation(string)                 {}
func (*NoopMetrics) IncBundleHash()                            {}
func (*NoopMetrics) ObserveHook(string, string, time.Duration) {}
func (*NoopMetrics) IncHookError(string, string)               {}
