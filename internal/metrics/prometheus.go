// Package metrics provides Prometheus-based metrics collection for pulsenet.
// This complements the lightweight in-process registry with industry-standard
// Prometheus collectors for proper observability and monitoring integration.
package metrics

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace for all pulsenet metrics
	namespace = "pulsenet"

	// Subsystems
	subsystemProbe  = "probe"
	subsystemSource = "source"
	subsystemEngine = "engine"
	subsystemSystem = "system"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Probe metrics
	probesTotal   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	probeErrors   *prometheus.CounterVec
	hitsTotal     *prometheus.CounterVec
	portsProbed   *prometheus.CounterVec
	hitLatency    prometheus.Histogram

	// Source metrics
	sourceAddresses *prometheus.GaugeVec
	sourceDuration  *prometheus.HistogramVec
	sourceErrors    *prometheus.CounterVec

	// Engine metrics
	inFlight        prometheus.Gauge
	dispatchedTotal prometheus.Counter
	rateWaitTotal   prometheus.Counter
	runDuration     prometheus.Histogram

	// System metrics
	memoryUsage prometheus.Gauge
	goroutines  prometheus.Gauge
	uptime      prometheus.Gauge

	// Performance tracking
	startTime  time.Time
	lastUpdate time.Time
	mu         sync.RWMutex
	registry   *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		startTime: time.Now(),
		registry:  registry,
	}

	// Initialize all metrics
	pm.initProbeMetrics()
	pm.initSourceMetrics()
	pm.initEngineMetrics()
	pm.initSystemMetrics()

	// Register all metrics with the registry
	pm.registerMetrics()

	// Register standard Go and process collectors for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

// initProbeMetrics initializes probe-related metrics
func (pm *PrometheusMetrics) initProbeMetrics() {
	pm.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "total",
			Help:      "Total number of address probes by result",
		},
		[]string{"result"},
	)

	pm.probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "duration_seconds",
			Help:      "Duration of address probes in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"result"},
	)

	pm.probeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "errors_total",
			Help:      "Total number of failed probes by miss reason",
		},
		[]string{"reason"},
	)

	pm.hitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "hits_total",
			Help:      "Total number of reachable hosts by responding port",
		},
		[]string{"port"},
	)

	pm.portsProbed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "ports_total",
			Help:      "Total number of per-port connection attempts by status",
		},
		[]string{"status"},
	)

	pm.hitLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "hit_latency_seconds",
			Help:      "Connection latency for successful probes in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
	)
}

// initSourceMetrics initializes address source metrics
func (pm *PrometheusMetrics) initSourceMetrics() {
	pm.sourceAddresses = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSource,
			Name:      "addresses",
			Help:      "Number of addresses produced by each source",
		},
		[]string{"source"},
	)

	pm.sourceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemSource,
			Name:      "load_duration_seconds",
			Help:      "Duration of source materialization in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 10.0},
		},
		[]string{"source"},
	)

	pm.sourceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSource,
			Name:      "errors_total",
			Help:      "Total number of source errors by source and error type",
		},
		[]string{"source", "error_type"},
	)
}

// initEngineMetrics initializes engine-related metrics
func (pm *PrometheusMetrics) initEngineMetrics() {
	pm.inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemEngine,
			Name:      "in_flight",
			Help:      "Number of probes currently in flight",
		},
	)

	pm.dispatchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemEngine,
			Name:      "dispatched_total",
			Help:      "Total number of probes dispatched to workers",
		},
	)

	pm.rateWaitTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemEngine,
			Name:      "rate_waits_total",
			Help:      "Total number of dispatches delayed by the rate limiter",
		},
	)

	pm.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemEngine,
			Name:      "run_duration_seconds",
			Help:      "Duration of complete probe runs in seconds",
			Buckets:   []float64{1.0, 5.0, 10.0, 30.0, 60.0, 300.0, 600.0, 1800.0},
		},
	)
}

// initSystemMetrics initializes system-related metrics
func (pm *PrometheusMetrics) initSystemMetrics() {
	pm.memoryUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "memory_bytes",
			Help:      "Current memory usage in bytes",
		},
	)

	pm.goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	pm.uptime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "uptime_seconds",
			Help:      "Application uptime in seconds",
		},
	)
}

// registerMetrics registers all metrics with the Prometheus registry
func (pm *PrometheusMetrics) registerMetrics() {
	// Probe metrics
	pm.registry.MustRegister(pm.probesTotal)
	pm.registry.MustRegister(pm.probeDuration)
	pm.registry.MustRegister(pm.probeErrors)
	pm.registry.MustRegister(pm.hitsTotal)
	pm.registry.MustRegister(pm.portsProbed)
	pm.registry.MustRegister(pm.hitLatency)

	// Source metrics
	pm.registry.MustRegister(pm.sourceAddresses)
	pm.registry.MustRegister(pm.sourceDuration)
	pm.registry.MustRegister(pm.sourceErrors)

	// Engine metrics
	pm.registry.MustRegister(pm.inFlight)
	pm.registry.MustRegister(pm.dispatchedTotal)
	pm.registry.MustRegister(pm.rateWaitTotal)
	pm.registry.MustRegister(pm.runDuration)

	// System metrics
	pm.registry.MustRegister(pm.memoryUsage)
	pm.registry.MustRegister(pm.goroutines)
	pm.registry.MustRegister(pm.uptime)
}

// GetRegistry returns the Prometheus registry for HTTP handler
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// Handler returns an HTTP handler serving the metrics endpoint
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// Probe Metrics Methods

// IncrementProbesTotal increments the total probe counter
func (pm *PrometheusMetrics) IncrementProbesTotal(result string) {
	pm.probesTotal.WithLabelValues(result).Inc()
}

// RecordProbeDuration records a probe duration
func (pm *PrometheusMetrics) RecordProbeDuration(result string, duration time.Duration) {
	pm.probeDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// IncrementProbeErrors increments the miss counter by reason
func (pm *PrometheusMetrics) IncrementProbeErrors(reason string) {
	pm.probeErrors.WithLabelValues(reason).Inc()
}

// IncrementHitsTotal increments the reachable host counter
func (pm *PrometheusMetrics) IncrementHitsTotal(port string) {
	pm.hitsTotal.WithLabelValues(port).Inc()
}

// IncrementPortsProbed increments the per-port attempt counter
func (pm *PrometheusMetrics) IncrementPortsProbed(status string, count int) {
	pm.portsProbed.WithLabelValues(status).Add(float64(count))
}

// RecordHitLatency records the connection latency of a successful probe
func (pm *PrometheusMetrics) RecordHitLatency(latency time.Duration) {
	pm.hitLatency.Observe(latency.Seconds())
}

// Source Metrics Methods

// SetSourceAddresses records how many addresses a source produced
func (pm *PrometheusMetrics) SetSourceAddresses(source string, count int) {
	pm.sourceAddresses.WithLabelValues(source).Set(float64(count))
}

// RecordSourceDuration records source materialization duration
func (pm *PrometheusMetrics) RecordSourceDuration(source string, duration time.Duration) {
	pm.sourceDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// IncrementSourceErrors increments the source error counter
func (pm *PrometheusMetrics) IncrementSourceErrors(source, errorType string) {
	pm.sourceErrors.WithLabelValues(source, errorType).Inc()
}

// Engine Metrics Methods

// SetInFlight sets the number of probes in flight
func (pm *PrometheusMetrics) SetInFlight(count int) {
	pm.inFlight.Set(float64(count))
}

// IncrementDispatched increments the dispatched probe counter
func (pm *PrometheusMetrics) IncrementDispatched() {
	pm.dispatchedTotal.Inc()
}

// IncrementRateWaits increments the rate limiter delay counter
func (pm *PrometheusMetrics) IncrementRateWaits() {
	pm.rateWaitTotal.Inc()
}

// RecordRunDuration records the duration of a complete run
func (pm *PrometheusMetrics) RecordRunDuration(duration time.Duration) {
	pm.runDuration.Observe(duration.Seconds())
}

// System Metrics Methods

// UpdateSystemMetrics updates all system metrics with current values
func (pm *PrometheusMetrics) UpdateSystemMetrics() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// Update memory usage
	pm.memoryUsage.Set(float64(memStats.Alloc))

	// Update goroutine count
	pm.goroutines.Set(float64(runtime.NumGoroutine()))

	// Update uptime
	uptime := time.Since(pm.startTime).Seconds()
	pm.uptime.Set(uptime)

	// Update last update time
	pm.lastUpdate = time.Now()
}

// Utility Methods

// GetUptime returns the application uptime
func (pm *PrometheusMetrics) GetUptime() time.Duration {
	return time.Since(pm.startTime)
}

// GetLastUpdate returns the last metrics update time
func (pm *PrometheusMetrics) GetLastUpdate() time.Time {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.lastUpdate
}

// StartPeriodicUpdates starts a goroutine that periodically updates system
// metrics. It returns immediately; the goroutine stops when ctx is canceled.
func (pm *PrometheusMetrics) StartPeriodicUpdates(ctx context.Context, interval time.Duration) {
	// Update immediately
	pm.UpdateSystemMetrics()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pm.UpdateSystemMetrics()
			}
		}
	}()
}

// Global instance for easy access
var globalMetrics *PrometheusMetrics
var metricsOnce sync.Once

// GetGlobalMetrics returns the global Prometheus metrics instance
func GetGlobalMetrics() *PrometheusMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewPrometheusMetrics()
	})
	return globalMetrics
}
