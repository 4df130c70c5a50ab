// Package metrics provides Prometheus-based metrics collection for radiomap.
// It tracks scan cycles, sensor reads, CSV storage operations, and API
// requests for operational visibility into a running collector.
package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// Namespace for all radiomap metrics
	namespace = "radiomap"

	// Subsystems
	subsystemScan      = "scan"
	subsystemSensor    = "sensor"
	subsystemStorage   = "storage"
	subsystemCollector = "collector"
	subsystemAPI       = "api"
	subsystemSystem    = "system"
)

// Metrics holds all Prometheus metric collectors for the collector process.
type Metrics struct {
	// Wi-Fi scan metrics
	scansTotal      *prometheus.CounterVec
	scanDuration    *prometheus.HistogramVec
	scanErrors      *prometheus.CounterVec
	networksCached  prometheus.Gauge
	networksPerScan prometheus.Histogram

	// Sensor metrics
	sensorReads     *prometheus.CounterVec
	sensorDuration  *prometheus.HistogramVec
	sensorErrors    *prometheus.CounterVec

	// Storage metrics
	rowsAppended   *prometheus.CounterVec
	headerRewrites *prometheus.CounterVec
	storageErrors  *prometheus.CounterVec

	// Collection cycle metrics
	cyclesTotal   *prometheus.CounterVec
	cycleDuration prometheus.Histogram

	// API metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	// System metrics
	memoryUsage prometheus.Gauge
	goroutines  prometheus.Gauge
	uptime      prometheus.Gauge

	startTime time.Time
	registry  *prometheus.Registry
}

// New creates a new metrics instance with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		startTime: time.Now(),
		registry:  registry,
	}

	m.initScanMetrics()
	m.initSensorMetrics()
	m.initStorageMetrics()
	m.initCollectorMetrics()
	m.initAPIMetrics()
	m.initSystemMetrics()
	m.registerMetrics()

	// Register standard Go and process collectors for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

func (m *Metrics) initScanMetrics() {
	m.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "total",
			Help:      "Total number of Wi-Fi scan cycles by status",
		},
		[]string{"interface", "status"},
	)

	m.scanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "duration_seconds",
			Help:      "Duration of Wi-Fi scan cycles in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"interface"},
	)

	m.scanErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "errors_total",
			Help:      "Total number of scan errors by error type",
		},
		[]string{"interface", "error_type"},
	)

	m.networksCached = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "networks_cached",
			Help:      "Number of distinct networks in the scan cache",
		},
	)

	m.networksPerScan = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "networks_per_scan",
			Help:      "Number of networks observed in one scan cycle",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)
}

func (m *Metrics) initSensorMetrics() {
	m.sensorReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSensor,
			Name:      "reads_total",
			Help:      "Total number of sensor reads by modality and status",
		},
		[]string{"sensor", "status"},
	)

	m.sensorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemSensor,
			Name:      "read_duration_seconds",
			Help:      "Duration of sensor reads in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		},
		[]string{"sensor"},
	)

	m.sensorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSensor,
			Name:      "errors_total",
			Help:      "Total number of sensor read errors by modality",
		},
		[]string{"sensor", "error_type"},
	)
}

func (m *Metrics) initStorageMetrics() {
	m.rowsAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemStorage,
			Name:      "rows_total",
			Help:      "Total number of rows appended by data file",
		},
		[]string{"file"},
	)

	m.headerRewrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemStorage,
			Name:      "header_rewrites_total",
			Help:      "Total number of schema-widening file rewrites by data file",
		},
		[]string{"file"},
	)

	m.storageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemStorage,
			Name:      "errors_total",
			Help:      "Total number of storage errors by data file",
		},
		[]string{"file", "error_type"},
	)
}

func (m *Metrics) initCollectorMetrics() {
	m.cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemCollector,
			Name:      "cycles_total",
			Help:      "Total number of collection cycles by status",
		},
		[]string{"status"},
	)

	m.cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemCollector,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of full collection cycles in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0},
		},
	)
}

func (m *Metrics) initAPIMetrics() {
	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"method", "path"},
	)
}

func (m *Metrics) initSystemMetrics() {
	m.memoryUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "memory_bytes",
			Help:      "Current memory usage in bytes",
		},
	)

	m.goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	m.uptime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds",
		},
	)
}

func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(
		m.scansTotal,
		m.scanDuration,
		m.scanErrors,
		m.networksCached,
		m.networksPerScan,
		m.sensorReads,
		m.sensorDuration,
		m.sensorErrors,
		m.rowsAppended,
		m.headerRewrites,
		m.storageErrors,
		m.cyclesTotal,
		m.cycleDuration,
		m.httpRequests,
		m.httpDuration,
		m.memoryUsage,
		m.goroutines,
		m.uptime,
	)
}

// Registry returns the underlying Prometheus registry for HTTP exposure.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Scan metric helpers

// IncrementScansTotal increments total scan cycles.
func (m *Metrics) IncrementScansTotal(iface, status string) {
	m.scansTotal.WithLabelValues(iface, status).Inc()
}

// RecordScanDuration records the duration of one scan cycle.
func (m *Metrics) RecordScanDuration(iface string, duration time.Duration) {
	m.scanDuration.WithLabelValues(iface).Observe(duration.Seconds())
}

// IncrementScanErrors increments scan errors by type.
func (m *Metrics) IncrementScanErrors(iface, errorType string) {
	m.scanErrors.WithLabelValues(iface, errorType).Inc()
}

// SetNetworksCached sets the current scan cache size.
func (m *Metrics) SetNetworksCached(count int) {
	m.networksCached.Set(float64(count))
}

// ObserveNetworksPerScan records how many networks one cycle produced.
func (m *Metrics) ObserveNetworksPerScan(count int) {
	m.networksPerScan.Observe(float64(count))
}

// Sensor metric helpers

// IncrementSensorReads increments sensor reads by modality and status.
func (m *Metrics) IncrementSensorReads(sensor, status string) {
	m.sensorReads.WithLabelValues(sensor, status).Inc()
}

// RecordSensorDuration records the duration of one sensor read.
func (m *Metrics) RecordSensorDuration(sensor string, duration time.Duration) {
	m.sensorDuration.WithLabelValues(sensor).Observe(duration.Seconds())
}

// IncrementSensorErrors increments sensor errors by modality.
func (m *Metrics) IncrementSensorErrors(sensor, errorType string) {
	m.sensorErrors.WithLabelValues(sensor, errorType).Inc()
}

// Storage metric helpers

// IncrementRowsAppended increments appended row count for a data file.
func (m *Metrics) IncrementRowsAppended(file string) {
	m.rowsAppended.WithLabelValues(file).Inc()
}

// IncrementHeaderRewrites increments schema-widening rewrites for a data file.
func (m *Metrics) IncrementHeaderRewrites(file string) {
	m.headerRewrites.WithLabelValues(file).Inc()
}

// IncrementStorageErrors increments storage errors for a data file.
func (m *Metrics) IncrementStorageErrors(file, errorType string) {
	m.storageErrors.WithLabelValues(file, errorType).Inc()
}

// Collection cycle helpers

// IncrementCyclesTotal increments collection cycles by status.
func (m *Metrics) IncrementCyclesTotal(status string) {
	m.cyclesTotal.WithLabelValues(status).Inc()
}

// RecordCycleDuration records the duration of one collection cycle.
func (m *Metrics) RecordCycleDuration(duration time.Duration) {
	m.cycleDuration.Observe(duration.Seconds())
}

// API metric helpers

// IncrementHTTPRequests increments HTTP request count.
func (m *Metrics) IncrementHTTPRequests(method, path, status string) {
	m.httpRequests.WithLabelValues(method, path, status).Inc()
}

// RecordHTTPDuration records HTTP request duration.
func (m *Metrics) RecordHTTPDuration(method, path string, duration time.Duration) {
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateSystemMetrics refreshes memory, goroutine and uptime gauges.
func (m *Metrics) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.memoryUsage.Set(float64(memStats.Alloc))
	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.uptime.Set(time.Since(m.startTime).Seconds())
}

// StartPeriodicUpdates refreshes system metrics on an interval until ctx ends.
func (m *Metrics) StartPeriodicUpdates(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.UpdateSystemMetrics()
			}
		}
	}()
}

// Global instance for easy access
var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Global returns the process-wide metrics instance.
func Global() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = New()
	})
	return globalMetrics
}
