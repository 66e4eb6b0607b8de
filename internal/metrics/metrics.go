package metrics

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

var (
	// defaultRegistry is the default Prometheus registry
	defaultRegistry = prometheus.DefaultRegisterer
)

// Config holds metrics configuration.
type Config struct {
	// EnableChunkNumLabel controls whether individual chunk numbers are
	// attached as a label. Off by default: chunk numbers are unbounded and
	// would blow up cardinality on a long-running archive.
	EnableChunkNumLabel bool
}

// Metrics holds all application metrics.
type Metrics struct {
	config                Config
	chunksSentTotal        *prometheus.CounterVec
	chunkSendDuration      *prometheus.HistogramVec
	chunkBytesTotal        *prometheus.CounterVec
	poolInUse              prometheus.Gauge
	poolCapacity           prometheus.Gauge
	poolSaturatedTotal     prometheus.Counter
	truncatedReadsTotal    prometheus.Counter
	cullCyclesTotal        *prometheus.CounterVec
	cullDuration           prometheus.Histogram
	cullLiveChunks         prometheus.Gauge
	goroutines             prometheus.Gauge
	memoryAllocBytes       prometheus.Gauge
	memorySysBytes         prometheus.Gauge
	hardwareAccelerationEnabled *prometheus.GaugeVec
}

// NewMetrics creates a new metrics instance with default configuration.
func NewMetrics() *Metrics {
	return NewMetricsWithConfig(Config{})
}

// NewMetricsWithConfig creates a new metrics instance with the provided configuration.
func NewMetricsWithConfig(cfg Config) *Metrics {
	return newMetricsWithRegistry(defaultRegistry, cfg)
}

// NewMetricsWithRegistry creates a new metrics instance with a custom registry.
// This is useful for testing to avoid metric registration conflicts.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetricsWithRegistry(reg, Config{})
}

// newMetricsWithRegistry creates a new metrics instance with a custom registry (for testing).
func newMetricsWithRegistry(reg prometheus.Registerer, cfg Config) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		config: cfg,
		chunksSentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunks_sent_total",
				Help: "Total number of chunk transactions completed",
			},
			[]string{"direction"}, // "write" or "read"
		),
		chunkSendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chunk_send_duration_seconds",
				Help:    "Time to send one chunk transaction and receive its reply",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"direction"},
		),
		chunkBytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunk_bytes_total",
				Help: "Total ciphertext bytes transferred",
			},
			[]string{"direction"},
		),
		poolInUse: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "transaction_pool_in_use",
				Help: "Number of transaction pool slots currently allocated",
			},
		),
		poolCapacity: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "transaction_pool_capacity",
				Help: "Fixed capacity of the transaction pool",
			},
		),
		poolSaturatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "transaction_pool_saturated_total",
				Help: "Total number of TryAlloc calls that found the pool saturated",
			},
		),
		truncatedReadsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "truncated_reads_total",
				Help: "Total number of extract chunk reads treated as an implicit EOF due to truncation",
			},
		),
		cullCyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cull_cycles_total",
				Help: "Total number of cull cycles, by outcome",
			},
			[]string{"outcome"}, // "ok" or "error"
		),
		cullDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cull_cycle_duration_seconds",
				Help:    "Duration of a full cull cycle",
				Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 3600},
			},
		),
		cullLiveChunks: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cull_live_chunks",
				Help: "Number of distinct chunk SHAs marked live in the most recent cull cycle",
			},
		),
		goroutines: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "goroutines_total",
				Help: "Number of goroutines",
			},
		),
		memoryAllocBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memory_alloc_bytes",
				Help: "Number of bytes allocated and not yet freed",
			},
		),
		memorySysBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memory_sys_bytes",
				Help: "Total bytes of memory obtained from OS",
			},
		),
		hardwareAccelerationEnabled: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hardware_acceleration_enabled",
				Help: "Hardware acceleration status (1=enabled, 0=disabled)",
			},
			[]string{"type"},
		),
	}
}

// SetHardwareAccelerationStatus sets the hardware acceleration status metric.
func (m *Metrics) SetHardwareAccelerationStatus(accelType string, enabled bool) {
	val := 0.0
	if enabled {
		val = 1.0
	}
	m.hardwareAccelerationEnabled.WithLabelValues(accelType).Set(val)
}

// GetHardwareAccelerationEnabledMetric returns the hardware acceleration enabled metric (for testing).
func (m *Metrics) GetHardwareAccelerationEnabledMetric() *prometheus.GaugeVec {
	return m.hardwareAccelerationEnabled
}

// RecordChunkSent records one completed chunk transaction, attaching an
// exemplar when ctx carries a live trace span.
func (m *Metrics) RecordChunkSent(ctx context.Context, direction string, bytes int, duration time.Duration) {
	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.chunksSentTotal.WithLabelValues(direction).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.chunksSentTotal.WithLabelValues(direction).Inc()
		}
		if observer, ok := m.chunkSendDuration.WithLabelValues(direction).(prometheus.ExemplarObserver); ok {
			observer.ObserveWithExemplar(duration.Seconds(), exemplar)
		} else {
			m.chunkSendDuration.WithLabelValues(direction).Observe(duration.Seconds())
		}
	} else {
		m.chunksSentTotal.WithLabelValues(direction).Inc()
		m.chunkSendDuration.WithLabelValues(direction).Observe(duration.Seconds())
	}
	m.chunkBytesTotal.WithLabelValues(direction).Add(float64(bytes))
}

// SetPoolOccupancy records the transaction pool's current in-use/capacity.
func (m *Metrics) SetPoolOccupancy(inUse, capacity int) {
	m.poolInUse.Set(float64(inUse))
	m.poolCapacity.Set(float64(capacity))
}

// RecordPoolSaturated records one TryAlloc call that found no free slot.
func (m *Metrics) RecordPoolSaturated() {
	m.poolSaturatedTotal.Inc()
}

// RecordTruncatedRead records one implicit-EOF truncated chunk read.
func (m *Metrics) RecordTruncatedRead() {
	m.truncatedReadsTotal.Inc()
}

// RecordCullCycle records one completed cull cycle's outcome, duration and
// live-chunk count.
func (m *Metrics) RecordCullCycle(err error, duration time.Duration, liveChunks int) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.cullCyclesTotal.WithLabelValues(outcome).Inc()
	m.cullDuration.Observe(duration.Seconds())
	m.cullLiveChunks.Set(float64(liveChunks))
}

// UpdateSystemMetrics updates system-level metrics (goroutines, memory).
func (m *Metrics) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.memoryAllocBytes.Set(float64(memStats.Alloc))
	m.memorySysBytes.Set(float64(memStats.Sys))
}

// StartSystemMetricsCollector starts a goroutine that periodically updates system metrics.
func (m *Metrics) StartSystemMetricsCollector() {
	ticker := time.NewTicker(5 * time.Second)
	go func() {
		for range ticker.C {
			m.UpdateSystemMetrics()
		}
	}()
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// getExemplar extracts trace ID from context and returns prometheus Labels for exemplar.
func getExemplar(ctx context.Context) prometheus.Labels {
	if ctx == nil {
		return nil
	}
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if spanContext.IsValid() {
		return prometheus.Labels{"trace_id": spanContext.TraceID().String()}
	}
	return nil
}
