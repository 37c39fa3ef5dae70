// Package metrics tracks parquet writing with Prometheus metrics.
//
// # Overview
//
// A Collector owns one set of metrics registered with a caller supplied
// prometheus.Registerer, so several writers in one process can share a
// registry while tests use their own:
//
//	reg := prometheus.NewRegistry()
//	collector := metrics.NewCollector(reg, "orders")
//
//	timer := metrics.NewTimer()
//	err := writer.Write(record)
//	collector.ObserveWrite(timer.Stop())
//
// All Collector methods are safe on a nil receiver, which records nothing.
//
// # Metric Types
//
// Counter: records written, records rejected, values emitted, row groups
// Gauge: current write throughput
// Histogram: per-record write latency
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "csvparquet"

// Rejection reasons used as the reason label of records_rejected_total.
const (
	ReasonArity    = "arity"
	ReasonParse    = "parse"
	ReasonProtocol = "protocol"
	ReasonIO       = "io"
)

// Collector records the activity of one parquet writer.
type Collector struct {
	target string

	recordsWritten  prometheus.Counter
	recordsRejected *prometheus.CounterVec
	valuesEmitted   *prometheus.CounterVec
	rowGroups       prometheus.Counter
	writeLatency    prometheus.Histogram
	throughput      prometheus.Gauge
}

// NewCollector registers the writer metrics with reg, labelled with target.
// Registering two collectors for the same target on one registry panics.
func NewCollector(reg prometheus.Registerer, target string) *Collector {
	f := promauto.With(reg)
	labels := prometheus.Labels{"target": target}

	return &Collector{
		target: target,
		recordsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "records_written_total",
			Help:        "Total number of records written",
			ConstLabels: labels,
		}),
		recordsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "records_rejected_total",
			Help:        "Total number of records rejected",
			ConstLabels: labels,
		}, []string{"reason"}),
		valuesEmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "values_emitted_total",
			Help:        "Total number of typed values emitted to the column sink",
			ConstLabels: labels,
		}, []string{"kind"}),
		rowGroups: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "row_groups_flushed_total",
			Help:        "Total number of parquet row groups written",
			ConstLabels: labels,
		}),
		writeLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "record_write_seconds",
			Help:        "Time taken to shred and buffer one record",
			ConstLabels: labels,
			Buckets: []float64{
				1e-7, // 100ns
				1e-6, // 1μs
				1e-5, // 10μs
				1e-4, // 100μs
				1e-3, // 1ms
				1e-2, // 10ms
				1e-1, // 100ms - row group flushes
				1,
			},
		}),
		throughput: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "records_per_second",
			Help:        "Most recently measured write throughput",
			ConstLabels: labels,
		}),
	}
}

// Target returns the label the collector was created with.
func (c *Collector) Target() string {
	if c == nil {
		return ""
	}
	return c.target
}

// RecordWritten counts one accepted record.
func (c *Collector) RecordWritten() {
	if c == nil {
		return
	}
	c.recordsWritten.Inc()
}

// RecordRejected counts one rejected record under reason.
func (c *Collector) RecordRejected(reason string) {
	if c == nil {
		return
	}
	c.recordsRejected.WithLabelValues(reason).Inc()
}

// ValuesEmitted counts n values of the given kind.
func (c *Collector) ValuesEmitted(kind string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.valuesEmitted.WithLabelValues(kind).Add(float64(n))
}

// RowGroupsFlushed counts n newly written row groups.
func (c *Collector) RowGroupsFlushed(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.rowGroups.Add(float64(n))
}

// ObserveWrite records the latency of one record write.
func (c *Collector) ObserveWrite(d time.Duration) {
	if c == nil {
		return
	}
	c.writeLatency.Observe(d.Seconds())
}

// Timer measures elapsed time for an operation.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since creation. It can be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks records per second over time windows and
// publishes the measurement to a collector. Safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
	collector *Collector
}

// NewThroughputTracker creates a tracker reporting to collector, which may
// be nil.
func NewThroughputTracker(collector *Collector) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		collector: collector,
	}
}

// Increment adds n to the record count.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the throughput since the last reset, publishes it,
// and starts a new window.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	if t.collector != nil {
		t.collector.throughput.Set(throughput)
	}
	return throughput
}
