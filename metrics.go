package vkreplay

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds.
// Buckets cover from 1us to 10s with logarithmic spacing — wide enough
// to span both a trivial sampler create and a large ray tracing
// pipeline compile.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks performance and operational statistics for a replay.
type Metrics struct {
	// Phase counters
	ParseOps   atomic.Uint64
	CreateOps  atomic.Uint64
	DestroyOps atomic.Uint64

	// Error counters
	ParseErrors  atomic.Uint64
	CreateErrors atomic.Uint64
	InvalidCount atomic.Uint64 // entries that ended up in the invalid state

	// In-flight root tracking
	RootsInFlightTotal atomic.Uint64
	RootsInFlightCount atomic.Uint64
	MaxRootsInFlight   atomic.Uint32

	// Create-call latency
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	// Replay lifecycle
	StartTime atomic.Int64 // UnixNano
	StopTime  atomic.Int64 // UnixNano
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordParse records one entry's parse attempt.
func (m *Metrics) RecordParse(success bool) {
	m.ParseOps.Add(1)
	if !success {
		m.ParseErrors.Add(1)
	}
}

// RecordCreate records one entry's driver Create call.
func (m *Metrics) RecordCreate(latencyNs uint64, success bool) {
	m.CreateOps.Add(1)
	if !success {
		m.CreateErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordDestroy records one entry's driver Destroy call.
func (m *Metrics) RecordDestroy() {
	m.DestroyOps.Add(1)
}

// RecordInvalid records an entry permanently transitioning to invalid.
func (m *Metrics) RecordInvalid() {
	m.InvalidCount.Add(1)
}

// RecordRootsInFlight records the current number of root pipelines
// being resolved concurrently — the dispatcher's analogue of a queue
// depth sample.
func (m *Metrics) RecordRootsInFlight(n uint32) {
	m.RootsInFlightTotal.Add(uint64(n))
	m.RootsInFlightCount.Add(1)

	for {
		current := m.MaxRootsInFlight.Load()
		if n <= current {
			break
		}
		if m.MaxRootsInFlight.CompareAndSwap(current, n) {
			break
		}
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the replay as finished.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics.
type MetricsSnapshot struct {
	ParseOps     uint64
	CreateOps    uint64
	DestroyOps   uint64
	ParseErrors  uint64
	CreateErrors uint64
	InvalidCount uint64

	AvgRootsInFlight float64
	MaxRootsInFlight uint32

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	CreateRate float64 // creates per second
	ErrorRate  float64 // percentage of failed parse+create attempts
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		ParseOps:         m.ParseOps.Load(),
		CreateOps:        m.CreateOps.Load(),
		DestroyOps:       m.DestroyOps.Load(),
		ParseErrors:      m.ParseErrors.Load(),
		CreateErrors:     m.CreateErrors.Load(),
		InvalidCount:     m.InvalidCount.Load(),
		MaxRootsInFlight: m.MaxRootsInFlight.Load(),
	}

	inFlightTotal := m.RootsInFlightTotal.Load()
	inFlightCount := m.RootsInFlightCount.Load()
	if inFlightCount > 0 {
		snap.AvgRootsInFlight = float64(inFlightTotal) / float64(inFlightCount)
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		snap.CreateRate = float64(snap.CreateOps) / (float64(snap.UptimeNs) / 1e9)
	}

	totalAttempts := snap.ParseOps + snap.CreateOps
	totalErrors := snap.ParseErrors + snap.CreateErrors
	if totalAttempts > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(totalAttempts) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile
// (0.0-1.0) using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Observer allows pluggable metrics collection, so a caller embedding
// this engine can route observations into its own telemetry instead of
// (or alongside) Metrics.
type Observer interface {
	ObserveParse(success bool)
	ObserveCreate(latencyNs uint64, success bool)
	ObserveDestroy()
	ObserveInvalid()
	ObserveRootsInFlight(n uint32)
}

// NoOpObserver is a no-op implementation of Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveParse(bool)          {}
func (NoOpObserver) ObserveCreate(uint64, bool) {}
func (NoOpObserver) ObserveDestroy()            {}
func (NoOpObserver) ObserveInvalid()            {}
func (NoOpObserver) ObserveRootsInFlight(uint32) {}

// MetricsObserver implements Observer using the built-in Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given
// metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveParse(success bool) {
	o.metrics.RecordParse(success)
}

func (o *MetricsObserver) ObserveCreate(latencyNs uint64, success bool) {
	o.metrics.RecordCreate(latencyNs, success)
}

func (o *MetricsObserver) ObserveDestroy() {
	o.metrics.RecordDestroy()
}

func (o *MetricsObserver) ObserveInvalid() {
	o.metrics.RecordInvalid()
}

func (o *MetricsObserver) ObserveRootsInFlight(n uint32) {
	o.metrics.RecordRootsInFlight(n)
}

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = NoOpObserver{}

// fanOutObserver reports every observation to two Observers in sequence.
// Replay uses this to always record into its own Metrics (so Summary.Metrics
// is populated) while still forwarding to whatever Observer the caller
// configured in Options, if any.
type fanOutObserver struct {
	a, b Observer
}

func (o fanOutObserver) ObserveParse(success bool) {
	o.a.ObserveParse(success)
	o.b.ObserveParse(success)
}

func (o fanOutObserver) ObserveCreate(latencyNs uint64, success bool) {
	o.a.ObserveCreate(latencyNs, success)
	o.b.ObserveCreate(latencyNs, success)
}

func (o fanOutObserver) ObserveDestroy() {
	o.a.ObserveDestroy()
	o.b.ObserveDestroy()
}

func (o fanOutObserver) ObserveInvalid() {
	o.a.ObserveInvalid()
	o.b.ObserveInvalid()
}

func (o fanOutObserver) ObserveRootsInFlight(n uint32) {
	o.a.ObserveRootsInFlight(n)
	o.b.ObserveRootsInFlight(n)
}

var _ Observer = fanOutObserver{}
