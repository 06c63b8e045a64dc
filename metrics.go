package cvnet

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting pipeline metrics.
// Implement this interface to integrate with monitoring systems; see
// PrometheusCollector.
type MetricsCollector interface {
	// RecordTask is called after each task. cached reports a reused artifact,
	// err is nil if the task succeeded or was skipped without error.
	RecordTask(phase string, cached bool, duration time.Duration, err error)

	// RecordEdges is called with the number of edges one pair contributed.
	RecordEdges(n int)

	// RecordPhase is called after each phase.
	RecordPhase(phase string, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTask(string, bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordEdges(int)                              {}
func (NoopMetricsCollector) RecordPhase(string, time.Duration)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	TaskCount      atomic.Int64
	TaskCached     atomic.Int64
	TaskErrors     atomic.Int64
	TaskTotalNanos atomic.Int64
	EdgeCount      atomic.Int64
	PhaseCount     atomic.Int64
}

// RecordTask implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTask(_ string, cached bool, duration time.Duration, err error) {
	b.TaskCount.Add(1)
	b.TaskTotalNanos.Add(duration.Nanoseconds())
	if cached {
		b.TaskCached.Add(1)
	}
	if err != nil {
		b.TaskErrors.Add(1)
	}
}

// RecordEdges implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEdges(n int) {
	b.EdgeCount.Add(int64(n))
}

// RecordPhase implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPhase(string, time.Duration) {
	b.PhaseCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		TaskCount:  b.TaskCount.Load(),
		TaskCached: b.TaskCached.Load(),
		TaskErrors: b.TaskErrors.Load(),
		EdgeCount:  b.EdgeCount.Load(),
		PhaseCount: b.PhaseCount.Load(),
	}
	if s.TaskCount > 0 {
		s.TaskAvgNanos = b.TaskTotalNanos.Load() / s.TaskCount
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	TaskCount    int64
	TaskCached   int64
	TaskErrors   int64
	TaskAvgNanos int64
	EdgeCount    int64
	PhaseCount   int64
}
