package qobs

import (
	"sort"
	"sync"
	"time"
)

// Metrics tracks job execution in the estimator's pool.
type Metrics struct {
	mu                 sync.RWMutex
	WorkerCount        int
	JobCount           int64
	FailedJobs         int64
	SchedulingFailures int64
	TotalJobTime       time.Duration

	AverageJobLatency time.Duration
	P95JobLatency     time.Duration
	P99JobLatency     time.Duration
	JobSuccessRate    float64

	latencies  []time.Duration
	windowSize int
}

func NewMetrics() *Metrics {
	return &Metrics{
		latencies:  make([]time.Duration, 0, 1000), // last 1000 jobs
		windowSize: 1000,
	}
}

func (m *Metrics) recordJobExecution(startTime time.Time, success bool) {
	duration := time.Since(startTime)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalJobTime += duration
	m.JobCount++
	if !success {
		m.FailedJobs++
	}
	m.JobSuccessRate = float64(m.JobCount-m.FailedJobs) / float64(m.JobCount)

	m.updateLatencyPercentiles(duration)
}

func (m *Metrics) recordSchedulingFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SchedulingFailures++
}

func (m *Metrics) updateLatencyPercentiles(duration time.Duration) {
	m.AverageJobLatency = m.TotalJobTime / time.Duration(m.JobCount)

	m.latencies = append(m.latencies, duration)
	if len(m.latencies) > m.windowSize {
		m.latencies = m.latencies[1:]
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	m.P95JobLatency = sorted[percentileIndex(len(sorted), 0.95)]
	m.P99JobLatency = sorted[percentileIndex(len(sorted), 0.99)]
}

func percentileIndex(n int, p float64) int {
	return min(int(float64(n)*p), n-1)
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	WorkerCount        int
	JobCount           int64
	FailedJobs         int64
	SchedulingFailures int64
	AverageJobLatency  time.Duration
	P95JobLatency      time.Duration
	P99JobLatency      time.Duration
	JobSuccessRate     float64
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		WorkerCount:        m.WorkerCount,
		JobCount:           m.JobCount,
		FailedJobs:         m.FailedJobs,
		SchedulingFailures: m.SchedulingFailures,
		AverageJobLatency:  m.AverageJobLatency,
		P95JobLatency:      m.P95JobLatency,
		P99JobLatency:      m.P99JobLatency,
		JobSuccessRate:     m.JobSuccessRate,
	}
}

func (m *Metrics) ExportMetrics() map[string]interface{} {
	s := m.Snapshot()

	return map[string]interface{}{
		"worker_count":        s.WorkerCount,
		"job_count":           s.JobCount,
		"failed_jobs":         s.FailedJobs,
		"scheduling_failures": s.SchedulingFailures,
		"success_rate":        s.JobSuccessRate,
		"avg_latency":         s.AverageJobLatency.Milliseconds(),
		"p95_latency":         s.P95JobLatency.Milliseconds(),
		"p99_latency":         s.P99JobLatency.Milliseconds(),
	}
}
