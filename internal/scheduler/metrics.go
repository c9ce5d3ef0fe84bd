package scheduler

import (
	"sync"
	"time"
)

// JobStats tracks the run history of one job
type JobStats struct {
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
	LastRun      time.Time     `json:"last_run"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
}

// SchedulerMetrics tracks job runs across the scheduler
type SchedulerMetrics struct {
	mu                  sync.RWMutex
	runs                int64
	failures            int64
	totalProcessingTime time.Duration
	lastRun             time.Time
	jobs                map[string]*JobStats
}

// HealthStatus represents the health status of the scheduler
type HealthStatus struct {
	IsHealthy   bool      `json:"is_healthy"`
	LastRun     time.Time `json:"last_run"`
	Failures    int64     `json:"failures"`
	FailureRate float64   `json:"failure_rate"`
}

// MetricsSummary provides a summary of scheduler metrics
type MetricsSummary struct {
	Runs                  int64               `json:"runs"`
	Failures              int64               `json:"failures"`
	AverageProcessingTime string              `json:"average_processing_time"`
	LastRun               time.Time           `json:"last_run"`
	FailureRate           float64             `json:"failure_rate_percentage"`
	Jobs                  map[string]JobStats `json:"jobs"`
}

// NewSchedulerMetrics creates a new metrics instance
func NewSchedulerMetrics() *SchedulerMetrics {
	return &SchedulerMetrics{jobs: make(map[string]*JobStats)}
}

// RecordRun records one completed job run; err marks it failed
func (m *SchedulerMetrics) RecordRun(name string, startedAt time.Time, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.jobs[name]
	if !ok {
		stats = &JobStats{}
		m.jobs[name] = stats
	}

	m.runs++
	m.totalProcessingTime += duration
	m.lastRun = startedAt

	stats.Runs++
	stats.LastRun = startedAt
	stats.LastDuration = duration
	stats.LastError = ""
	if err != nil {
		m.failures++
		stats.Failures++
		stats.LastError = err.Error()
	}
}

// Job returns a copy of one job's stats
func (m *SchedulerMetrics) Job(name string) (JobStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats, ok := m.jobs[name]
	if !ok {
		return JobStats{}, false
	}
	return *stats, true
}

// IsHealthy is false once at least half of all runs have failed
func (m *SchedulerMetrics) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failureRate() < 0.5
}

// GetHealthStatus returns detailed health information
func (m *SchedulerMetrics) GetHealthStatus() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rate := m.failureRate()
	return HealthStatus{
		IsHealthy:   rate < 0.5,
		LastRun:     m.lastRun,
		Failures:    m.failures,
		FailureRate: rate,
	}
}

// GetMetricsSummary returns a snapshot of all metrics
func (m *SchedulerMetrics) GetMetricsSummary() MetricsSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var average time.Duration
	if m.runs > 0 {
		average = m.totalProcessingTime / time.Duration(m.runs)
	}

	jobs := make(map[string]JobStats, len(m.jobs))
	for name, stats := range m.jobs {
		jobs[name] = *stats
	}

	return MetricsSummary{
		Runs:                  m.runs,
		Failures:              m.failures,
		AverageProcessingTime: average.String(),
		LastRun:               m.lastRun,
		FailureRate:           m.failureRate() * 100,
		Jobs:                  jobs,
	}
}

func (m *SchedulerMetrics) failureRate() float64 {
	if m.runs == 0 {
		return 0.0
	}
	return float64(m.failures) / float64(m.runs)
}

// Reset resets all metrics to zero
func (m *SchedulerMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = 0
	m.failures = 0
	m.totalProcessingTime = 0
	m.lastRun = time.Time{}
	m.jobs = make(map[string]*JobStats)
}
