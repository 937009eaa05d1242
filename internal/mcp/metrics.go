package mcp

import (
	"context"
	"sync"
	"time"

	"github.com/mvp-joe/hdlnav/internal/index"
	"github.com/mvp-joe/hdlnav/internal/watcher"
)

// BuildMetrics tracks include index builds made while the server runs.
// All methods are thread-safe and can be called concurrently.
type BuildMetrics struct {
	lastBuildTime     time.Time
	lastBuildDuration time.Duration
	lastBuildError    string
	lastRunID         string
	totalBuilds       int64
	successfulBuilds  int64
	failedBuilds      int64
	currentNames      int
	mu                sync.RWMutex
}

// MetricsSnapshot is an immutable snapshot of build metrics at a point in time.
type MetricsSnapshot struct {
	LastBuildTime     time.Time     `json:"last_build_time"`
	LastBuildDuration time.Duration `json:"last_build_duration_ns"`
	LastBuildError    string        `json:"last_build_error,omitempty"`
	LastRunID         string        `json:"last_run_id,omitempty"`
	TotalBuilds       int64         `json:"total_builds"`
	SuccessfulBuilds  int64         `json:"successful_builds"`
	FailedBuilds      int64         `json:"failed_builds"`
	CurrentNames      int           `json:"current_names"`
}

// NewBuildMetrics creates a new BuildMetrics instance with zero values.
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// RecordBuild records the outcome of one build. stats may be nil when the
// build failed before it started. A cancelled build still installs its
// partial map, so its name count is kept.
func (m *BuildMetrics) RecordBuild(stats *index.BuildStats, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastBuildTime = time.Now()
	m.totalBuilds++
	if stats != nil {
		m.lastBuildDuration = stats.Duration
		m.lastRunID = stats.RunID
		m.currentNames = stats.Names
	}

	if err != nil {
		m.failedBuilds++
		m.lastBuildError = err.Error()
	} else {
		m.successfulBuilds++
		m.lastBuildError = ""
	}
}

// GetMetrics returns a snapshot of current metrics.
func (m *BuildMetrics) GetMetrics() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		LastBuildTime:     m.lastBuildTime,
		LastBuildDuration: m.lastBuildDuration,
		LastBuildError:    m.lastBuildError,
		LastRunID:         m.lastRunID,
		TotalBuilds:       m.totalBuilds,
		SuccessfulBuilds:  m.successfulBuilds,
		FailedBuilds:      m.failedBuilds,
		CurrentNames:      m.currentNames,
	}
}

// instrumentedEngine records every include index build passing through it.
type instrumentedEngine struct {
	watcher.Engine
	metrics *BuildMetrics
}

// InstrumentEngine wraps engine so that builds triggered by the watcher are
// recorded in metrics.
func InstrumentEngine(engine watcher.Engine, metrics *BuildMetrics) watcher.Engine {
	return &instrumentedEngine{Engine: engine, metrics: metrics}
}

func (e *instrumentedEngine) BuildIncludes(ctx context.Context, opts index.BuildOptions, progress index.ProgressReporter) (*index.BuildStats, error) {
	stats, err := e.Engine.BuildIncludes(ctx, opts, progress)
	e.metrics.RecordBuild(stats, err)
	return stats, err
}

func (e *instrumentedEngine) ConfigChanged(ctx context.Context, opts index.BuildOptions, progress index.ProgressReporter) (*index.BuildStats, error) {
	stats, err := e.Engine.ConfigChanged(ctx, opts, progress)
	if stats != nil || err != nil {
		e.metrics.RecordBuild(stats, err)
	}
	return stats, err
}
