// Package metrics provides Prometheus metrics for trendscout:
// counters, gauges, and histograms for tasks, crew steps, and inference.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Tasks ──────────────────────────────────────────────────────────────────

// TasksCreated tracks submitted tasks by agent type.
var TasksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trendscout",
	Name:      "tasks_created_total",
	Help:      "Total tasks submitted.",
}, []string{"type"})

// TasksCompleted tracks completed tasks by agent type.
var TasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trendscout",
	Name:      "tasks_completed_total",
	Help:      "Total completed tasks.",
}, []string{"type"})

// TasksFailed tracks failed tasks by agent type and failure reason.
var TasksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trendscout",
	Name:      "tasks_failed_total",
	Help:      "Total failed tasks.",
}, []string{"type", "reason"})

// TasksActive tracks tasks currently being processed by workers.
var TasksActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "trendscout",
	Name:      "tasks_active",
	Help:      "Number of tasks currently processing.",
})

// TaskDuration tracks end-to-end task execution time in seconds.
// Agent calls can run for minutes, so the buckets reach well past default.
var TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "trendscout",
	Name:      "task_duration_seconds",
	Help:      "Task execution duration in seconds.",
	Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
}, []string{"type"})

// ─── Crew Pipeline ──────────────────────────────────────────────────────────

// CrewSteps tracks persisted pipeline step records by agent name.
var CrewSteps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trendscout",
	Name:      "crew_steps_total",
	Help:      "Total crew pipeline steps persisted.",
}, []string{"agent"})

// ─── Inference ──────────────────────────────────────────────────────────────

// InferenceLatency tracks backend generate-call duration in seconds.
var InferenceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "trendscout",
	Name:      "inference_latency_seconds",
	Help:      "Inference backend call duration in seconds.",
	Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
}, []string{"agent"})
