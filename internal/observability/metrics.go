package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	memorySearchDuration *prometheus.HistogramVec
	memoryWriteDuration  prometheus.Histogram
	memoryEntriesTotal   *prometheus.GaugeVec

	decayRunsTotal        prometheus.Counter
	decayDuration         prometheus.Histogram
	rebalanceRunsTotal    *prometheus.CounterVec
	rebalanceMoved        *prometheus.CounterVec
	consolidationRuns     prometheus.Counter
	consolidationMerged   prometheus.Counter
	schedulerTaskErrors   *prometheus.CounterVec
	backendErrorsTotal    *prometheus.CounterVec
	rpcDispatchTotal      *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			memorySearchDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "memory_search_duration_seconds",
					Help:    "Memory search/recall duration in seconds by operation.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"operation"},
			),
			memoryWriteDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "memory_write_duration_seconds",
					Help:    "Memory store/consolidate/forget duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			memoryEntriesTotal: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "memory_entries_total",
					Help: "Total memory records indexed, by layer.",
				},
				[]string{"layer"},
			),
			decayRunsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "memory_decay_runs_total",
					Help: "Total decay maintenance task executions.",
				},
			),
			decayDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "memory_decay_duration_seconds",
					Help:    "Decay task execution duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			rebalanceRunsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "memory_rebalance_runs_total",
					Help: "Total rebalance maintenance task executions by status.",
				},
				[]string{"status"},
			),
			rebalanceMoved: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "memory_rebalance_moved_total",
					Help: "Total records moved between layers by direction.",
				},
				[]string{"direction"},
			),
			consolidationRuns: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "memory_consolidation_runs_total",
					Help: "Total consolidation maintenance task executions.",
				},
			),
			consolidationMerged: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "memory_consolidation_merged_total",
					Help: "Total records merged into consolidated records.",
				},
			),
			schedulerTaskErrors: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "memory_scheduler_task_errors_total",
					Help: "Total scheduled maintenance task failures by task.",
				},
				[]string{"task"},
			),
			backendErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "memory_backend_errors_total",
					Help: "Total backend errors returned by the vector store or embedding provider.",
				},
				[]string{"component"},
			),
			rpcDispatchTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "memory_rpc_dispatch_total",
					Help: "Total JSON-RPC tool-call dispatches by method and outcome.",
				},
				[]string{"method", "status"},
			),
		}

		prometheus.MustRegister(
			m.memorySearchDuration,
			m.memoryWriteDuration,
			m.memoryEntriesTotal,
			m.decayRunsTotal,
			m.decayDuration,
			m.rebalanceRunsTotal,
			m.rebalanceMoved,
			m.consolidationRuns,
			m.consolidationMerged,
			m.schedulerTaskErrors,
			m.backendErrorsTotal,
			m.rpcDispatchTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordMemorySearch(operation string, duration time.Duration) {
	m := getMetrics()
	m.memorySearchDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordMemoryWrite(duration time.Duration) {
	m := getMetrics()
	m.memoryWriteDuration.Observe(duration.Seconds())
}

func SetMemoryEntries(layer string, total int) {
	m := getMetrics()
	m.memoryEntriesTotal.WithLabelValues(layer).Set(float64(total))
}

func RecordDecayRun(duration time.Duration) {
	m := getMetrics()
	m.decayRunsTotal.Inc()
	m.decayDuration.Observe(duration.Seconds())
}

func RecordRebalanceRun(success bool, promoted, demoted int) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.rebalanceRunsTotal.WithLabelValues(status).Inc()
	m.rebalanceMoved.WithLabelValues("promoted").Add(float64(promoted))
	m.rebalanceMoved.WithLabelValues("demoted").Add(float64(demoted))
}

func RecordConsolidationRun(merged int) {
	m := getMetrics()
	m.consolidationRuns.Inc()
	m.consolidationMerged.Add(float64(merged))
}

func RecordSchedulerTaskError(task string) {
	m := getMetrics()
	m.schedulerTaskErrors.WithLabelValues(task).Inc()
}

func RecordBackendError(component string) {
	m := getMetrics()
	m.backendErrorsTotal.WithLabelValues(component).Inc()
}

func RecordRPCDispatch(method, status string) {
	m := getMetrics()
	m.rpcDispatchTotal.WithLabelValues(method, status).Inc()
}
