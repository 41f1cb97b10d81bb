// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Discovery metrics
	ProfilesFetched   prometheus.Counter
	CandidatesSkipped *prometheus.CounterVec
	SourceErrors      prometheus.Counter

	// Filter and risk metrics
	FilterResults *prometheus.CounterVec
	RiskVerdicts  *prometheus.CounterVec

	// Execution metrics
	Executions     *prometheus.CounterVec
	FeeEstimateSOL prometheus.Histogram

	// Latency metrics
	RPCCallLatency  *prometheus.HistogramVec
	HTTPCallLatency *prometheus.HistogramVec
	ThrottleWait    prometheus.Histogram

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulScan prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_gate"
	}

	return &Metrics{
		ProfilesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "profiles_fetched_total",
			Help:      "Total number of token profiles returned by the discovery feed",
		}),
		CandidatesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates_skipped_total",
			Help:      "Total number of candidates skipped by reason",
		}, []string{"reason"}),
		SourceErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "source_errors_total",
			Help:      "Total number of discovery feed failures",
		}),

		FilterResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "results_total",
			Help:      "Total number of filter decisions by result",
		}, []string{"result"}),
		RiskVerdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "verdicts_total",
			Help:      "Total number of risk verdicts by triggering criterion",
		}, []string{"criterion"}),

		Executions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "operations_total",
			Help:      "Total number of guarded operations by side and status",
		}, []string{"side", "status"}),
		FeeEstimateSOL: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "fee_estimate_sol",
			Help:      "Estimated fee of guarded operations in SOL",
			Buckets:   []float64{0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		HTTPCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dexscreener",
			Name:      "http_call_latency_seconds",
			Help:      "Market feed call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		ThrottleWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "throttle",
			Name:      "wait_seconds",
			Help:      "Time callers spent waiting on the throttle",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
		}),

		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline iterations by status",
		}, []string{"status"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline iteration duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulScan: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_scan_timestamp",
			Help:      "Unix timestamp of last pipeline iteration that reached the feed",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordProfilesFetched adds n to the fetched profiles counter.
func RecordProfilesFetched(n int) {
	DefaultMetrics.ProfilesFetched.Add(float64(n))
}

// RecordCandidateSkipped increments the skipped candidates counter.
func RecordCandidateSkipped(reason string) {
	DefaultMetrics.CandidatesSkipped.WithLabelValues(reason).Inc()
}

// RecordSourceError increments the discovery feed failure counter.
func RecordSourceError() {
	DefaultMetrics.SourceErrors.Inc()
}

// RecordFilterResult records a filter decision.
func RecordFilterResult(passed bool) {
	result := "reject"
	if passed {
		result = "pass"
	}
	DefaultMetrics.FilterResults.WithLabelValues(result).Inc()
}

// RecordRiskVerdict records a verdict. An empty criterion is recorded as "safe".
func RecordRiskVerdict(criterion string) {
	if criterion == "" {
		criterion = "safe"
	}
	DefaultMetrics.RiskVerdicts.WithLabelValues(criterion).Inc()
}

// RecordExecution records a guarded operation outcome.
func RecordExecution(side, status string) {
	DefaultMetrics.Executions.WithLabelValues(side, status).Inc()
}

// RecordFeeEstimate records a fee estimate in SOL.
func RecordFeeEstimate(sol float64) {
	DefaultMetrics.FeeEstimateSOL.Observe(sol)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordHTTPLatency records market feed call latency.
func RecordHTTPLatency(endpoint string, seconds float64) {
	DefaultMetrics.HTTPCallLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordThrottleWait records a throttle pause.
func RecordThrottleWait(seconds float64) {
	DefaultMetrics.ThrottleWait.Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records a pipeline iteration.
func RecordPipelineRun(status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.PipelineDuration.Observe(durationSeconds)
}

// UpdateLastSuccessfulScan sets the last successful scan timestamp.
func UpdateLastSuccessfulScan(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulScan.Set(float64(unixSeconds))
}
