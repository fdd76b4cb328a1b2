package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pit"

// Recorder holds the service's prometheus collectors on its own registry.
// A nil *Recorder records nothing.
// ⭐ SSOT: 메트릭 정의는 여기서만
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
	jobsTotal     *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	backtestValue *prometheus.GaugeVec
	holdings      *prometheus.GaugeVec
}

// New creates a recorder with Go runtime and process collectors registered
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Pipeline and backtest runs by kind and status",
			},
			[]string{"kind", "status"},
		),
		jobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_jobs_total",
				Help:      "Scheduled job executions by job and outcome",
			},
			[]string{"job", "outcome"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route", "method"},
		),
		backtestValue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backtest_metric",
				Help:      "Latest backtest metric value by strategy",
			},
			[]string{"strategy", "metric"},
		),
		holdings: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "portfolio_holdings",
				Help:      "Number of positions in the latest target portfolio",
			},
			[]string{"strategy"},
		),
	}
}

// Registry returns the underlying registry (tests)
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveStage records how long a pipeline stage took
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun counts a finished run. kind is "pipeline" or "backtest".
func (r *Recorder) RecordRun(kind, status string) {
	if r == nil {
		return
	}
	r.runsTotal.WithLabelValues(kind, status).Inc()
}

// RecordJob counts a scheduled job execution
func (r *Recorder) RecordJob(job string, err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.jobsTotal.WithLabelValues(job, outcome).Inc()
}

// RecordHTTP records one served request
func (r *Recorder) RecordHTTP(route, method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// SetBacktestMetrics publishes the headline metrics of a finished backtest
func (r *Recorder) SetBacktestMetrics(strategy string, values map[string]float64) {
	if r == nil {
		return
	}
	for name, v := range values {
		r.backtestValue.WithLabelValues(strategy, name).Set(v)
	}
}

// SetHoldings publishes the position count of the latest target portfolio
func (r *Recorder) SetHoldings(strategy string, n int) {
	if r == nil {
		return
	}
	r.holdings.WithLabelValues(strategy).Set(float64(n))
}
