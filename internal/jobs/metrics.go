// Package jobmetrics instruments the worker's asynq handlers.
package jobmetrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes used as the status label.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	// StatusAbandoned marks a failure asynq will not retry.
	StatusAbandoned = "abandoned"
)

// Metrics holds the job collectors.
type Metrics struct {
	runs        *prometheus.CounterVec
	retries     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	lowStock    prometheus.Gauge
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors on registerer, or once on the default
// registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = register(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return register(registerer)
}

// Run measures one handler invocation.
type Run struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts measuring job. Redeliveries are counted from the asynq retry
// count carried by ctx.
func (m *Metrics) Track(ctx context.Context, job string) *Run {
	run := &Run{metrics: m, job: job, start: time.Now()}
	if m != nil {
		if n, ok := asynq.GetRetryCount(ctx); ok && n > 0 {
			m.retries.WithLabelValues(job).Inc()
		}
	}
	return run
}

// End records the outcome and returns err unchanged.
func (r *Run) End(err error) error {
	if r == nil || r.metrics == nil || r.job == "" {
		return err
	}
	status := StatusSuccess
	switch {
	case errors.Is(err, asynq.SkipRetry):
		status = StatusAbandoned
	case err != nil:
		status = StatusFailure
	default:
		r.metrics.lastSuccess.WithLabelValues(r.job).SetToCurrentTime()
	}
	r.metrics.runs.WithLabelValues(r.job, status).Inc()
	r.metrics.duration.WithLabelValues(r.job).Observe(time.Since(r.start).Seconds())
	return err
}

// SetLowStock publishes how many products the last scan found at or below
// the threshold.
func (m *Metrics) SetLowStock(count int) {
	if m == nil {
		return
	}
	m.lowStock.Set(float64(count))
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salesdesk_jobs_total",
			Help: "Job runs by task type and outcome.",
		}, []string{"job", "status"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salesdesk_job_retries_total",
			Help: "Job runs that were redeliveries of a failed attempt.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "salesdesk_job_duration_seconds",
			Help:    "Job run duration in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "salesdesk_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per task type.",
		}, []string{"job"}),
		lowStock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "salesdesk_low_stock_products",
			Help: "Products at or below the low-stock threshold at the last scan.",
		}),
	}
	registerer.MustRegister(m.runs, m.retries, m.duration, m.lastSuccess, m.lowStock)
	return m
}
