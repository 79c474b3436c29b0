package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// Subsystems
const (
	SubsystemForm = "form"
	SubsystemEdge = "edge"
)

// Outcome labels shared by the counters below
const (
	OutcomeSuccess   = "success"
	OutcomeRewritten = "rewritten"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomeSpam      = "spam"
	OutcomeNotFound  = "not_found"
	OutcomeLimited   = "rate_limited"
	OutcomeInvalid   = "invalid"
	OutcomeDropped   = "dropped"
)

// PrometheusMetrics holds every collector used by the form service and the
// edge gateway. Each process registers one instance under its own subsystem.
type PrometheusMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	activeRequests   prometheus.Gauge
	upstreamDuration *prometheus.HistogramVec
	upstreamErrors   *prometheus.CounterVec

	metaRewrites      *prometheus.CounterVec
	submissions       *prometheus.CounterVec
	sideEffectFailure *prometheus.CounterVec
	analyticsEvents   *prometheus.CounterVec

	logger      *zap.Logger
	httpHandler func(*fasthttp.RequestCtx)
}

// NewPrometheusMetrics registers on the default registry
func NewPrometheusMetrics(namespace, subsystem string, logger *zap.Logger) *PrometheusMetrics {
	return NewPrometheusMetricsWithRegistry(namespace, subsystem, prometheus.DefaultRegisterer, logger)
}

// NewPrometheusMetricsWithRegistry registers on registerer. Tests pass a
// fresh prometheus.NewRegistry().
func NewPrometheusMetricsWithRegistry(namespace, subsystem string, registerer prometheus.Registerer, logger *zap.Logger) *PrometheusMetrics {
	pm := &PrometheusMetrics{logger: logger}

	pm.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled",
		},
		[]string{"endpoint", "status"},
	)

	pm.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Time taken to handle HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	pm.activeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_requests",
			Help:      "Requests currently in flight",
		},
	)

	pm.upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_duration_seconds",
			Help:      "Latency of calls to spreadsheets, captcha, smtp and origin",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"upstream"},
	)

	pm.upstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_errors_total",
			Help:      "Failed calls to external collaborators",
		},
		[]string{"upstream"},
	)

	pm.metaRewrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "meta_rewrite_total",
			Help:      "HTML responses seen by the meta tag injector by outcome",
		},
		[]string{"outcome"},
	)

	pm.submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "submissions_total",
			Help:      "Form submissions by outcome",
		},
		[]string{"outcome"},
	)

	pm.sideEffectFailure = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "side_effect_failures_total",
			Help:      "Best-effort side effects that failed",
		},
		[]string{"kind"},
	)

	pm.analyticsEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "analytics_events_total",
			Help:      "Analytics events by outcome",
		},
		[]string{"outcome"},
	)

	registerer.MustRegister(
		pm.requestsTotal,
		pm.requestDuration,
		pm.activeRequests,
		pm.upstreamDuration,
		pm.upstreamErrors,
		pm.metaRewrites,
		pm.submissions,
		pm.sideEffectFailure,
		pm.analyticsEvents,
	)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return pm
}

// RecordRequest records a completed request
func (pm *PrometheusMetrics) RecordRequest(endpoint string, statusCode int, duration time.Duration) {
	pm.requestsTotal.WithLabelValues(endpoint, statusRange(statusCode)).Inc()
	pm.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) IncActiveRequests() {
	pm.activeRequests.Inc()
}

func (pm *PrometheusMetrics) DecActiveRequests() {
	pm.activeRequests.Dec()
}

// ObserveUpstream records the latency of one external call and counts it as
// an error when err is non-nil.
func (pm *PrometheusMetrics) ObserveUpstream(upstream string, start time.Time, err error) {
	pm.upstreamDuration.WithLabelValues(upstream).Observe(time.Since(start).Seconds())
	if err != nil {
		pm.upstreamErrors.WithLabelValues(upstream).Inc()
	}
}

func (pm *PrometheusMetrics) RecordMetaRewrite(outcome string) {
	pm.metaRewrites.WithLabelValues(outcome).Inc()
}

func (pm *PrometheusMetrics) RecordSubmission(outcome string) {
	pm.submissions.WithLabelValues(outcome).Inc()
}

func (pm *PrometheusMetrics) RecordSideEffectFailure(kind string) {
	pm.sideEffectFailure.WithLabelValues(kind).Inc()
	pm.logger.Debug("Recorded side effect failure", zap.String("kind", kind))
}

func (pm *PrometheusMetrics) RecordAnalyticsEvent(outcome string) {
	pm.analyticsEvents.WithLabelValues(outcome).Inc()
}

// ServeHTTP serves the exposition format
func (pm *PrometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}

func statusRange(statusCode int) string {
	if statusCode < 100 || statusCode > 599 {
		return "unknown"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}
