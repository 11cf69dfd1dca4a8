package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "news"

// Job run outcomes used as the "status" label.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusTimedOut  = "timed_out"
	StatusSkipped   = "skipped"
)

// Metrics holds the application's Prometheus collectors. A nil *Metrics is
// valid and records nothing, which keeps components usable without metrics.
type Metrics struct {
	readsAccepted  prometheus.Counter
	readsThrottled prometheus.Counter
	readsWritten   prometheus.Counter
	readsFailed    prometheus.Counter
	readsDropped   prometheus.Counter
	readQueueDepth prometheus.Gauge

	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	aggGroups   prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with registerer
// (prometheus.DefaultRegisterer when nil).
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		readsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "article_reads_accepted_total",
			Help: "Article reads admitted by the read limiter.",
		}),
		readsThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "article_reads_throttled_total",
			Help: "Article reads suppressed because the pair was seen within the window.",
		}),
		readsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "read_events_written_total",
			Help: "Read events persisted by the read logger.",
		}),
		readsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "read_events_failed_total",
			Help: "Read events whose insert failed.",
		}),
		readsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "read_events_dropped_total",
			Help: "Read events dropped because the queue was full or closed.",
		}),
		readQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "read_events_queue_depth",
			Help: "Read events waiting to be persisted.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "job_runs_total",
			Help: "Scheduled job runs by job and outcome.",
		}, []string{"job", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "job_duration_seconds",
			Help:    "Scheduled job run latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 600, 1800},
		}, []string{"job"}),
		aggGroups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "aggregation_groups",
			Help: "Distinct (article, day) groups produced by the last aggregation run.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registerer.MustRegister(
		m.readsAccepted, m.readsThrottled, m.readsWritten, m.readsFailed, m.readsDropped, m.readQueueDepth,
		m.jobRuns, m.jobDuration, m.aggGroups,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// ReadAdmitted records a limiter decision.
func (m *Metrics) ReadAdmitted(allowed bool) {
	if m == nil {
		return
	}
	if allowed {
		m.readsAccepted.Inc()
		return
	}
	m.readsThrottled.Inc()
}

func (m *Metrics) ReadWritten() {
	if m == nil {
		return
	}
	m.readsWritten.Inc()
}

func (m *Metrics) ReadFailed() {
	if m == nil {
		return
	}
	m.readsFailed.Inc()
}

func (m *Metrics) ReadDropped() {
	if m == nil {
		return
	}
	m.readsDropped.Inc()
}

// SetReadQueueDepth publishes the current read queue length.
func (m *Metrics) SetReadQueueDepth(n int) {
	if m == nil {
		return
	}
	m.readQueueDepth.Set(float64(n))
}

// ObserveJobRun records one scheduled run.
func (m *Metrics) ObserveJobRun(job, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, status).Inc()
	m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// SetAggregationGroups publishes the group count of the last aggregation run.
func (m *Metrics) SetAggregationGroups(n int) {
	if m == nil {
		return
	}
	m.aggGroups.Set(float64(n))
}

// ObserveHTTP records one served request. route is the matched route pattern.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
