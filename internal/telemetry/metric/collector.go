package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess       = "success"
	OutcomeAbsent        = "absent"
	OutcomeRemoteFailure = "remote_failure"
	OutcomeTimeout       = "timeout"
)

// ProxyMetrics instruments transaction proxies.
type ProxyMetrics struct {
	requests    *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	rejected    *prometheus.CounterVec
	lateReplies prometheus.Counter
}

// NewProxyMetrics creates and registers the proxy metrics on reg.
func NewProxyMetrics(reg prometheus.Registerer) *ProxyMetrics {
	m := &ProxyMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Requests sent to coordinators, by kind.",
		}, []string{"kind"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "proxy",
			Name:      "outcomes_total",
			Help:      "Resolved reply-expecting requests, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "proxy",
			Name:      "request_duration_seconds",
			Help:      "Time from send to resolution of reply-expecting requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "proxy",
			Name:      "local_rejections_total",
			Help:      "Operations rejected locally because the transaction was closed.",
		}, []string{"op"}),
		lateReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "proxy",
			Name:      "late_replies_total",
			Help:      "Replies discarded because their request was already resolved.",
		}),
	}
	reg.MustRegister(m.requests, m.outcomes, m.latency, m.rejected, m.lateReplies)
	return m
}

// Sent records a dispatched request.
func (m *ProxyMetrics) Sent(kind string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind).Inc()
}

// Resolved records the outcome and latency of a reply-expecting request.
func (m *ProxyMetrics) Resolved(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(kind, outcome).Inc()
	m.latency.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Rejected records an operation refused by the local state machine.
func (m *ProxyMetrics) Rejected(op string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(op).Inc()
}

// LateReply records a discarded reply.
func (m *ProxyMetrics) LateReply() {
	if m == nil {
		return
	}
	m.lateReplies.Inc()
}

// CoordinatorMetrics instruments the coordinator side.
type CoordinatorMetrics struct {
	handled      *prometheus.CounterVec
	failures     *prometheus.CounterVec
	transactions prometheus.Gauge
	throttled    prometheus.Counter
}

// NewCoordinatorMetrics creates and registers the coordinator metrics on reg.
func NewCoordinatorMetrics(reg prometheus.Registerer) *CoordinatorMetrics {
	m := &CoordinatorMetrics{
		handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "coordinator",
			Name:      "requests_total",
			Help:      "Requests handled by coordinators, by device and kind.",
		}, []string{"device", "kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "coordinator",
			Name:      "failures_total",
			Help:      "RemoteFailure replies, by device and error tag.",
		}, []string{"device", "tag"}),
		transactions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "coordinator",
			Name:      "open_transactions",
			Help:      "Transactions with staged state on this member.",
		}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "coordinator",
			Name:      "throttled_total",
			Help:      "Requests refused by the RPC rate limiter.",
		}),
	}
	reg.MustRegister(m.handled, m.failures, m.transactions, m.throttled)
	return m
}

// Handled records one processed request.
func (m *CoordinatorMetrics) Handled(device, kind string) {
	if m == nil {
		return
	}
	m.handled.WithLabelValues(device, kind).Inc()
}

// Failed records a RemoteFailure reply.
func (m *CoordinatorMetrics) Failed(device, tag string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(device, tag).Inc()
}

// TransactionOpened increments the open transaction gauge.
func (m *CoordinatorMetrics) TransactionOpened() {
	if m == nil {
		return
	}
	m.transactions.Inc()
}

// TransactionClosed decrements the open transaction gauge.
func (m *CoordinatorMetrics) TransactionClosed() {
	if m == nil {
		return
	}
	m.transactions.Dec()
}

// Throttled records a rate-limited request.
func (m *CoordinatorMetrics) Throttled() {
	if m == nil {
		return
	}
	m.throttled.Inc()
}
