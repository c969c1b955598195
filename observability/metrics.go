package observability

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hunt"

// rpcMetrics covers the JSON-RPC surface. Methods are grouped by their
// namespace prefix (hunt, treasure, token, metadata, leaderboard).
type rpcMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttled *prometheus.CounterVec
}

// runtimeMetrics covers transaction execution and the components fed by it.
type runtimeMetrics struct {
	txs       *prometheus.CounterVec
	txLatency *prometheus.HistogramVec
	height    prometheus.Gauge
	events    *prometheus.CounterVec
	exports   *prometheus.CounterVec
	indexedAt prometheus.Gauge
}

var (
	rpcOnce     sync.Once
	rpcRegistry *rpcMetrics

	runtimeOnce     sync.Once
	runtimeRegistry *runtimeMetrics
)

// RPC returns the lazily registered JSON-RPC collectors.
func RPC() *rpcMetrics {
	rpcOnce.Do(func() {
		rpcRegistry = &rpcMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "JSON-RPC requests by method namespace, method and HTTP status.",
			}, []string{"group", "method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "JSON-RPC handler latency.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"group"}),
			throttled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rpc",
				Name:      "throttled_total",
				Help:      "Requests rejected before dispatch, by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(rpcRegistry.requests, rpcRegistry.latency, rpcRegistry.throttled)
	})
	return rpcRegistry
}

// Observe records a finished request; status is the HTTP status written.
func (m *rpcMetrics) Observe(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	group := "unknown"
	if method == "" {
		method = "unknown"
	} else if i := strings.IndexByte(method, '_'); i > 0 {
		group = method[:i]
	}
	m.requests.WithLabelValues(group, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(group).Observe(duration.Seconds())
}

// RecordThrottle counts a request rejected for reason, e.g. "rate_limit".
func (m *rpcMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttled.WithLabelValues(reason).Inc()
}

// Runtime returns the lazily registered runtime collectors.
func Runtime() *runtimeMetrics {
	runtimeOnce.Do(func() {
		runtimeRegistry = &runtimeMetrics{
			txs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "runtime",
				Name:      "transactions_total",
				Help:      "Executed transactions by type and status.",
			}, []string{"type", "status"}),
			txLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "runtime",
				Name:      "transaction_duration_seconds",
				Help:      "Transaction execution latency including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"type"}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "runtime",
				Name:      "height",
				Help:      "Number of committed transactions.",
			}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "runtime",
				Name:      "events_total",
				Help:      "Committed program events by type.",
			}, []string{"type"}),
			exports: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "exports",
				Name:      "runs_total",
				Help:      "Discovery export runs by outcome.",
			}, []string{"outcome"}),
			indexedAt: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "indexer",
				Name:      "last_discovery_timestamp",
				Help:      "Unix time of the latest discovery applied by the leaderboard indexer.",
			}),
		}
		prometheus.MustRegister(
			runtimeRegistry.txs,
			runtimeRegistry.txLatency,
			runtimeRegistry.height,
			runtimeRegistry.events,
			runtimeRegistry.exports,
			runtimeRegistry.indexedAt,
		)
	})
	return runtimeRegistry
}

func (m *runtimeMetrics) ObserveTransaction(txType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	if txType == "" {
		txType = "unknown"
	}
	m.txs.WithLabelValues(txType, status).Inc()
	m.txLatency.WithLabelValues(txType).Observe(duration.Seconds())
}

func (m *runtimeMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}

// RecordEvent counts one committed event.
func (m *runtimeMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	if eventType = strings.TrimSpace(eventType); eventType == "" {
		eventType = "unknown"
	}
	m.events.WithLabelValues(eventType).Inc()
}

func (m *runtimeMetrics) RecordExport(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.exports.WithLabelValues(outcome).Inc()
}

// SetIndexerTimestamp publishes the found-at time of the last indexed discovery.
func (m *runtimeMetrics) SetIndexerTimestamp(ts int64) {
	if m == nil {
		return
	}
	m.indexedAt.Set(float64(ts))
}
