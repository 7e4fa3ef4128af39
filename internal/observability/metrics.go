package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hubbub/internal/protocol"
)

var (
	registerOnce sync.Once

	connectionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hubbub",
			Subsystem: "tcp",
			Name:      "connections_open",
			Help:      "Currently open client connections.",
		},
	)
	connectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hubbub",
			Subsystem: "tcp",
			Name:      "connections_total",
			Help:      "Total accepted client connections.",
		},
	)
	handshakeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hubbub",
			Subsystem: "tcp",
			Name:      "handshake_failures_total",
			Help:      "Handshakes rejected before the session started.",
		},
		[]string{"code"},
	)
	transactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hubbub",
			Subsystem: "tcp",
			Name:      "transactions_total",
			Help:      "Dispatched transactions by type and outcome.",
		},
		[]string{"type", "outcome"},
	)
	frameErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hubbub",
			Subsystem: "tcp",
			Name:      "frame_errors_total",
			Help:      "Connections dropped for malformed frames.",
		},
	)
	pushesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hubbub",
			Subsystem: "tcp",
			Name:      "pushes_dropped_total",
			Help:      "Server pushes dropped on full or closed queues.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hubbub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hubbub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			connectionsOpen, connectionsTotal, handshakeFailures,
			transactions, frameErrors, pushesDropped,
			httpRequests, httpDuration,
		)
	})
}

func RecordConnectionOpened() {
	RegisterMetrics()
	connectionsTotal.Inc()
	connectionsOpen.Inc()
}

func RecordConnectionClosed() {
	RegisterMetrics()
	connectionsOpen.Dec()
}

func RecordHandshakeFailure(code uint32) {
	RegisterMetrics()
	handshakeFailures.WithLabelValues(strconv.FormatUint(uint64(code), 10)).Inc()
}

func RecordFrameError() {
	RegisterMetrics()
	frameErrors.Inc()
}

func RecordPushDropped() {
	RegisterMetrics()
	pushesDropped.Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// TransactionObserver feeds dispatcher outcomes into the transaction
// counter. It satisfies the dispatcher's observer interface.
type TransactionObserver struct{}

func (TransactionObserver) ObserveTransaction(typ uint16, outcome string) {
	RegisterMetrics()
	transactions.WithLabelValues(protocol.TypeName(typ), outcome).Inc()
}
