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
	// Feed metrics
	FramesReceived   prometheus.Counter
	FramesDropped    *prometheus.CounterVec
	FeedReconnects   prometheus.Counter
	FeedConnectFails prometheus.Counter

	// Pipeline metrics
	TradesProcessed   prometheus.Counter
	TradeErrors       *prometheus.CounterVec
	PipelineQueueSize prometheus.Gauge
	TradeLatency      prometheus.Histogram

	// Copy-trade metrics
	CopyTradesExecuted prometheus.Counter
	CopyTradesSkipped  *prometheus.CounterVec

	// Relay metrics
	RelayPublishes       *prometheus.CounterVec
	RelayPublishFailures *prometheus.CounterVec
	RelayMessagesIn      *prometheus.CounterVec

	// Health metrics
	ConnectionStatus *prometheus.GaugeVec
	UptimeSeconds    prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "copytrade_monitor"
	}

	return &Metrics{
		// Feed metrics
		FramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "frames_received_total",
			Help:      "Total number of frames received from the upstream feed",
		}),
		FramesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped by reason",
		}, []string{"reason"}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of feed reconnect cycles",
		}),
		FeedConnectFails: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connect_failures_total",
			Help:      "Total number of failed feed connect attempts",
		}),

		// Pipeline metrics
		TradesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "trades_processed_total",
			Help:      "Total number of observed trades processed",
		}),
		TradeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "trade_errors_total",
			Help:      "Total number of trade processing errors by stage",
		}, []string{"stage"}),
		PipelineQueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "queue_size",
			Help:      "Current number of queued, unprocessed trades",
		}),
		TradeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "trade_latency_seconds",
			Help:      "Per-trade processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Copy-trade metrics
		CopyTradesExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "copytrade",
			Name:      "executed_total",
			Help:      "Total number of copy trades executed",
		}),
		CopyTradesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "copytrade",
			Name:      "skipped_total",
			Help:      "Total number of copy trades skipped by reason",
		}, []string{"reason"}),

		// Relay metrics
		RelayPublishes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "publishes_total",
			Help:      "Total number of relay publishes by topic",
		}, []string{"topic"}),
		RelayPublishFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "publish_failures_total",
			Help:      "Total number of exhausted relay publishes by topic",
		}, []string{"topic"}),
		RelayMessagesIn: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "messages_in_total",
			Help:      "Total number of inbound relay messages by topic",
		}, []string{"topic"}),

		// Health metrics
		ConnectionStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "connection_up",
			Help:      "Whether a transport is connected (1) or not (0)",
		}, []string{"transport"}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFrameReceived increments the frames received counter.
func RecordFrameReceived() {
	DefaultMetrics.FramesReceived.Inc()
}

// RecordFrameDropped records a dropped frame.
func RecordFrameDropped(reason string) {
	DefaultMetrics.FramesDropped.WithLabelValues(reason).Inc()
}

// RecordTradeProcessed increments the trades processed counter.
func RecordTradeProcessed() {
	DefaultMetrics.TradesProcessed.Inc()
}

// RecordTradeError records a trade processing error.
func RecordTradeError(stage string) {
	DefaultMetrics.TradeErrors.WithLabelValues(stage).Inc()
}

// RecordCopyTradeExecuted increments the copy trades executed counter.
func RecordCopyTradeExecuted() {
	DefaultMetrics.CopyTradesExecuted.Inc()
}

// RecordCopyTradeSkipped records a skipped copy trade.
func RecordCopyTradeSkipped(reason string) {
	DefaultMetrics.CopyTradesSkipped.WithLabelValues(reason).Inc()
}

// RecordRelayPublish records a relay publish outcome.
func RecordRelayPublish(topic string, err error) {
	DefaultMetrics.RelayPublishes.WithLabelValues(topic).Inc()
	if err != nil {
		DefaultMetrics.RelayPublishFailures.WithLabelValues(topic).Inc()
	}
}

// RecordRelayMessageIn records an inbound relay message.
func RecordRelayMessageIn(topic string) {
	DefaultMetrics.RelayMessagesIn.WithLabelValues(topic).Inc()
}

// SetConnectionUp sets a transport's health gauge.
func SetConnectionUp(transport string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	DefaultMetrics.ConnectionStatus.WithLabelValues(transport).Set(v)
}
