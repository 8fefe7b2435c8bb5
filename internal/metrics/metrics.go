// Package metrics exposes matching-engine and gateway counters via
// prometheus/client_golang.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds every metric matchcore exports.
type Collector struct {
	ordersSubmitted *prometheus.CounterVec
	ordersRejected  *prometheus.CounterVec
	tradesExecuted  *prometheus.CounterVec
	orderLatency    *prometheus.HistogramVec

	wsConnections      prometheus.Gauge
	wsMessagesSent     *prometheus.CounterVec
	busSubscriberLag   *prometheus.CounterVec
}

// NewCollector registers and returns a fresh Collector.
func NewCollector() *Collector {
	return &Collector{
		ordersSubmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchcore_orders_submitted_total",
				Help: "Total number of orders submitted to the matching engine.",
			},
			[]string{"symbol", "side", "type"},
		),
		ordersRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchcore_orders_rejected_total",
				Help: "Total number of orders rejected before matching.",
			},
			[]string{"symbol", "reason"},
		),
		tradesExecuted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchcore_trades_executed_total",
				Help: "Total number of trades executed.",
			},
			[]string{"symbol"},
		),
		orderLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matchcore_order_submit_latency_seconds",
				Help:    "Latency of Engine.Submit from call to return.",
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 12),
			},
			[]string{"symbol"},
		),
		wsConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "matchcore_ws_connections",
				Help: "Number of active streaming gateway connections.",
			},
		),
		wsMessagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchcore_ws_messages_sent_total",
				Help: "Total number of frames sent to streaming clients.",
			},
			[]string{"channel"},
		),
		busSubscriberLag: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchcore_bus_subscriber_lag_total",
				Help: "Total number of events dropped from a backlogged subscriber's queue.",
			},
			[]string{"channel"},
		),
	}
}

// RecordSubmit observes a submission's latency and outcome.
func (c *Collector) RecordSubmit(symbol, side, orderType string, latency time.Duration) {
	c.ordersSubmitted.WithLabelValues(symbol, side, orderType).Inc()
	c.orderLatency.WithLabelValues(symbol).Observe(latency.Seconds())
}

// RecordReject increments the rejection counter.
func (c *Collector) RecordReject(symbol, reason string) {
	c.ordersRejected.WithLabelValues(symbol, reason).Inc()
}

// RecordTrade increments the trade counter.
func (c *Collector) RecordTrade(symbol string) {
	c.tradesExecuted.WithLabelValues(symbol).Inc()
}

// SetWSConnections sets the current connection gauge.
func (c *Collector) SetWSConnections(n int) {
	c.wsConnections.Set(float64(n))
}

// RecordWSMessageSent increments the per-channel message counter.
func (c *Collector) RecordWSMessageSent(channel string) {
	c.wsMessagesSent.WithLabelValues(channel).Inc()
}

// RecordSubscriberLag increments the drop-oldest counter for channel.
func (c *Collector) RecordSubscriberLag(channel string) {
	c.busSubscriberLag.WithLabelValues(channel).Inc()
}
