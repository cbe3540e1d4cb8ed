// Package metrics collects and exposes Prometheus metrics for the
// messaging core.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the interface the services and the gateway record through.
type Collector interface {
	RecordMessageSent()
	RecordMarkedRead(count int64)
	RecordPushDelivered()
	RecordPushDropped()
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// PrometheusCollector implements Collector on a Prometheus registry.
type PrometheusCollector struct {
	messagesSent    prometheus.Counter
	markedRead      prometheus.Counter
	pushesDelivered prometheus.Counter
	pushesDropped   prometheus.Counter
	httpDuration    *prometheus.HistogramVec
}

// NewPrometheusCollector creates a collector and registers its metrics.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caremsg_messages_sent_total",
			Help: "Total messages appended to the log.",
		}),
		markedRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caremsg_messages_marked_read_total",
			Help: "Total messages transitioned from unread to read.",
		}),
		pushesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caremsg_pushes_delivered_total",
			Help: "Pushes delivered to a joined channel.",
		}),
		pushesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caremsg_pushes_dropped_total",
			Help: "Pushes dropped because the recipient had no joined channel.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caremsg_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	reg.MustRegister(
		c.messagesSent,
		c.markedRead,
		c.pushesDelivered,
		c.pushesDropped,
		c.httpDuration,
	)

	return c
}

func (c *PrometheusCollector) RecordMessageSent() {
	c.messagesSent.Inc()
}

func (c *PrometheusCollector) RecordMarkedRead(count int64) {
	c.markedRead.Add(float64(count))
}

func (c *PrometheusCollector) RecordPushDelivered() {
	c.pushesDelivered.Inc()
}

func (c *PrometheusCollector) RecordPushDropped() {
	c.pushesDropped.Inc()
}

func (c *PrometheusCollector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Nop is a Collector that records nothing, for tests.
type Nop struct{}

func (Nop) RecordMessageSent()                                           {}
func (Nop) RecordMarkedRead(int64)                                       {}
func (Nop) RecordPushDelivered()                                         {}
func (Nop) RecordPushDropped()                                           {}
func (Nop) RecordHTTPRequest(string, string, int, time.Duration)         {}
