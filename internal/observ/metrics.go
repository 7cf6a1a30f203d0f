package observ

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's prometheus collectors. A nil *Metrics is
// valid and records nothing, so packages under test can skip it.
type Metrics struct {
	MessagesPosted  prometheus.Counter
	MessagesPruned  prometheus.Counter
	FeedReads       *prometheus.CounterVec
	RateLimited     *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "murmur",
			Name:      "messages_posted_total",
			Help:      "Messages accepted by the store.",
		}),
		MessagesPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "murmur",
			Name:      "messages_pruned_total",
			Help:      "Messages removed by retention.",
		}),
		FeedReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "murmur",
			Name:      "feed_reads_total",
			Help:      "Feed reads by kind (full, recent).",
		}, []string{"kind"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "murmur",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by a rate limiter.",
		}, []string{"bucket"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "murmur",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.MessagesPosted, m.MessagesPruned, m.FeedReads, m.RateLimited, m.RequestDuration)
	return m
}

func (m *Metrics) Posted() {
	if m == nil {
		return
	}
	m.MessagesPosted.Inc()
}

func (m *Metrics) Pruned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.MessagesPruned.Add(float64(n))
}

func (m *Metrics) FeedRead(kind string) {
	if m == nil {
		return
	}
	m.FeedReads.WithLabelValues(kind).Inc()
}

func (m *Metrics) Limited(bucket string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(bucket).Inc()
}

// Instrument records request latency by route template, not raw path, to
// keep label cardinality bounded.
func (m *Metrics) Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
