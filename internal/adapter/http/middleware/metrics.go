package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the ops router. Its collectors live on the registry it
// was built with so every router exports only its own traffic.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridge",
			Subsystem: "ops",
			Name:      "http_requests_total",
			Help:      "Ops HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bridge",
			Subsystem: "ops",
			Name:      "http_request_duration_seconds",
			Help:      "Ops HTTP request latency.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5},
		}, []string{"route"}),
	}
}

// Handler records one sample per request. Routes gin could not match share
// a single label so scanners cannot blow up cardinality.
func (m *Metrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
