package http

import (
	"log/slog"
	"net/http"

	"github.com/aq2208/gorder-bridge/internal/adapter/http/middleware"
	"github.com/aq2208/gorder-bridge/internal/adapter/queue"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StateReporter exposes the dispatcher lifecycle to the probes.
type StateReporter interface {
	State() queue.State
}

// NewRouter builds the ops surface: liveness, readiness and Prometheus metrics.
func NewRouter(dispatcher StateReporter, l *slog.Logger) *gin.Engine {
	reg := prometheus.NewRegistry()
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "bridge",
		Name:      "dispatcher_state",
		Help:      "Dispatcher lifecycle: 0 idle, 1 consuming, 2 stopped.",
	}, func() float64 { return float64(dispatcher.State()) })

	r := gin.New()
	r.Use(gin.Recovery(), middleware.NewMetrics(reg).Handler(), middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/readyz", func(c *gin.Context) {
		s := dispatcher.State()
		if s != queue.StateConsuming {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "state": s.String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "state": s.String()})
	})
	// process-wide dispatcher metrics plus this router's own
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		prometheus.Gatherers{prometheus.DefaultGatherer, reg},
		promhttp.HandlerOpts{},
	)))

	return r
}
