package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const unknownKeyLabel = "unknown"

var (
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_deliveries_total",
			Help: "Deliveries settled by the dispatcher",
		},
		[]string{"routing_key", "disposition"},
	)

	handlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_handler_duration_ms",
			Help:    "Duration of handler calls in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"routing_key"},
	)

	consumerStops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_consumer_stops_total",
			Help: "Times the consume loop stopped, by reason",
		},
		[]string{"reason"},
	)
)
