package messaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clickEventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortener_click_events_published_total",
		Help: "Click events written to Kafka",
	})

	clickEventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortener_click_events_consumed_total",
		Help: "Click events read from Kafka by outcome",
	}, []string{"outcome"})
)
