package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var clickRecordFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "shortener_click_record_failures_total",
	Help: "Redirects whose click could not be recorded",
})
