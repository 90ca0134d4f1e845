package links

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	codeCollisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_code_collisions_total",
			Help: "Generated codes rejected because they were already taken",
		},
		[]string{"stage"}, // check | insert
	)

	linksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_links_created_total",
			Help: "Links created, by code source",
		},
		[]string{"source"}, // custom | generated
	)
)
