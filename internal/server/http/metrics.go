package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NewEventsCounter registers and returns the counter the services use for
// domain events (uploads, downloads, integrity failures, share changes).
func NewEventsCounter() *prometheus.CounterVec {
	return promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docvault",
			Name:      "events_total",
			Help:      "Count of vault domain events by kind.",
		},
		[]string{"event"})
}
