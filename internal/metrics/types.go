package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
type Service struct {
	Reservations    *prometheus.CounterVec
	BookingRejected *prometheus.CounterVec
	Cancellations   *prometheus.CounterVec
	SyncRunDuration *prometheus.HistogramVec
	SyncOutcomes    *prometheus.CounterVec
	SyncStatus      *prometheus.GaugeVec
}
