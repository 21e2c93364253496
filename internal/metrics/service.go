package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		Reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtsync_reservations_total",
			Help: "Reservations committed, by booking kind.",
		}, []string{"kind"}),
		BookingRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtsync_booking_rejected_total",
			Help: "Booking attempts rejected, by reason.",
		}, []string{"reason"}),
		Cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtsync_cancellations_total",
			Help: "Reservations cancelled, by actor role.",
		}, []string{"actor"}),
		SyncRunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "courtsync_sync_run_duration_seconds",
			Help:    "Duration of calendar reconciliation runs.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"window"}),
		SyncOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtsync_sync_items_total",
			Help: "Reconciliation item outcomes.",
		}, []string{"outcome"}),
		SyncStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "courtsync_reservations_sync_status",
			Help: "Reservations by calendar sync status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		s.Reservations,
		s.BookingRejected,
		s.Cancellations,
		s.SyncRunDuration,
		s.SyncOutcomes,
		s.SyncStatus,
	)

	return s
}

func (s *Service) IncReservations(kind string) {
	s.Reservations.WithLabelValues(kind).Inc()
}

func (s *Service) IncBookingRejected(reason string) {
	s.BookingRejected.WithLabelValues(reason).Inc()
}

func (s *Service) IncCancellations(actor string) {
	s.Cancellations.WithLabelValues(actor).Inc()
}

func (s *Service) ObserveSyncRun(window string, seconds float64) {
	s.SyncRunDuration.WithLabelValues(window).Observe(seconds)
}

func (s *Service) AddSyncOutcome(outcome string, n int) {
	if n <= 0 {
		return
	}
	s.SyncOutcomes.WithLabelValues(outcome).Add(float64(n))
}

func (s *Service) SetSyncStatus(pending, synced, failed int64) {
	s.SyncStatus.WithLabelValues("pending").Set(float64(pending))
	s.SyncStatus.WithLabelValues("synced").Set(float64(synced))
	s.SyncStatus.WithLabelValues("failed").Set(float64(failed))
}
