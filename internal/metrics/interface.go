package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the booking and sync code from Prometheus.
type Metrics interface {
	IncReservations(kind string)
	IncBookingRejected(reason string)
	IncCancellations(actor string)
	ObserveSyncRun(window string, seconds float64)
	AddSyncOutcome(outcome string, n int)
	SetSyncStatus(pending, synced, failed int64)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) IncReservations(string) {}
func (Nop) IncBookingRejected(string) {}
func (Nop) IncCancellations(string) {}
func (Nop) ObserveSyncRun(string, float64) {}
func (Nop) AddSyncOutcome(string, int) {}
func (Nop) SetSyncStatus(int64, int64, int64) {}
