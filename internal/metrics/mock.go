package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu            sync.Mutex
	reservations  map[string]int
	rejected      map[string]int
	cancellations map[string]int
	syncRuns      map[string]int
	syncOutcomes  map[string]int
	syncStatus    [3]int64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		reservations:  make(map[string]int),
		rejected:      make(map[string]int),
		cancellations: make(map[string]int),
		syncRuns:      make(map[string]int),
		syncOutcomes:  make(map[string]int),
	}
}

func (m *Mock) IncReservations(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations[kind]++
}

func (m *Mock) IncBookingRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *Mock) IncCancellations(actor string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancellations[actor]++
}

func (m *Mock) ObserveSyncRun(window string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncRuns[window]++
}

func (m *Mock) AddSyncOutcome(outcome string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncOutcomes[outcome] += n
}

func (m *Mock) SetSyncStatus(pending, synced, failed int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncStatus = [3]int64{pending, synced, failed}
}

// Reservations returns how many reservations of kind were recorded.
func (m *Mock) Reservations(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservations[kind]
}

// Rejected returns how many bookings were rejected for reason.
func (m *Mock) Rejected(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejected[reason]
}

// Cancellations returns how many cancellations actor performed.
func (m *Mock) Cancellations(actor string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancellations[actor]
}

// SyncRuns returns how many runs were observed for window.
func (m *Mock) SyncRuns(window string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncRuns[window]
}

// SyncOutcome returns the accumulated count for outcome.
func (m *Mock) SyncOutcome(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncOutcomes[outcome]
}

// SyncStatus returns the last pending, synced and failed gauge values.
func (m *Mock) SyncStatus() (int64, int64, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncStatus[0], m.syncStatus[1], m.syncStatus[2]
}
