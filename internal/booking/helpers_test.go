package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codr1/courtsync/internal/db"
	dbgen "github.com/codr1/courtsync/internal/db/generated"
	"github.com/codr1/courtsync/internal/notify"
	"github.com/codr1/courtsync/internal/pricing"
	"github.com/codr1/courtsync/internal/testutil"
	"github.com/codr1/courtsync/internal/timeslot"
)

// bookingDay is a Monday, priced with weekday tariffs.
const bookingDay = "2025-03-03"

var errInjected = errors.New("injected failure")

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// faultyQuerier wraps the transactional querier to inject storage faults.
type faultyQuerier struct {
	dbgen.Querier

	mu           sync.Mutex
	failCreateOn int
	creates      int
	failRefund   bool
	failAccount  bool
	hideBlocking bool
}

func (f *faultyQuerier) CreateReservation(ctx context.Context, arg dbgen.CreateReservationParams) (dbgen.Reservation, error) {
	f.mu.Lock()
	f.creates++
	fail := f.creates == f.failCreateOn
	f.mu.Unlock()
	if fail {
		return dbgen.Reservation{}, errInjected
	}
	return f.Querier.CreateReservation(ctx, arg)
}

func (f *faultyQuerier) RefundBalanceAccount(ctx context.Context, arg dbgen.RefundBalanceAccountParams) (dbgen.BalanceAccount, error) {
	if f.failRefund {
		return dbgen.BalanceAccount{}, errInjected
	}
	return f.Querier.RefundBalanceAccount(ctx, arg)
}

func (f *faultyQuerier) GetBalanceAccount(ctx context.Context, userID int64) (dbgen.BalanceAccount, error) {
	if f.failAccount {
		return dbgen.BalanceAccount{}, errInjected
	}
	return f.Querier.GetBalanceAccount(ctx, userID)
}

func (f *faultyQuerier) ListBlockingReservationsForCourtDate(ctx context.Context, arg dbgen.ListBlockingReservationsForCourtDateParams) ([]dbgen.Reservation, error) {
	if f.hideBlocking {
		return nil, nil
	}
	return f.Querier.ListBlockingReservationsForCourtDate(ctx, arg)
}

func (m *Manager) injectFaults(f *faultyQuerier) {
	m.wrapQueries = func(q dbgen.Querier) dbgen.Querier {
		f.Querier = q
		return f
	}
}

type recordingNotifier struct {
	events chan notify.Event
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(chan notify.Event, 8)}
}

func (r *recordingNotifier) Notify(_ context.Context, event notify.Event) error {
	r.events <- event
	return nil
}

func (r *recordingNotifier) next(t *testing.T) notify.Event {
	t.Helper()
	select {
	case event := <-r.events:
		return event
	case <-time.After(time.Second):
		t.Fatalf("no notification delivered")
		return notify.Event{}
	}
}

type fixture struct {
	db      *db.DB
	manager *Manager
	clock   *mockClock
	userID  int64
	court   dbgen.Court
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	database := testutil.NewTestDB(t)
	clock := newMockClock()
	cfg := Config{
		Location:            time.UTC,
		CancellationCutoff:  24 * time.Hour,
		LateRefundPercent:   50,
		FullVenueCourtTypes: []string{"solo", "training", "competition"},
		LeaseTTL:            2 * time.Second,
	}
	opts = append([]Option{WithClock(clock)}, opts...)
	manager := NewManager(database, pricing.NewCalculator(pricing.NewCalendarPolicy()), cfg, opts...)

	userID := testutil.InsertUser(t, database, "Ana", "ana@example.com")
	testutil.FundAccount(t, database, userID, 500)
	court := testutil.InsertCourt(t, database, "Court 1", "solo", testutil.StandardTariff)

	return &fixture{db: database, manager: manager, clock: clock, userID: userID, court: court}
}

func (f *fixture) venueCourts(t *testing.T) {
	t.Helper()
	testutil.InsertCourt(t, f.db, "Training Court", "training", testutil.StandardTariff)
	testutil.InsertCourt(t, f.db, "Center Court", "competition", testutil.StandardTariff)
}

func slot(t *testing.T, start, end string) timeslot.Interval {
	t.Helper()
	s, err := timeslot.ParseClock(start)
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	e, err := timeslot.ParseClock(end)
	if err != nil {
		t.Fatalf("parse end: %v", err)
	}
	return timeslot.Interval{Start: s, End: e}
}

func (f *fixture) reserve(t *testing.T, start, end string) Receipt {
	t.Helper()
	receipt, err := f.manager.ReserveSingle(context.Background(), SingleRequest{
		CourtID:      f.court.ID,
		UserID:       f.userID,
		Date:         bookingDay,
		Interval:     slot(t, start, end),
		Participants: 2,
	})
	if err != nil {
		t.Fatalf("reserve %s-%s: %v", start, end, err)
	}
	return receipt
}
