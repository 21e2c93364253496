package booking

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	dbgen "github.com/codr1/courtsync/internal/db/generated"
	"github.com/codr1/courtsync/internal/ledger"
	"github.com/codr1/courtsync/internal/metrics"
	"github.com/codr1/courtsync/internal/testutil"
	"github.com/codr1/courtsync/internal/timeslot"
)

func TestReserveSingle_HolidayAddedAtRuntime(t *testing.T) {
	f := newFixture(t)

	if got := f.reserve(t, "10:00", "11:00").Charged; got != 60 {
		t.Fatalf("weekday booking charged %d, want 60", got)
	}
	if err := f.db.Queries.CreateHoliday(context.Background(), dbgen.CreateHolidayParams{
		Date: bookingDay,
		Name: "Founders Day",
	}); err != nil {
		t.Fatalf("create holiday: %v", err)
	}
	if got := f.reserve(t, "12:00", "13:00").Charged; got != 100 {
		t.Fatalf("holiday booking charged %d, want 100", got)
	}
}

func TestReserveSingle_PricesFromTariff(t *testing.T) {
	mock := metrics.NewMock()
	f := newFixture(t, WithMetrics(mock))

	morning := f.reserve(t, "10:00", "11:00")
	if morning.Charged != 60 {
		t.Fatalf("10:00 booking charged %d, want 60", morning.Charged)
	}
	evening := f.reserve(t, "20:00", "21:00")
	if evening.Charged != 80 {
		t.Fatalf("20:00 booking charged %d, want 80", evening.Charged)
	}

	res := evening.Reservations[0]
	if res.Status != StatusConfirmed || res.SyncStatus != "pending" {
		t.Fatalf("unexpected state %s/%s", res.Status, res.SyncStatus)
	}
	if res.PointsDeducted != 80 || res.FinalPrice != 80 || res.DurationMinutes != 60 {
		t.Fatalf("unexpected pricing snapshot: %+v", res)
	}
	if evening.Balance != 360 {
		t.Fatalf("receipt balance = %d, want 360", evening.Balance)
	}
	if got := testutil.Balance(t, f.db, f.userID); got != 360 {
		t.Fatalf("balance = %d, want 360", got)
	}
	if got := testutil.CountRows(t, f.db, "balance_transactions", "reference = ?", ledger.ReservationReference(res.ID)); got != 1 {
		t.Fatalf("debit rows for reservation = %d, want 1", got)
	}
	if mock.Reservations(KindSingle) != 2 {
		t.Fatalf("reservation metric = %d, want 2", mock.Reservations(KindSingle))
	}
}

func TestReserveSingle_MultiHourChargesEachStartedHour(t *testing.T) {
	f := newFixture(t)

	receipt := f.reserve(t, "15:00", "16:30")
	if receipt.Charged != 60+80 {
		t.Fatalf("charged %d, want 140", receipt.Charged)
	}
}

func TestReserveSingle_InsufficientBalance(t *testing.T) {
	mock := metrics.NewMock()
	f := newFixture(t, WithMetrics(mock))
	ctx := context.Background()

	pricey := testutil.InsertCourt(t, f.db, "Premium", "solo", []dbgen.CreateCourtTariffParams{
		{DayKind: "weekday", StartMinute: 0, EndMinute: 1440, Price: 150},
	})
	poor := testutil.InsertUser(t, f.db, "Ben", "")
	testutil.FundAccount(t, f.db, poor, 100)

	_, err := f.manager.ReserveSingle(ctx, SingleRequest{
		CourtID:      pricey.ID,
		UserID:       poor,
		Date:         bookingDay,
		Interval:     slot(t, "09:00", "10:00"),
		Participants: 2,
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := testutil.Balance(t, f.db, poor); got != 100 {
		t.Fatalf("balance = %d, want 100", got)
	}
	if got := testutil.CountRows(t, f.db, "reservations", ""); got != 0 {
		t.Fatalf("reservations = %d, want 0", got)
	}
	if mock.Rejected("insufficient_balance") != 1 {
		t.Fatalf("rejection metric not recorded")
	}
}

func TestReserveSingle_ConcurrentSameSlot(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{name: "with court lease"},
		{name: "transaction only", opts: []Option{WithLocker(nil)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.opts...)
			other := testutil.InsertUser(t, f.db, "Cleo", "")
			testutil.FundAccount(t, f.db, other, 500)

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				succeeded int
				conflicts int
			)
			for _, userID := range []int64{f.userID, other} {
				wg.Add(1)
				go func(userID int64) {
					defer wg.Done()
					_, err := f.manager.ReserveSingle(context.Background(), SingleRequest{
						CourtID:      f.court.ID,
						UserID:       userID,
						Date:         bookingDay,
						Interval:     slot(t, "09:00", "10:00"),
						Participants: 2,
					})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						succeeded++
					case errors.Is(err, ErrConflict):
						conflicts++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}(userID)
			}
			wg.Wait()

			if succeeded != 1 || conflicts != 1 {
				t.Fatalf("succeeded=%d conflicts=%d, want 1/1", succeeded, conflicts)
			}
			total := testutil.Balance(t, f.db, f.userID) + testutil.Balance(t, f.db, other)
			if total != 1000-60 {
				t.Fatalf("combined balance = %d, want %d", total, 1000-60)
			}
		})
	}
}

func TestReserveSingle_StorageTriggerCatchesMissedConflict(t *testing.T) {
	f := newFixture(t, WithLocker(nil))
	f.reserve(t, "09:00", "10:00")

	f.manager.injectFaults(&faultyQuerier{hideBlocking: true})
	_, err := f.manager.ReserveSingle(context.Background(), SingleRequest{
		CourtID:      f.court.ID,
		UserID:       f.userID,
		Date:         bookingDay,
		Interval:     slot(t, "09:30", "10:30"),
		Participants: 2,
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(conflict.BlockedBy) != 0 {
		t.Fatalf("trigger conflict should not name blockers: %v", conflict.BlockedBy)
	}
	if got := testutil.Balance(t, f.db, f.userID); got != 440 {
		t.Fatalf("balance = %d, want 440", got)
	}
}

func TestReserveSingle_AdjacentAndReleasedSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.reserve(t, "09:00", "10:00")
	f.reserve(t, "10:00", "11:00")
	f.reserve(t, "08:00", "09:00")

	if _, err := f.manager.ReserveSingle(ctx, SingleRequest{
		CourtID: f.court.ID, UserID: f.userID, Date: bookingDay,
		Interval: slot(t, "09:59", "10:01"), Participants: 1,
	}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := f.manager.Cancel(ctx, CancelRequest{
		ReservationID: first.Reservations[0].ID,
		Actor:         Actor{UserID: f.userID, Role: RoleMember},
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.reserve(t, "09:00", "10:00")
}

func TestReserveSingle_FieldErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inactive, err := f.db.Queries.CreateCourt(ctx, dbgen.CreateCourtParams{
		Name: "Closed", CourtType: "solo", Capacity: 4, Active: false,
	})
	if err != nil {
		t.Fatalf("create inactive court: %v", err)
	}

	base := SingleRequest{
		CourtID:      f.court.ID,
		UserID:       f.userID,
		Date:         bookingDay,
		Interval:     slot(t, "09:00", "10:00"),
		Participants: 2,
	}
	tests := []struct {
		name   string
		mutate func(*SingleRequest)
		field  string
	}{
		{"no participants", func(r *SingleRequest) { r.Participants = 0 }, "participants"},
		{"over capacity", func(r *SingleRequest) { r.Participants = 5 }, "participants"},
		{"end before start", func(r *SingleRequest) { r.Interval = timeslot.Interval{Start: 600, End: 540} }, "interval"},
		{"zero duration", func(r *SingleRequest) { r.Interval = timeslot.Interval{Start: 600, End: 600} }, "interval"},
		{"bad date", func(r *SingleRequest) { r.Date = "03/03/2025" }, "date"},
		{"past", func(r *SingleRequest) { r.Date = "2025-02-27" }, "date"},
		{"inactive court", func(r *SingleRequest) { r.CourtID = inactive.ID }, "court_id"},
		{"unknown court", func(r *SingleRequest) { r.CourtID = 999 }, "court_id"},
		{"missing user", func(r *SingleRequest) { r.UserID = 0 }, "user_id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, err := f.manager.ReserveSingle(ctx, req)
			var fieldErr FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("expected FieldError, got %v", err)
			}
			if fieldErr.Field != tc.field {
				t.Fatalf("field = %s, want %s", fieldErr.Field, tc.field)
			}
		})
	}
	if got := testutil.CountRows(t, f.db, "reservations", ""); got != 0 {
		t.Fatalf("reservations = %d, want 0", got)
	}
}

func TestReserveSingle_NotifiesAfterCommit(t *testing.T) {
	notifier := newRecordingNotifier()
	f := newFixture(t, WithNotifier(notifier))

	receipt := f.reserve(t, "10:00", "11:00")
	event := notifier.next(t)
	if event.Type != "reservation.confirmed" || event.ReservationIDs[0] != receipt.Reservations[0].ID {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Courts[0] != "Court 1" || event.Start != "10:00" || event.Points != 60 {
		t.Fatalf("unexpected event detail: %+v", event)
	}
}

// TestNoOverlapInvariant books and cancels random intervals and checks every
// outcome against an in-memory model, then verifies storage never holds two
// overlapping blocking reservations on one court.
func TestNoOverlapInvariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	second := testutil.InsertCourt(t, f.db, "Court 2", "solo", testutil.StandardTariff)
	if _, err := f.db.ExecContext(ctx, `UPDATE balance_accounts SET balance = 1000000 WHERE user_id = ?`, f.userID); err != nil {
		t.Fatalf("top up: %v", err)
	}

	type booked struct {
		id       int64
		interval timeslot.Interval
	}
	model := map[int64][]booked{}
	courts := []int64{f.court.ID, second.ID}
	durations := []int{30, 60, 90, 120}
	rng := rand.New(rand.NewSource(42))
	admin := Actor{UserID: f.userID, Role: RoleAdmin}

	for i := 0; i < 150; i++ {
		courtID := courts[rng.Intn(len(courts))]

		if len(model[courtID]) > 0 && rng.Intn(5) == 0 {
			idx := rng.Intn(len(model[courtID]))
			victim := model[courtID][idx]
			if _, err := f.manager.Cancel(ctx, CancelRequest{ReservationID: victim.id, Actor: admin}); err != nil {
				t.Fatalf("cancel %d: %v", victim.id, err)
			}
			model[courtID] = append(model[courtID][:idx], model[courtID][idx+1:]...)
			continue
		}

		start := 6*60 + 30*rng.Intn(32)
		interval := timeslot.Interval{Start: start, End: start + durations[rng.Intn(len(durations))]}
		expectConflict := false
		for _, b := range model[courtID] {
			if b.interval.Overlaps(interval) {
				expectConflict = true
				break
			}
		}

		receipt, err := f.manager.ReserveSingle(ctx, SingleRequest{
			CourtID: courtID, UserID: f.userID, Date: bookingDay, Interval: interval, Participants: 2,
		})
		switch {
		case expectConflict && !errors.Is(err, ErrConflict):
			t.Fatalf("step %d: %s on court %d: expected conflict, got %v", i, interval, courtID, err)
		case !expectConflict && err != nil:
			t.Fatalf("step %d: %s on court %d: unexpected error %v", i, interval, courtID, err)
		case err == nil:
			model[courtID] = append(model[courtID], booked{id: receipt.Reservations[0].ID, interval: interval})
		}
	}

	for _, courtID := range courts {
		rows, err := f.db.Queries.ListBlockingReservationsForCourtDate(ctx, dbgen.ListBlockingReservationsForCourtDateParams{
			CourtID: courtID,
			Date:    bookingDay,
		})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(rows) != len(model[courtID]) {
			t.Fatalf("court %d holds %d blocking reservations, model has %d", courtID, len(rows), len(model[courtID]))
		}
		for i := range rows {
			for j := i + 1; j < len(rows); j++ {
				a := timeslot.Interval{Start: int(rows[i].StartMinute), End: int(rows[i].EndMinute)}
				b := timeslot.Interval{Start: int(rows[j].StartMinute), End: int(rows[j].EndMinute)}
				if a.Overlaps(b) {
					t.Fatalf("reservations %d and %d overlap on court %d", rows[i].ID, rows[j].ID, courtID)
				}
			}
		}
	}
}

func TestHasConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.reserve(t, "09:00", "10:00")

	tests := []struct {
		start, end string
		want       bool
	}{
		{"08:00", "09:00", false},
		{"10:00", "11:00", false},
		{"09:30", "09:45", true},
		{"08:30", "10:30", true},
	}
	for _, tc := range tests {
		got, err := f.manager.HasConflict(ctx, f.court.ID, bookingDay, slot(t, tc.start, tc.end))
		if err != nil {
			t.Fatalf("has conflict: %v", err)
		}
		if got != tc.want {
			t.Fatalf("HasConflict(%s-%s) = %v, want %v", tc.start, tc.end, got, tc.want)
		}
	}
}
