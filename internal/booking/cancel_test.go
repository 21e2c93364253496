package booking

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	dbgen "github.com/codr1/courtsync/internal/db/generated"
	"github.com/codr1/courtsync/internal/testutil"
)

func TestCancel_RefundsAndMarksSyncPending(t *testing.T) {
	notifier := newRecordingNotifier()
	f := newFixture(t, WithNotifier(notifier))
	ctx := context.Background()

	receipt := f.reserve(t, "20:00", "21:00")
	notifier.next(t)
	before := testutil.Balance(t, f.db, f.userID)
	original := receipt.Reservations[0]

	out, err := f.manager.Cancel(ctx, CancelRequest{
		ReservationID: original.ID,
		Actor:         Actor{UserID: f.userID, Role: RoleMember},
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if out.Refunded != 80 || out.RefundPercent != 100 {
		t.Fatalf("refunded %d at %d%%, want 80 at 100%%", out.Refunded, out.RefundPercent)
	}
	after := testutil.Balance(t, f.db, f.userID)
	if after != before+out.Refunded {
		t.Fatalf("balance after = %d, want %d", after, before+out.Refunded)
	}

	res, err := f.manager.Get(ctx, original.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.Status != StatusCancelled || res.RefundedPoints != 80 {
		t.Fatalf("unexpected reservation after cancel: %+v", res)
	}
	if res.SyncStatus != "pending" || res.SyncVersion != original.SyncVersion+1 {
		t.Fatalf("sync not reset: %s v%d", res.SyncStatus, res.SyncVersion)
	}
	if res.CancelledBy.String != "member:"+strconv.FormatInt(f.userID, 10) {
		t.Fatalf("cancelled_by = %q", res.CancelledBy.String)
	}

	event := notifier.next(t)
	if event.Type != "reservation.cancelled" || event.Points != 80 {
		t.Fatalf("unexpected cancel event: %+v", event)
	}
}

func TestCancel_GroupCancelsAllLinesWithOneRefund(t *testing.T) {
	f := newFixture(t)
	f.venueCourts(t)
	ctx := context.Background()

	receipt, err := f.reserveVenue(t, "10:00", "11:00")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	out, err := f.manager.Cancel(ctx, CancelRequest{
		ReservationID: receipt.Reservations[1].ID,
		Actor:         Actor{UserID: f.userID, Role: RoleMember},
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(out.Reservations) != 3 || out.Refunded != 180 {
		t.Fatalf("cancelled %d lines refunding %d, want 3/180", len(out.Reservations), out.Refunded)
	}
	if got := testutil.CountRows(t, f.db, "reservations", "status = 'confirmed'"); got != 0 {
		t.Fatalf("confirmed lines remain: %d", got)
	}
	if got := testutil.CountRows(t, f.db, "balance_transactions", "direction = 'credit'"); got != 1 {
		t.Fatalf("credits = %d, want 1", got)
	}
	if got := testutil.Balance(t, f.db, f.userID); got != 500 {
		t.Fatalf("balance = %d, want 500", got)
	}
}

func TestCancel_Cutoff(t *testing.T) {
	tests := []struct {
		name        string
		actor       Role
		applyPolicy bool
		wantErr     error
		wantRefund  int64
	}{
		{name: "member after cutoff", actor: RoleMember, wantErr: ErrCutoffPassed},
		{name: "admin bypasses cutoff", actor: RoleAdmin, wantRefund: 80},
		{name: "admin applying policy", actor: RoleAdmin, applyPolicy: true, wantRefund: 40},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			receipt := f.reserve(t, "20:00", "21:00")
			// 20:00 on the booking day minus 24h has passed.
			f.clock.Set(time.Date(2025, 3, 2, 21, 0, 0, 0, time.UTC))

			out, err := f.manager.Cancel(context.Background(), CancelRequest{
				ReservationID: receipt.Reservations[0].ID,
				Actor:         Actor{UserID: f.userID, Role: tc.actor},
				ApplyPolicy:   tc.applyPolicy,
			})
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				res, _ := f.manager.Get(context.Background(), receipt.Reservations[0].ID)
				if res.Status != StatusConfirmed {
					t.Fatalf("status changed to %s", res.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("cancel: %v", err)
			}
			if out.Refunded != tc.wantRefund {
				t.Fatalf("refunded %d, want %d", out.Refunded, tc.wantRefund)
			}
			if got := testutil.Balance(t, f.db, f.userID); got != 420+tc.wantRefund {
				t.Fatalf("balance = %d, want %d", got, 420+tc.wantRefund)
			}
		})
	}
}

func TestCancel_RefundFailureAbortsCancellation(t *testing.T) {
	f := newFixture(t)
	receipt := f.reserve(t, "10:00", "11:00")
	f.manager.injectFaults(&faultyQuerier{failRefund: true})

	_, err := f.manager.Cancel(context.Background(), CancelRequest{
		ReservationID: receipt.Reservations[0].ID,
		Actor:         Actor{UserID: f.userID, Role: RoleAdmin},
	})
	if !errors.Is(err, errInjected) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	f.manager.wrapQueries = nil

	res, err := f.manager.Get(context.Background(), receipt.Reservations[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.Status != StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", res.Status)
	}
	if got := testutil.Balance(t, f.db, f.userID); got != 440 {
		t.Fatalf("balance = %d, want 440", got)
	}
}

func TestCancel_WithoutRefundReportsBalance(t *testing.T) {
	tests := []struct {
		name    string
		fault   bool
		wantErr error
	}{
		{name: "balance loaded"},
		{name: "balance lookup fails", fault: true, wantErr: errInjected},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.manager.cfg.LateRefundPercent = 0
			receipt := f.reserve(t, "20:00", "21:00")
			f.clock.Set(time.Date(2025, 3, 2, 21, 0, 0, 0, time.UTC))
			if tc.fault {
				f.manager.injectFaults(&faultyQuerier{failAccount: true})
			}

			out, err := f.manager.Cancel(context.Background(), CancelRequest{
				ReservationID: receipt.Reservations[0].ID,
				Actor:         Actor{UserID: f.userID, Role: RoleAdmin},
				ApplyPolicy:   true,
			})
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				f.manager.wrapQueries = nil
				res, _ := f.manager.Get(context.Background(), receipt.Reservations[0].ID)
				if res.Status != StatusConfirmed {
					t.Fatalf("status changed to %s", res.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("cancel: %v", err)
			}
			if out.Refunded != 0 || out.Balance != 420 {
				t.Fatalf("refunded %d balance %d, want 0 and 420", out.Refunded, out.Balance)
			}
		})
	}
}

func TestCancel_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	receipt := f.reserve(t, "10:00", "11:00")
	id := receipt.Reservations[0].ID
	stranger := testutil.InsertUser(t, f.db, "Dan", "")

	if _, err := f.manager.Cancel(ctx, CancelRequest{ReservationID: id, Actor: Actor{UserID: stranger}}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger cancel: %v", err)
	}
	if _, err := f.manager.Cancel(ctx, CancelRequest{ReservationID: 999, Actor: Actor{UserID: f.userID}}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing reservation: %v", err)
	}

	if _, err := f.manager.Complete(ctx, id); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err := f.manager.Cancel(ctx, CancelRequest{ReservationID: id, Actor: Actor{UserID: f.userID, Role: RoleAdmin}})
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) || stateErr.Status != StatusCompleted {
		t.Fatalf("expected InvalidStateError for completed reservation, got %v", err)
	}
}

func TestCancel_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	receipt := f.reserve(t, "10:00", "11:00")
	req := CancelRequest{ReservationID: receipt.Reservations[0].ID, Actor: Actor{UserID: f.userID}}

	if _, err := f.manager.Cancel(ctx, req); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if _, err := f.manager.Cancel(ctx, req); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second cancel: %v", err)
	}
	if got := testutil.Balance(t, f.db, f.userID); got != 500 {
		t.Fatalf("balance = %d, want 500", got)
	}
}

func TestCompleteAndNoShow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	played := f.reserve(t, "10:00", "11:00").Reservations[0]
	missed := f.reserve(t, "12:00", "13:00").Reservations[0]

	closed, err := f.manager.Complete(ctx, played.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if closed[0].Status != StatusCompleted || closed[0].SyncVersion != played.SyncVersion {
		t.Fatalf("unexpected completed row: %+v", closed[0])
	}
	if _, err := f.manager.MarkNoShow(ctx, missed.ID); err != nil {
		t.Fatalf("no-show: %v", err)
	}
	if _, err := f.manager.Complete(ctx, missed.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("complete after no-show: %v", err)
	}
	if _, err := f.manager.MarkNoShow(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing reservation: %v", err)
	}

	// A completed slot no longer blocks the court.
	f.reserve(t, "10:00", "11:00")
}

func TestSplitRefund(t *testing.T) {
	lines := []dbgen.Reservation{{PointsDeducted: 33}, {PointsDeducted: 33}, {PointsDeducted: 34}}
	shares := splitRefund(lines, 50, 50)
	var sum int64
	for _, s := range shares {
		sum += s
	}
	if sum != 50 {
		t.Fatalf("shares %v sum to %d, want 50", shares, sum)
	}
}
