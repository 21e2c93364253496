package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/codr1/courtsync/internal/ledger"
	"github.com/codr1/courtsync/internal/testutil"
)

func (f *fixture) reserveVenue(t *testing.T, start, end string) (Receipt, error) {
	t.Helper()
	return f.manager.ReserveFullVenue(context.Background(), FullVenueRequest{
		UserID:       f.userID,
		Date:         bookingDay,
		Interval:     slot(t, start, end),
		Participants: 4,
	})
}

func TestReserveFullVenue_CreatesGroupWithOneDebit(t *testing.T) {
	f := newFixture(t)
	f.venueCourts(t)

	receipt, err := f.reserveVenue(t, "10:00", "11:00")
	if err != nil {
		t.Fatalf("reserve full venue: %v", err)
	}
	if len(receipt.Reservations) != 3 {
		t.Fatalf("reservations = %d, want 3", len(receipt.Reservations))
	}
	if receipt.Charged != 180 || receipt.Balance != 320 {
		t.Fatalf("charged %d balance %d, want 180/320", receipt.Charged, receipt.Balance)
	}
	for _, res := range receipt.Reservations {
		if res.GroupID.String != receipt.GroupID || res.Status != StatusConfirmed {
			t.Fatalf("unexpected line: %+v", res)
		}
		if res.PointsDeducted != 60 {
			t.Fatalf("line %d deducted %d, want 60", res.ID, res.PointsDeducted)
		}
	}
	if got := testutil.CountRows(t, f.db, "balance_transactions", "direction = 'debit'"); got != 1 {
		t.Fatalf("debits = %d, want 1", got)
	}
	if got := testutil.CountRows(t, f.db, "balance_transactions", "reference = ? AND amount = 180", ledger.GroupReference(receipt.GroupID)); got != 1 {
		t.Fatalf("aggregate debit not recorded")
	}

	lines, err := f.manager.ListGroup(context.Background(), receipt.GroupID)
	if err != nil || len(lines) != 3 {
		t.Fatalf("list group: %d lines, err %v", len(lines), err)
	}
}

func TestReserveFullVenue_FailureOnSecondWriteRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	f.venueCourts(t)
	f.manager.injectFaults(&faultyQuerier{failCreateOn: 2})

	_, err := f.reserveVenue(t, "10:00", "11:00")
	if !errors.Is(err, errInjected) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if got := testutil.CountRows(t, f.db, "reservations", ""); got != 0 {
		t.Fatalf("reservations = %d, want 0", got)
	}
	if got := testutil.CountRows(t, f.db, "balance_transactions", ""); got != 0 {
		t.Fatalf("transactions = %d, want 0", got)
	}
	if got := testutil.Balance(t, f.db, f.userID); got != 500 {
		t.Fatalf("balance = %d, want 500", got)
	}
}

func TestReserveFullVenue_ConflictOnAnyCourtAbortsGroup(t *testing.T) {
	f := newFixture(t)
	f.venueCourts(t)

	center, err := f.db.Queries.ListActiveCourtsByType(context.Background(), "competition")
	if err != nil || len(center) == 0 {
		t.Fatalf("load competition court: %v", err)
	}
	if _, err := f.manager.ReserveSingle(context.Background(), SingleRequest{
		CourtID: center[0].ID, UserID: f.userID, Date: bookingDay,
		Interval: slot(t, "10:30", "11:30"), Participants: 2,
	}); err != nil {
		t.Fatalf("pre-book: %v", err)
	}

	_, err = f.reserveVenue(t, "10:00", "11:00")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.CourtID != center[0].ID {
		t.Fatalf("conflict on court %d, want %d", conflict.CourtID, center[0].ID)
	}
	if got := testutil.CountRows(t, f.db, "reservations", "group_id IS NOT NULL"); got != 0 {
		t.Fatalf("group reservations = %d, want 0", got)
	}
	if got := testutil.Balance(t, f.db, f.userID); got != 440 {
		t.Fatalf("balance = %d, want 440", got)
	}
}

func TestReserveFullVenue_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.venueCourts(t)

	_, err := f.reserveVenue(t, "16:00", "19:00")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := testutil.CountRows(t, f.db, "reservations", ""); got != 0 {
		t.Fatalf("reservations = %d, want 0", got)
	}
}

func TestReserveFullVenue_MissingCourtType(t *testing.T) {
	f := newFixture(t)

	_, err := f.reserveVenue(t, "10:00", "11:00")
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "court_types" {
		t.Fatalf("expected court_types FieldError, got %v", err)
	}
}

func TestReservationGroup_AddLine(t *testing.T) {
	f := newFixture(t)
	group := newGroup(f.userID, bookingDay, slot(t, "10:00", "11:00"), 4)

	if err := group.AddLine(f.court, f.manager.pricing.Quote(PricingCourt(f.court, nil), f.clock.Now(), group.Interval)); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if err := group.AddLine(f.court, group.Lines[0].Quote); err == nil {
		t.Fatalf("duplicate court accepted")
	}

	small := f.court
	small.ID = f.court.ID + 100
	small.Capacity = 2
	var fieldErr FieldError
	if err := group.AddLine(small, group.Lines[0].Quote); !errors.As(err, &fieldErr) {
		t.Fatalf("expected capacity FieldError, got %v", err)
	}
}
