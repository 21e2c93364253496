package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/codr1/courtsync/internal/db"
	dbgen "github.com/codr1/courtsync/internal/db/generated"
	"github.com/codr1/courtsync/internal/pricing"
	"github.com/codr1/courtsync/internal/timeslot"
)

// draft is a reservation about to be written in status pending.
type draft struct {
	CourtID      int64
	UserID       int64
	GroupID      string
	Date         string
	Interval     timeslot.Interval
	Participants int
	Quote        pricing.Breakdown
	Now          time.Time
}

func createReservation(ctx context.Context, q dbgen.Querier, d draft) (dbgen.Reservation, error) {
	created, err := q.CreateReservation(ctx, dbgen.CreateReservationParams{
		CourtID:         d.CourtID,
		UserID:          d.UserID,
		GroupID:         sql.NullString{String: d.GroupID, Valid: d.GroupID != ""},
		Date:            d.Date,
		StartMinute:     int64(d.Interval.Start),
		EndMinute:       int64(d.Interval.End),
		DurationMinutes: int64(d.Interval.Minutes()),
		Participants:    int64(d.Participants),
		Status:          StatusPending,
		BasePrice:       d.Quote.Base,
		Discount:        d.Quote.Discount,
		FinalPrice:      d.Quote.Final,
		PointsDeducted:  d.Quote.Final,
		CreatedAt:       d.Now,
		UpdatedAt:       d.Now,
	})
	if err != nil {
		if db.IsReservationOverlap(err) {
			return dbgen.Reservation{}, &ConflictError{CourtID: d.CourtID, Date: d.Date, Interval: d.Interval}
		}
		return dbgen.Reservation{}, fmt.Errorf("create reservation on court %d: %w", d.CourtID, err)
	}
	return created, nil
}

func confirm(ctx context.Context, q dbgen.Querier, id int64, now time.Time) error {
	rows, err := q.ConfirmReservation(ctx, dbgen.ConfirmReservationParams{UpdatedAt: now, ID: id})
	if err != nil {
		return fmt.Errorf("confirm reservation %d: %w", id, err)
	}
	if rows != 1 {
		return &InvalidStateError{ReservationID: id, Status: "unknown", Action: "confirm"}
	}
	return nil
}

// loadCourt returns the court record and its pricing view.
func loadCourt(ctx context.Context, q dbgen.Querier, id int64) (dbgen.Court, pricing.Court, error) {
	court, err := q.GetCourt(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Court{}, pricing.Court{}, FieldError{Field: "court_id", Reason: "does not exist"}
		}
		return dbgen.Court{}, pricing.Court{}, fmt.Errorf("load court %d: %w", id, err)
	}
	tariffs, err := q.ListCourtTariffs(ctx, id)
	if err != nil {
		return dbgen.Court{}, pricing.Court{}, fmt.Errorf("load tariffs for court %d: %w", id, err)
	}
	return court, PricingCourt(court, tariffs), nil
}

func checkCourt(court dbgen.Court, participants int) error {
	if !court.Active {
		return FieldError{Field: "court_id", Reason: fmt.Sprintf("court %s is not active", court.Name)}
	}
	if int64(participants) > court.Capacity {
		return FieldError{Field: "participants", Reason: fmt.Sprintf("exceeds capacity %d of %s", court.Capacity, court.Name)}
	}
	return nil
}

// PricingCourt converts stored court and tariff rows for the calculator.
func PricingCourt(court dbgen.Court, tariffs []dbgen.CourtTariff) pricing.Court {
	slots := make([]pricing.Slot, 0, len(tariffs))
	for _, t := range tariffs {
		slots = append(slots, pricing.Slot{
			Kind:  pricing.DayKind(t.DayKind),
			Start: int(t.StartMinute),
			End:   int(t.EndMinute),
			Price: t.Price,
		})
	}
	return pricing.Court{
		ID:           court.ID,
		Name:         court.Name,
		Type:         court.CourtType,
		Tariffs:      slots,
		PeakPrice:    court.PeakPrice,
		OffPeakPrice: court.OffPeakPrice,
		PeakStart:    int(court.PeakStartMinute),
		PeakEnd:      int(court.PeakEndMinute),
	}
}

// quoter returns the calculator extended with the holidays stored now, so a
// holiday added while the service runs applies to the next booking.
func (m *Manager) quoter(ctx context.Context, q dbgen.Querier) (*pricing.Calculator, error) {
	stored, err := q.ListHolidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	days := make([]string, 0, len(stored))
	for _, h := range stored {
		days = append(days, h.Date)
	}
	return m.pricing.WithHolidays(days...), nil
}
