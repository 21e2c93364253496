package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/codr1/courtsync/internal/db"
	dbgen "github.com/codr1/courtsync/internal/db/generated"
)

// StandardTariff is the weekday tariff used across booking tests:
// 00:00-07:00 80, 07:00-16:00 60, 16:00-23:00 80.
var StandardTariff = []dbgen.CreateCourtTariffParams{
	{DayKind: "weekday", StartMinute: 0, EndMinute: 7 * 60, Price: 80},
	{DayKind: "weekday", StartMinute: 7 * 60, EndMinute: 16 * 60, Price: 60},
	{DayKind: "weekday", StartMinute: 16 * 60, EndMinute: 23 * 60, Price: 80},
	{DayKind: "weekend", StartMinute: 0, EndMinute: 23 * 60, Price: 100},
}

// InsertUser creates a user and returns its id.
func InsertUser(t *testing.T, database *db.DB, name, email string) int64 {
	t.Helper()

	user, err := database.Queries.CreateUser(context.Background(), dbgen.CreateUserParams{
		Name:  name,
		Email: sql.NullString{String: email, Valid: email != ""},
	})
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return user.ID
}

// InsertCourt creates an active court of courtType with the given tariff slots.
func InsertCourt(t *testing.T, database *db.DB, name, courtType string, tariffs []dbgen.CreateCourtTariffParams) dbgen.Court {
	t.Helper()
	ctx := context.Background()

	court, err := database.Queries.CreateCourt(ctx, dbgen.CreateCourtParams{
		Name:            name,
		CourtType:       courtType,
		Capacity:        4,
		Active:          true,
		PeakPrice:       90,
		OffPeakPrice:    50,
		PeakStartMinute: 17 * 60,
		PeakEndMinute:   23 * 60,
	})
	if err != nil {
		t.Fatalf("insert court: %v", err)
	}
	for _, tariff := range tariffs {
		tariff.CourtID = court.ID
		if _, err := database.Queries.CreateCourtTariff(ctx, tariff); err != nil {
			t.Fatalf("insert court tariff: %v", err)
		}
	}
	return court
}

// FundAccount opens a balance account for userID holding balance points.
func FundAccount(t *testing.T, database *db.DB, userID, balance int64) {
	t.Helper()

	_, err := database.ExecContext(context.Background(),
		`INSERT INTO balance_accounts (user_id, balance, total_recharged, updated_at) VALUES (?, ?, ?, ?)`,
		userID,
		balance,
		balance,
		time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("fund account: %v", err)
	}
}

// Balance returns the current balance for userID.
func Balance(t *testing.T, database *db.DB, userID int64) int64 {
	t.Helper()

	account, err := database.Queries.GetBalanceAccount(context.Background(), userID)
	if err != nil {
		t.Fatalf("load balance: %v", err)
	}
	return account.Balance
}

// CountRows counts rows in table matching where (an SQL predicate).
func CountRows(t *testing.T, database *db.DB, table, where string, args ...any) int64 {
	t.Helper()

	var count int64
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	if err := database.QueryRowContext(context.Background(), query, args...).Scan(&count); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}

// InsertReservation writes a confirmed reservation directly, bypassing
// booking. It starts in sync status pending.
func InsertReservation(t *testing.T, database *db.DB, courtID, userID int64, date string, start, end int) dbgen.Reservation {
	t.Helper()

	now := time.Now().UTC()
	res, err := database.Queries.CreateReservation(context.Background(), dbgen.CreateReservationParams{
		CourtID:         courtID,
		UserID:          userID,
		Date:            date,
		StartMinute:     int64(start),
		EndMinute:       int64(end),
		DurationMinutes: int64(end - start),
		Participants:    2,
		Status:          "confirmed",
		BasePrice:       60,
		FinalPrice:      60,
		PointsDeducted:  60,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("insert reservation: %v", err)
	}
	return res
}

// CancelReservation cancels id without a refund, as booking would.
func CancelReservation(t *testing.T, database *db.DB, id int64) {
	t.Helper()

	now := time.Now().UTC()
	rows, err := database.Queries.CancelReservation(context.Background(), dbgen.CancelReservationParams{
		CancelledAt: sql.NullTime{Time: now, Valid: true},
		CancelledBy: sql.NullString{String: "admin:0", Valid: true},
		UpdatedAt:   now,
		ID:          id,
	})
	if err != nil || rows != 1 {
		t.Fatalf("cancel reservation %d: rows %d err %v", id, rows, err)
	}
}

// Reservation reloads a reservation.
func Reservation(t *testing.T, database *db.DB, id int64) dbgen.Reservation {
	t.Helper()

	res, err := database.Queries.GetReservation(context.Background(), id)
	if err != nil {
		t.Fatalf("load reservation %d: %v", id, err)
	}
	return res
}
