package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtsync/internal/db"
	dbgen "github.com/codr1/courtsync/internal/db/generated"
	"github.com/codr1/courtsync/internal/ledger"
	"github.com/codr1/courtsync/internal/notify"
)

type CancelRequest struct {
	ReservationID int64
	Actor         Actor
	// ApplyPolicy makes an admin cancellation past the cutoff refund
	// LateRefundPercent instead of the full amount.
	ApplyPolicy bool
}

type Cancellation struct {
	Reservations  []dbgen.Reservation
	RefundPercent int64
	Refunded      int64
	Balance       int64
}

// Cancel cancels a reservation, or its whole group for a full-venue line.
// The refund is credited in the same transaction as the status change, so a
// failed refund leaves the reservation untouched.
func (m *Manager) Cancel(ctx context.Context, req CancelRequest) (Cancellation, error) {
	logger := log.Ctx(ctx)

	var (
		out    Cancellation
		courts []dbgen.Court
	)
	err := m.db.RunInTx(ctx, func(tx *db.DB) error {
		q := m.queries(tx)
		now := m.clock.Now().UTC()

		res, err := q.GetReservation(ctx, req.ReservationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("load reservation %d: %w", req.ReservationID, err)
		}
		if !req.Actor.IsAdmin() && res.UserID != req.Actor.UserID {
			return ErrForbidden
		}

		lines, reference, err := loadLines(ctx, q, res)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if !Blocks(line.Status) {
				return &InvalidStateError{ReservationID: line.ID, Status: line.Status, Action: "cancel"}
			}
		}

		percent, err := m.refundPercent(res, req)
		if err != nil {
			return err
		}

		var deducted int64
		for _, line := range lines {
			deducted += line.PointsDeducted
		}
		refund := deducted * percent / 100

		if refund > 0 {
			result, err := ledger.Credit(ctx, q, ledger.Entry{
				UserID:      res.UserID,
				Amount:      refund,
				Description: fmt.Sprintf("Refund %d%% for %s", percent, reference),
				Reference:   reference,
				At:          now,
			})
			if err != nil {
				return fmt.Errorf("refund %s: %w", reference, err)
			}
			out.Balance = result.Account.Balance
		} else {
			account, err := q.GetBalanceAccount(ctx, res.UserID)
			switch {
			case err == nil:
				out.Balance = account.Balance
			case !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("load balance of user %d: %w", res.UserID, err)
			}
		}

		shares := splitRefund(lines, percent, refund)
		for i, line := range lines {
			rows, err := q.CancelReservation(ctx, dbgen.CancelReservationParams{
				RefundedPoints: shares[i],
				CancelledAt:    sql.NullTime{Time: now, Valid: true},
				CancelledBy:    sql.NullString{String: req.Actor.String(), Valid: true},
				UpdatedAt:      now,
				ID:             line.ID,
			})
			if err != nil {
				return fmt.Errorf("cancel reservation %d: %w", line.ID, err)
			}
			if rows != 1 {
				return &InvalidStateError{ReservationID: line.ID, Status: line.Status, Action: "cancel"}
			}

			cancelled, err := q.GetReservation(ctx, line.ID)
			if err != nil {
				return fmt.Errorf("reload reservation %d: %w", line.ID, err)
			}
			out.Reservations = append(out.Reservations, cancelled)

			court, err := q.GetCourt(ctx, line.CourtID)
			if err != nil {
				return fmt.Errorf("load court %d: %w", line.CourtID, err)
			}
			courts = append(courts, court)
		}

		out.RefundPercent = percent
		out.Refunded = refund
		return nil
	})
	if err != nil {
		return Cancellation{}, err
	}

	role := string(req.Actor.Role)
	if role == "" {
		role = string(RoleMember)
	}
	m.metrics.IncCancellations(role)
	logger.Info().
		Str("component", "booking").
		Int64("reservation_id", req.ReservationID).
		Int("lines", len(out.Reservations)).
		Str("actor", req.Actor.String()).
		Int64("refunded", out.Refunded).
		Msg("Reservation cancelled")
	notify.Dispatch(ctx, m.notifier, m.event(notify.EventReservationCancelled, out.Reservations, courts, out.Refunded))

	return out, nil
}

// refundPercent applies the cancellation policy: members must cancel before
// start minus the cutoff and get everything back; admins may cancel any time.
func (m *Manager) refundPercent(res dbgen.Reservation, req CancelRequest) (int64, error) {
	startsAt, _, err := m.StartTime(res)
	if err != nil {
		return 0, err
	}
	deadline := startsAt.Add(-m.cfg.CancellationCutoff)
	beforeDeadline := m.clock.Now().Before(deadline)

	switch {
	case !req.Actor.IsAdmin():
		if !beforeDeadline {
			return 0, &CutoffError{StartsAt: startsAt, Deadline: deadline}
		}
		return 100, nil
	case req.ApplyPolicy && !beforeDeadline:
		return m.cfg.LateRefundPercent, nil
	default:
		return 100, nil
	}
}

// splitRefund spreads refund over lines in proportion to what each line
// cost. The last paying line absorbs rounding so the shares sum to refund.
func splitRefund(lines []dbgen.Reservation, percent, refund int64) []int64 {
	shares := make([]int64, len(lines))
	var assigned int64
	last := -1
	for i, line := range lines {
		shares[i] = line.PointsDeducted * percent / 100
		assigned += shares[i]
		if line.PointsDeducted > 0 {
			last = i
		}
	}
	if last >= 0 {
		shares[last] += refund - assigned
	}
	return shares
}

// Complete marks a confirmed reservation (and its group) as played.
func (m *Manager) Complete(ctx context.Context, id int64) ([]dbgen.Reservation, error) {
	return m.close(ctx, id, StatusCompleted, "complete")
}

// MarkNoShow marks a confirmed reservation (and its group) as not attended.
// No points are returned.
func (m *Manager) MarkNoShow(ctx context.Context, id int64) ([]dbgen.Reservation, error) {
	return m.close(ctx, id, StatusNoShow, "mark no-show")
}

func (m *Manager) close(ctx context.Context, id int64, status, action string) ([]dbgen.Reservation, error) {
	var closed []dbgen.Reservation
	err := m.db.RunInTx(ctx, func(tx *db.DB) error {
		q := m.queries(tx)
		now := m.clock.Now().UTC()

		res, err := q.GetReservation(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("load reservation %d: %w", id, err)
		}
		lines, _, err := loadLines(ctx, q, res)
		if err != nil {
			return err
		}

		for _, line := range lines {
			rows, err := q.CloseReservation(ctx, dbgen.CloseReservationParams{
				Status:    status,
				UpdatedAt: now,
				ID:        line.ID,
			})
			if err != nil {
				return fmt.Errorf("%s reservation %d: %w", action, line.ID, err)
			}
			if rows != 1 {
				return &InvalidStateError{ReservationID: line.ID, Status: line.Status, Action: action}
			}
			updated, err := q.GetReservation(ctx, line.ID)
			if err != nil {
				return fmt.Errorf("reload reservation %d: %w", line.ID, err)
			}
			closed = append(closed, updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger := log.Ctx(ctx)
	logger.Info().
		Str("component", "booking").
		Int64("reservation_id", id).
		Str("status", status).
		Msg("Reservation closed")
	return closed, nil
}
