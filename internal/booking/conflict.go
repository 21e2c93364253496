package booking

import (
	"context"
	"fmt"

	dbgen "github.com/codr1/courtsync/internal/db/generated"
	"github.com/codr1/courtsync/internal/timeslot"
)

// blockingStatuses are the reservation states that hold a court.
var blockingStatuses = map[string]bool{
	StatusPending:   true,
	StatusConfirmed: true,
}

// Blocks reports whether a reservation in status holds its court.
func Blocks(status string) bool {
	return blockingStatuses[status]
}

// HasConflict reports whether interval on courtID and date overlaps a pending
// or confirmed reservation. It is a pre-check only: writers re-check inside
// the booking transaction and the storage trigger rejects any overlap that
// slips through.
func (m *Manager) HasConflict(ctx context.Context, courtID int64, date string, interval timeslot.Interval) (bool, error) {
	blocking, err := findConflicts(ctx, m.db.Queries, courtID, date, interval)
	if err != nil {
		return false, err
	}
	return len(blocking) > 0, nil
}

func findConflicts(ctx context.Context, q dbgen.Querier, courtID int64, date string, interval timeslot.Interval) ([]int64, error) {
	existing, err := q.ListBlockingReservationsForCourtDate(ctx, dbgen.ListBlockingReservationsForCourtDateParams{
		CourtID: courtID,
		Date:    date,
	})
	if err != nil {
		return nil, fmt.Errorf("list reservations for court %d: %w", courtID, err)
	}

	var blocking []int64
	for _, res := range existing {
		if !Blocks(res.Status) {
			continue
		}
		other := timeslot.Interval{Start: int(res.StartMinute), End: int(res.EndMinute)}
		if interval.Overlaps(other) {
			blocking = append(blocking, res.ID)
		}
	}
	return blocking, nil
}
