package booking

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtsync/internal/db"
	dbgen "github.com/codr1/courtsync/internal/db/generated"
	"github.com/codr1/courtsync/internal/ledger"
	"github.com/codr1/courtsync/internal/notify"
	"github.com/codr1/courtsync/internal/pricing"
	"github.com/codr1/courtsync/internal/timeslot"
)

// ReservationGroup is a full-venue booking: one line per court, all sharing
// the date, interval, participants and a single aggregate debit. Lines are
// created and cancelled together.
type ReservationGroup struct {
	ID           string
	UserID       int64
	Date         string
	Interval     timeslot.Interval
	Participants int
	Lines        []GroupLine
}

type GroupLine struct {
	Court       dbgen.Court
	Quote       pricing.Breakdown
	Reservation dbgen.Reservation
}

func newGroup(userID int64, date string, interval timeslot.Interval, participants int) *ReservationGroup {
	return &ReservationGroup{
		ID:           uuid.NewString(),
		UserID:       userID,
		Date:         date,
		Interval:     interval,
		Participants: participants,
	}
}

// AddLine adds court to the group. A court may appear once and must be able
// to host the group's participants.
func (g *ReservationGroup) AddLine(court dbgen.Court, quote pricing.Breakdown) error {
	for _, line := range g.Lines {
		if line.Court.ID == court.ID {
			return fmt.Errorf("court %d already in group %s", court.ID, g.ID)
		}
	}
	if err := checkCourt(court, g.Participants); err != nil {
		return err
	}
	g.Lines = append(g.Lines, GroupLine{Court: court, Quote: quote})
	return nil
}

// Total is the aggregate debit for the group.
func (g *ReservationGroup) Total() int64 {
	var total int64
	for _, line := range g.Lines {
		total += line.Quote.Final
	}
	return total
}

func (g *ReservationGroup) Reservations() []dbgen.Reservation {
	out := make([]dbgen.Reservation, 0, len(g.Lines))
	for _, line := range g.Lines {
		out = append(out, line.Reservation)
	}
	return out
}

func (g *ReservationGroup) Courts() []dbgen.Court {
	out := make([]dbgen.Court, 0, len(g.Lines))
	for _, line := range g.Lines {
		out = append(out, line.Court)
	}
	return out
}

type FullVenueRequest struct {
	UserID       int64
	Date         string
	Interval     timeslot.Interval
	Participants int
	// CourtTypes defaults to the configured full-venue court types.
	CourtTypes []string
}

// ReserveFullVenue books one active court of every required type as a single
// group. Any conflict, capacity problem or shortfall leaves no reservation
// and no debit behind.
func (m *Manager) ReserveFullVenue(ctx context.Context, req FullVenueRequest) (Receipt, error) {
	logger := log.Ctx(ctx)

	day, err := m.validateSlot(req.UserID, req.Date, req.Interval, req.Participants)
	if err != nil {
		return Receipt{}, err
	}
	date := timeslot.FormatDate(day)

	courtTypes := normalizeCourtTypes(req.CourtTypes)
	if len(courtTypes) == 0 {
		courtTypes = normalizeCourtTypes(m.cfg.FullVenueCourtTypes)
	}
	if len(courtTypes) == 0 {
		return Receipt{}, FieldError{Field: "court_types", Reason: "at least one court type is required"}
	}

	courtIDs, err := resolveCourts(ctx, m.db.Queries, courtTypes)
	if err != nil {
		return Receipt{}, err
	}

	release, err := m.acquireCourts(ctx, date, courtIDs)
	if err != nil {
		m.recordRejection(err)
		return Receipt{}, err
	}
	defer release()

	group := newGroup(req.UserID, date, req.Interval, req.Participants)
	var balance int64
	err = m.db.RunInTx(ctx, func(tx *db.DB) error {
		q := m.queries(tx)
		now := m.clock.Now().UTC()

		calc, err := m.quoter(ctx, q)
		if err != nil {
			return err
		}
		for _, id := range courtIDs {
			court, priced, err := loadCourt(ctx, q, id)
			if err != nil {
				return err
			}
			if err := group.AddLine(court, calc.Quote(priced, day, req.Interval)); err != nil {
				return err
			}
		}

		for _, line := range group.Lines {
			blocking, err := findConflicts(ctx, q, line.Court.ID, date, req.Interval)
			if err != nil {
				return err
			}
			if len(blocking) > 0 {
				return &ConflictError{CourtID: line.Court.ID, Date: date, Interval: req.Interval, BlockedBy: blocking}
			}
		}

		for i := range group.Lines {
			line := &group.Lines[i]
			created, err := createReservation(ctx, q, draft{
				CourtID:      line.Court.ID,
				UserID:       req.UserID,
				GroupID:      group.ID,
				Date:         date,
				Interval:     req.Interval,
				Participants: req.Participants,
				Quote:        line.Quote,
				Now:          now,
			})
			if err != nil {
				return err
			}
			line.Reservation = created
		}

		remaining, err := m.debit(ctx, q, req.UserID, group.Total(), ledger.GroupReference(group.ID),
			fmt.Sprintf("Full venue %s %s", date, req.Interval), now)
		if err != nil {
			return err
		}
		balance = remaining

		for i := range group.Lines {
			line := &group.Lines[i]
			if err := confirm(ctx, q, line.Reservation.ID, now); err != nil {
				return err
			}
			confirmed, err := q.GetReservation(ctx, line.Reservation.ID)
			if err != nil {
				return fmt.Errorf("reload reservation %d: %w", line.Reservation.ID, err)
			}
			line.Reservation = confirmed
		}
		return nil
	})
	if err != nil {
		m.recordRejection(err)
		return Receipt{}, err
	}

	receipt := Receipt{
		Reservations: group.Reservations(),
		Courts:       group.Courts(),
		GroupID:      group.ID,
		Charged:      group.Total(),
		Balance:      balance,
	}

	m.metrics.IncReservations(KindFullVenue)
	logger.Info().
		Str("component", "booking").
		Str("group_id", group.ID).
		Int("courts", len(group.Lines)).
		Int64("user_id", req.UserID).
		Int64("charged", receipt.Charged).
		Msg("Full venue reservation confirmed")
	notify.Dispatch(ctx, m.notifier, m.event(notify.EventReservationConfirmed, receipt.Reservations, receipt.Courts, receipt.Charged))

	return receipt, nil
}

// resolveCourts picks the lowest-id active court of each type.
func resolveCourts(ctx context.Context, q dbgen.Querier, courtTypes []string) ([]int64, error) {
	ids := make([]int64, 0, len(courtTypes))
	for _, courtType := range courtTypes {
		courts, err := q.ListActiveCourtsByType(ctx, courtType)
		if err != nil {
			return nil, fmt.Errorf("list %s courts: %w", courtType, err)
		}
		if len(courts) == 0 {
			return nil, FieldError{Field: "court_types", Reason: fmt.Sprintf("no active %s court", courtType)}
		}
		ids = append(ids, courts[0].ID)
	}
	return ids, nil
}

func normalizeCourtTypes(courtTypes []string) []string {
	seen := make(map[string]struct{}, len(courtTypes))
	normalized := make([]string, 0, len(courtTypes))
	for _, t := range courtTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		normalized = append(normalized, t)
	}
	return normalized
}

// loadLines returns res and, for a group member, all of its siblings.
func loadLines(ctx context.Context, q dbgen.Querier, res dbgen.Reservation) ([]dbgen.Reservation, string, error) {
	if !res.GroupID.Valid || res.GroupID.String == "" {
		return []dbgen.Reservation{res}, ledger.ReservationReference(res.ID), nil
	}
	lines, err := q.ListReservationsByGroup(ctx, sql.NullString{String: res.GroupID.String, Valid: true})
	if err != nil {
		return nil, "", fmt.Errorf("load group %s: %w", res.GroupID.String, err)
	}
	for _, line := range lines {
		if line.UserID != res.UserID || line.Date != res.Date ||
			line.StartMinute != res.StartMinute || line.EndMinute != res.EndMinute {
			return nil, "", fmt.Errorf("group %s has inconsistent lines", res.GroupID.String)
		}
	}
	return lines, ledger.GroupReference(res.GroupID.String), nil
}
