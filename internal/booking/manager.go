// Package booking creates, cancels and closes court reservations.
//
// Every write runs in one SQLite transaction (BEGIN IMMEDIATE) while holding
// a lease per court and day. The reservations_no_overlap triggers are the
// final guard; their error surfaces as a ConflictError.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtsync/internal/db"
	dbgen "github.com/codr1/courtsync/internal/db/generated"
	"github.com/codr1/courtsync/internal/ledger"
	"github.com/codr1/courtsync/internal/lock"
	"github.com/codr1/courtsync/internal/metrics"
	"github.com/codr1/courtsync/internal/notify"
	"github.com/codr1/courtsync/internal/pricing"
	"github.com/codr1/courtsync/internal/timeslot"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusNoShow    = "no_show"

	KindSingle    = "single"
	KindFullVenue = "full_venue"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Actor is the user on whose authority an operation runs.
type Actor struct {
	UserID int64
	Role   Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

func (a Actor) String() string {
	role := a.Role
	if role == "" {
		role = RoleMember
	}
	return fmt.Sprintf("%s:%d", role, a.UserID)
}

type Config struct {
	Location *time.Location
	// CancellationCutoff is how long before start a member may still cancel.
	CancellationCutoff time.Duration
	// LateRefundPercent applies when an admin cancels past the cutoff with
	// ApplyPolicy set.
	LateRefundPercent   int64
	FullVenueCourtTypes []string
	LeaseTTL            time.Duration
}

type Option func(*Manager)

// WithLocker replaces the in-process court lease. Passing nil disables leases
// and leaves overlap protection to the transaction and the storage trigger.
func WithLocker(locker lock.Locker) Option {
	return func(m *Manager) { m.locker = locker }
}

func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

func WithMetrics(mt metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

type Manager struct {
	db       *db.DB
	pricing  *pricing.Calculator
	cfg      Config
	locker   lock.Locker
	notifier notify.Notifier
	metrics  metrics.Metrics
	clock    Clock

	// wrapQueries lets tests inject storage faults inside the transaction.
	wrapQueries func(dbgen.Querier) dbgen.Querier
}

func NewManager(database *db.DB, calculator *pricing.Calculator, cfg Config, opts ...Option) *Manager {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 10 * time.Second
	}
	if calculator == nil {
		calculator = pricing.NewCalculator(nil)
	}
	m := &Manager{
		db:       database,
		pricing:  calculator,
		cfg:      cfg,
		locker:   lock.NewLocalLocker(nil),
		notifier: notify.Nop{},
		metrics:  metrics.Nop{},
		clock:    realClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Receipt is the outcome of a committed booking.
type Receipt struct {
	Reservations []dbgen.Reservation
	Courts       []dbgen.Court
	GroupID      string
	Charged      int64
	Balance      int64
}

type SingleRequest struct {
	CourtID      int64
	UserID       int64
	Date         string
	Interval     timeslot.Interval
	Participants int
}

// ReserveSingle books one court. The conflict re-check, the debit and the
// confirmed reservation commit together or not at all.
func (m *Manager) ReserveSingle(ctx context.Context, req SingleRequest) (Receipt, error) {
	logger := log.Ctx(ctx)

	if req.CourtID <= 0 {
		return Receipt{}, FieldError{Field: "court_id", Reason: "must be a positive integer"}
	}
	day, err := m.validateSlot(req.UserID, req.Date, req.Interval, req.Participants)
	if err != nil {
		return Receipt{}, err
	}
	date := timeslot.FormatDate(day)

	release, err := m.acquireCourts(ctx, date, []int64{req.CourtID})
	if err != nil {
		m.recordRejection(err)
		return Receipt{}, err
	}
	defer release()

	var receipt Receipt
	err = m.db.RunInTx(ctx, func(tx *db.DB) error {
		q := m.queries(tx)
		now := m.clock.Now().UTC()

		court, priced, err := loadCourt(ctx, q, req.CourtID)
		if err != nil {
			return err
		}
		if err := checkCourt(court, req.Participants); err != nil {
			return err
		}
		if blocking, err := findConflicts(ctx, q, court.ID, date, req.Interval); err != nil {
			return err
		} else if len(blocking) > 0 {
			return &ConflictError{CourtID: court.ID, Date: date, Interval: req.Interval, BlockedBy: blocking}
		}

		calc, err := m.quoter(ctx, q)
		if err != nil {
			return err
		}
		quote := calc.Quote(priced, day, req.Interval)
		created, err := createReservation(ctx, q, draft{
			CourtID:      court.ID,
			UserID:       req.UserID,
			Date:         date,
			Interval:     req.Interval,
			Participants: req.Participants,
			Quote:        quote,
			Now:          now,
		})
		if err != nil {
			return err
		}

		balance, err := m.debit(ctx, q, req.UserID, quote.Final, ledger.ReservationReference(created.ID),
			fmt.Sprintf("%s %s %s", court.Name, date, req.Interval), now)
		if err != nil {
			return err
		}

		if err := confirm(ctx, q, created.ID, now); err != nil {
			return err
		}
		confirmed, err := q.GetReservation(ctx, created.ID)
		if err != nil {
			return fmt.Errorf("reload reservation %d: %w", created.ID, err)
		}

		receipt = Receipt{
			Reservations: []dbgen.Reservation{confirmed},
			Courts:       []dbgen.Court{court},
			Charged:      quote.Final,
			Balance:      balance,
		}
		return nil
	})
	if err != nil {
		m.recordRejection(err)
		return Receipt{}, err
	}

	m.metrics.IncReservations(KindSingle)
	logger.Info().
		Str("component", "booking").
		Int64("reservation_id", receipt.Reservations[0].ID).
		Int64("court_id", req.CourtID).
		Int64("user_id", req.UserID).
		Int64("charged", receipt.Charged).
		Msg("Reservation confirmed")
	notify.Dispatch(ctx, m.notifier, m.event(notify.EventReservationConfirmed, receipt.Reservations, receipt.Courts, receipt.Charged))

	return receipt, nil
}

// Get returns a reservation by id.
func (m *Manager) Get(ctx context.Context, id int64) (dbgen.Reservation, error) {
	res, err := m.db.Queries.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Reservation{}, ErrNotFound
		}
		return dbgen.Reservation{}, fmt.Errorf("load reservation %d: %w", id, err)
	}
	return res, nil
}

// ListGroup returns every line of a full-venue group in id order.
func (m *Manager) ListGroup(ctx context.Context, groupID string) ([]dbgen.Reservation, error) {
	lines, err := m.db.Queries.ListReservationsByGroup(ctx, sql.NullString{String: groupID, Valid: groupID != ""})
	if err != nil {
		return nil, fmt.Errorf("list group %s: %w", groupID, err)
	}
	if len(lines) == 0 {
		return nil, ErrNotFound
	}
	return lines, nil
}

// StartTime returns when res begins in the facility time zone.
func (m *Manager) StartTime(res dbgen.Reservation) (time.Time, time.Time, error) {
	day, err := timeslot.ParseDate(res.Date, m.cfg.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse reservation date %q: %w", res.Date, err)
	}
	start, end := timeslot.Interval{Start: int(res.StartMinute), End: int(res.EndMinute)}.On(day, m.cfg.Location)
	return start, end, nil
}

func (m *Manager) queries(tx *db.DB) dbgen.Querier {
	var q dbgen.Querier = tx.Queries
	if m.wrapQueries != nil {
		q = m.wrapQueries(q)
	}
	return q
}

// validateSlot checks the parts of a request shared by every booking kind
// and returns the booking day in the facility time zone.
func (m *Manager) validateSlot(userID int64, date string, interval timeslot.Interval, participants int) (time.Time, error) {
	if userID <= 0 {
		return time.Time{}, FieldError{Field: "user_id", Reason: "must be a positive integer"}
	}
	day, err := timeslot.ParseDate(date, m.cfg.Location)
	if err != nil {
		return time.Time{}, FieldError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if err := interval.Validate(); err != nil {
		return time.Time{}, FieldError{Field: "interval", Reason: err.Error()}
	}
	if participants <= 0 {
		return time.Time{}, FieldError{Field: "participants", Reason: "must be greater than 0"}
	}
	start, _ := interval.On(day, m.cfg.Location)
	if !start.After(m.clock.Now()) {
		return time.Time{}, FieldError{Field: "date", Reason: "must be in the future"}
	}
	return day, nil
}

// acquireCourts leases every court in id order and returns a func that
// releases them in reverse.
func (m *Manager) acquireCourts(ctx context.Context, date string, courtIDs []int64) (func(), error) {
	if m.locker == nil {
		return func() {}, nil
	}

	ids := slices.Clone(courtIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	var leases []lock.Lease
	release := func() {
		releaseCtx := context.WithoutCancel(ctx)
		for i := len(leases) - 1; i >= 0; i-- {
			if err := m.locker.Release(releaseCtx, leases[i]); err != nil && !errors.Is(err, lock.ErrNotHeld) {
				logger := log.Ctx(ctx)
				logger.Warn().Err(err).Str("lease", leases[i].Key).Msg("Failed to release court lease")
			}
		}
	}

	for _, id := range ids {
		lease, err := lock.Acquire(ctx, m.locker, lock.CourtKey(id, date), m.cfg.LeaseTTL, m.cfg.LeaseTTL)
		if err != nil {
			release()
			if errors.Is(err, lock.ErrTimeout) {
				return nil, ErrCourtBusy
			}
			return nil, fmt.Errorf("lease court %d: %w", id, err)
		}
		leases = append(leases, lease)
	}
	return release, nil
}

// debit charges amount and returns the resulting balance. Free bookings
// touch the ledger only to report the balance.
func (m *Manager) debit(ctx context.Context, q dbgen.Querier, userID, amount int64, reference, description string, now time.Time) (int64, error) {
	if amount <= 0 {
		account, err := q.GetBalanceAccount(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, nil
			}
			return 0, fmt.Errorf("load balance: %w", err)
		}
		return account.Balance, nil
	}
	result, err := ledger.Debit(ctx, q, ledger.Entry{
		UserID:      userID,
		Amount:      amount,
		Description: description,
		Reference:   reference,
		At:          now,
	})
	if err != nil {
		return 0, err
	}
	return result.Account.Balance, nil
}

func (m *Manager) recordRejection(err error) {
	switch {
	case errors.Is(err, ErrConflict):
		m.metrics.IncBookingRejected("conflict")
	case errors.Is(err, ErrInsufficientBalance):
		m.metrics.IncBookingRejected("insufficient_balance")
	case errors.Is(err, ErrCourtBusy):
		m.metrics.IncBookingRejected("court_busy")
	}
}

func (m *Manager) event(eventType notify.EventType, lines []dbgen.Reservation, courts []dbgen.Court, points int64) notify.Event {
	names := make(map[int64]string, len(courts))
	for _, court := range courts {
		names[court.ID] = court.Name
	}

	event := notify.Event{
		Type:       eventType,
		Points:     points,
		OccurredAt: m.clock.Now().UTC(),
	}
	for _, line := range lines {
		event.ReservationIDs = append(event.ReservationIDs, line.ID)
		event.Courts = append(event.Courts, names[line.CourtID])
	}
	if len(lines) > 0 {
		first := lines[0]
		event.UserID = first.UserID
		event.GroupID = first.GroupID.String
		event.Date = first.Date
		event.Start = timeslot.FormatClock(int(first.StartMinute))
		event.End = timeslot.FormatClock(int(first.EndMinute))
	}
	return event
}
