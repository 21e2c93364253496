package calsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtsync/internal/calendar"
	"github.com/codr1/courtsync/internal/db"
	dbgen "github.com/codr1/courtsync/internal/db/generated"
	"github.com/codr1/courtsync/internal/lock"
	"github.com/codr1/courtsync/internal/metrics"
	"github.com/codr1/courtsync/internal/timeslot"
)

// ErrRunInProgress is returned when another pass holds the run guard.
var ErrRunInProgress = errors.New("reconciliation run already in progress")

// ErrNoCalendar is returned by mirroring operations when no calendar
// provider is configured.
var ErrNoCalendar = errors.New("no calendar provider configured")

// Window bounds which reservation dates a pass selects.
type Window string

const (
	WindowToday Window = "today"
	WindowMonth Window = "month"
	WindowAll   Window = "all"
)

const (
	monthDays        = 31
	defaultRunTTL    = 10 * time.Minute
	defaultSweepSize = 500
	// A guarded pass stops once 9/10 of the lease has elapsed.
	guardMarginDivisor = 10
)

// ParseWindow accepts the names used by the CLI and HTTP surface.
func ParseWindow(value string) (Window, error) {
	switch w := Window(value); w {
	case WindowToday, WindowMonth, WindowAll:
		return w, nil
	default:
		return "", fmt.Errorf("unknown sync window %q", value)
	}
}

// Range returns the inclusive date bounds of w for a pass starting at now.
func (w Window) Range(now time.Time, loc *time.Location) (string, string) {
	today := now.In(loc)
	switch w {
	case WindowToday:
		return timeslot.FormatDate(today), timeslot.FormatDate(today)
	case WindowMonth:
		return timeslot.FormatDate(today), timeslot.FormatDate(today.AddDate(0, 0, monthDays))
	default:
		return "0000-01-01", "9999-12-31"
	}
}

// RunReport summarizes one reconciliation pass.
type RunReport struct {
	Window      Window        `json:"window"`
	Selected    int           `json:"selected"`
	Synced      int           `json:"synced"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Swept       int           `json:"swept"`
	SweepFailed int           `json:"sweep_failed"`
	Duration    time.Duration `json:"duration"`
}

type Option func(*Engine)

func WithLocker(locker lock.Locker) Option {
	return func(e *Engine) { e.locker = locker }
}

func WithMetrics(mt metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = mt }
}

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithRunLeaseTTL bounds how long a crashed pass can block the next one.
func WithRunLeaseTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.runTTL = ttl
		}
	}
}

// Engine reconciles reservations with the external calendar.
type Engine struct {
	db      *db.DB
	mirror  *calendar.Mirror
	tracker *Tracker
	locker  lock.Locker
	metrics metrics.Metrics
	clock   Clock
	loc     *time.Location
	runTTL  time.Duration
}

func NewEngine(database *db.DB, mirror *calendar.Mirror, opts ...Option) *Engine {
	e := &Engine{
		db:      database,
		mirror:  mirror,
		metrics: metrics.Nop{},
		clock:   realClock{},
		loc:     time.UTC,
		runTTL:  defaultRunTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.locker == nil {
		e.locker = lock.NewLocalLocker(e.clock)
	}
	e.tracker = NewTracker(database.Queries, e.clock)
	return e
}

func (e *Engine) Tracker() *Tracker { return e.tracker }

// Run performs one guarded pass over window: sync pending and failed
// reservations, then sweep cancelled ones. Item failures are recorded and
// logged; only guard and selection errors are returned.
func (e *Engine) Run(ctx context.Context, window Window) (RunReport, error) {
	return e.guarded(ctx, window, nil)
}

// ForceResync marks every confirmed reservation pending and runs a full pass.
func (e *Engine) ForceResync(ctx context.Context) (RunReport, error) {
	return e.guarded(ctx, WindowAll, func(ctx context.Context) error {
		n, err := e.db.Queries.MarkConfirmedReservationsSyncPending(ctx, e.clock.Now().UTC())
		if err != nil {
			return fmt.Errorf("mark reservations pending: %w", err)
		}
		logger := log.Ctx(ctx)
		logger.Info().Str("component", "calsync").Int64("reservations", n).Msg("Forced resync requested")
		return nil
	})
}

func (e *Engine) guarded(ctx context.Context, window Window, before func(context.Context) error) (RunReport, error) {
	if e.mirror == nil {
		return RunReport{Window: window}, ErrNoCalendar
	}
	ctx, release, err := e.acquireGuard(ctx, string(window))
	if err != nil {
		return RunReport{Window: window}, err
	}
	defer release()

	if before != nil {
		if err := before(ctx); err != nil {
			return RunReport{Window: window}, err
		}
	}
	return e.pass(ctx, window)
}

// acquireGuard takes the run guard. The returned context expires before the
// lease does, so a slow pass stops between items instead of overlapping the
// next holder.
func (e *Engine) acquireGuard(ctx context.Context, scope string) (context.Context, func(), error) {
	logger := log.Ctx(ctx)

	lease, ok, err := e.locker.TryAcquire(ctx, lock.SyncRunKey, e.runTTL)
	if err != nil {
		return ctx, nil, fmt.Errorf("acquire sync run guard: %w", err)
	}
	if !ok {
		logger.Info().Str("component", "calsync").Str("scope", scope).Msg("Sync skipped: another run is active")
		return ctx, nil, ErrRunInProgress
	}

	guardCtx, cancel := context.WithTimeout(ctx, e.runTTL-e.runTTL/guardMarginDivisor)
	release := func() {
		cancel()
		if err := e.locker.Release(context.WithoutCancel(ctx), lease); err != nil {
			logger.Warn().Err(err).Str("component", "calsync").Msg("Failed to release sync run guard")
		}
	}
	return guardCtx, release, nil
}

func (e *Engine) pass(ctx context.Context, window Window) (RunReport, error) {
	logger := log.Ctx(ctx)
	started := e.clock.Now()
	report := RunReport{Window: window}

	from, to := window.Range(started, e.loc)
	pending, err := e.db.Queries.ListReservationsForSync(ctx, dbgen.ListReservationsForSyncParams{
		FromDate: from,
		ToDate:   to,
	})
	if err != nil {
		return report, fmt.Errorf("select reservations for sync: %w", err)
	}
	report.Selected = len(pending)

	for _, res := range pending {
		if ctx.Err() != nil {
			break
		}
		switch err := e.sync(ctx, res); {
		case err == nil:
			report.Synced++
		case errors.Is(err, ErrStale):
			report.Skipped++
		default:
			report.Failed++
			logger.Error().
				Err(err).
				Str("component", "calsync").
				Int64("reservation_id", res.ID).
				Msg("Failed to sync reservation")
		}
	}

	if ctx.Err() == nil {
		swept, sweepFailed, err := e.SweepCancelled(ctx)
		report.Swept = swept
		report.SweepFailed = sweepFailed
		if err != nil {
			logger.Error().Err(err).Str("component", "calsync").Msg("Tombstone sweep failed")
		}
	} else {
		logger.Warn().Err(ctx.Err()).Str("component", "calsync").Msg("Sync run stopped early; sweep deferred to the next run")
	}

	report.Duration = e.clock.Now().Sub(started)
	e.record(context.WithoutCancel(ctx), report)

	logger.Info().
		Str("component", "calsync").
		Str("window", string(window)).
		Int("selected", report.Selected).
		Int("synced", report.Synced).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Int("swept", report.Swept).
		Int("sweep_failed", report.SweepFailed).
		Dur("duration", report.Duration).
		Msg("Sync run completed")
	return report, nil
}

func (e *Engine) record(ctx context.Context, report RunReport) {
	e.metrics.ObserveSyncRun(string(report.Window), report.Duration.Seconds())
	e.metrics.AddSyncOutcome("synced", report.Synced)
	e.metrics.AddSyncOutcome("failed", report.Failed)
	e.metrics.AddSyncOutcome("skipped", report.Skipped)
	e.metrics.AddSyncOutcome("swept", report.Swept)
	e.metrics.AddSyncOutcome("sweep_failed", report.SweepFailed)

	counts, err := e.tracker.Counts(ctx)
	if err != nil {
		logger := log.Ctx(ctx)
		logger.Warn().Err(err).Str("component", "calsync").Msg("Failed to refresh sync status gauges")
		return
	}
	e.metrics.SetSyncStatus(counts.Pending, counts.Synced, counts.Failed)
}

// SyncOne mirrors a single confirmed reservation. A reservation without
// external ids is created; otherwise its events are updated, so repeating
// the call on a synced reservation never duplicates events. Cancelled and
// closed reservations are left to the sweep. It shares the run guard with
// passes and returns ErrRunInProgress while one is active.
func (e *Engine) SyncOne(ctx context.Context, id int64) error {
	if e.mirror == nil {
		return ErrNoCalendar
	}
	ctx, release, err := e.acquireGuard(ctx, "reservation")
	if err != nil {
		return err
	}
	defer release()

	res, err := e.db.Queries.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reservation %d: %w", id, sql.ErrNoRows)
		}
		return fmt.Errorf("load reservation %d: %w", id, err)
	}
	if res.Status != "confirmed" {
		return nil
	}
	return e.sync(ctx, res)
}

func (e *Engine) sync(ctx context.Context, res dbgen.Reservation) error {
	ev, err := e.event(ctx, res)
	if err != nil {
		return err
	}
	ids := eventIDs(res)

	if res.SyncStatus == StatusSynced {
		// Refresh only; the row keeps its state unless ids moved.
		updated, err := e.mirror.Update(ctx, ids, ev)
		if updated != ids {
			if saveErr := e.tracker.SaveIDs(context.WithoutCancel(ctx), res.ID, updated); saveErr != nil {
				return errors.Join(err, saveErr)
			}
		}
		return err
	}

	version, err := e.tracker.BeginAttempt(ctx, res.ID)
	if err != nil {
		return err
	}

	// Results of remote writes are recorded even if ctx expires meanwhile.
	store := context.WithoutCancel(ctx)

	var out calendar.EventIDs
	if ids.Empty() {
		out, err = e.mirror.Create(ctx, ev)
	} else {
		out, err = e.mirror.Update(ctx, ids, ev)
	}
	if err != nil {
		if out != ids {
			if saveErr := e.tracker.SaveIDs(store, res.ID, out); saveErr != nil {
				err = errors.Join(err, saveErr)
			}
		}
		if markErr := e.tracker.MarkFailed(store, res.ID, version); markErr != nil && !errors.Is(markErr, ErrStale) {
			err = errors.Join(err, markErr)
		}
		return err
	}

	if err := e.tracker.MarkSynced(store, res.ID, version, out); err != nil {
		if !errors.Is(err, ErrStale) {
			return err
		}
		if err := e.settleStale(store, res.ID, out); err != nil {
			return err
		}
		return ErrStale
	}
	return nil
}

// settleStale reconciles the ids written by a superseded attempt with the
// ids the row holds now. A representation the row lacks is adopted so the
// next pass or the sweep finds it; one that duplicates a stored event is
// deleted, since nothing would ever reference it again.
func (e *Engine) settleStale(ctx context.Context, id int64, out calendar.EventIDs) error {
	cur, err := e.db.Queries.GetReservation(ctx, id)
	if err != nil {
		return fmt.Errorf("reload reservation %d: %w", id, err)
	}
	stored := eventIDs(cur)

	keep := stored
	var dup calendar.EventIDs
	if stored.Public == "" {
		keep.Public = out.Public
	} else if out.Public != stored.Public {
		dup.Public = out.Public
	}
	if stored.Private == "" {
		keep.Private = out.Private
	} else if out.Private != stored.Private {
		dup.Private = out.Private
	}

	if !dup.Empty() {
		if left, err := e.mirror.Delete(ctx, dup); err != nil {
			logger := log.Ctx(ctx)
			logger.Error().
				Err(err).
				Str("component", "calsync").
				Int64("reservation_id", id).
				Str("public_event_id", left.Public).
				Str("private_event_id", left.Private).
				Msg("Failed to delete duplicate events")
			return fmt.Errorf("delete duplicate events of reservation %d: %w", id, err)
		}
	}
	if keep != stored {
		if err := e.tracker.SaveIDs(ctx, id, keep); err != nil {
			return err
		}
	}
	return nil
}

// SweepCancelled deletes the external events of cancelled reservations.
// Ids are cleared only after a successful delete; a failed delete keeps them
// so the next sweep retries. Returns the number swept and the number failed.
func (e *Engine) SweepCancelled(ctx context.Context) (int, int, error) {
	logger := log.Ctx(ctx)
	if e.mirror == nil {
		return 0, 0, ErrNoCalendar
	}
	now := sql.NullTime{Time: e.clock.Now().UTC(), Valid: true}

	cancelled, err := e.db.Queries.ListCancelledWithExternalIDs(ctx, defaultSweepSize)
	if err != nil {
		return 0, 0, fmt.Errorf("select cancelled reservations: %w", err)
	}

	var swept, failed int
	for _, res := range cancelled {
		if ctx.Err() != nil {
			break
		}
		ids := eventIDs(res)
		left, err := e.mirror.Delete(ctx, ids)
		if err != nil {
			failed++
			if left != ids {
				if saveErr := e.tracker.SaveIDs(context.WithoutCancel(ctx), res.ID, left); saveErr != nil {
					err = errors.Join(err, saveErr)
				}
			}
			logger.Error().
				Err(err).
				Str("component", "calsync").
				Int64("reservation_id", res.ID).
				Msg("Failed to delete events of cancelled reservation")
			continue
		}
		if _, err := e.db.Queries.ClearReservationExternalIDs(context.WithoutCancel(ctx), dbgen.ClearReservationExternalIDsParams{
			LastSyncAttemptAt: now,
			ID:                res.ID,
		}); err != nil {
			failed++
			logger.Error().
				Err(err).
				Str("component", "calsync").
				Int64("reservation_id", res.ID).
				Msg("Failed to clear event ids of cancelled reservation")
			continue
		}
		swept++
	}

	if _, err := e.db.Queries.SettleCancelledWithoutExternalIDs(ctx, now); err != nil {
		return swept, failed, fmt.Errorf("settle cancelled reservations: %w", err)
	}
	return swept, failed, nil
}

func (e *Engine) event(ctx context.Context, res dbgen.Reservation) (calendar.Event, error) {
	court, err := e.db.Queries.GetCourt(ctx, res.CourtID)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("load court %d: %w", res.CourtID, err)
	}
	user, err := e.db.Queries.GetUser(ctx, res.UserID)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("load user %d: %w", res.UserID, err)
	}
	day, err := timeslot.ParseDate(res.Date, e.loc)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("parse reservation date %q: %w", res.Date, err)
	}
	start, end := timeslot.Interval{Start: int(res.StartMinute), End: int(res.EndMinute)}.On(day, e.loc)

	return calendar.Event{
		ReservationID: res.ID,
		GroupID:       res.GroupID.String,
		CourtName:     court.Name,
		Start:         start,
		End:           end,
		Participants:  int(res.Participants),
		BookerName:    user.Name,
		BookerEmail:   user.Email.String,
	}, nil
}

// Status reports the sync counts.
func (e *Engine) Status(ctx context.Context) (Counts, error) {
	return e.tracker.Counts(ctx)
}
