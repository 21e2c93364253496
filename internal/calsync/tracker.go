// Package calsync keeps the external calendar mirror of reservations up to
// date and removes the events of cancelled reservations.
package calsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/codr1/courtsync/internal/calendar"
	dbgen "github.com/codr1/courtsync/internal/db/generated"
)

const (
	StatusPending = "pending"
	StatusSynced  = "synced"
	StatusFailed  = "failed"
)

// ErrStale means the reservation changed state or version since the caller
// read it. The attempt's result must not be recorded as sync state.
var ErrStale = errors.New("sync state changed concurrently")

var transitions = map[string][]string{
	StatusPending: {StatusPending, StatusSynced, StatusFailed},
	StatusSynced:  {StatusPending},
	StatusFailed:  {StatusPending},
}

// CanTransition reports whether the sync state machine allows from -> to.
// A failed item only recovers through a new attempt, which re-enters pending.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Counts is the operational view of sync state over all reservations.
type Counts struct {
	Pending int64 `json:"pending"`
	Synced  int64 `json:"synced"`
	Failed  int64 `json:"failed"`
	Total   int64 `json:"total"`
}

// Tracker applies sync state transitions as conditional updates, so an
// attempt that raced a reservation change cannot overwrite it.
type Tracker struct {
	q     dbgen.Querier
	clock Clock
}

func NewTracker(q dbgen.Querier, clock Clock) *Tracker {
	if clock == nil {
		clock = realClock{}
	}
	return &Tracker{q: q, clock: clock}
}

// BeginAttempt moves a pending or failed reservation into an attempt and
// returns the version the attempt works against.
func (t *Tracker) BeginAttempt(ctx context.Context, id int64) (int64, error) {
	version, err := t.q.BeginSyncAttempt(ctx, dbgen.BeginSyncAttemptParams{
		LastSyncAttemptAt: sql.NullTime{Time: t.clock.Now().UTC(), Valid: true},
		ID:                id,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrStale
		}
		return 0, fmt.Errorf("begin sync attempt %d: %w", id, err)
	}
	return version, nil
}

// MarkSynced records ids and marks the reservation synced, provided it is
// still pending at version.
func (t *Tracker) MarkSynced(ctx context.Context, id, version int64, ids calendar.EventIDs) error {
	rows, err := t.q.MarkReservationSynced(ctx, dbgen.MarkReservationSyncedParams{
		PublicEventID:  nullString(ids.Public),
		PrivateEventID: nullString(ids.Private),
		ID:             id,
		SyncVersion:    version,
	})
	if err != nil {
		return fmt.Errorf("mark reservation %d synced: %w", id, err)
	}
	if rows == 0 {
		return ErrStale
	}
	return nil
}

func (t *Tracker) MarkFailed(ctx context.Context, id, version int64) error {
	rows, err := t.q.MarkReservationSyncFailed(ctx, dbgen.MarkReservationSyncFailedParams{
		ID:          id,
		SyncVersion: version,
	})
	if err != nil {
		return fmt.Errorf("mark reservation %d failed: %w", id, err)
	}
	if rows == 0 {
		return ErrStale
	}
	return nil
}

// MarkPending flags a mutated reservation for the next pass and bumps its
// version so in-flight attempts become stale.
func (t *Tracker) MarkPending(ctx context.Context, id int64) error {
	rows, err := t.q.MarkReservationSyncPending(ctx, dbgen.MarkReservationSyncPendingParams{
		UpdatedAt: t.clock.Now().UTC(),
		ID:        id,
	})
	if err != nil {
		return fmt.Errorf("mark reservation %d pending: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("mark reservation %d pending: %w", id, sql.ErrNoRows)
	}
	return nil
}

// SaveIDs stores external ids without touching sync state.
func (t *Tracker) SaveIDs(ctx context.Context, id int64, ids calendar.EventIDs) error {
	if _, err := t.q.SaveReservationExternalIDs(ctx, dbgen.SaveReservationExternalIDsParams{
		PublicEventID:  nullString(ids.Public),
		PrivateEventID: nullString(ids.Private),
		ID:             id,
	}); err != nil {
		return fmt.Errorf("save event ids for reservation %d: %w", id, err)
	}
	return nil
}

func (t *Tracker) Counts(ctx context.Context) (Counts, error) {
	row, err := t.q.CountReservationsBySyncStatus(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("count sync status: %w", err)
	}
	return Counts{Pending: row.Pending, Synced: row.Synced, Failed: row.Failed, Total: row.Total}, nil
}

func eventIDs(res dbgen.Reservation) calendar.EventIDs {
	return calendar.EventIDs{Public: res.PublicEventID.String, Private: res.PrivateEventID.String}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
