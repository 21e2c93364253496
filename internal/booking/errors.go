package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codr1/courtsync/internal/ledger"
	"github.com/codr1/courtsync/internal/timeslot"
)

var (
	ErrConflict     = errors.New("reservation conflict")
	ErrNotFound     = errors.New("reservation not found")
	ErrInvalidState = errors.New("invalid reservation state")
	ErrCutoffPassed = errors.New("cancellation cutoff passed")
	ErrForbidden    = errors.New("reservation belongs to another user")
	// ErrCourtBusy means the per-court lease could not be taken in time.
	ErrCourtBusy = errors.New("court is busy")

	ErrInsufficientBalance = ledger.ErrInsufficientBalance
)

// FieldError rejects a request field before any storage work happens.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ConflictError names the blocking reservations on a court.
type ConflictError struct {
	CourtID  int64
	Date     string
	Interval timeslot.Interval
	// BlockedBy is empty when the storage trigger caught the overlap.
	BlockedBy []int64
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("court %d is already booked on %s %s", e.CourtID, e.Date, e.Interval)
	if len(e.BlockedBy) == 0 {
		return msg
	}
	ids := make([]string, len(e.BlockedBy))
	for i, id := range e.BlockedBy {
		ids[i] = fmt.Sprint(id)
	}
	return msg + " (reservations " + strings.Join(ids, ", ") + ")"
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// InvalidStateError reports an operation the reservation's status forbids.
type InvalidStateError struct {
	ReservationID int64
	Status        string
	Action        string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s reservation %d in status %s", e.Action, e.ReservationID, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// CutoffError reports a member cancellation attempted after the deadline.
type CutoffError struct {
	StartsAt time.Time
	Deadline time.Time
}

func (e *CutoffError) Error() string {
	return fmt.Sprintf("cancellation deadline %s has passed", e.Deadline.Format(time.RFC3339))
}

func (e *CutoffError) Unwrap() error { return ErrCutoffPassed }
