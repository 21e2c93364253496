// Package notify delivers fire-and-forget reservation notifications.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventReservationConfirmed EventType = "reservation.confirmed"
	EventReservationCancelled EventType = "reservation.cancelled"
)

// Event describes a committed booking change. A full-venue booking produces
// one event listing every court in the group.
type Event struct {
	Type           EventType `json:"type"`
	ReservationIDs []int64   `json:"reservation_ids"`
	GroupID        string    `json:"group_id,omitempty"`
	UserID         int64     `json:"user_id"`
	Courts         []string  `json:"courts"`
	Date           string    `json:"date"`
	Start          string    `json:"start"`
	End            string    `json:"end"`
	Points         int64     `json:"points"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Notifier delivers an event to one channel.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const dispatchTimeout = 5 * time.Second

// Dispatch sends event in the background. Failures are logged and never
// reach the caller; the request context's cancellation is detached so a
// finished handler does not abort delivery.
func Dispatch(ctx context.Context, n Notifier, event Event) {
	if n == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	go func() {
		defer cancel()
		if err := n.Notify(sendCtx, event); err != nil {
			logger := log.Ctx(sendCtx)
			logger.Error().
				Err(err).
				Str("component", "notify").
				Str("event_type", string(event.Type)).
				Ints64("reservation_ids", event.ReservationIDs).
				Msg("Failed to deliver reservation notification")
		}
	}()
}
