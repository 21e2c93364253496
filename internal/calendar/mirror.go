package calendar

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Mirror keeps the public and private representations of a reservation in
// step through a single Publisher.
type Mirror struct {
	publisher Publisher
}

func NewMirror(publisher Publisher) *Mirror {
	return &Mirror{publisher: publisher}
}

// Create publishes both representations. If the second write fails the first
// is deleted again; when that delete also fails the surviving id is returned
// alongside the error so the caller can record it.
func (m *Mirror) Create(ctx context.Context, ev Event) (EventIDs, error) {
	var ids EventIDs
	for _, vis := range visibilities {
		id, err := m.publisher.Create(ctx, ev, vis)
		if err != nil {
			return m.compensate(ctx, ev, ids), fmt.Errorf("create %s event: %w", vis, err)
		}
		ids.set(vis, id)
	}
	return ids, nil
}

func (m *Mirror) compensate(ctx context.Context, ev Event, ids EventIDs) EventIDs {
	logger := log.Ctx(ctx)
	for _, vis := range visibilities {
		id := ids.get(vis)
		if id == "" {
			continue
		}
		err := m.publisher.Delete(ctx, id, vis)
		if err == nil || errors.Is(err, ErrEventNotFound) {
			ids.set(vis, "")
			continue
		}
		logger.Warn().
			Err(err).
			Str("component", "calendar").
			Int64("reservation_id", ev.ReservationID).
			Str("event_id", id).
			Msg("Failed to remove partially created event")
	}
	return ids
}

// Update rewrites both representations. A representation with no id, or
// whose id no longer exists remotely, is created. The returned ids reflect
// every successful write even when an error is returned.
func (m *Mirror) Update(ctx context.Context, ids EventIDs, ev Event) (EventIDs, error) {
	out := ids
	for _, vis := range visibilities {
		id := out.get(vis)
		if id != "" {
			updated, err := m.publisher.Update(ctx, id, ev, vis)
			if err == nil {
				out.set(vis, updated)
				continue
			}
			if !errors.Is(err, ErrEventNotFound) {
				return out, fmt.Errorf("update %s event %s: %w", vis, id, err)
			}
		}
		created, err := m.publisher.Create(ctx, ev, vis)
		if err != nil {
			return out, fmt.Errorf("create %s event: %w", vis, err)
		}
		out.set(vis, created)
	}
	return out, nil
}

// Delete removes both representations. An event that is already gone counts
// as deleted. The returned ids hold whatever could not be removed.
func (m *Mirror) Delete(ctx context.Context, ids EventIDs) (EventIDs, error) {
	out := ids
	var errs []error
	for _, vis := range visibilities {
		id := out.get(vis)
		if id == "" {
			continue
		}
		err := m.publisher.Delete(ctx, id, vis)
		if err != nil && !errors.Is(err, ErrEventNotFound) {
			errs = append(errs, fmt.Errorf("delete %s event %s: %w", vis, id, err))
			continue
		}
		out.set(vis, "")
	}
	return out, errors.Join(errs...)
}
