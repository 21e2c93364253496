package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const reservationProperty = "courtsync_reservation_id"

// GoogleCalendar publishes events to two Google calendars, one per
// visibility.
type GoogleCalendar struct {
	service   *gcal.Service
	calendars map[Visibility]string
}

// NewGoogleCalendar builds a publisher for the given calendar ids. opts are
// passed to the API client (credentials, endpoint, HTTP client).
func NewGoogleCalendar(ctx context.Context, publicCalendarID, privateCalendarID string, opts ...option.ClientOption) (*GoogleCalendar, error) {
	if publicCalendarID == "" || privateCalendarID == "" {
		return nil, fmt.Errorf("public and private calendar ids are required")
	}
	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &GoogleCalendar{
		service: service,
		calendars: map[Visibility]string{
			VisibilityPublic:  publicCalendarID,
			VisibilityPrivate: privateCalendarID,
		},
	}, nil
}

func (g *GoogleCalendar) Create(ctx context.Context, ev Event, vis Visibility) (string, error) {
	created, err := g.service.Events.Insert(g.calendars[vis], render(ev, vis)).Context(ctx).Do()
	if err != nil {
		return "", translate(err)
	}
	return created.Id, nil
}

func (g *GoogleCalendar) Update(ctx context.Context, id string, ev Event, vis Visibility) (string, error) {
	updated, err := g.service.Events.Update(g.calendars[vis], id, render(ev, vis)).Context(ctx).Do()
	if err != nil {
		return "", translate(err)
	}
	return updated.Id, nil
}

func (g *GoogleCalendar) Delete(ctx context.Context, id string, vis Visibility) error {
	if err := g.service.Events.Delete(g.calendars[vis], id).Context(ctx).Do(); err != nil {
		return translate(err)
	}
	return nil
}

func render(ev Event, vis Visibility) *gcal.Event {
	out := &gcal.Event{
		Summary:     ev.Summary(vis),
		Description: ev.Description(vis),
		Location:    ev.CourtName,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339)},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{reservationProperty: strconv.FormatInt(ev.ReservationID, 10)},
		},
	}
	if vis == VisibilityPublic {
		out.Visibility = "public"
	} else {
		out.Visibility = "private"
	}
	return out
}

// translate maps missing and deleted events onto ErrEventNotFound.
func translate(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return fmt.Errorf("%w: %v", ErrEventNotFound, err)
	}
	return err
}
