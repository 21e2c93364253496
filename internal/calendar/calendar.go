// Package calendar mirrors reservations onto external calendars. Every
// reservation has a public event, stripped of personal data, and a private
// event for staff.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEventNotFound is returned by a Publisher when the remote event is gone.
var ErrEventNotFound = errors.New("calendar event not found")

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Event is the provider-independent view of a reservation.
type Event struct {
	ReservationID int64
	GroupID       string
	CourtName     string
	Start         time.Time
	End           time.Time
	Participants  int
	BookerName    string
	BookerEmail   string
}

// Summary is the event title for vis. Public events never carry the booker.
func (e Event) Summary(vis Visibility) string {
	if vis == VisibilityPublic {
		return fmt.Sprintf("%s: booked", e.CourtName)
	}
	return fmt.Sprintf("%s: %s (%d players)", e.CourtName, e.BookerName, e.Participants)
}

// Description is empty for public events.
func (e Event) Description(vis Visibility) string {
	if vis == VisibilityPublic {
		return ""
	}
	desc := fmt.Sprintf("Reservation %d\nBooker: %s", e.ReservationID, e.BookerName)
	if e.BookerEmail != "" {
		desc += fmt.Sprintf(" <%s>", e.BookerEmail)
	}
	if e.GroupID != "" {
		desc += "\nFull venue group: " + e.GroupID
	}
	return desc
}

// Publisher writes one representation of an event to the calendar for vis.
type Publisher interface {
	Create(ctx context.Context, ev Event, vis Visibility) (string, error)
	// Update returns ErrEventNotFound when id no longer exists.
	Update(ctx context.Context, id string, ev Event, vis Visibility) (string, error)
	// Delete returns ErrEventNotFound when id no longer exists.
	Delete(ctx context.Context, id string, vis Visibility) error
}

// EventIDs are the external ids stored on a reservation.
type EventIDs struct {
	Public  string
	Private string
}

func (ids EventIDs) Empty() bool { return ids.Public == "" && ids.Private == "" }

func (ids EventIDs) get(vis Visibility) string {
	if vis == VisibilityPublic {
		return ids.Public
	}
	return ids.Private
}

func (ids *EventIDs) set(vis Visibility, id string) {
	if vis == VisibilityPublic {
		ids.Public = id
		return
	}
	ids.Private = id
}

var visibilities = []Visibility{VisibilityPublic, VisibilityPrivate}
