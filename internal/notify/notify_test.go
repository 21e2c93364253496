package notify

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	dbgen "github.com/codr1/courtsync/internal/db/generated"
)

type sentEmail struct {
	recipient string
	subject   string
	body      string
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeEmailSender) Send(_ context.Context, recipient, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{recipient, subject, body})
	return f.err
}

type fakeUsers map[int64]dbgen.User

func (f fakeUsers) GetUser(_ context.Context, id int64) (dbgen.User, error) {
	user, ok := f[id]
	if !ok {
		return dbgen.User{}, sql.ErrNoRows
	}
	return user, nil
}

type published struct {
	key   string
	value any
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	done     chan struct{}
}

func (f *fakePublisher) PublishJSON(_ context.Context, key string, v any) error {
	f.mu.Lock()
	f.messages = append(f.messages, published{key, v})
	f.mu.Unlock()
	if f.done != nil {
		close(f.done)
	}
	return nil
}

type failingNotifier struct{ err error }

func (f failingNotifier) Notify(context.Context, Event) error { return f.err }

func sampleEvent(eventType EventType) Event {
	return Event{
		Type:           eventType,
		ReservationIDs: []int64{7},
		UserID:         1,
		Courts:         []string{"Court 1"},
		Date:           "2025-03-03",
		Start:          "10:00",
		End:            "11:00",
		Points:         60,
		OccurredAt:     time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestEmailNotifier(t *testing.T) {
	sender := &fakeEmailSender{}
	users := fakeUsers{
		1: {ID: 1, Name: "Ana", Email: sql.NullString{String: "ana@example.com", Valid: true}},
		2: {ID: 2, Name: "Ben"},
	}
	notifier := NewEmailNotifier(sender, users)
	ctx := context.Background()

	if err := notifier.Notify(ctx, sampleEvent(EventReservationCancelled)); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	got := sender.sent[0]
	if got.recipient != "ana@example.com" || got.subject != "Reservation cancelled" {
		t.Fatalf("unexpected email: %+v", got)
	}
	if !strings.Contains(got.body, "Court 1") || !strings.Contains(got.body, "60 points") {
		t.Fatalf("body missing details: %q", got.body)
	}

	noEmail := sampleEvent(EventReservationConfirmed)
	noEmail.UserID = 2
	if err := notifier.Notify(ctx, noEmail); err != nil {
		t.Fatalf("notify user without email: %v", err)
	}
	unknown := sampleEvent(EventReservationConfirmed)
	unknown.UserID = 99
	if err := notifier.Notify(ctx, unknown); err != nil {
		t.Fatalf("notify unknown user: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected no further emails, got %d", len(sender.sent))
	}
}

func TestEventNotifier_RoutesByType(t *testing.T) {
	publisher := &fakePublisher{}
	notifier := NewEventNotifier(publisher)

	event := sampleEvent(EventReservationConfirmed)
	if err := notifier.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(publisher.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(publisher.messages))
	}
	if publisher.messages[0].key != "reservation.confirmed" {
		t.Fatalf("routing key = %q", publisher.messages[0].key)
	}
	if got, ok := publisher.messages[0].value.(Event); !ok || got.ReservationIDs[0] != 7 {
		t.Fatalf("unexpected payload: %#v", publisher.messages[0].value)
	}
}

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	errBroken := errors.New("broken channel")
	publisher := &fakePublisher{}
	multi := Multi{failingNotifier{err: errBroken}, nil, NewEventNotifier(publisher)}

	err := multi.Notify(context.Background(), sampleEvent(EventReservationConfirmed))
	if !errors.Is(err, errBroken) {
		t.Fatalf("error = %v, want joined errBroken", err)
	}
	if len(publisher.messages) != 1 {
		t.Fatalf("later notifier skipped after failure")
	}
}

func TestDispatch_SurvivesCancelledParent(t *testing.T) {
	publisher := &fakePublisher{done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	Dispatch(ctx, NewEventNotifier(publisher), sampleEvent(EventReservationCancelled))
	cancel()

	select {
	case <-publisher.done:
	case <-time.After(time.Second):
		t.Fatalf("event was not delivered")
	}
}
