package calendar

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Publisher. It backs the "memory" provider used in
// development and records every call for inspection.
type Memory struct {
	mu     sync.Mutex
	seq    int
	events map[string]StoredEvent
	calls  map[string]int
	// fail makes the next matching calls return the error.
	fail map[string]error
}

type StoredEvent struct {
	ID         string
	Visibility Visibility
	Summary    string
	Event      Event
}

func NewMemory() *Memory {
	return &Memory{
		events: make(map[string]StoredEvent),
		calls:  make(map[string]int),
		fail:   make(map[string]error),
	}
}

// FailOn makes every call to op ("create", "update", "delete") fail with err
// until cleared with a nil err. op may be narrowed to one visibility, as in
// "create:private".
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// Calls reports how many times op was invoked, failures included.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Event returns a stored event by id.
func (m *Memory) Event(id string) (StoredEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	return ev, ok
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Forget drops an event as if it had been removed remotely.
func (m *Memory) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, id)
}

func (m *Memory) Create(_ context.Context, ev Event, vis Visibility) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["create"]++
	if err := m.failure("create", vis); err != nil {
		return "", err
	}
	m.seq++
	id := fmt.Sprintf("%s-%d", vis, m.seq)
	m.events[id] = StoredEvent{ID: id, Visibility: vis, Summary: ev.Summary(vis), Event: ev}
	return id, nil
}

func (m *Memory) Update(_ context.Context, id string, ev Event, vis Visibility) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["update"]++
	if err := m.failure("update", vis); err != nil {
		return "", err
	}
	if _, ok := m.events[id]; !ok {
		return "", ErrEventNotFound
	}
	m.events[id] = StoredEvent{ID: id, Visibility: vis, Summary: ev.Summary(vis), Event: ev}
	return id, nil
}

func (m *Memory) Delete(_ context.Context, id string, vis Visibility) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["delete"]++
	if err := m.failure("delete", vis); err != nil {
		return err
	}
	if _, ok := m.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *Memory) failure(op string, vis Visibility) error {
	if err := m.fail[op+":"+string(vis)]; err != nil {
		return err
	}
	return m.fail[op]
}
