package realtime

import (
	"errors"
	"sync"
)

// fakeSender records deliveries so tests can assert on fan-out. With fail set
// it rejects every send, standing in for a stale connection whose buffer is
// full or closed.
type fakeSender struct {
	mu     sync.Mutex
	events []sentEvent
	fail   bool
}

type sentEvent struct {
	event   string
	payload any
}

func (f *fakeSender) Send(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("send buffer full")
	}
	f.events = append(f.events, sentEvent{event: event, payload: payload})
	return nil
}

func (f *fakeSender) sent() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentEvent, len(f.events))
	copy(out, f.events)
	return out
}

// byEvent filters recorded deliveries by event name.
func (f *fakeSender) byEvent(event string) []sentEvent {
	var out []sentEvent
	for _, e := range f.sent() {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}
