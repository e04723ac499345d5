package httpapi

import (
	"sync"
	"time"
)

// Event is one entry on the live activity feed: uploads arriving, captures
// expiring, responses being spoken.
type Event struct {
	Type   string    `json:"type"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// eventHub fans events out to connected websocket clients. Publish never
// blocks; a client that cannot keep up misses events rather than stalling
// the upload path.
type eventHub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan Event]struct{})}
}

func (h *eventHub) Subscribe() chan Event {
	ch := make(chan Event, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *eventHub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *eventHub) Publish(evtType, detail string) {
	ev := Event{Type: evtType, Detail: detail, At: time.Now().UTC()}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Drop for slow consumers.
		}
	}
}

func (h *eventHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
