package capture

import (
	"sync"
	"time"
)

// Slot transition events reported through the event hook.
const (
	EventRecorded = "recorded"
	EventConsumed = "consumed"
	EventExpired  = "expired"
	EventCleared  = "cleared"
)

// Status is a non-destructive diagnostic view of the pending slot.
type Status struct {
	PendingImage     string  `json:"pending_image,omitempty"`
	RemainingSeconds float64 `json:"timeout_seconds_remaining"`
}

// Tracker holds the single "most recent image awaiting a spoken query" slot.
// A second photo supersedes the first: the slot is last-write-wins, never a
// queue. Expiry is enforced lazily on read; there is no background sweep.
type Tracker struct {
	mu         sync.Mutex
	imagePath  string
	capturedAt time.Time
	timeout    time.Duration
	now        func() time.Time
	onEvent    func(event string)
}

func NewTracker(timeout time.Duration) *Tracker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Tracker{
		timeout: timeout,
		now:     time.Now,
	}
}

// NewTrackerWithClock is NewTracker with an injected time source.
func NewTrackerWithClock(timeout time.Duration, now func() time.Time) *Tracker {
	t := NewTracker(timeout)
	if now != nil {
		t.now = now
	}
	return t
}

// SetEventHook registers a callback invoked (outside handler hot paths but
// under the slot lock) for every slot transition.
func (t *Tracker) SetEventHook(hook func(event string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEvent = hook
}

// Record unconditionally overwrites the slot with path and the current time.
// Any previously pending, unconsumed image is discarded; its file stays on
// disk but is no longer reachable through the tracker.
func (t *Tracker) Record(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.imagePath = path
	t.capturedAt = t.now()
	t.emit(EventRecorded)
}

// PeekValid returns the pending path while the validity window is open.
// Past the window it clears the slot and reports none; concurrent callers
// racing past expiry see exactly one logical clear.
func (t *Tracker) PeekValid() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expireLocked() {
		return "", false
	}
	return t.imagePath, true
}

// Take is the atomic peek-plus-consume used when correlating an utterance:
// it returns the pending path and clears the slot in one critical section,
// so two concurrent audio uploads can never both claim the same image.
func (t *Tracker) Take() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expireLocked() {
		return "", false
	}
	path := t.imagePath
	t.clearLocked()
	t.emit(EventConsumed)
	return path, true
}

// Consume clears the slot unconditionally.
func (t *Tracker) Consume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.imagePath == "" {
		return
	}
	t.clearLocked()
	t.emit(EventCleared)
}

// Status applies the same expiry check as PeekValid and reports the seconds
// left in the window, floored at zero.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expireLocked() {
		return Status{}
	}
	remaining := t.timeout - t.now().Sub(t.capturedAt)
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		PendingImage:     t.imagePath,
		RemainingSeconds: remaining.Seconds(),
	}
}

// expireLocked reports whether the slot is empty, clearing it first if the
// window has lapsed. Callers must hold t.mu.
func (t *Tracker) expireLocked() bool {
	if t.imagePath == "" {
		return true
	}
	if t.now().Sub(t.capturedAt) <= t.timeout {
		return false
	}
	t.clearLocked()
	t.emit(EventExpired)
	return true
}

func (t *Tracker) clearLocked() {
	t.imagePath = ""
	t.capturedAt = time.Time{}
}

func (t *Tracker) emit(event string) {
	if t.onEvent != nil {
		t.onEvent(event)
	}
}
