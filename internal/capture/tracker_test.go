package capture

import (
	"sync"
	"testing"
	"time"
)

// steppedClock lets tests advance time explicitly.
type steppedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newSteppedClock() *steppedClock {
	return &steppedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *steppedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *steppedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestTracker(timeout time.Duration) (*Tracker, *steppedClock) {
	clock := newSteppedClock()
	tr := NewTracker(timeout)
	tr.now = clock.now
	return tr, clock
}

func TestRecordThenPeekWithinWindow(t *testing.T) {
	tr, clock := newTestTracker(30 * time.Second)
	tr.Record("uploads/a.jpg")
	clock.advance(10 * time.Second)

	path, ok := tr.PeekValid()
	if !ok || path != "uploads/a.jpg" {
		t.Fatalf("PeekValid() = (%q, %v), want (uploads/a.jpg, true)", path, ok)
	}

	// Peek is non-destructive while valid.
	path, ok = tr.PeekValid()
	if !ok || path != "uploads/a.jpg" {
		t.Fatalf("second PeekValid() = (%q, %v), want same pending image", path, ok)
	}
}

func TestExpiryIsStickyAcrossReads(t *testing.T) {
	tr, clock := newTestTracker(30 * time.Second)
	tr.Record("uploads/a.jpg")
	clock.advance(30*time.Second + time.Millisecond)

	if path, ok := tr.PeekValid(); ok {
		t.Fatalf("PeekValid() past window = (%q, true), want none", path)
	}
	st := tr.Status()
	if st.PendingImage != "" || st.RemainingSeconds != 0 {
		t.Fatalf("Status() after expiry = %+v, want empty", st)
	}

	// The slot stays empty even if time rewinds conceptually; expiry cleared it.
	if path, ok := tr.PeekValid(); ok {
		t.Fatalf("PeekValid() after sticky expiry = (%q, true), want none", path)
	}
}

func TestConsumeClearsRegardlessOfElapsed(t *testing.T) {
	tr, clock := newTestTracker(30 * time.Second)
	tr.Record("uploads/a.jpg")
	clock.advance(time.Second)
	tr.Consume()

	if path, ok := tr.PeekValid(); ok {
		t.Fatalf("PeekValid() after Consume = (%q, true), want none", path)
	}
}

func TestLastWriteWins(t *testing.T) {
	tr, _ := newTestTracker(30 * time.Second)
	tr.Record("uploads/a.jpg")
	tr.Record("uploads/b.jpg")

	path, ok := tr.Take()
	if !ok || path != "uploads/b.jpg" {
		t.Fatalf("Take() = (%q, %v), want (uploads/b.jpg, true)", path, ok)
	}
	if path, ok := tr.Take(); ok {
		t.Fatalf("second Take() = (%q, true), want none", path)
	}
}

func TestStatusReportsRemainingSeconds(t *testing.T) {
	tr, clock := newTestTracker(30 * time.Second)
	tr.Record("uploads/a.jpg")
	clock.advance(12 * time.Second)

	st := tr.Status()
	if st.PendingImage != "uploads/a.jpg" {
		t.Fatalf("Status().PendingImage = %q, want uploads/a.jpg", st.PendingImage)
	}
	if st.RemainingSeconds != 18 {
		t.Fatalf("Status().RemainingSeconds = %v, want 18", st.RemainingSeconds)
	}
}

func TestStatusAtWindowEdge(t *testing.T) {
	tr, clock := newTestTracker(30 * time.Second)
	tr.Record("uploads/a.jpg")
	clock.advance(30 * time.Second)

	// Exactly at the window boundary the image is still valid.
	st := tr.Status()
	if st.PendingImage != "uploads/a.jpg" || st.RemainingSeconds != 0 {
		t.Fatalf("Status() at edge = %+v, want pending with 0 remaining", st)
	}

	clock.advance(time.Second)
	st = tr.Status()
	if st.PendingImage != "" {
		t.Fatalf("Status() past edge = %+v, want empty", st)
	}
}

func TestConcurrentTakeYieldsSingleWinner(t *testing.T) {
	tr, _ := newTestTracker(30 * time.Second)
	tr.Record("uploads/a.jpg")

	const readers = 16
	var wg sync.WaitGroup
	wins := make(chan string, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if path, ok := tr.Take(); ok {
				wins <- path
			}
		}()
	}
	wg.Wait()
	close(wins)

	var got []string
	for p := range wins {
		got = append(got, p)
	}
	if len(got) != 1 || got[0] != "uploads/a.jpg" {
		t.Fatalf("concurrent Take winners = %v, want exactly one uploads/a.jpg", got)
	}
}

func TestConcurrentExpiryEmitsOneEvent(t *testing.T) {
	tr, clock := newTestTracker(30 * time.Second)

	var mu sync.Mutex
	counts := map[string]int{}
	tr.SetEventHook(func(event string) {
		mu.Lock()
		counts[event]++
		mu.Unlock()
	})

	tr.Record("uploads/a.jpg")
	clock.advance(31 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.PeekValid()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if counts[EventExpired] != 1 {
		t.Fatalf("expired events = %d, want 1", counts[EventExpired])
	}
}

func TestConsumeOnEmptySlotEmitsNothing(t *testing.T) {
	tr, _ := newTestTracker(30 * time.Second)

	var events []string
	tr.SetEventHook(func(event string) { events = append(events, event) })

	tr.Consume()
	if len(events) != 0 {
		t.Fatalf("events after Consume on empty slot = %v, want none", events)
	}
}
