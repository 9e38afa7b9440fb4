package flood

import (
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestGate(t *testing.T, limit int) (*Floodgate, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	fg := New(limit)
	fg.now = clock.Now
	t.Cleanup(fg.Stop)
	return fg, clock
}

func TestFloodgate_Allow_WithinLimit(t *testing.T) {
	fg, _ := newTestGate(t, 3)

	for i := 0; i < 3; i++ {
		if !fg.Allow("10.0.0.1") {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if fg.Allow("10.0.0.1") {
		t.Error("4th request should be blocked")
	}
}

func TestFloodgate_Allow_SlidingWindow(t *testing.T) {
	fg, clock := newTestGate(t, 2)

	fg.Allow("10.0.0.1")
	clock.Advance(30 * time.Second)
	fg.Allow("10.0.0.1")

	if fg.Allow("10.0.0.1") {
		t.Error("Third request inside the window should be blocked")
	}

	// First request leaves the window, second is still inside it.
	clock.Advance(31 * time.Second)
	if !fg.Allow("10.0.0.1") {
		t.Error("Request after the first one expired should be allowed")
	}
	if fg.Allow("10.0.0.1") {
		t.Error("Window is full again and should block")
	}
}

func TestFloodgate_Allow_PerClient(t *testing.T) {
	fg, _ := newTestGate(t, 1)

	if !fg.Allow("10.0.0.1") {
		t.Error("First client should be allowed")
	}
	if !fg.Allow("10.0.0.2") {
		t.Error("Second client has its own budget and should be allowed")
	}
	if fg.Allow("10.0.0.1") {
		t.Error("First client should be blocked")
	}
}

func TestFloodgate_Allow_RejectionsAreNotRecorded(t *testing.T) {
	fg, clock := newTestGate(t, 1)

	fg.Allow("10.0.0.1")
	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Second)
		fg.Allow("10.0.0.1")
	}

	// 60s after the only accepted request the client has capacity again.
	clock.Advance(10*time.Second + time.Millisecond)
	if !fg.Allow("10.0.0.1") {
		t.Error("Blocked attempts must not extend the window")
	}
}

func TestFloodgate_PurgeIdle(t *testing.T) {
	fg, clock := newTestGate(t, 5)

	fg.Allow("10.0.0.1")
	fg.Allow("10.0.0.2")
	clock.Advance(idleTimeout + time.Second)
	fg.Allow("10.0.0.3")

	fg.purgeIdle()

	stats := fg.Stats()
	if stats.ActiveClients != 1 {
		t.Errorf("Expected 1 active client after purge, got %d", stats.ActiveClients)
	}
}

func TestFloodgate_Stats(t *testing.T) {
	fg, _ := newTestGate(t, 7)

	stats := fg.Stats()
	if stats.LimitPerMinute != 7 {
		t.Errorf("Expected limit 7, got %d", stats.LimitPerMinute)
	}
	if stats.WindowSeconds != 60 {
		t.Errorf("Expected window 60 seconds, got %d", stats.WindowSeconds)
	}
	if stats.ActiveClients != 0 {
		t.Errorf("Expected 0 active clients, got %d", stats.ActiveClients)
	}
}

func TestFloodgate_StopTwice(t *testing.T) {
	fg := New(1)
	fg.Stop()
	fg.Stop()
}

func TestFloodgate_ConcurrentAccess(t *testing.T) {
	fg, _ := newTestGate(t, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if fg.Allow("10.0.0.1") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("Expected exactly 50 allowed requests, got %d", allowed)
	}
}
