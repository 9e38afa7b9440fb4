// Package flood limits how often a single client may request conversions.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the fixed sliding window for rate limiting.
	windowDuration = 60 * time.Second
	// cleanupInterval is how often idle clients are purged.
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long a client may stay silent before its entry is dropped.
	idleTimeout = 10 * time.Minute
)

// Floodgate provides per-client sliding window rate limiting.
type Floodgate struct {
	limitPerMinute int
	clients        map[string]*clientEntry // Key: client address
	mutex          sync.Mutex
	now            func() time.Time
	stopCleanup    chan struct{}
	stopOnce       sync.Once
}

type clientEntry struct {
	requests []time.Time
	lastSeen time.Time
}

// New creates a Floodgate allowing limitPerMinute requests per client within any 60 second window.
func New(limitPerMinute int) *Floodgate {
	fg := &Floodgate{
		limitPerMinute: limitPerMinute,
		clients:        make(map[string]*clientEntry),
		now:            time.Now,
		stopCleanup:    make(chan struct{}),
	}

	go fg.cleanup()

	return fg
}

// Stop stops the background cleanup goroutine. It is safe to call more than once.
func (fg *Floodgate) Stop() {
	fg.stopOnce.Do(func() {
		close(fg.stopCleanup)
	})
}

// Allow records a request from clientKey and reports whether it is within the limit.
// Rejected requests are not recorded, so a client that backs off regains capacity.
func (fg *Floodgate) Allow(clientKey string) bool {
	now := fg.now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.clients[clientKey]
	if !exists {
		entry = &clientEntry{
			requests: make([]time.Time, 0, fg.limitPerMinute+1),
		}
		fg.clients[clientKey] = entry
	}
	entry.lastSeen = now

	windowStart := now.Add(-windowDuration)
	kept := entry.requests[:0]
	for _, ts := range entry.requests {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	entry.requests = kept

	if len(entry.requests) >= fg.limitPerMinute {
		return false
	}

	entry.requests = append(entry.requests, now)
	return true
}

func (fg *Floodgate) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.purgeIdle()
		case <-fg.stopCleanup:
			return
		}
	}
}

func (fg *Floodgate) purgeIdle() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := fg.now().Add(-idleTimeout)
	for key, entry := range fg.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.clients, key)
		}
	}
}

// Stats returns a snapshot of the gate, reported by /healthz.
func (fg *Floodgate) Stats() Stats {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	return Stats{
		ActiveClients:  len(fg.clients),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}

// Stats contains floodgate statistics.
type Stats struct {
	ActiveClients  int `json:"active_clients"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}
