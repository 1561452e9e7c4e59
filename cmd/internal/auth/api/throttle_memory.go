package authapi

import (
	"sync"
	"time"
)

// maxTrackedIPs bounds failureWindow; beyond it stale keys are swept.
const maxTrackedIPs = 10_000

// failureWindow is a per-key sliding window of failed logins. It stands in
// for the audit_log count when no database is configured.
type failureWindow struct {
	mu     sync.Mutex
	events map[string][]time.Time
	limit  int
	window time.Duration
}

func newFailureWindow(limit int, window time.Duration) *failureWindow {
	return &failureWindow{
		events: make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
}

// Blocked reports whether key already has limit failures within the window.
func (f *failureWindow) Blocked(key string, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.pruneLocked(key, now)) >= f.limit
}

// Record adds a failure for key at now.
func (f *failureWindow) Record(key string, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.events) >= maxTrackedIPs {
		for k := range f.events {
			f.pruneLocked(k, now)
		}
	}
	f.events[key] = append(f.pruneLocked(key, now), now)
}

func (f *failureWindow) pruneLocked(key string, now time.Time) []time.Time {
	cut := now.Add(-f.window)
	events := f.events[key]
	dst := events[:0]
	for _, t := range events {
		if t.After(cut) {
			dst = append(dst, t)
		}
	}
	if len(dst) == 0 {
		delete(f.events, key)
		return nil
	}
	f.events[key] = dst
	return dst
}
